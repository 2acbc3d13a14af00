// Package store persists dashboard configuration and finished test results.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tgdash/internal/stats"
)

// Configuration keys. Values are JSON documents.
const (
	KeyServer     = "server"
	KeyTrafficGen = "traffic_gen"
	KeyTest       = "test"
	KeyTheme      = "theme"
	KeyLanguage   = "language"
)

// Keys lists every key the dashboard reads.
var Keys = []string{KeyServer, KeyTrafficGen, KeyTest, KeyTheme, KeyLanguage}

var (
	ErrNotFound   = errors.New("key not found")
	ErrUnknownKey = errors.New("unknown configuration key")
)

// CheckKey rejects keys outside Keys.
func CheckKey(key string) error {
	for _, k := range Keys {
		if k == key {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// Result is the archived summary of one finished test.
type Result struct {
	ID         int64         `json:"id"`
	Test       string        `json:"test"`
	Name       string        `json:"name"`
	FinishedAt time.Time     `json:"finished_at"`
	Summary    stats.Summary `json:"summary"`
}

type Store interface {
	// Get returns ErrNotFound for keys never written.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	// PutAll writes every pair or none.
	PutAll(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)

	ArchiveResult(ctx context.Context, r Result) error
	// Results returns the newest results first.
	Results(ctx context.Context, limit int) ([]Result, error)

	Close() error
}
