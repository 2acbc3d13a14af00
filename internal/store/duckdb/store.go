package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"tgdash/internal/store"
)

type Store struct {
	db  *sql.DB
	put *sql.Stmt
	ins *sql.Stmt
}

var _ store.Store = (*Store)(nil)

func NewStore(path string) (*Store, error) {
	// an empty path opens an in-memory database
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	ddl := []string{`
CREATE TABLE IF NOT EXISTS config (
	key        VARCHAR PRIMARY KEY,
	value      VARCHAR NOT NULL,
	updated_at TIMESTAMP
);`,
		`CREATE SEQUENCE IF NOT EXISTS results_id START 1;`,
		`
CREATE TABLE IF NOT EXISTS results (
	id          BIGINT PRIMARY KEY DEFAULT nextval('results_id'),
	test        VARCHAR,
	name        VARCHAR,
	finished_at TIMESTAMP,
	summary     VARCHAR
);`,
	}
	for _, q := range ddl {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	put, err := s.db.Prepare(`
INSERT INTO config (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;
`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	s.put = put
	ins, err := s.db.Prepare(`
INSERT INTO results (test, name, finished_at, summary) VALUES (?, ?, ?, ?);
`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	s.ins = ins
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?;`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return []byte(v), nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := store.CheckKey(key); err != nil {
		return err
	}
	if !json.Valid(value) {
		return fmt.Errorf("put %s: value is not JSON", key)
	}
	if _, err := s.put.ExecContext(ctx, key, string(value), time.Now().UTC()); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *Store) PutAll(ctx context.Context, values map[string][]byte) error {
	for key, v := range values {
		if err := store.CheckKey(key); err != nil {
			return err
		}
		if !json.Valid(v) {
			return fmt.Errorf("put %s: value is not JSON", key)
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt := tx.StmtContext(ctx, s.put)
	now := time.Now().UTC()
	for key, v := range values {
		if _, err := stmt.ExecContext(ctx, key, string(v), now); err != nil {
			return fmt.Errorf("put %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM config WHERE key = ?;`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM config ORDER BY key;`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *Store) ArchiveResult(ctx context.Context, r store.Result) error {
	summary, err := json.Marshal(r.Summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}
	if _, err := s.ins.ExecContext(ctx, r.Test, r.Name, r.FinishedAt.UTC(), string(summary)); err != nil {
		return fmt.Errorf("archive result: %w", err)
	}
	return nil
}

func (s *Store) Results(ctx context.Context, limit int) ([]store.Result, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, test, name, finished_at, summary
FROM results
ORDER BY finished_at DESC, id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	out := make([]store.Result, 0, 16)
	for rows.Next() {
		var (
			r       store.Result
			summary string
		)
		if err := rows.Scan(&r.ID, &r.Test, &r.Name, &r.FinishedAt, &summary); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal([]byte(summary), &r.Summary); err != nil {
			return nil, fmt.Errorf("decode summary %d: %w", r.ID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

func (s *Store) Close() error {
	var firstErr error
	for _, stmt := range []*sql.Stmt{s.put, s.ins} {
		if stmt != nil {
			if err := stmt.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
