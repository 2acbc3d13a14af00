package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tgdash/internal/stats"
	"tgdash/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PutGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, store.KeyTheme); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Put(ctx, store.KeyTheme, []byte(`"dark"`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Put(ctx, store.KeyTheme, []byte(`"light"`)); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	v, err := s.Get(ctx, store.KeyTheme)
	if err != nil || string(v) != `"light"` {
		t.Fatalf("Get = %s, %v", v, err)
	}

	if err := s.Put(ctx, "colour", []byte(`1`)); !errors.Is(err, store.ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
	if err := s.Put(ctx, store.KeyServer, []byte(`{broken`)); err == nil {
		t.Fatal("expected JSON error")
	}

	keys, err := s.Keys(ctx)
	if err != nil || len(keys) != 1 || keys[0] != store.KeyTheme {
		t.Fatalf("Keys = %v, %v", keys, err)
	}
	if err := s.Delete(ctx, store.KeyTheme); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, store.KeyTheme); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestStore_PutAllIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	err := s.PutAll(ctx, map[string][]byte{
		store.KeyTheme: []byte(`"dark"`),
		"bogus":        []byte(`1`),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if keys, _ := s.Keys(ctx); len(keys) != 0 {
		t.Fatalf("nothing should be written, got %v", keys)
	}
}

func TestStore_Results(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second) // SQLite precision

	for i, name := range []string{"first", "second"} {
		r := store.Result{
			Test:       "1",
			Name:       name,
			FinishedAt: now.Add(time.Duration(i) * time.Minute),
			Summary:    stats.Summary{Lost: uint64(i + 1)},
		}
		if err := s.ArchiveResult(ctx, r); err != nil {
			t.Fatalf("ArchiveResult failed: %v", err)
		}
	}

	got, err := s.Results(ctx, 10)
	if err != nil {
		t.Fatalf("Results failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Name != "second" || got[0].Summary.Lost != 2 {
		t.Errorf("expected newest first, got %+v", got[0])
	}
	if !got[1].FinishedAt.Equal(now) {
		t.Errorf("finished_at %v, want %v", got[1].FinishedAt, now)
	}

	got, err = s.Results(ctx, 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("limit ignored: %d %v", len(got), err)
	}
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.sqlite")
	s, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(context.Background(), store.KeyLanguage, []byte(`"de-DE"`)); err != nil {
		t.Fatal(err)
	}
	s.Close()
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}

	s, err = NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	v, err := s.Get(context.Background(), store.KeyLanguage)
	if err != nil || string(v) != `"de-DE"` {
		t.Fatalf("Get = %s, %v", v, err)
	}
}
