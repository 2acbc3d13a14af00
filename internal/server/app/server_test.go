package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"go.uber.org/zap/zaptest"

	"tgdash/internal/config"
	"tgdash/internal/store"
	"tgdash/internal/store/backend"
)

func TestNewServerUsesStoredControllerAddress(t *testing.T) {
	var hits atomic.Int32
	ctl := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ctl.Close()

	cfg := config.DefaultConfig()
	cfg.Controller.Address = "http://127.0.0.1:1"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "dash.sqlite")

	st, err := backend.Open(cfg.Storage)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveSettings(context.Background(), st, store.Settings{Server: ctl.URL, Test: "1"}); err != nil {
		t.Fatal(err)
	}
	st.Close()

	srv, err := NewServer(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer srv.Shutdown(context.Background())

	srv.poller.Refresh(context.Background())
	if n := hits.Load(); n != 3 {
		t.Fatalf("controller hits=%d", n)
	}
	if !srv.poller.Snapshot().Online {
		t.Fatal("expected controller online")
	}

	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/summary", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}
