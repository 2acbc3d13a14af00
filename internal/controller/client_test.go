package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"tgdash/pkg/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"/api", time.Second, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewClientNormalizesAddress(t *testing.T) {
	c, err := NewClient("10.0.0.2:8000/api/", time.Second, nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.BaseURL() != "http://10.0.0.2:8000/api" {
		t.Fatalf("base=%q", c.BaseURL())
	}
	if _, err := NewClient("http://", time.Second, nil); err == nil {
		t.Fatal("expected error for missing host")
	}
}

func TestClient_Statistics(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/statistics" || r.Method != http.MethodGet {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"tx_rate_l1":{"1":100},"packet_loss":{"2":3},"elapsed_time":4}`))
	})
	s, err := c.Statistics(context.Background())
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}
	if s.TxRateL1["1"] != 100 || s.PacketLoss["2"] != 3 || s.ElapsedTime != 4 {
		t.Fatalf("unexpected statistics: %+v", s)
	}
}

func TestClient_TimeStatisticsLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "30" {
			t.Errorf("limit=%q", got)
		}
		w.Write([]byte(`{"rtt":{"2":{"1":1000}}}`))
	})
	ts, err := c.TimeStatistics(context.Background(), 30)
	if err != nil {
		t.Fatal(err)
	}
	if ts.RTT["2"]["1"] != 1000 {
		t.Fatalf("unexpected: %+v", ts)
	}
}

func TestClient_StartTrafficGen(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/trafficgen" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type %q", ct)
		}
		var def model.TrafficGen
		if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
			t.Errorf("invalid JSON: %v", err)
		}
		if def.PortTxRxMapping["1"] != "2" {
			t.Errorf("mapping lost: %+v", def.PortTxRxMapping)
		}
		w.WriteHeader(http.StatusCreated)
	})
	def := model.TrafficGen{Mode: model.ModeCBR, PortTxRxMapping: model.PortMapping{"1": "2"}}
	if err := c.StartTrafficGen(context.Background(), def); err != nil {
		t.Fatalf("StartTrafficGen failed: %v", err)
	}
}

func TestClient_TrafficGenSingleTest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"mode":1,"streams":[],"stream_settings":[],"port_tx_rx_mapping":{"1":2}}`))
	})
	tests, err := c.TrafficGen(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tests["1"]; !ok || len(tests) != 1 {
		t.Fatalf("tests=%v", tests)
	}
}

func TestClient_StopMethods(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path)
		mu.Unlock()
	})
	ctx := context.Background()
	for _, f := range []func(context.Context) error{c.StopTrafficGen, c.StopProfile, c.Reset, c.Restart} {
		if err := f(ctx); err != nil {
			t.Fatal(err)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	want := "DELETE /api/trafficgen,DELETE /api/profiles,GET /api/reset,GET /api/restart"
	if got := strings.Join(seen, ","); got != want {
		t.Fatalf("got %s", got)
	}
}

func TestClient_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid stream"}`))
	})
	_, err := c.Ports(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity || !strings.Contains(apiErr.Body, "invalid stream") {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
	if IsUnreachable(err) {
		t.Fatal("an answering controller is reachable")
	}
	if strings.Contains(UserMessage(err), "invalid stream") {
		t.Fatal("user message must stay generic")
	}
}

func TestUserMessageIsGeneric(t *testing.T) {
	codes := []int{400, 401, 404, 422, 500}
	for _, code := range codes {
		msg := (&APIError{Status: code, Body: "secret detail"}).UserMessage()
		if msg == "" || strings.Contains(msg, "secret") {
			t.Fatalf("%d: %q", code, msg)
		}
	}
}

func TestIsUnreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	c, err := NewClient(addr, time.Second, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Online(context.Background())
	if err == nil || !IsUnreachable(err) {
		t.Fatalf("expected unreachable, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Online(ctx)
	if IsUnreachable(err) {
		t.Fatalf("cancellation is not unreachability: %v", err)
	}
}
