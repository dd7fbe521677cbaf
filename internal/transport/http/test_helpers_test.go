package http

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/regatta-live/regata-server/internal/auth"
	"github.com/regatta-live/regata-server/internal/config"
	"github.com/regatta-live/regata-server/internal/core"
	"github.com/regatta-live/regata-server/internal/log"
	"github.com/regatta-live/regata-server/internal/store/sqlite"
)

type testServer struct {
	ts    *httptest.Server
	store *sqlite.SQLiteStore
	hub   *core.Hub
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	logger := log.New("error")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}
	authService := auth.NewService(st, jwtConfig)

	hub := core.NewHub(st, logger, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := NewServer(hub, authService, st, config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
	}, logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testServer{ts: ts, store: st, hub: hub}
}
