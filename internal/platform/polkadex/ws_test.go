package polkadex

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newWSServer accepts websocket upgrades and holds each connection open
// until the client drops it.
func newWSServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnectRetiresPreviousConnection(t *testing.T) {
	srv := newWSServer(t)
	s := NewSession(wsURL(srv), "token", wsTestLogger())
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Connect(context.Background()))

	s.mu.RLock()
	firstConn := s.conn
	firstDone := s.connDone
	s.mu.RUnlock()

	// A second Connect must hand the keepalive and read loops over to the
	// new connection instead of leaving the old ones running.
	require.NoError(t, s.Connect(context.Background()))

	select {
	case <-firstDone:
	case <-time.After(2 * time.Second):
		t.Fatal("previous connection loops were not released")
	}

	s.mu.RLock()
	assert.NotSame(t, firstConn, s.conn)
	s.mu.RUnlock()
}

func TestSessionCloseStopsStreams(t *testing.T) {
	srv := newWSServer(t)
	s := NewSession(wsURL(srv), "token", wsTestLogger())

	require.NoError(t, s.Connect(context.Background()))

	ch, err := s.Subscribe(context.Background(), "polkadex-123-ob-inc")
	require.NoError(t, err)

	require.NoError(t, s.Close())
	_, ok := <-ch
	assert.False(t, ok)

	// Closing again is a no-op, and a closed session cannot reconnect.
	require.NoError(t, s.Close())
	require.Error(t, s.Connect(context.Background()))
}
