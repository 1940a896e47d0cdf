package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// newWSServer upgrades connections and holds them open until the client
// hangs up.
func newWSServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
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
	t.Cleanup(ts.Close)
	return ts
}

func TestWSSourceCloseReleasesContextWatcher(t *testing.T) {
	ts := newWSServer(t)

	// Background context is never cancelled; Close alone must release the
	// watcher goroutine.
	src, err := Dial(context.Background(), ts.URL, "c1", "hello")
	require.NoError(t, err)

	src.Close()
	select {
	case <-src.done:
	case <-time.After(time.Second):
		t.Fatal("Close did not signal the context watcher")
	}

	src.Close() // still safe to call again
}

func TestWSSourceContextCancelClosesConnection(t *testing.T) {
	ts := newWSServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	src, err := Dial(ctx, ts.URL, "c1", "hello")
	require.NoError(t, err)
	defer src.Close()

	cancel()

	_, err = src.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
