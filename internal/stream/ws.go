package stream

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lorekeep/lorekeep/internal/chat"
)

// Ask is the request frame a client writes on the chat websocket to start
// a turn.
type Ask struct {
	ChatID string `json:"chat_id"`
	Prompt string `json:"prompt"`
}

// WSSource reads one turn's events off a chat websocket. The server writes
// events in order; the source returns io.EOF after the terminal event has
// been consumed.
type WSSource struct {
	conn *websocket.Conn
	done chan struct{}

	mu       sync.Mutex
	closed   bool
	finished bool
}

// Dial connects to the chat websocket at the given HTTP base URL, sends the
// ask frame, and returns a source for the turn's events. The connection is
// closed when the context is cancelled or the stream ends.
func Dial(ctx context.Context, baseURL, chatID, prompt string) (*WSSource, error) {
	wsURL := strings.Replace(baseURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)

	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	u.Path = "/chat"

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket connect: %w", err)
	}

	src := &WSSource{conn: conn, done: make(chan struct{})}

	if err := conn.WriteJSON(Ask{ChatID: chatID, Prompt: prompt}); err != nil {
		src.Close()
		return nil, fmt.Errorf("send ask: %w", err)
	}

	// Close the connection when the caller abandons the turn. Close releases
	// the watcher so it does not outlive streams on never-cancelled contexts.
	go func() {
		select {
		case <-ctx.Done():
			src.Close()
		case <-src.done:
		}
	}()

	return src, nil
}

// Close tears down the connection. Safe to call more than once.
func (s *WSSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
		s.conn.Close()
	}
}

func (s *WSSource) Next(ctx context.Context) (chat.Event, error) {
	s.mu.Lock()
	finished := s.finished
	s.mu.Unlock()
	if finished {
		s.Close()
		return chat.Event{}, io.EOF
	}

	var ev chat.Event
	if err := s.conn.ReadJSON(&ev); err != nil {
		if ctx.Err() != nil {
			return chat.Event{}, ctx.Err()
		}
		return chat.Event{}, fmt.Errorf("read event: %w", err)
	}

	if ev.Type == chat.EventDone || ev.Type == chat.EventError {
		s.mu.Lock()
		s.finished = true
		s.mu.Unlock()
	}
	return ev, nil
}
