// Package stream consumes the ordered assistant event stream and feeds it
// into the chat service.
package stream

import (
	"context"
	"io"
	"sync"

	"github.com/lorekeep/lorekeep/internal/chat"
)

// Source yields stream events in arrival order. Next returns io.EOF when the
// stream ends cleanly. Implementations must not reorder events that share a
// chat_id.
type Source interface {
	Next(ctx context.Context) (chat.Event, error)
}

// ChanSource adapts a channel of events to a Source. Closing the channel
// ends the stream.
type ChanSource struct {
	ch chan chat.Event

	closeOnce sync.Once
}

// NewChanSource creates a channel-backed source with the given buffer size.
func NewChanSource(buf int) *ChanSource {
	return &ChanSource{ch: make(chan chat.Event, buf)}
}

// Send queues an event. Blocks when the buffer is full.
func (c *ChanSource) Send(ev chat.Event) {
	c.ch <- ev
}

// Close ends the stream. Safe to call more than once.
func (c *ChanSource) Close() {
	c.closeOnce.Do(func() { close(c.ch) })
}

func (c *ChanSource) Next(ctx context.Context) (chat.Event, error) {
	select {
	case <-ctx.Done():
		return chat.Event{}, ctx.Err()
	case ev, ok := <-c.ch:
		if !ok {
			return chat.Event{}, io.EOF
		}
		return ev, nil
	}
}
