package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/lorekeep/lorekeep/internal/chat"
)

// Dispatcher pumps events from a Source into the chat service. A single
// consumer loop preserves per-chat arrival order; chats can be cancelled
// individually so late events for an abandoned turn are dropped.
type Dispatcher struct {
	src    Source
	svc    *chat.Service
	logger *slog.Logger

	// onEvent, when set, observes every applied event (UI rendering hook).
	onEvent func(chat.Event)

	mu        sync.Mutex
	cancelled map[string]bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithObserver calls fn after each event has been applied.
func WithObserver(fn func(chat.Event)) DispatcherOption {
	return func(d *Dispatcher) { d.onEvent = fn }
}

// NewDispatcher creates a dispatcher for the given source and service.
func NewDispatcher(src Source, svc *chat.Service, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		src:       src,
		svc:       svc,
		logger:    logger,
		cancelled: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Cancel stops processing further events for the given chat. Events already
// applied are unaffected.
func (d *Dispatcher) Cancel(chatID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelled[chatID] = true
}

func (d *Dispatcher) isCancelled(chatID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelled[chatID]
}

// Run consumes the source until it ends or the context is cancelled.
// Returns nil on clean stream end.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		ev, err := d.src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if d.isCancelled(ev.ChatID) {
			d.logger.Debug("dropping event for cancelled chat", "chat_id", ev.ChatID, "type", ev.Type)
			continue
		}

		d.svc.Apply(ctx, ev)
		if d.onEvent != nil {
			d.onEvent(ev)
		}
	}
}
