package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lorekeep/lorekeep/internal/metrics"
	"github.com/lorekeep/lorekeep/internal/session"
)

// Service composes the session store and the phase reducer into the single
// object callers consume. It owns the transient per-chat turn state and
// routes incoming stream events: output events mutate the store, everything
// else goes through the reducer.
type Service struct {
	store   *session.Store
	logger  *slog.Logger
	metrics *metrics.Collector

	mu     sync.Mutex
	turns  map[string]State
	starts map[string]time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records turn timings on the given collector.
func WithMetrics(mc *metrics.Collector) Option {
	return func(s *Service) { s.metrics = mc }
}

// NewService creates the chat service. The store is a required dependency.
func NewService(store *session.Store, logger *slog.Logger, opts ...Option) *Service {
	if store == nil {
		panic("chat: NewService requires a session store")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:  store,
		logger: logger,
		turns:  make(map[string]State),
		starts: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying session store.
func (s *Service) Store() *session.Store {
	return s.store
}

// TurnState returns the transient state of the chat's in-flight turn, or the
// idle state when no turn is tracked.
func (s *Service) TurnState(chatID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.turns[chatID]; ok {
		return st
	}
	return NewState()
}

// StartTurn resets the chat's transient state for a new turn. The producer
// opens every turn with a status event, so this also happens implicitly; the
// explicit reset exists for callers that render state before the first event
// arrives.
func (s *Service) StartTurn(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns[chatID] = NewState()
	s.starts[chatID] = time.Now()
}

// Apply processes one stream event. Events for sessions that no longer exist
// are dropped, so late arrivals after a delete are no-ops. Once a turn has
// errored, further output events for that chat are dropped as well.
func (s *Service) Apply(ctx context.Context, ev Event) {
	if !s.store.Has(ev.ChatID) {
		s.logger.Debug("dropping event for unknown session", "chat_id", ev.ChatID, "type", ev.Type)
		return
	}

	switch ev.Type {
	case EventOutput:
		if s.TurnState(ev.ChatID).Phase == PhaseError {
			return
		}
		switch ev.Payload.Kind {
		case OutputMessage:
			s.store.SetMessageContent(ctx, ev.ChatID, ev.Payload.Content)
		default:
			s.store.AppendChatToken(ctx, ev.ChatID, ev.Payload.Content)
		}

	default:
		s.mu.Lock()
		prev, ok := s.turns[ev.ChatID]
		if !ok {
			prev = NewState()
			if ev.Type == EventStatus {
				// First event of an untracked turn implicitly starts it.
				s.starts[ev.ChatID] = time.Now()
			}
		}
		next := Reduce(prev, ev)
		s.turns[ev.ChatID] = next
		start, hasStart := s.starts[ev.ChatID]
		if next.Phase.Terminal() {
			delete(s.starts, ev.ChatID)
		}
		s.mu.Unlock()

		if next.Phase.Terminal() {
			s.store.CloseDraft(ctx, ev.ChatID)
			if s.metrics != nil && hasStart {
				s.metrics.RecordTiming(metrics.OpTurn, time.Since(start))
			}
			if next.Phase == PhaseError {
				s.logger.Warn("turn failed", "chat_id", ev.ChatID, "error", next.Err)
			} else {
				s.logger.Debug("turn completed", "chat_id", ev.ChatID)
			}
		}
	}
}

// EndTurn forgets the chat's transient state. Call after the UI has consumed
// the terminal state.
func (s *Service) EndTurn(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.turns, chatID)
	delete(s.starts, chatID)
}

type ctxKey struct{}

// NewContext returns a context carrying the service.
func NewContext(ctx context.Context, svc *Service) context.Context {
	return context.WithValue(ctx, ctxKey{}, svc)
}

// FromContext returns the service bound to the context. Calling it outside
// a NewContext boundary is a programming error and panics rather than
// returning a silent default.
func FromContext(ctx context.Context) *Service {
	svc, ok := ctx.Value(ctxKey{}).(*Service)
	if !ok {
		panic("chat: FromContext called outside a chat.NewContext boundary")
	}
	return svc
}
