package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/lorekeep/lorekeep/internal/kv"
)

// StorageKey is the fixed key the serialized store lives under.
const StorageKey = "sessions"

// persisted is the serialized shape of the store.
type persisted struct {
	Sessions         []*Session `json:"sessions"`
	CurrentSessionID string     `json:"current_session_id,omitempty"`
}

// Store owns all persisted session data plus the identity of the current
// session. Every mutation is applied under a single lock and written through
// to the kv layer; persistence failures degrade to in-memory operation.
type Store struct {
	mu       sync.Mutex
	kv       kv.Store
	logger   *slog.Logger
	sessions []*Session
	current  string
	hydrated bool
}

// NewStore creates a store backed by the given kv layer. Call Hydrate before
// reading state that may have survived a previous run.
func NewStore(kvs kv.Store, logger *slog.Logger) *Store {
	if kvs == nil {
		panic("session: NewStore requires a kv.Store")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kvs, logger: logger}
}

// Hydrate loads persisted state. A missing key means a fresh store; both
// outcomes flip the hydration flag so callers can tell "not yet loaded" from
// "loaded and empty". Read failures are logged and leave the store empty.
func (s *Store) Hydrate(ctx context.Context) {
	raw, err := s.kv.Get(ctx, StorageKey)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrated = true

	if errors.Is(err, kv.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn("failed to load persisted sessions, starting empty", "error", err)
		return
	}

	var p persisted
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.logger.Warn("corrupt persisted sessions, starting empty", "error", err)
		return
	}
	s.sessions = p.Sessions
	s.current = p.CurrentSessionID
}

// Hydrated reports whether persisted state has been loaded.
func (s *Store) Hydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}

// persistLocked writes the full store through to the kv layer. Failures are
// swallowed: the store keeps operating in memory for this mutation.
// Caller must hold s.mu.
func (s *Store) persistLocked(ctx context.Context) {
	raw, err := json.Marshal(persisted{
		Sessions:         s.sessions,
		CurrentSessionID: s.current,
	})
	if err != nil {
		s.logger.Warn("failed to serialize sessions", "error", err)
		return
	}
	if err := s.kv.Set(ctx, StorageKey, string(raw)); err != nil {
		s.logger.Warn("failed to persist sessions, continuing in memory", "error", err)
	}
}

// findLocked returns the session with the given id. Caller must hold s.mu.
func (s *Store) findLocked(id string) *Session {
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess
		}
	}
	return nil
}

// AddSession creates a new session with a fresh unique id and returns the id.
// It does not change the current-session pointer; switching is the caller's
// decision.
func (s *Store) AddSession(ctx context.Context, title string) string {
	if title == "" {
		title = DefaultTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &Session{
		ID:       uuid.New().String(),
		Title:    title,
		Messages: []Message{},
	}
	s.sessions = append(s.sessions, sess)
	s.persistLocked(ctx)

	s.logger.Debug("session created", "chat_id", sess.ID, "title", title)
	return sess.ID
}

// SetCurrentSessionID sets the current-session pointer. The id is not
// validated; a dangling pointer resolves to no active session.
func (s *Store) SetCurrentSessionID(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = id
	s.persistLocked(ctx)
}

// CurrentSessionID returns the raw pointer value, which may be dangling.
func (s *Store) CurrentSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// CurrentSession resolves the pointer against the collection. Returns nil
// when unset or dangling; never errors.
func (s *Store) CurrentSession() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == "" {
		return nil
	}
	sess := s.findLocked(s.current)
	if sess == nil {
		return nil
	}
	return snapshot(sess)
}

// Session returns a snapshot of the session with the given id, or nil.
func (s *Store) Session(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.findLocked(id)
	if sess == nil {
		return nil
	}
	return snapshot(sess)
}

// Has reports whether a session with the given id exists.
func (s *Store) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(id) != nil
}

// Sessions returns snapshots of all sessions in creation order.
func (s *Store) Sessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, *snapshot(sess))
	}
	return out
}

// AppendMessage appends a finished message to the session. No-op when the
// session does not exist.
func (s *Store) AppendMessage(ctx context.Context, chatID, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.findLocked(chatID)
	if sess == nil {
		return
	}
	sess.Messages = append(sess.Messages, Message{
		Content: content,
		Role:    role,
		ChatID:  chatID,
	})
	s.persistLocked(ctx)
}

// AppendChatToken appends streamed content to the turn's in-progress
// assistant message, creating it when absent. No-op when the session does
// not exist (late events after delete).
func (s *Store) AppendChatToken(ctx context.Context, chatID, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.findLocked(chatID)
	if sess == nil {
		return
	}

	if n := len(sess.Messages); n > 0 && sess.Messages[n-1].Draft {
		sess.Messages[n-1].Content += token
	} else {
		sess.Messages = append(sess.Messages, Message{
			Content: token,
			Role:    RoleAssistant,
			ChatID:  chatID,
			Draft:   true,
		})
	}
	s.persistLocked(ctx)
}

// SetMessageContent replaces the turn's assistant message content in one
// shot and finalizes it. Used for non-incremental output events.
func (s *Store) SetMessageContent(ctx context.Context, chatID, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.findLocked(chatID)
	if sess == nil {
		return
	}

	if n := len(sess.Messages); n > 0 && sess.Messages[n-1].Draft {
		sess.Messages[n-1].Content = content
		sess.Messages[n-1].Draft = false
	} else {
		sess.Messages = append(sess.Messages, Message{
			Content: content,
			Role:    RoleAssistant,
			ChatID:  chatID,
		})
	}
	s.persistLocked(ctx)
}

// CloseDraft finalizes the turn's in-progress assistant message, if any.
func (s *Store) CloseDraft(ctx context.Context, chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.findLocked(chatID)
	if sess == nil {
		return
	}
	if n := len(sess.Messages); n > 0 && sess.Messages[n-1].Draft {
		sess.Messages[n-1].Draft = false
		s.persistLocked(ctx)
	}
}

// RenameSession sets a session's title. No-op when the session does not exist.
func (s *Store) RenameSession(ctx context.Context, id, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.findLocked(id)
	if sess == nil {
		return
	}
	sess.Title = title
	s.persistLocked(ctx)
}

// DeleteSession removes a session by id. Deleting the current session clears
// the pointer; there is no silent fallback to another session.
func (s *Store) DeleteSession(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sess := range s.sessions {
		if sess.ID == id {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			if s.current == id {
				s.current = ""
			}
			s.persistLocked(ctx)
			s.logger.Debug("session deleted", "chat_id", id)
			return
		}
	}
}

// snapshot copies a session so callers never share the store's backing slice.
func snapshot(sess *Session) *Session {
	cp := *sess
	cp.Messages = make([]Message, len(sess.Messages))
	copy(cp.Messages, sess.Messages)
	return &cp
}
