// Package session provides the persisted multi-session chat store.
package session

// Message roles. The wire format mirrors the event stream's chat_id tagging.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultTitle is the placeholder title for freshly created sessions.
const DefaultTitle = "New chat"

// Message is a single chat message. Immutable once its draft flag clears;
// ordering within a session is append order.
type Message struct {
	Content string `json:"content"`
	Role    string `json:"role"`
	ChatID  string `json:"chat_id"`

	// Draft marks the in-progress assistant message of the current turn.
	// Streamed tokens accumulate here until the turn completes.
	Draft bool `json:"draft,omitempty"`
}

// Session is a titled, ordered conversation thread.
type Session struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// LastMessage returns a copy of the most recent message, or false when the
// session is empty.
func (s *Session) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}
