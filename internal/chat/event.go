// Package chat implements the streaming chat turn model: typed stream
// events, the pure phase reducer, and the service binding events to the
// session store.
package chat

// Phase is the lifecycle stage of one in-flight assistant turn.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseThinking Phase = "thinking"
	PhaseWriting  Phase = "writing"
	PhaseTool     Phase = "tool"
	PhaseDone     Phase = "done"
	PhaseError    Phase = "error"
)

// Terminal reports whether the phase ends the turn.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseError
}

// EventType tags a stream event.
type EventType string

const (
	EventStatus EventType = "status"
	EventOutput EventType = "output"
	EventDone   EventType = "done"
	EventError  EventType = "error"
)

// OutputKind distinguishes incremental tokens from one-shot message content.
type OutputKind string

const (
	OutputToken   OutputKind = "token"
	OutputMessage OutputKind = "message"
)

// Payload carries the type-dependent body of an event. Which fields are
// meaningful depends on the event type.
type Payload struct {
	// status
	Phase Phase  `json:"phase,omitempty"`
	Label string `json:"label,omitempty"`

	// output
	Kind    OutputKind `json:"kind,omitempty"`
	Content string     `json:"content,omitempty"`

	// error
	Message string `json:"message,omitempty"`
}

// Event is one message on the turn stream, tagged with the chat it belongs
// to. Events for a given chat arrive in order; different chats have no
// ordering relationship.
type Event struct {
	ChatID  string    `json:"chat_id"`
	Type    EventType `json:"type"`
	Payload Payload   `json:"payload,omitempty"`
}

// StatusEvent reports a phase transition with an optional label.
func StatusEvent(chatID string, phase Phase, label string) Event {
	return Event{ChatID: chatID, Type: EventStatus, Payload: Payload{Phase: phase, Label: label}}
}

// TokenEvent carries an incremental content fragment.
func TokenEvent(chatID, content string) Event {
	return Event{ChatID: chatID, Type: EventOutput, Payload: Payload{Kind: OutputToken, Content: content}}
}

// MessageEvent carries full message content in one shot.
func MessageEvent(chatID, content string) Event {
	return Event{ChatID: chatID, Type: EventOutput, Payload: Payload{Kind: OutputMessage, Content: content}}
}

// DoneEvent signals successful completion of the turn.
func DoneEvent(chatID string) Event {
	return Event{ChatID: chatID, Type: EventDone}
}

// ErrorEvent signals terminal failure of the turn.
func ErrorEvent(chatID, message string) Event {
	return Event{ChatID: chatID, Type: EventError, Payload: Payload{Message: message}}
}
