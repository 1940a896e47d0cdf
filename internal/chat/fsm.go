package chat

// State is the transient status of one in-flight assistant turn. It is not
// persisted and resets when a new turn starts.
type State struct {
	Phase       Phase
	StatusLabel string
	Err         string
}

// NewState returns the initial turn state.
func NewState() State {
	return State{Phase: PhaseIdle}
}

// Reduce maps (state, event) to the next state. It is pure: no side effects,
// no I/O, no panics. Content handling for output events is explicitly the
// caller's responsibility; the reducer only tracks status.
//
// No transition graph is enforced. The event producer owns sequence validity;
// the reducer stores whatever phase is reported.
func Reduce(s State, ev Event) State {
	switch ev.Type {
	case EventStatus:
		// Label is overwritten, not merged, even when empty.
		s.Phase = ev.Payload.Phase
		s.StatusLabel = ev.Payload.Label
		return s
	case EventOutput:
		return s
	case EventDone:
		s.Phase = PhaseDone
		return s
	case EventError:
		s.Phase = PhaseError
		s.Err = ev.Payload.Message
		return s
	default:
		// Unknown event types are a no-op for forward compatibility.
		return s
	}
}
