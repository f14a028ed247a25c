package models

// -----------------------------------------------------------------------------
// Stream Events (connection -> controller)
// -----------------------------------------------------------------------------

type MStreamEventKind int

const (
	EventOpen MStreamEventKind = iota
	EventMessage
	EventDecodeError
	EventError
	EventClosed
)

func (k MStreamEventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventMessage:
		return "message"
	case EventDecodeError:
		return "decode_error"
	case EventError:
		return "error"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MStreamEvent is one notification from a connection, tagged with the
// generation it was created under. Seq and Tick are set for EventMessage only;
// Err is set for EventDecodeError and EventError.
type MStreamEvent struct {
	Kind       MStreamEventKind
	Generation uint64
	Seq        int
	Tick       MTick
	Err        error
}
