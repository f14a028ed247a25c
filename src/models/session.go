package models

import "fmt"

// -----------------------------------------------------------------------------
// Connection Status
// -----------------------------------------------------------------------------

// MConnectionStatus is the session-level view of the live connection.
type MConnectionStatus int

const (
	StatusConnecting MConnectionStatus = iota
	StatusOpen
	StatusError
	StatusClosed
)

func (s MConnectionStatus) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusOpen:
		return "open"
	case StatusError:
		return "error"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status only changes again through a new connection.
func (s MConnectionStatus) Terminal() bool {
	return s == StatusError || s == StatusClosed
}

// MarshalText keeps the JSON and YAML forms readable.
func (s MConnectionStatus) MarshalText() ([]byte, error) {
	if s < StatusConnecting || s > StatusClosed {
		return nil, fmt.Errorf("invalid connection status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText accepts exactly the names MarshalText produces.
func (s *MConnectionStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "connecting":
		*s = StatusConnecting
	case "open":
		*s = StatusOpen
	case "error":
		*s = StatusError
	case "closed":
		*s = StatusClosed
	default:
		return fmt.Errorf("unknown connection status %q", text)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Session Snapshot (read model handed to the presentation layer)
// -----------------------------------------------------------------------------

type MSessionSnapshot struct {
	SessionID    string            `json:"session_id"`
	Generation   uint64            `json:"generation"`
	Status       MConnectionStatus `json:"status"`
	LatestValue  *float64          `json:"latest_value"`
	LatestLabel  string            `json:"latest_label"`
	MessageCount int               `json:"message_count"`
	Series       []MTick           `json:"series"`
	Stats        MSeriesStats      `json:"stats"`
	ResetPending bool              `json:"reset_pending"`
	LastError    string            `json:"last_error,omitempty"`
	CanReconnect bool              `json:"can_reconnect"`
}

// -----------------------------------------------------------------------------
// Session Update (pushed after every state mutation)
// -----------------------------------------------------------------------------

type MSessionUpdate struct {
	Type         string            `json:"type"` // "UPDATE" or "RESET"
	SessionID    string            `json:"session_id"`
	Status       MConnectionStatus `json:"status"`
	LatestValue  *float64          `json:"latest_value"`
	LatestLabel  string            `json:"latest_label"`
	MessageCount int               `json:"message_count"`
	Tick         *MTick            `json:"tick,omitempty"`
	SeriesLength int               `json:"series_length"`
}

// -----------------------------------------------------------------------------
// Viewer messages (status server websocket)
// -----------------------------------------------------------------------------

// MViewerInitial is the first message a viewer receives, and the answer to a
// "snapshot" command.
type MViewerInitial struct {
	Type     string           `json:"type"` // "INITIAL"
	Snapshot MSessionSnapshot `json:"snapshot"`
}

// MViewerCommand is what a viewer may send.
type MViewerCommand struct {
	Command string `json:"command"`
}
