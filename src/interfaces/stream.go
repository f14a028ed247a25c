package interfaces

import "price-stream/src/models"

// -----------------------------------------------------------------------------
// IStreamConnection is one live feed connection. Close is synchronous and
// idempotent; no event for this connection is delivered after it returns.
// -----------------------------------------------------------------------------

type IStreamConnection interface {
	Generation() uint64
	Status() models.MConnectionStatus
	Close()
}

// -----------------------------------------------------------------------------
// IStreamDialer opens connections that report into sink.
// -----------------------------------------------------------------------------

type IStreamDialer interface {
	// Dial returns immediately with a connection in the Connecting state.
	Dial(gen uint64, url string, sink chan<- models.MStreamEvent) IStreamConnection
}
