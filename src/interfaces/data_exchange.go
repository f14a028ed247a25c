package interfaces

import "price-stream/src/models"

// -----------------------------------------------------------------------------
// IStateObserver receives every session mutation. Implementations must not
// block; the controller calls it from its event loop.
// -----------------------------------------------------------------------------

type IStateObserver interface {
	OnSessionUpdate(update models.MSessionUpdate)
}

// -----------------------------------------------------------------------------
// IDataExchanger shares session state with external viewers.
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	IStateObserver

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
