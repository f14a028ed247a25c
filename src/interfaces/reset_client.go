package interfaces

import "context"

// -----------------------------------------------------------------------------
// IResetClient asks the feed server to clear its history.
// -----------------------------------------------------------------------------

type IResetClient interface {

	// Reset returns nil only for a 2xx response.
	Reset(ctx context.Context, url string) error
}
