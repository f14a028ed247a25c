package interfaces

import (
	"context"

	"price-stream/src/models"
)

// -----------------------------------------------------------------------------
// ISessionController is the control surface the presentation layers drive.
// -----------------------------------------------------------------------------

type ISessionController interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Reconnect(ctx context.Context) error
	Reset(ctx context.Context) error
	Snapshot(ctx context.Context) (models.MSessionSnapshot, error)
}
