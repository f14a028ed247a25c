package server

import (
	"context"
	"errors"
	"net/http"

	"price-stream/src/analysis"
	"price-stream/src/helpers"
	"price-stream/src/models"
)

// -----------------------------------------------------------------------------

// statusFor maps session errors onto HTTP status codes.
func statusFor(err error) int {
	var resetErr *helpers.ResetError
	switch {
	case errors.Is(err, helpers.ErrResetInProgress), errors.Is(err, helpers.ErrSessionActive):
		return http.StatusConflict
	case errors.As(err, &resetErr):
		return http.StatusBadGateway
	case errors.Is(err, helpers.ErrControllerClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// -----------------------------------------------------------------------------

// forDisplay rounds the derived stats for presentation. Series values are
// passed through unchanged.
func forDisplay(snap models.MSessionSnapshot) models.MSessionSnapshot {
	snap.Stats = analysis.RoundForDisplay(snap.Stats, displayPlaces)
	if snap.Series == nil {
		snap.Series = []models.MTick{}
	}
	return snap
}
