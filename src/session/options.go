package session

import (
	"time"

	"price-stream/src/endpoint"
	"price-stream/src/models"
	"price-stream/src/utils"

	"github.com/cenkalti/backoff/v4"
)

// Options fixes where a Controller connects and how it buffers.
type Options struct {
	StreamURL   string
	ResetURL    string
	Capacity    int
	EventBuffer int
	Reconnect   models.MReconnectConfig
}

// OptionsFromConfig resolves the feed endpoints for the configured host.
func OptionsFromConfig(cfg *models.MConfig) Options {
	eps := endpoint.Resolve(cfg.Feed.HostName, endpoint.ConventionFromConfig(cfg.Feed))
	return Options{
		StreamURL:   eps.StreamURL,
		ResetURL:    eps.ResetURL,
		Capacity:    cfg.Series.Capacity,
		EventBuffer: cfg.Stream.EventBuffer,
		Reconnect:   cfg.Reconnect,
	}
}

func (o Options) withDefaults() Options {
	if o.Capacity <= 0 {
		o.Capacity = utils.DefaultSeriesCapacity
	}
	if o.EventBuffer < 0 {
		o.EventBuffer = 0
	}
	return o
}

// -----------------------------------------------------------------------------

// newBackOff builds the retry schedule for automatic reconnects.
func newBackOff(cfg models.MReconnectConfig) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		b.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		b.MaxInterval = cfg.MaxInterval
	}
	if cfg.Multiplier >= 1 {
		b.Multiplier = cfg.Multiplier
	}
	b.MaxElapsedTime = cfg.MaxElapsed
	b.Reset()
	return b
}

// stopTimer stops t and drains a pending fire so the channel can be dropped.
func stopTimer(t *time.Timer) {
	if t != nil && !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
