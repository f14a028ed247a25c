package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"price-stream/src/models"
)

const namespace = "pricestream"

// Metrics holds every collector the feed client exposes. A nil *Metrics is
// valid and records nothing, so components can run without a registry.
type Metrics struct {
	messages       prometheus.Counter
	decodeErrors   prometheus.Counter
	connections    *prometheus.CounterVec // result: open, error, closed
	resets         *prometheus.CounterVec // result: success, failure, rejected
	reconnects     *prometheus.CounterVec // trigger: manual, auto, reset
	status         *prometheus.GaugeVec   // one-hot by status
	seriesLength   prometheus.Gauge
	latestValue    prometheus.Gauge
	viewersCurrent prometheus.Gauge
}

// -----------------------------------------------------------------------------

// New creates the collectors and registers them with r. Already registered
// collectors are reused so tests can share prometheus.DefaultRegisterer.
func New(r prometheus.Registerer) *Metrics {
	m := &Metrics{
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream", Name: "messages_total",
			Help: "Valid price records received from the feed",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream", Name: "decode_errors_total",
			Help: "Frames dropped because they were not valid price records",
		}),
		connections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream", Name: "connections_total",
			Help: "Connection outcomes by result",
		}, []string{"result"}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "session", Name: "resets_total",
			Help: "Reset requests by result",
		}, []string{"result"}),
		reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "session", Name: "reconnects_total",
			Help: "Reconnects by trigger",
		}, []string{"trigger"}),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "session", Name: "status",
			Help: "1 for the current connection status, 0 otherwise",
		}, []string{"status"}),
		seriesLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "series", Name: "length",
			Help: "Number of ticks currently retained",
		}),
		latestValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "session", Name: "latest_value",
			Help: "Most recent price received",
		}),
		viewersCurrent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "server", Name: "viewers",
			Help: "Connected viewer websockets",
		}),
	}

	if r == nil {
		return m
	}

	m.messages = register(r, m.messages)
	m.decodeErrors = register(r, m.decodeErrors)
	m.connections = register(r, m.connections)
	m.resets = register(r, m.resets)
	m.reconnects = register(r, m.reconnects)
	m.status = register(r, m.status)
	m.seriesLength = register(r, m.seriesLength)
	m.latestValue = register(r, m.latestValue)
	m.viewersCurrent = register(r, m.viewersCurrent)
	return m
}

func register[C prometheus.Collector](r prometheus.Registerer, c C) C {
	if err := r.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

// -----------------------------------------------------------------------------

func (m *Metrics) IncMessage() {
	if m == nil {
		return
	}
	m.messages.Inc()
}

func (m *Metrics) IncDecodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

func (m *Metrics) IncConnection(result string) {
	if m == nil {
		return
	}
	m.connections.WithLabelValues(result).Inc()
}

func (m *Metrics) IncReset(result string) {
	if m == nil {
		return
	}
	m.resets.WithLabelValues(result).Inc()
}

func (m *Metrics) IncReconnect(trigger string) {
	if m == nil {
		return
	}
	m.reconnects.WithLabelValues(trigger).Inc()
}

// SetStatus sets the gauge for current to 1 and every other status to 0.
func (m *Metrics) SetStatus(current models.MConnectionStatus) {
	if m == nil {
		return
	}
	for _, s := range []models.MConnectionStatus{
		models.StatusConnecting, models.StatusOpen, models.StatusError, models.StatusClosed,
	} {
		v := 0.0
		if s == current {
			v = 1
		}
		m.status.WithLabelValues(s.String()).Set(v)
	}
}

func (m *Metrics) SetSeriesLength(n int) {
	if m == nil {
		return
	}
	m.seriesLength.Set(float64(n))
}

func (m *Metrics) SetLatestValue(v float64) {
	if m == nil {
		return
	}
	m.latestValue.Set(v)
}

func (m *Metrics) SetViewers(n int) {
	if m == nil {
		return
	}
	m.viewersCurrent.Set(float64(n))
}
