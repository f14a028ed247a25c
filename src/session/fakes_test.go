package session

import (
	"context"
	"sync"
	"sync/atomic"

	"price-stream/src/interfaces"
	"price-stream/src/models"
)

type fakeConn struct {
	gen    uint64
	closed atomic.Bool
}

func (f *fakeConn) Generation() uint64 { return f.gen }

func (f *fakeConn) Status() models.MConnectionStatus {
	if f.closed.Load() {
		return models.StatusClosed
	}
	return models.StatusConnecting
}

func (f *fakeConn) Close() { f.closed.Store(true) }

// fakeDialer records every dial and lets tests inject events for any generation.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	urls  []string
	sink  chan<- models.MStreamEvent
}

func (d *fakeDialer) Dial(gen uint64, url string, sink chan<- models.MStreamEvent) interfaces.IStreamConnection {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := &fakeConn{gen: gen}
	d.conns = append(d.conns, c)
	d.urls = append(d.urls, url)
	d.sink = sink
	return c
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

func (d *fakeDialer) emit(ev models.MStreamEvent) {
	d.mu.Lock()
	sink := d.sink
	d.mu.Unlock()
	sink <- ev
}

func (d *fakeDialer) tick(gen uint64, value float64, label string) {
	d.emit(models.MStreamEvent{Kind: models.EventMessage, Generation: gen, Tick: models.MTick{Value: value, Label: label}})
}

// fakeResetter answers with err, optionally after gate is closed.
type fakeResetter struct {
	mu    sync.Mutex
	err   error
	gate  chan struct{}
	calls atomic.Int32
}

func (r *fakeResetter) Reset(ctx context.Context, url string) error {
	r.calls.Add(1)
	r.mu.Lock()
	gate, err := r.gate, r.err
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// recorder collects observer updates.
type recorder struct {
	mu      sync.Mutex
	updates []models.MSessionUpdate
}

func (r *recorder) OnSessionUpdate(u models.MSessionUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) all() []models.MSessionUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.MSessionUpdate(nil), r.updates...)
}
