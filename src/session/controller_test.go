package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"price-stream/src/helpers"
	"price-stream/src/logger"
	"price-stream/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	poll    = 5 * time.Millisecond
)

type harness struct {
	ctrl     *Controller
	dialer   *fakeDialer
	resetter *fakeResetter
	observer *recorder
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	if opts.StreamURL == "" {
		opts.StreamURL = "ws://feed/ws"
		opts.ResetURL = "http://feed/reset"
	}
	if opts.EventBuffer == 0 {
		opts.EventBuffer = 16
	}

	h := &harness{dialer: &fakeDialer{}, resetter: &fakeResetter{}, observer: &recorder{}}
	h.ctrl = NewController(opts, h.dialer, h.resetter, logger.NewNop(), nil)
	h.ctrl.SetObserver(h.observer)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- h.ctrl.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-errCh)
	})
	return h
}

func (h *harness) snapshot(t *testing.T) models.MSessionSnapshot {
	t.Helper()
	snap, err := h.ctrl.Snapshot(context.Background())
	require.NoError(t, err)
	return snap
}

func (h *harness) waitSnapshot(t *testing.T, cond func(models.MSessionSnapshot) bool) models.MSessionSnapshot {
	t.Helper()
	var snap models.MSessionSnapshot
	require.Eventually(t, func() bool {
		snap = h.snapshot(t)
		return cond(snap)
	}, waitFor, poll)
	return snap
}

func (h *harness) startOpen(t *testing.T) uint64 {
	t.Helper()
	require.NoError(t, h.ctrl.Start(context.Background()))
	gen := h.snapshot(t).Generation
	h.dialer.emit(models.MStreamEvent{Kind: models.EventOpen, Generation: gen})
	h.waitSnapshot(t, func(s models.MSessionSnapshot) bool { return s.Status == models.StatusOpen })
	return gen
}

// -----------------------------------------------------------------------------

func TestController_InitialState(t *testing.T) {
	h := newHarness(t, Options{})
	snap := h.snapshot(t)

	assert.Equal(t, models.StatusClosed, snap.Status)
	assert.Nil(t, snap.LatestValue)
	assert.Zero(t, snap.MessageCount)
	assert.Empty(t, snap.Series)
	assert.True(t, snap.CanReconnect)
	assert.Zero(t, h.dialer.dials())
}

func TestController_StartDialsResolvedURL(t *testing.T) {
	h := newHarness(t, Options{})
	require.NoError(t, h.ctrl.Start(context.Background()))

	snap := h.snapshot(t)
	assert.Equal(t, models.StatusConnecting, snap.Status)
	assert.Equal(t, uint64(1), snap.Generation)
	assert.NotEmpty(t, snap.SessionID)
	assert.False(t, snap.CanReconnect)
	assert.Equal(t, []string{"ws://feed/ws"}, h.dialer.urls)
}

func TestController_StartWhileActive(t *testing.T) {
	h := newHarness(t, Options{})
	require.NoError(t, h.ctrl.Start(context.Background()))
	assert.ErrorIs(t, h.ctrl.Start(context.Background()), helpers.ErrSessionActive)
	assert.Equal(t, 1, h.dialer.dials())
}

func TestController_ReconnectStartsNewSession(t *testing.T) {
	h := newHarness(t, Options{})
	h.startOpen(t)
	first := h.snapshot(t).SessionID

	require.NoError(t, h.ctrl.Reconnect(context.Background()))
	snap := h.snapshot(t)
	assert.NotEmpty(t, snap.SessionID)
	assert.NotEqual(t, first, snap.SessionID)
	assert.Equal(t, uint64(2), snap.Generation)
}

func TestController_TwoTicks(t *testing.T) {
	h := newHarness(t, Options{})
	gen := h.startOpen(t)

	h.dialer.tick(gen, 50000, "t1")
	h.dialer.tick(gen, 50500, "t2")

	snap := h.waitSnapshot(t, func(s models.MSessionSnapshot) bool { return s.MessageCount == 2 })
	require.NotNil(t, snap.LatestValue)
	assert.Equal(t, 50500.0, *snap.LatestValue)
	assert.Equal(t, "t2", snap.LatestLabel)
	assert.Equal(t, []models.MTick{{Value: 50000, Label: "t1"}, {Value: 50500, Label: "t2"}}, snap.Series)
	assert.InDelta(t, 500, snap.Stats.Change.Absolute, 1e-9)
	assert.InDelta(t, 1.0, snap.Stats.Change.Percentage, 1e-9)
	assert.Equal(t, 50250.0, snap.Stats.Mean)
}

func TestController_DecodeErrorDoesNotCount(t *testing.T) {
	h := newHarness(t, Options{})
	gen := h.startOpen(t)

	h.dialer.tick(gen, 1, "a")
	h.dialer.emit(models.MStreamEvent{Kind: models.EventDecodeError, Generation: gen, Err: helpers.NewDecodeError(helpers.ErrMalformedMessage)})
	h.dialer.tick(gen, 2, "b")

	snap := h.waitSnapshot(t, func(s models.MSessionSnapshot) bool { return len(s.Series) == 2 })
	assert.Equal(t, 2, snap.MessageCount)
	assert.Equal(t, models.StatusOpen, snap.Status)
	assert.Empty(t, snap.LastError)
}

func TestController_StatusTransitions(t *testing.T) {
	h := newHarness(t, Options{})
	gen := h.startOpen(t)

	h.dialer.emit(models.MStreamEvent{Kind: models.EventError, Generation: gen, Err: errors.New("boom")})
	snap := h.waitSnapshot(t, func(s models.MSessionSnapshot) bool { return s.Status == models.StatusError })
	assert.Contains(t, snap.LastError, "boom")
	assert.True(t, snap.CanReconnect)
	assert.Equal(t, 1, h.dialer.dials(), "no automatic reconnect by default")

	require.NoError(t, h.ctrl.Reconnect(context.Background()))
	gen2 := h.snapshot(t).Generation
	h.dialer.emit(models.MStreamEvent{Kind: models.EventClosed, Generation: gen2})
	h.waitSnapshot(t, func(s models.MSessionSnapshot) bool { return s.Status == models.StatusClosed })
}

func TestController_StaleGenerationIgnored(t *testing.T) {
	h := newHarness(t, Options{})
	old := h.startOpen(t)
	h.dialer.tick(old, 10, "old")
	h.waitSnapshot(t, func(s models.MSessionSnapshot) bool { return s.MessageCount == 1 })

	require.NoError(t, h.ctrl.Reconnect(context.Background()))
	assert.True(t, h.dialer.conn(0).closed.Load(), "previous connection disposed")

	snap := h.snapshot(t)
	require.Equal(t, old+1, snap.Generation)
	assert.Zero(t, snap.MessageCount, "count restarts with the session")
	assert.Len(t, snap.Series, 1, "series survives reconnect")

	h.dialer.tick(old, 99, "stale")
	h.dialer.emit(models.MStreamEvent{Kind: models.EventError, Generation: old, Err: errors.New("stale")})
	h.dialer.emit(models.MStreamEvent{Kind: models.EventOpen, Generation: snap.Generation})

	snap = h.waitSnapshot(t, func(s models.MSessionSnapshot) bool { return s.Status == models.StatusOpen })
	assert.Zero(t, snap.MessageCount)
	assert.Equal(t, "old", snap.LatestLabel)
	assert.Empty(t, snap.LastError)
	assert.Len(t, snap.Series, 1)
}

func TestController_StopIsIdempotent(t *testing.T) {
	h := newHarness(t, Options{})
	require.NoError(t, h.ctrl.Stop(context.Background()))
	assert.Zero(t, h.dialer.dials())

	h.startOpen(t)
	require.NoError(t, h.ctrl.Stop(context.Background()))
	require.NoError(t, h.ctrl.Stop(context.Background()))

	snap := h.snapshot(t)
	assert.Equal(t, models.StatusClosed, snap.Status)
	assert.True(t, h.dialer.conn(0).closed.Load())
	assert.True(t, snap.CanReconnect)

	require.NoError(t, h.ctrl.Start(context.Background()), "start is allowed again after stop")
	assert.Equal(t, 2, h.dialer.dials())
}

func TestController_ResetSuccess(t *testing.T) {
	h := newHarness(t, Options{})
	gen := h.startOpen(t)
	h.dialer.tick(gen, 1, "a")
	h.dialer.tick(gen, 2, "b")
	h.waitSnapshot(t, func(s models.MSessionSnapshot) bool { return s.MessageCount == 2 })

	require.NoError(t, h.ctrl.Reset(context.Background()))

	snap := h.snapshot(t)
	assert.Empty(t, snap.Series)
	assert.Nil(t, snap.LatestValue)
	assert.Empty(t, snap.LatestLabel)
	assert.Zero(t, snap.MessageCount)
	assert.False(t, snap.ResetPending)
	assert.Equal(t, models.StatusConnecting, snap.Status)
	assert.Equal(t, gen+1, snap.Generation)
	assert.Equal(t, 2, h.dialer.dials())
	assert.Equal(t, int32(1), h.resetter.calls.Load())

	var sawReset bool
	for _, u := range h.observer.all() {
		if u.Type == UpdateTypeReset {
			sawReset = true
			assert.Zero(t, u.SeriesLength)
		}
	}
	assert.True(t, sawReset)
}

func TestController_ResetFailureLeavesStateUntouched(t *testing.T) {
	h := newHarness(t, Options{})
	gen := h.startOpen(t)
	h.dialer.tick(gen, 50000, "t1")
	h.dialer.tick(gen, 50500, "t2")
	before := h.waitSnapshot(t, func(s models.MSessionSnapshot) bool { return s.MessageCount == 2 })

	h.resetter.err = helpers.NewResetError(500, nil)
	err := h.ctrl.Reset(context.Background())

	var resetErr *helpers.ResetError
	require.True(t, errors.As(err, &resetErr))
	assert.Equal(t, 500, resetErr.StatusCode)

	after := h.snapshot(t)
	assert.Equal(t, before.Series, after.Series)
	assert.Equal(t, before.MessageCount, after.MessageCount)
	assert.Equal(t, *before.LatestValue, *after.LatestValue)
	assert.Equal(t, before.Generation, after.Generation, "no reconnect on failure")
	assert.Equal(t, models.StatusOpen, after.Status)
	assert.Contains(t, after.LastError, "500")
	assert.Equal(t, 1, h.dialer.dials())
}

func TestController_SecondResetRejectedWhilePending(t *testing.T) {
	h := newHarness(t, Options{})
	h.startOpen(t)

	gate := make(chan struct{})
	h.resetter.gate = gate

	first := make(chan error, 1)
	go func() { first <- h.ctrl.Reset(context.Background()) }()
	h.waitSnapshot(t, func(s models.MSessionSnapshot) bool { return s.ResetPending })

	assert.ErrorIs(t, h.ctrl.Reset(context.Background()), helpers.ErrResetInProgress)

	close(gate)
	require.NoError(t, <-first)
	assert.False(t, h.snapshot(t).ResetPending)
	assert.Equal(t, int32(1), h.resetter.calls.Load())
}

func TestController_ResetCallerGivesUp(t *testing.T) {
	h := newHarness(t, Options{})
	h.startOpen(t)

	gate := make(chan struct{})
	h.resetter.gate = gate

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.ctrl.Reset(ctx), context.DeadlineExceeded)

	close(gate)
	snap := h.waitSnapshot(t, func(s models.MSessionSnapshot) bool { return !s.ResetPending })
	assert.Equal(t, 2, h.dialer.dials(), "reset completed after the caller left")
	assert.Equal(t, uint64(2), snap.Generation)
}

func TestController_AutoReconnect(t *testing.T) {
	h := newHarness(t, Options{Reconnect: models.MReconnectConfig{
		Auto:            true,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     20 * time.Millisecond,
		Multiplier:      2,
		MaxElapsed:      time.Second,
	}})
	gen := h.startOpen(t)

	h.dialer.emit(models.MStreamEvent{Kind: models.EventError, Generation: gen, Err: errors.New("drop")})
	require.Eventually(t, func() bool { return h.dialer.dials() == 2 }, waitFor, poll)

	snap := h.snapshot(t)
	assert.Equal(t, gen+1, snap.Generation)
	assert.Equal(t, models.StatusConnecting, snap.Status)
}

func TestController_StopCancelsPendingRetry(t *testing.T) {
	h := newHarness(t, Options{Reconnect: models.MReconnectConfig{
		Auto:            true,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     100 * time.Millisecond,
		Multiplier:      1,
		MaxElapsed:      time.Second,
	}})
	gen := h.startOpen(t)

	h.dialer.emit(models.MStreamEvent{Kind: models.EventClosed, Generation: gen})
	h.waitSnapshot(t, func(s models.MSessionSnapshot) bool { return s.Status == models.StatusClosed })
	require.NoError(t, h.ctrl.Stop(context.Background()))

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 1, h.dialer.dials())
}

func TestController_ObserverSeesTicks(t *testing.T) {
	h := newHarness(t, Options{})
	gen := h.startOpen(t)
	h.dialer.tick(gen, 42, "x")
	h.waitSnapshot(t, func(s models.MSessionSnapshot) bool { return s.MessageCount == 1 })

	var tick *models.MTick
	for _, u := range h.observer.all() {
		if u.Tick != nil {
			tick = u.Tick
		}
	}
	require.NotNil(t, tick)
	assert.Equal(t, 42.0, tick.Value)
}

func TestController_ClosedAfterRunExits(t *testing.T) {
	ctrl := NewController(Options{StreamURL: "ws://x"}, &fakeDialer{}, &fakeResetter{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- ctrl.Run(ctx) }()

	require.NoError(t, ctrl.Start(context.Background()))
	cancel()
	require.NoError(t, <-errCh)
	<-ctrl.Done()

	assert.ErrorIs(t, ctrl.Start(context.Background()), helpers.ErrControllerClosed)
	_, err := ctrl.Snapshot(context.Background())
	assert.ErrorIs(t, err, helpers.ErrControllerClosed)
	assert.Error(t, ctrl.Run(context.Background()), "Run is single-use")
}
