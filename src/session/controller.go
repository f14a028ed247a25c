package session

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"price-stream/src/analysis"
	"price-stream/src/helpers"
	"price-stream/src/interfaces"
	"price-stream/src/logger"
	"price-stream/src/metrics"
	"price-stream/src/models"
	"price-stream/src/utils"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const (
	UpdateTypeUpdate = "UPDATE"
	UpdateTypeReset  = "RESET"
)

// -----------------------------------------------------------------------------
// Controller owns the session state. Every mutation happens on the goroutine
// running Run; the public methods hand closures to it and wait.
// -----------------------------------------------------------------------------

type Controller struct {
	opts     Options
	dialer   interfaces.IStreamDialer
	resetter interfaces.IResetClient
	observer interfaces.IStateObserver
	log      *logger.Logger
	metrics  *metrics.Metrics
	analysis *analysis.AnalysisFacade
	errs     *helpers.ErrorHandler

	cmds         chan func()
	events       chan models.MStreamEvent
	resetResults chan resetResult
	done         chan struct{}
	running      atomic.Bool
	runCtx       context.Context

	// Owned by the loop.
	gen          uint64
	conn         interfaces.IStreamConnection
	status       models.MConnectionStatus
	series       *utils.RingBuffer
	latest       *models.MTick
	messageCount int
	sessionID    string
	resetPending bool
	lastError    string
	backoff      *backoff.ExponentialBackOff
	retryTimer   *time.Timer
}

var _ interfaces.ISessionController = (*Controller)(nil)

type resetResult struct {
	err   error
	reply chan<- error
}

// -----------------------------------------------------------------------------

func NewController(opts Options, dialer interfaces.IStreamDialer, resetter interfaces.IResetClient, log *logger.Logger, m *metrics.Metrics) *Controller {
	if log == nil {
		log = logger.NewNop()
	}
	opts = opts.withDefaults()

	c := &Controller{
		opts:         opts,
		dialer:       dialer,
		resetter:     resetter,
		log:          log,
		metrics:      m,
		analysis:     analysis.NewAnalysisFacade(log.Named("stats")),
		errs:         helpers.NewErrorHandler(log),
		cmds:         make(chan func()),
		events:       make(chan models.MStreamEvent, opts.EventBuffer),
		resetResults: make(chan resetResult),
		done:         make(chan struct{}),
		runCtx:       context.Background(),
		status:       models.StatusClosed,
		series:       utils.NewRingBuffer(opts.Capacity),
		backoff:      newBackOff(opts.Reconnect),
	}
	m.SetStatus(c.status)
	return c
}

// SetObserver registers the receiver of session updates. Call before Run.
func (c *Controller) SetObserver(o interfaces.IStateObserver) {
	c.observer = o
}

// -----------------------------------------------------------------------------

// Run processes commands and connection events until ctx ends, then disposes
// the live connection. It returns nil on a normal shutdown.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("controller already running")
	}
	c.runCtx = ctx
	defer close(c.done)
	defer c.teardown()

	c.log.Info("Session controller started: stream=%s reset=%s capacity=%d auto_reconnect=%t",
		c.opts.StreamURL, c.opts.ResetURL, c.opts.Capacity, c.opts.Reconnect.Auto)

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-c.cmds:
			fn()
		case ev := <-c.events:
			c.handleEvent(ev)
		case res := <-c.resetResults:
			c.applyReset(res)
		case <-c.retryC():
			c.retryTimer = nil
			c.log.Info("Automatic reconnect (generation %d failed)", c.gen)
			c.metrics.IncReconnect("auto")
			c.connect()
		}
	}
}

func (c *Controller) teardown() {
	c.cancelRetry()
	c.closeConn()
	if c.status != models.StatusClosed {
		c.status = models.StatusClosed
		c.metrics.SetStatus(c.status)
	}
	c.log.Info("Session controller stopped")
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// -----------------------------------------------------------------------------
// Public operations
// -----------------------------------------------------------------------------

// do runs fn on the loop and waits for it to finish.
func (c *Controller) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}

	select {
	case c.cmds <- wrapped:
	case <-c.done:
		return helpers.ErrControllerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// Start opens a new session. It fails with ErrSessionActive while a connection
// is still connecting or open; use Reconnect to replace it.
func (c *Controller) Start(ctx context.Context) error {
	var err error
	if doErr := c.do(ctx, func() { err = c.start() }); doErr != nil {
		return doErr
	}
	return err
}

// Stop disposes the current connection without opening another.
func (c *Controller) Stop(ctx context.Context) error {
	return c.do(ctx, c.stop)
}

// Reconnect replaces the current connection, whatever its state.
func (c *Controller) Reconnect(ctx context.Context) error {
	return c.do(ctx, func() {
		c.metrics.IncReconnect("manual")
		c.reconnect()
	})
}

// Reset asks the feed to clear its history and, only once it acknowledges,
// clears local state and reconnects. On failure local state is untouched and
// the returned error wraps *helpers.ResetError. If ctx ends first the call
// returns ctx.Err() but the reset still runs to completion.
func (c *Controller) Reset(ctx context.Context) error {
	reply := make(chan error, 1)
	var rejected error
	err := c.do(ctx, func() {
		if c.resetPending {
			c.metrics.IncReset("rejected")
			rejected = helpers.ErrResetInProgress
			return
		}
		c.resetPending = true
		c.cancelRetry()
		c.publish(UpdateTypeUpdate, nil)

		// Keep the caller's trace but not its cancellation.
		callCtx := trace.ContextWithSpanContext(c.runCtx, trace.SpanContextFromContext(ctx))
		go c.callReset(callCtx, reply)
	})
	if err != nil {
		return err
	}
	if rejected != nil {
		return rejected
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return helpers.ErrControllerClosed
	}
}

func (c *Controller) callReset(ctx context.Context, reply chan<- error) {
	c.log.Info("Requesting feed reset at %s", c.opts.ResetURL)
	err := c.resetter.Reset(ctx, c.opts.ResetURL)
	select {
	case c.resetResults <- resetResult{err: err, reply: reply}:
	case <-c.done:
	}
}

// Snapshot returns a consistent copy of the session with stats computed now.
func (c *Controller) Snapshot(ctx context.Context) (models.MSessionSnapshot, error) {
	var snap models.MSessionSnapshot
	err := c.do(ctx, func() { snap = c.snapshot() })
	return snap, err
}

// -----------------------------------------------------------------------------
// Loop-side operations
// -----------------------------------------------------------------------------

func (c *Controller) start() error {
	if c.conn != nil && !c.status.Terminal() {
		return helpers.ErrSessionActive
	}
	c.sessionID = uuid.NewString()
	c.log.Info("Starting session %s", c.sessionID)
	c.backoff.Reset()
	c.connect()
	return nil
}

func (c *Controller) stop() {
	c.cancelRetry()
	if c.conn == nil {
		return
	}
	c.closeConn()
	c.status = models.StatusClosed
	c.metrics.SetStatus(c.status)
	c.log.Info("Session %s stopped at generation %d", c.sessionID, c.gen)
	c.publish(UpdateTypeUpdate, nil)
}

func (c *Controller) reconnect() {
	c.cancelRetry()
	c.backoff.Reset()
	c.sessionID = uuid.NewString()
	c.log.Info("Reconnecting as session %s", c.sessionID)
	c.connect()
}

// connect disposes the current connection and dials the next generation.
// Automatic retries call it directly and so keep the session id.
// The series is kept; the message count restarts with the session.
func (c *Controller) connect() {
	c.closeConn()

	c.gen++
	c.messageCount = 0
	c.status = models.StatusConnecting
	c.conn = c.dialer.Dial(c.gen, c.opts.StreamURL, c.events)

	c.metrics.SetStatus(c.status)
	c.log.Debug("Dialing generation %d for session %s", c.gen, c.sessionID)
	c.publish(UpdateTypeUpdate, nil)
}

func (c *Controller) closeConn() {
	if c.conn == nil {
		return
	}
	c.conn.Close()
	c.conn = nil
}

// -----------------------------------------------------------------------------

func (c *Controller) handleEvent(ev models.MStreamEvent) {
	if c.conn == nil || ev.Generation != c.conn.Generation() {
		c.log.Debug("Ignoring %s event from stale generation %d (current %d)", ev.Kind, ev.Generation, c.gen)
		return
	}

	switch ev.Kind {
	case models.EventOpen:
		c.status = models.StatusOpen
		c.backoff.Reset()
		c.log.Info("Session %s open (generation %d)", c.sessionID, c.gen)

	case models.EventMessage:
		tick := ev.Tick
		c.latest = &tick
		c.messageCount++
		c.series.Append(tick)
		c.metrics.SetLatestValue(tick.Value)
		c.metrics.SetSeriesLength(c.series.Len())
		c.publish(UpdateTypeUpdate, &tick)
		return

	case models.EventDecodeError:
		c.errs.Handle(ev.Err, "stream decode")
		return

	case models.EventError:
		c.status = models.StatusError
		if ev.Err != nil {
			c.lastError = ev.Err.Error()
		}
		c.errs.Handle(ev.Err, "stream connection")
		c.scheduleRetry()

	case models.EventClosed:
		c.status = models.StatusClosed
		c.log.Info("Session %s closed by feed (generation %d)", c.sessionID, c.gen)
		c.scheduleRetry()
	}

	c.metrics.SetStatus(c.status)
	c.publish(UpdateTypeUpdate, nil)
}

// -----------------------------------------------------------------------------

func (c *Controller) applyReset(res resetResult) {
	c.resetPending = false

	if res.err != nil {
		c.lastError = res.err.Error()
		c.metrics.IncReset("failure")
		c.log.Warning("Reset failed, local state kept: %v", res.err)
		c.publish(UpdateTypeUpdate, nil)
		res.reply <- res.err
		return
	}

	c.series.Clear()
	c.latest = nil
	c.messageCount = 0
	c.lastError = ""
	c.metrics.IncReset("success")
	c.metrics.SetSeriesLength(0)
	c.log.Info("Reset acknowledged, local state cleared")
	c.publish(UpdateTypeReset, nil)

	c.metrics.IncReconnect("reset")
	c.reconnect()
	res.reply <- nil
}

// -----------------------------------------------------------------------------
// Automatic reconnect
// -----------------------------------------------------------------------------

func (c *Controller) scheduleRetry() {
	if !c.opts.Reconnect.Auto || c.resetPending {
		return
	}
	c.cancelRetry()

	delay := c.backoff.NextBackOff()
	if delay == backoff.Stop {
		c.log.Warning("Giving up automatic reconnect after %s", c.opts.Reconnect.MaxElapsed)
		return
	}
	c.log.Info("Reconnecting in %s", delay)
	c.retryTimer = time.NewTimer(delay)
}

func (c *Controller) cancelRetry() {
	if c.retryTimer == nil {
		return
	}
	stopTimer(c.retryTimer)
	c.retryTimer = nil
}

func (c *Controller) retryC() <-chan time.Time {
	if c.retryTimer == nil {
		return nil
	}
	return c.retryTimer.C
}

// -----------------------------------------------------------------------------
// Read model
// -----------------------------------------------------------------------------

func (c *Controller) snapshot() models.MSessionSnapshot {
	series := c.series.Snapshot()
	snap := models.MSessionSnapshot{
		SessionID:    c.sessionID,
		Generation:   c.gen,
		Status:       c.status,
		MessageCount: c.messageCount,
		Series:       series,
		Stats:        c.analysis.Summarize(series),
		ResetPending: c.resetPending,
		LastError:    c.lastError,
		CanReconnect: c.conn == nil || c.status.Terminal(),
	}
	if c.latest != nil {
		v := c.latest.Value
		snap.LatestValue = &v
		snap.LatestLabel = c.latest.Label
	}
	return snap
}

func (c *Controller) publish(kind string, tick *models.MTick) {
	if c.observer == nil {
		return
	}
	update := models.MSessionUpdate{
		Type:         kind,
		SessionID:    c.sessionID,
		Status:       c.status,
		MessageCount: c.messageCount,
		Tick:         tick,
		SeriesLength: c.series.Len(),
	}
	if c.latest != nil {
		v := c.latest.Value
		update.LatestValue = &v
		update.LatestLabel = c.latest.Label
	}
	c.observer.OnSessionUpdate(update)
}
