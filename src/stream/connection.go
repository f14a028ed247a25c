package stream

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"price-stream/src/helpers"
	"price-stream/src/interfaces"
	"price-stream/src/logger"
	"price-stream/src/metrics"
	"price-stream/src/models"

	"github.com/gorilla/websocket"
)

const closeWriteWait = time.Second

// -----------------------------------------------------------------------------

// Options tunes the websocket client side of a connection.
type Options struct {
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration // 0 disables the read deadline
	MaxMessageSize   int64
	Proxy            func(*http.Request) (*url.URL, error)
	UserAgent        string
}

func OptionsFromConfig(cfg models.MStreamConfig, proxies interfaces.IProxyManager) Options {
	opts := Options{
		HandshakeTimeout: cfg.HandshakeTimeout,
		ReadTimeout:      cfg.ReadTimeout,
		MaxMessageSize:   cfg.MaxMessageSize,
	}
	if proxies != nil {
		opts.Proxy = proxies.ProxyFunc()
		opts.UserAgent = proxies.GetUserAgent()
	}
	return opts
}

// -----------------------------------------------------------------------------
// Dialer
// -----------------------------------------------------------------------------

// Dialer creates Connections sharing one set of options.
type Dialer struct {
	opts    Options
	log     *logger.Logger
	metrics *metrics.Metrics
}

var (
	_ interfaces.IStreamDialer     = (*Dialer)(nil)
	_ interfaces.IStreamConnection = (*Connection)(nil)
)

func NewDialer(opts Options, log *logger.Logger, m *metrics.Metrics) *Dialer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Dialer{opts: opts, log: log, metrics: m}
}

func (d *Dialer) Dial(gen uint64, url string, sink chan<- models.MStreamEvent) interfaces.IStreamConnection {
	return Dial(gen, url, d.opts, sink, d.log, d.metrics)
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

// Connection is one websocket session with the feed. It emits exactly one
// terminal event (EventError or EventClosed) unless it is closed first, and
// nothing at all once Close has returned.
type Connection struct {
	gen     uint64
	url     string
	opts    Options
	sink    chan<- models.MStreamEvent
	log     *logger.Logger
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	raw      net.Conn // set once TCP is up, before the upgrade
	conn     *websocket.Conn
	status   models.MConnectionStatus
	disposed bool

	seq int // owned by the read goroutine
}

// -----------------------------------------------------------------------------

// Dial starts connecting to url in the background and returns at once with
// the connection in the Connecting state.
func Dial(gen uint64, url string, opts Options, sink chan<- models.MStreamEvent, log *logger.Logger, m *metrics.Metrics) *Connection {
	if log == nil {
		log = logger.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		gen:     gen,
		url:     url,
		opts:    opts,
		sink:    sink,
		log:     log.With("generation", gen),
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
		status:  models.StatusConnecting,
	}

	c.wg.Add(1)
	go c.run()
	return c
}

func (c *Connection) Generation() uint64 { return c.gen }

func (c *Connection) Status() models.MConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// -----------------------------------------------------------------------------

// Close cancels a pending dial or shuts the socket, then waits for the read
// goroutine to exit. Safe to call more than once.
func (c *Connection) Close() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	raw, conn := c.raw, c.conn
	c.mu.Unlock()

	c.cancel()
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeWriteWait))
		_ = conn.Close()
	}
	// The upgrade read ignores ctx; closing the socket is what ends it.
	if raw != nil {
		_ = raw.Close()
	}
	c.wg.Wait()

	c.mu.Lock()
	if !c.status.Terminal() {
		c.status = models.StatusClosed
	}
	c.mu.Unlock()
	c.log.Debug("connection disposed")
}

// -----------------------------------------------------------------------------

func (c *Connection) run() {
	defer c.wg.Done()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.opts.HandshakeTimeout,
		Proxy:            c.opts.Proxy,
		NetDialContext:   c.netDial,
	}
	var header http.Header
	if c.opts.UserAgent != "" {
		header = http.Header{"User-Agent": []string{c.opts.UserAgent}}
	}

	c.log.Info("Dialing %s", c.url)
	conn, resp, err := dialer.DialContext(c.ctx, c.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if c.ctx.Err() != nil {
			return
		}
		c.metrics.IncConnection("error")
		c.finish(models.EventError, helpers.NewTransportError("dial", err))
		return
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.status = models.StatusOpen
	c.mu.Unlock()

	c.metrics.IncConnection("open")
	c.log.Info("Connected to %s", c.url)
	c.emit(models.MStreamEvent{Kind: models.EventOpen})

	if c.opts.MaxMessageSize > 0 {
		conn.SetReadLimit(c.opts.MaxMessageSize)
	}
	c.extendDeadline(conn)
	conn.SetPongHandler(func(string) error {
		c.extendDeadline(conn)
		return nil
	})

	c.readLoop(conn)
}

// netDial opens the TCP connection (to the feed or the proxy) and keeps it
// so Close can abort a handshake in progress.
func (c *Connection) netDial(ctx context.Context, network, addr string) (net.Conn, error) {
	var d net.Dialer
	raw, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		_ = raw.Close()
		return nil, context.Canceled
	}
	c.raw = raw
	return raw, nil
}

// -----------------------------------------------------------------------------

func (c *Connection) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			var closeErr *websocket.CloseError
			// 1006 is synthesized locally for a dropped socket, never sent by the peer.
			if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure {
				c.log.Info("Feed closed the connection: code=%d reason=%q", closeErr.Code, closeErr.Text)
				c.metrics.IncConnection("closed")
				c.finish(models.EventClosed, nil)
				return
			}
			c.log.Warning("Read failed: %v", err)
			c.metrics.IncConnection("error")
			c.finish(models.EventError, helpers.NewTransportError("read", err))
			return
		}
		c.extendDeadline(conn)

		tick, err := DecodeTick(data)
		if err != nil {
			c.metrics.IncDecodeError()
			c.log.Warning("Dropping frame: %v", err)
			c.emit(models.MStreamEvent{Kind: models.EventDecodeError, Err: helpers.NewDecodeError(err)})
			continue
		}

		c.seq++
		c.metrics.IncMessage()
		c.emit(models.MStreamEvent{Kind: models.EventMessage, Seq: c.seq, Tick: tick})
	}
}

// -----------------------------------------------------------------------------

func (c *Connection) extendDeadline(conn *websocket.Conn) {
	if c.opts.ReadTimeout <= 0 {
		return
	}
	_ = conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
}

// finish records the terminal status, releases the socket and reports it.
func (c *Connection) finish(kind models.MStreamEventKind, err error) {
	c.mu.Lock()
	if kind == models.EventClosed {
		c.status = models.StatusClosed
	} else {
		c.status = models.StatusError
	}
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	c.emit(models.MStreamEvent{Kind: kind, Err: err})
}

// emit hands ev to the sink unless the connection is being disposed.
func (c *Connection) emit(ev models.MStreamEvent) {
	if c.ctx.Err() != nil {
		return
	}
	ev.Generation = c.gen
	select {
	case c.sink <- ev:
	case <-c.ctx.Done():
	}
}
