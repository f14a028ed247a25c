package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"price-stream/src/analysis"
	"price-stream/src/interfaces"
	"price-stream/src/logger"
	"price-stream/src/metrics"
	"price-stream/src/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	shutdownTimeout = 5 * time.Second
	displayPlaces   = 2
)

// -----------------------------------------------------------------------------
// StatusServer
// -----------------------------------------------------------------------------

// StatusServer exposes the session over HTTP and relays its updates to
// websocket viewers.
type StatusServer struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	engine  *gin.Engine
	httpSrv *http.Server
	session interfaces.ISessionController
	metrics *metrics.Metrics

	// WebSocket clients, owned by the hub goroutine
	clients    map[*Client]struct{}
	broadcast  chan models.MSessionUpdate
	register   chan *Client
	unregister chan *Client
	replies    chan viewerReply
	resync     chan struct{}
	viewers    chan chan int
	quit       chan struct{}
	stopOnce   sync.Once
}

var _ interfaces.IDataExchanger = (*StatusServer)(nil)

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewStatusServer(cfg *models.MConfig, session interfaces.ISessionController, gatherer prometheus.Gatherer, m *metrics.Metrics, log *logger.Logger) *StatusServer {
	if !cfg.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = logger.NewNop()
	}

	s := &StatusServer{
		Config:     cfg,
		Logger:     log,
		engine:     gin.New(),
		session:    session,
		metrics:    m,
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan models.MSessionUpdate, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		replies:    make(chan viewerReply),
		resync:     make(chan struct{}, 1),
		viewers:    make(chan chan int),
		quit:       make(chan struct{}),
	}

	s.engine.Use(gin.Recovery(), s.requestLogger(), corsMiddleware())
	s.setupRoutes(gatherer)

	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: s.engine,
	}

	go s.handleWebsockets()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *StatusServer) setupRoutes(gatherer prometheus.Gatherer) {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/snapshot", s.getSnapshot)
	api.GET("/stats", s.getStats)
	api.POST("/start", s.control("start", s.session.Start))
	api.POST("/stop", s.control("stop", s.session.Stop))
	api.POST("/reconnect", s.control("reconnect", s.session.Reconnect))
	api.POST("/reset", s.control("reset", s.session.Reset))

	s.engine.GET("/ws", s.handleWebSocket)

	if gatherer != nil {
		path := s.Config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.engine.GET(path, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}

// Handler exposes the router, mainly for tests.
func (s *StatusServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *StatusServer) Start() error {
	s.Logger.Info("Starting status server on %s", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status server: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *StatusServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.httpSrv.Shutdown(ctx)
	s.stopOnce.Do(func() { close(s.quit) })
	return err
}

// Run serves until ctx ends, then shuts down gracefully.
func (s *StatusServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.Logger.Info("Stopping status server")
		if err := s.Stop(); err != nil {
			return err
		}
		return <-errCh
	}
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *StatusServer) getHealth(c *gin.Context) {
	snap, err := s.session.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"session_status": snap.Status,
		"message_count":  snap.MessageCount,
		"viewers":        s.ViewerCount(),
	})
}

// -----------------------------------------------------------------------------

func (s *StatusServer) getSnapshot(c *gin.Context) {
	snap, err := s.session.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, forDisplay(snap))
}

// -----------------------------------------------------------------------------

func (s *StatusServer) getStats(c *gin.Context) {
	snap, err := s.session.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, analysis.RoundForDisplay(snap.Stats, displayPlaces))
}

// -----------------------------------------------------------------------------

// control wraps one session operation as a POST handler.
func (s *StatusServer) control(name string, op func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := op(c.Request.Context())

		var status models.MConnectionStatus
		if snap, snapErr := s.session.Snapshot(c.Request.Context()); snapErr == nil {
			status = snap.Status
		}

		if err != nil {
			s.Logger.Warning("%s rejected: %v", name, err)
			c.JSON(statusFor(err), gin.H{
				"success": false,
				"message": err.Error(),
				"status":  status,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": name + " ok",
			"status":  status,
		})
	}
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *StatusServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
