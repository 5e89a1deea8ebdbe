package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"quote-streamer/src/interfaces"
	"quote-streamer/src/logger"
	"quote-streamer/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

// Dependencies are the engine components the HTTP API reads from. Journal and
// Market may be nil.
type Dependencies struct {
	Feed     interfaces.IQuoteFeed
	Registry interfaces.ISubscriberRegistry
	Liveness interfaces.ILivenessMonitor
	Journal  interfaces.ISessionJournal
	Market   interfaces.IMarketHours
	Codec    interfaces.IQuoteCodec
}

type APIServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine
	http   *http.Server
	deps   Dependencies

	// WebSocket clients, owned by the hub goroutine
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	wsClients  atomic.Int64

	// Latest quote per symbol, fed by a generator subscription
	latest     map[models.Symbol]models.MQuote
	stateMutex sync.RWMutex

	ctx     context.Context
	cancel  context.CancelFunc
	hubOnce sync.Once
	hubDone chan struct{}
	started time.Time
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *models.MConfig, deps Dependencies, logger *logger.Logger) *APIServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &APIServer{
		Config:     cfg,
		Logger:     logger,
		engine:     gin.New(),
		deps:       deps,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		latest:     make(map[models.Symbol]models.MQuote),
		ctx:        ctx,
		cancel:     cancel,
		hubDone:    make(chan struct{}),
		started:    time.Now(),
	}

	s.engine.Use(gin.Recovery(), s.requestLogger())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, Cache-Control")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	s.setupRoutes()
	s.http = &http.Server{Handler: s.engine, ReadHeaderTimeout: 5 * time.Second}
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/config", s.getConfig)
	api.GET("/prices", s.getPrices)
	api.GET("/subscribers", s.getSubscribers)
	api.DELETE("/subscribers/:key", s.deleteSubscriber)
	api.GET("/sessions", s.getSessions)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, mainly for tests.
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *APIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(lis)
}

// Serve runs the hub and serves HTTP on lis until Stop. After Stop it closes
// lis and returns at once.
func (s *APIServer) Serve(lis net.Listener) error {
	if s.ctx.Err() != nil {
		lis.Close()
		return nil
	}
	s.startHub()
	s.Logger.Info("Starting HTTP API on %s", lis.Addr())

	if err := s.http.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *APIServer) Stop(ctx context.Context) error {
	s.cancel()
	err := s.http.Shutdown(ctx)
	s.hubOnce.Do(func() { close(s.hubDone) })
	<-s.hubDone
	return err
}

// -----------------------------------------------------------------------------

func (s *APIServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("%s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
