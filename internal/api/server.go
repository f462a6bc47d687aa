// Package api serves the dashboard's JSON API over gin.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/janekbaraniewski/keydash/internal/core"
	"github.com/janekbaraniewski/keydash/internal/probe"
	"github.com/janekbaraniewski/keydash/internal/store"
)

// Store is the persistence surface the API needs.
type Store interface {
	ListAccounts(ctx context.Context) ([]core.Account, error)
	GetAccount(ctx context.Context, id int64) (core.Account, error)
	AddAccount(ctx context.Context, in store.AccountInput) (core.Account, error)
	UpdateAccount(ctx context.Context, id int64, in store.AccountInput) (core.Account, error)
	DeleteAccount(ctx context.Context, id int64) error
	AdminKeys(ctx context.Context, accountID int64) ([]core.KeyRecord, error)

	ListKeys(ctx context.Context) ([]core.KeyRecord, error)
	ListKeysWithSecrets(ctx context.Context) ([]core.KeyRecord, error)
	GetKey(ctx context.Context, id int64) (core.KeyRecord, error)
	KeyWithSecret(ctx context.Context, id int64) (core.KeyRecord, error)
	AddKey(ctx context.Context, in store.NewKey) (core.KeyRecord, error)
	UpdateKey(ctx context.Context, id int64, in store.KeyUpdate) (core.KeyRecord, error)
	DeleteKey(ctx context.Context, id int64) error
	RevealKey(ctx context.Context, id int64) (string, error)
}

type Options struct {
	Store          Store
	Probes         *probe.Holder
	Logger         *slog.Logger
	AllowedOrigins []string
	LookbackDays   int
	RollupDelay    time.Duration
}

type Server struct {
	store  Store
	probes *probe.Holder
	logger *slog.Logger
	router *gin.Engine

	lookbackDays atomic.Int64
	rollupDelay  atomic.Int64
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	probes := opts.Probes
	if probes == nil {
		probes = probe.NewHolder(probe.New(probe.Options{Logger: logger}))
	}

	s := &Server{
		store:  opts.Store,
		probes: probes,
		logger: logger,
	}
	s.SetRollup(opts.LookbackDays, opts.RollupDelay)
	s.router = s.routes(opts.AllowedOrigins)
	return s
}

// SetRollup updates the default lookback window and the inter-probe delay
// used by the usage endpoints. Safe to call while serving.
func (s *Server) SetRollup(lookbackDays int, delay time.Duration) {
	if lookbackDays <= 0 {
		lookbackDays = core.DefaultLookbackDays
	}
	if delay < 0 {
		delay = 0
	}
	s.lookbackDays.Store(int64(lookbackDays))
	s.rollupDelay.Store(int64(delay))
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes(allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(s.logger))

	if len(allowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = allowedOrigins
		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
		router.Use(cors.New(corsConfig))
	}

	api := router.Group("/api")
	{
		api.GET("/health", s.health)
		api.POST("/classify", s.classify)

		api.GET("/accounts", s.listAccounts)
		api.POST("/accounts", s.addAccount)
		api.PUT("/accounts/:id", s.updateAccount)
		api.DELETE("/accounts/:id", s.deleteAccount)
		api.GET("/accounts/:id/admin-keys", s.accountAdminKeys)

		api.GET("/keys", s.listKeys)
		api.POST("/keys", s.addKey)
		api.PUT("/keys/:id", s.updateKey)
		api.DELETE("/keys/:id", s.deleteKey)
		api.POST("/keys/:id/test", s.testKey)
		api.POST("/keys/:id/probe", s.probeKey)
		api.GET("/keys/:id/reveal", s.revealKey)

		api.GET("/usage", s.usage)
	}
	return router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", "event", "server_start", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api: serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	s.logger.Info("api server stopped", "event", "server_stop")
	return nil
}

const requestIDHeader = "X-Request-ID"

// requestID keeps a caller-supplied X-Request-ID or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("HTTP request",
			"event", "http_request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(requestIDHeader),
		)
	}
}
