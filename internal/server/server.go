package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"reelpress/internal/config"
	"reelpress/internal/logging"
	"reelpress/internal/queue"
	"reelpress/internal/services/tiktok"
	"reelpress/internal/workflow"
)

// Server hosts the daemon HTTP API.
type Server struct {
	cfg     *config.Config
	store   *queue.Store
	manager *workflow.Manager
	logger  *slog.Logger
	tiktok  *tiktok.Client
	states  *stateCache
	engine  *gin.Engine
	httpSrv *http.Server
	addr    string
}

// New constructs the API server with a TikTok client built from config.
func New(cfg *config.Config, store *queue.Store, manager *workflow.Manager, logger *slog.Logger) *Server {
	return NewWithTikTok(cfg, store, manager, logger, tiktok.NewClient(cfg.TikTok))
}

// NewWithTikTok allows injecting the TikTok client (used in tests).
func NewWithTikTok(cfg *config.Config, store *queue.Store, manager *workflow.Manager, logger *slog.Logger, client *tiktok.Client) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		store:   store,
		manager: manager,
		logger:  logging.NewComponentLogger(logger, "api"),
		tiktok:  client,
		states:  newStateCache(oauthStateTTL),
	}
	s.engine = s.buildEngine()
	return s
}

func (s *Server) buildEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(s.requestID(), s.requestLogger(), s.recovery())

	engine.GET("/health", s.handleHealth)

	engine.GET("/auth/tiktok/connect", s.handleOAuthConnect)
	engine.GET("/auth/tiktok/callback", s.handleOAuthCallback)

	if s.cfg.Storage.Backend == config.StorageBackendLocal && s.cfg.Storage.LocalDir != "" {
		engine.Static("/files", s.cfg.Storage.LocalDir)
	}

	authed := engine.Group("/", s.requireAPIKey())
	authed.POST("/jobs", s.handleCreateJob)
	authed.GET("/jobs", s.handleListJobs)
	authed.GET("/jobs/:job_id", s.handleGetJob)
	authed.DELETE("/jobs", s.handleClearJobs)
	authed.GET("/stats", s.handleStats)
	authed.GET("/status", s.handleStatus)
	authed.GET("/accounts", s.handleAccounts)
	authed.DELETE("/accounts/:open_id", s.handleRemoveAccount)

	return engine
}

// Handler exposes the underlying engine for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start binds the configured address and serves in the background. Bind
// failures surface synchronously.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.API.Bind)
	if err != nil {
		return err
	}
	s.addr = listener.Addr().String()
	s.httpSrv = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server terminated", logging.Error(err))
		}
	}()
	s.logger.Info("api server listening", logging.String("addr", s.addr))
	return nil
}

// Addr returns the bound listen address once Start has succeeded.
func (s *Server) Addr() string {
	return s.addr
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
