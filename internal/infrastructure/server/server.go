package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	apihttp "github.com/GriffinCanCode/AgentOS/sandbox/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/api/ws"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/factory"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/skills"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/providers/browser"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/providers/filesystem"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/providers/shell"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/providers/tee"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/paths"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	http     *http.Server
	executor *shell.Executor
	browser  *browser.Manager
	skills   *skills.Registry
	factory  *factory.Factory
	tracer   *tracing.Tracer
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger := logging.NewFromLevel(cfg.Logging.Level, cfg.Logging.Development)

	logger.Info("Initializing sandbox server",
		zap.String("addr", cfg.Addr()),
		zap.String("workspace", cfg.Sandbox.Workspace),
		zap.Bool("tee", cfg.TEE.Enabled),
	)

	workspace := paths.NewWorkspace(cfg.Sandbox.Workspace)
	if err := workspace.Ensure(); err != nil {
		return nil, fmt.Errorf("failed to prepare workspace: %w", err)
	}
	if err := os.MkdirAll(cfg.Skills.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to prepare skills dir: %w", err)
	}

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("sandbox", logger.Logger)

	executor := shell.New(shell.Options{
		Workspace:      workspace.Root,
		TempDir:        cfg.Exec.TempDir,
		DefaultTimeout: time.Duration(cfg.Exec.DefaultTimeout) * time.Second,
		MaxTimeout:     time.Duration(cfg.Exec.MaxTimeout) * time.Second,
		Logger:         logger.Logger,
		Metrics:        metrics,
	})

	files := filesystem.New(workspace, logger.Logger)

	browserManager := browser.NewManager(browser.Options{
		Headless:   cfg.Browser.Headless,
		Executable: cfg.Browser.Executable,
		Viewport: browser.Viewport{
			Width:  cfg.Browser.ViewportWidth,
			Height: cfg.Browser.ViewportHeight,
		},
		Timeout: cfg.BrowserTimeout(),
		Logger:  logger.Logger,
		Metrics: metrics,
	})

	registry := skills.NewRegistry(cfg.Skills.Dir, executor, logger.Logger, metrics)
	skillFactory := factory.New(registry, factory.Options{
		TTL:           cfg.SessionTTL(),
		SweepInterval: cfg.SweepInterval(),
		Logger:        logger.Logger,
		Metrics:       metrics,
	})

	// attestor stays a nil interface when the capability is disabled
	var attestor apihttp.Attestor
	if cfg.TEE.Enabled {
		attestor = tee.NewClient(tee.Options{
			Endpoint: cfg.TEE.Endpoint,
			Logger:   logger.Logger,
			Metrics:  metrics,
		})
		logger.Info("TEE capability enabled", zap.String("endpoint", cfg.TEE.Endpoint))
	}

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(logging.GinMiddleware(logger.Logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers := apihttp.NewHandlers(apihttp.Deps{
		Sandbox:  cfg.Sandbox,
		Executor: executor,
		Files:    files,
		Browser:  browserManager,
		Skills:   registry,
		Factory:  skillFactory,
		TEE:      attestor,
		Metrics:  metrics,
		Logger:   logger.Logger,
	})
	handlers.Register(router)

	// WebSocket
	router.GET("/shell/ws", ws.NewHandler(executor, logger.Logger).HandleShell)

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		http: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		executor: executor,
		browser:  browserManager,
		skills:   registry,
		factory:  skillFactory,
		tracer:   tracer,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Handler exposes the routed engine
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if limit := s.config.Server.MaxConnections; limit > 0 {
		ln = netutil.LimitListener(ln, limit)
	}

	s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout())
	defer cancel()

	s.logger.Info("Draining HTTP server", zap.Duration("timeout", s.config.ShutdownTimeout()))
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

// Close releases the browser, factory sweeper and tracer
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if err := s.browser.Close(); err != nil {
		s.logger.Error("Failed to close browser", zap.Error(err))
		errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
	}
	if err := s.factory.Close(); err != nil {
		s.logger.Error("Failed to close factory", zap.Error(err))
		errs = append(errs, fmt.Errorf("failed to close factory: %w", err))
	}
	s.tracer.Close()

	// Sync logger before exit
	_ = s.logger.Sync()

	return errors.Join(errs...)
}
