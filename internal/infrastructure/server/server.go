package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	handlers "github.com/GriffinCanCode/inappgate/internal/api/http"
	"github.com/GriffinCanCode/inappgate/internal/api/middleware"
	"github.com/GriffinCanCode/inappgate/internal/grpc"
	"github.com/GriffinCanCode/inappgate/internal/infrastructure/config"
	"github.com/GriffinCanCode/inappgate/internal/infrastructure/logging"
	"github.com/GriffinCanCode/inappgate/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/inappgate/internal/infrastructure/tracing"
)

// ShutdownTimeout bounds graceful HTTP shutdown.
const ShutdownTimeout = 10 * time.Second

// Server wraps the HTTP and gRPC servers and their dependencies
type Server struct {
	router  *gin.Engine
	handler http.Handler
	http    *http.Server
	grpc    *grpc.Server
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	logger.Info("Initializing gate",
		zap.String("addr", cfg.Address()),
		zap.Strings("allowed_hosts", cfg.Gate.AllowedHosts),
		zap.String("mode", cfg.Gate.Mode),
		zap.String("interstitial_path", cfg.Gate.InterstitialPath),
		zap.Strings("trusted_proxies", cfg.Gate.TrustedProxies),
	)

	components, err := BuildComponents(cfg.Gate)
	if err != nil {
		return nil, err
	}

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("inappgate", logger.Logger)

	h, err := handlers.NewHandlers(handlers.Deps{
		AllowList:   components.AllowList,
		Classifier:  components.Classifier,
		Planner:     components.Planner,
		Renderer:    components.Renderer,
		LandingPath: cfg.Gate.LandingPath,
		Proxies:     components.Proxies,
		ContinueTTL: cfg.Gate.ContinueTTL,
		Logger:      logger,
		Metrics:     metrics,
	})
	if err != nil {
		tracer.Close()
		return nil, err
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	// gin trusts every peer by default; only configured proxies may set
	// X-Forwarded-For for ClientIP and the rate limiter.
	if err := router.SetTrustedProxies(cfg.Gate.TrustedProxies); err != nil {
		tracer.Close()
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("Panic recovered", zap.Any("panic", recovered), logging.Path(c.Request.URL.Path))
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Intercept(components.Policy, router, logger, metrics))

	// Gate routes
	guard := []gin.HandlerFunc{h.Open}
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limiter := middleware.NewIPRateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		})
		guard = append([]gin.HandlerFunc{limiter.Middleware()}, guard...)
	}
	router.GET(cfg.Gate.GuardPath, guard...)
	router.GET(cfg.Gate.InterstitialPath, h.Interstitial)

	// Operational routes
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Read-only JSON API
	api := router.Group("/api/v1", middleware.CORS(middleware.DefaultCORSConfig()))
	api.GET("/classify", h.Classify)
	api.GET("/resolve", h.Resolve)
	api.GET("/allowlist", h.AllowList)
	api.GET("/stats", h.Stats)

	if cfg.Gate.SiteDir != "" {
		logger.Info("Serving site files", zap.String("dir", cfg.Gate.SiteDir))
		router.NoRoute(gin.WrapH(http.FileServer(http.Dir(cfg.Gate.SiteDir))))
	} else {
		router.GET("/", h.Root)
	}

	handler := gzhttp.GzipHandler(router)

	s := &Server{
		router:  router,
		handler: handler,
		http: &http.Server{
			Addr:              cfg.Address(),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger:  logger,
		config:  cfg,
		metrics: metrics,
		tracer:  tracer,
	}
	if cfg.GRPC.Enabled {
		s.grpc = grpc.NewServer(logger, tracer, metrics)
	}

	logger.Info("Server initialized successfully")
	return s, nil
}

// Handler returns the complete HTTP handler, including compression.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Metrics returns the server's metrics collector.
func (s *Server) Metrics() *monitoring.Metrics {
	return s.metrics
}

// Run listens on the configured addresses and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	httpLis, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("http listen on %s: %w", s.http.Addr, err)
	}

	var grpcLis net.Listener
	if s.grpc != nil {
		grpcLis, err = net.Listen("tcp", s.config.GRPC.Address)
		if err != nil {
			httpLis.Close()
			return fmt.Errorf("grpc listen on %s: %w", s.config.GRPC.Address, err)
		}
	}

	return s.Serve(ctx, httpLis, grpcLis)
}

// Serve runs the servers on the given listeners. grpcLis is ignored when
// gRPC is disabled. Both servers stop when ctx is cancelled or either fails.
func (s *Server) Serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Starting HTTP server", zap.String("addr", httpLis.Addr().String()))
		if err := s.http.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	})

	if s.grpc != nil && grpcLis != nil {
		g.Go(func() error {
			return s.grpc.Run(ctx, grpcLis)
		})
	}

	return g.Wait()
}

// Close flushes spans and logs.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")
	s.tracer.Close()
	_ = s.logger.Sync()
	return nil
}
