package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"bankflow/internal/config"
	apierrors "bankflow/internal/errors"
	"bankflow/internal/infrastructure"
	custommiddleware "bankflow/internal/middleware"
	"bankflow/internal/services"
	handlers "bankflow/internal/transport/http"
	"bankflow/internal/whois"
	"bankflow/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config          *config.Config
	Router          *chi.Mux
	Server          *http.Server
	AnalysisService *services.AnalysisService
	HealthService   *services.HealthService
	WhoisClient     *whois.Client
	Logger          *slog.Logger
	OTelProviders   *infrastructure.OTelProviders
}

// NewApplication creates a new application instance with dependency injection
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("version", contracts.Version),
		slog.Int("port", cfg.Server.Port))

	if err := ensureDirectories(cfg.Paths); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	otelCfg := infrastructure.DefaultOTelConfig()
	otelCfg.Environment = environmentFor(cfg)
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
	}

	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

func environmentFor(cfg *config.Config) string {
	if cfg.Logging.Development {
		return "development"
	}
	return "production"
}

func ensureDirectories(paths config.PathsConfig) error {
	for _, dir := range []string{paths.DataDir, paths.OutputDir, paths.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func (a *Application) initializeServices() {
	if a.Config.Whois.Enabled {
		a.WhoisClient = whois.NewClient(a.Logger,
			whois.WithEndpoint(a.Config.Whois.Endpoint),
			whois.WithRateLimit(rate.Limit(a.Config.Whois.RatePerSecond)),
			whois.WithHTTPClient(&http.Client{Timeout: a.Config.Whois.Timeout}),
		)
	}

	a.AnalysisService = services.NewAnalysisService(a.Logger, a.WhoisClient)
	a.HealthService = services.NewHealthService(a.Logger)
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(custommiddleware.RequestID)
	r.Use(custommiddleware.RealIP)

	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)
	errorMiddleware := apierrors.NewErrorMiddleware(errorHandler, a.Logger)

	r.Group(func(r chi.Router) {
		r.Use(custommiddleware.StructuredLogger(a.Logger))
		r.Use(errorMiddleware.Handler)
		r.Use(custommiddleware.SecurityHeaders)
		r.Use(middleware.Timeout(a.Config.Server.WriteTimeout))

		if a.Config.Server.RateLimitRPS > 0 {
			r.Use(custommiddleware.NewRateLimiter(
				a.Config.Server.RateLimitRPS,
				a.Config.Server.RateLimitBurst,
				a.Logger,
			).Handler)
		}

		r.Route("/api", func(r chi.Router) {
			analysisHandler := handlers.NewAnalysisHandler(a.AnalysisService, a.Logger, errorHandler, a.Config.Server.MaxUploadBytes)
			r.Mount("/analyze", analysisHandler.Routes())

			healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
			r.Mount("/health", healthHandler.Routes())
		})

		r.NotFound(errorHandler.NotFound)
		r.MethodNotAllowed(errorHandler.MethodNotAllowed)
	})

	// Outside the middleware group so scraping stays cheap.
	r.Handle("/metrics", handlers.MetricsHandler())

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the HTTP server. Listen failures cancel the supplied context.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting server",
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	if err := infrastructure.CloseLogFile(); err != nil {
		a.Logger.ErrorContext(ctx, "Error closing log file", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
