package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/rinze/analisis-mesas-2011/internal/config"
	"github.com/rinze/analisis-mesas-2011/internal/dataprocessing"
	apierrors "github.com/rinze/analisis-mesas-2011/internal/errors"
	"github.com/rinze/analisis-mesas-2011/internal/infrastructure"
	customMiddleware "github.com/rinze/analisis-mesas-2011/internal/middleware"
	"github.com/rinze/analisis-mesas-2011/internal/services"
	httphandlers "github.com/rinze/analisis-mesas-2011/internal/transport/http"
	"github.com/rinze/analisis-mesas-2011/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config          *config.Config
	Paths           *config.Paths
	Router          *chi.Mux
	Server          *http.Server
	Logger          *slog.Logger
	OTelProviders   *infrastructure.OTelProviders
	AnalysisService *services.AnalysisService
	HealthService   *services.HealthService
}

// NewApplication loads the configuration when cfg is nil, initialises the
// global logger and builds the application.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}

	return New(cfg, paths, logger)
}

// New wires every component from an already loaded configuration.
func New(cfg *config.Config, paths *config.Paths, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("reports_dir", paths.ReportsDir))

	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := a.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	if err := a.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}
	a.createServer()

	return a, nil
}

func (a *Application) initializeServices() error {
	metrics, err := infrastructure.NewPipelineMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	a.AnalysisService = services.NewAnalysisService(metrics, a.Logger)
	a.HealthService = services.NewHealthService(contracts.Version, a.Paths.ReportsDir, a.Logger)
	if towns := a.Config.Ingest.TownsFile; towns != "" {
		a.HealthService.WithCheck("towns_file", services.FileCheck(towns))
	}
	return nil
}

// setupRouter builds the chain RequestID → tracing → metrics → logger →
// Recoverer → security headers → rate limit → timeout. /metrics sits
// outside the chain.
func (a *Application) setupRouter() error {
	towns, err := dataprocessing.LoadTownLookup(a.Config.Ingest.TownsFile)
	if err != nil {
		return err
	}
	defaults, err := services.OptionsFromConfig(a.Config, towns)
	if err != nil {
		return err
	}

	httpMetrics, err := customMiddleware.NewHTTPMetrics(a.OTelProviders.Meter)
	if err != nil {
		return err
	}

	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	r := chi.NewRouter()
	r.Use(customMiddleware.RequestID)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.Tracing(a.Config.Telemetry.ServiceName))
		r.Use(httpMetrics.Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		httphandlers.NewHealthHandler(a.HealthService, a.Logger).RegisterRoutes(r)

		r.Route(config.APIBasePath, func(r chi.Router) {
			if rl := a.Config.Server.RateLimit; rl.Enabled {
				r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
			}
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
			r.Use(render.SetContentType(render.ContentTypeJSON))

			httphandlers.NewAnalysisHandler(
				a.AnalysisService,
				defaults,
				a.Config.Server.MaxUploadBytes(),
				a.Logger,
			).RegisterRoutes(r)
		})
	})

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	a.Router = r
	return nil
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         a.Config.Server.Address(),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start begins serving on ln. Serve errors other than a clean shutdown
// cancel the application context.
func (a *Application) Start(ctx context.Context, ln net.Listener, cancel context.CancelFunc) {
	a.Logger.InfoContext(ctx, "server listening",
		slog.String("address", ln.Addr().String()),
		slog.String("version", contracts.Version),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		err := a.Server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			return
		}
		a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
		cancel()
	}()
}

// Stop drains in-flight requests and flushes telemetry within the
// configured shutdown timeout. Both steps run even if the first fails.
func (a *Application) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	a.Logger.InfoContext(ctx, "shutting down", slog.Duration("timeout", a.Config.Server.ShutdownTimeout))

	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	a.Logger.InfoContext(ctx, "shutdown complete")
	return nil
}

// Run serves until SIGINT or SIGTERM, then shuts down.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.Server.Addr, err)
	}

	a.Start(ctx, ln, stop)
	<-ctx.Done()
	a.Logger.Info("stop requested")

	return a.Stop(context.Background())
}
