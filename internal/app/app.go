package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"ecgprep/internal/config"
	"ecgprep/internal/converter"
	apperrors "ecgprep/internal/errors"
	"ecgprep/internal/fetch"
	"ecgprep/internal/inference"
	"ecgprep/internal/infrastructure"
	"ecgprep/internal/middleware"
	handlers "ecgprep/internal/transport/http"
	ws "ecgprep/internal/websocket"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        chi.Router
	Server        *http.Server
	WebSocketHub  *ws.Hub
	Conversions   *handlers.ConversionHandler
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.ConversionMetrics
	Logger        *slog.Logger

	runCtx    context.Context
	cancelRun context.CancelFunc
}

// NewApplication creates a new application instance with dependency injection
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		return nil, apperrors.NewConfigError("configuration is required", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	paths := cfg.Paths()
	if err := paths.EnsureDirectories(); err != nil {
		return nil, apperrors.NewStorageError("failed to ensure directories", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateConversionMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversion metrics: %w", err)
	}

	runCtx, cancelRun := context.WithCancel(context.Background())
	app := &Application{
		Config:        cfg,
		WebSocketHub:  ws.NewHub(logger),
		OTelProviders: otelProviders,
		Metrics:       metrics,
		Logger:        logger,
		runCtx:        runCtx,
		cancelRun:     cancelRun,
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// setupRouter builds handlers and the router
func (a *Application) setupRouter() {
	cfg := a.Config
	errorHandler := apperrors.NewErrorHandler(a.Logger, cfg.Logging.Level == "debug")
	validator := middleware.NewRequestValidator(a.Logger, cfg.Server.MaxBodyBytes)

	var model handlers.Inferer
	if cfg.Inference.ModelURL != "" {
		device := inference.DetectDevice(cfg.Inference.Device)
		model = inference.NewAdapter(
			inference.NewRemoteModel(cfg.Inference.ModelURL, cfg.Inference.Timeout),
			device,
			inference.WithLogger(a.Logger),
		)
		a.Logger.Info("Model backend configured",
			slog.String("model_url", cfg.Inference.ModelURL),
			slog.String("device", string(device)))
	}

	pipeline := converter.NewPipeline(cfg.Dataset, a.Logger,
		converter.WithPipelineObserver(converter.NewHubObserver(a.WebSocketHub)),
		converter.WithPipelineMetrics(a.Metrics),
	)
	paths := pipeline.Paths()
	locate := func() (string, error) {
		return fetch.LocateDatasetRoot(paths.DataDir, cfg.Dataset.ManifestFile, cfg.Dataset.RootHint)
	}

	a.Conversions = handlers.NewConversionHandler(a.runCtx, pipeline, locate, paths.DataDir, validator, errorHandler, a.Logger)

	a.Router = handlers.NewRouter(handlers.RouterDeps{
		Server:       cfg.Server,
		Logger:       a.Logger,
		Providers:    a.OTelProviders,
		Metrics:      a.Metrics,
		ErrorHandler: errorHandler,
		Health:       handlers.NewHealthHandler(a.WebSocketHub, a.Logger),
		Signals:      handlers.NewSignalHandler(cfg.Preprocess.Options(), model, validator, errorHandler, a.Metrics, a.Logger),
		Conversions:  a.Conversions,
		WebSocket:    ws.Handler(a.WebSocketHub, cfg.Server.AllowedOrigins, a.Logger),
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         a.Config.Server.Address(),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run serves until ctx is cancelled or the listener fails, then shuts down.
func (a *Application) Run(ctx context.Context) error {
	a.WebSocketHub.Start()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(ctx, "HTTP server listening", slog.String("address", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	// A running conversion stops at the next row and still writes its report.
	a.cancelRun()
	a.Conversions.Wait()
	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}
