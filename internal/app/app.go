// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bissquit/roadmap-api/api/openapi"
	"github.com/bissquit/roadmap-api/internal/auth"
	"github.com/bissquit/roadmap-api/internal/auth/jwt"
	"github.com/bissquit/roadmap-api/internal/config"
	"github.com/bissquit/roadmap-api/internal/domain"
	"github.com/bissquit/roadmap-api/internal/healthcheck"
	"github.com/bissquit/roadmap-api/internal/pkg/ctxlog"
	"github.com/bissquit/roadmap-api/internal/pkg/httputil"
	"github.com/bissquit/roadmap-api/internal/pkg/metrics"
	"github.com/bissquit/roadmap-api/internal/pkg/postgres"
	"github.com/bissquit/roadmap-api/internal/pkg/tracing"
	"github.com/bissquit/roadmap-api/internal/resource"
	resourcepostgres "github.com/bissquit/roadmap-api/internal/resource/postgres"
	"github.com/bissquit/roadmap-api/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const dbMetricsInterval = 15 * time.Second

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
}

// New connects to the database, applies migrations when configured and
// builds the HTTP servers.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	db, err := postgres.Connect(context.Background(), postgres.Config{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		metricsCancel: metricsCancel,
	}

	go metrics.CollectDBPoolMetrics(metricsCtx, db, dbMetricsInterval)

	router, err := app.setupRouter()
	if err != nil {
		db.Close()
		metricsCancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers and blocks until the main server stops.
func (a *App) Run() error {
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
		"api_version", a.config.App.APIVersion,
	)

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the servers and closes the pool.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for name, srv := range map[string]*http.Server{"server": a.server, "metrics server": a.metricsServer} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Shutdown(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("shutdown %s: %w", name, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	a.db.Close()

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) setupRouter() (*chi.Mux, error) {
	verifier, err := jwt.NewVerifier(jwt.Config{
		SecretKey: a.config.Auth.SecretKey,
		Issuer:    a.config.Auth.Issuer,
		Audience:  a.config.Auth.Audience,
	})
	if err != nil {
		return nil, fmt.Errorf("create token verifier: %w", err)
	}
	authenticator := auth.NewAuthenticator(verifier)
	transactor := postgres.NewTransactor(a.db)

	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)
	// Tracing precedes CORS so preflight responses carry the correlation id
	r.Use(tracing.Middleware)
	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(httputil.RequestLoggerMiddleware(a.logger, parseLevel(a.config.Log.RequestLevel)))
	r.Use(middleware.RealIP)
	r.Use(httputil.RecoverMiddleware)
	r.Use(httputil.TimeoutMiddleware(a.config.Server.RequestTimeout))
	r.Use(httputil.RateLimitMiddleware(httputil.RateLimitConfig{
		RequestsPerSecond: a.config.Server.RateLimit.RequestsPerSecond,
		Burst:             a.config.Server.RateLimit.Burst,
	}))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)
	r.Get("/api/openapi.yaml", openAPIHandler)
	r.Get("/api-docs", docsHandler)

	healthHandler := healthcheck.NewHandler(healthcheck.NewService(healthcheck.Info{
		Name:        a.config.App.Name,
		Environment: a.config.App.Environment,
		Version:     a.appVersion(),
	}, transactor), authenticator)

	projects := resource.NewHandler(
		resource.NewService[domain.ProjectKind](resourcepostgres.NewRepository[domain.ProjectKind](), transactor),
		authenticator,
	)
	roadmaps := resource.NewHandler(
		resource.NewService[domain.RoadmapKind](resourcepostgres.NewRepository[domain.RoadmapKind](), transactor),
		authenticator,
	)

	r.Route("/"+a.config.App.APIVersion, func(r chi.Router) {
		healthHandler.RegisterRoutes(r)
		projects.RegisterRoutes(r)
		roadmaps.RegisterRoutes(r)
	})

	return r, nil
}

func (a *App) appVersion() string {
	if a.config.App.Version != "" {
		return a.config.App.Version
	}
	return version.Version
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(ctx).ErrorContext(ctx, "readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, version.Get())
}

func openAPIHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/x-yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapi.Spec)
}

func docsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Roadmap API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({
            url: "/api/openapi.yaml",
            dom_id: '#swagger-ui',
            presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
            layout: "BaseLayout"
        });
    </script>
</body>
</html>`))
}

// initLogger builds the root logger. Records logged with a request context
// carry its correlation and user ids.
func initLogger(cfg config.LogConfig, out io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(tracing.NewHandler(handler))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
