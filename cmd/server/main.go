package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	identityapp "github.com/crm/backend/internal/application/identity"
	"github.com/crm/backend/internal/application/section"
	sessionapp "github.com/crm/backend/internal/application/session"
	"github.com/crm/backend/internal/domain/session"
	"github.com/crm/backend/internal/infrastructure/auth"
	"github.com/crm/backend/internal/infrastructure/cache"
	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/infrastructure/event"
	"github.com/crm/backend/internal/infrastructure/i18n"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/persistence"
	"github.com/crm/backend/internal/infrastructure/telemetry"
	"github.com/crm/backend/internal/interfaces/http/handler"
	"github.com/crm/backend/internal/interfaces/http/middleware"
	"github.com/crm/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	otelCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}

	logsCfg := otelCfg
	logsCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled
	logProvider, err := telemetry.NewLoggerProvider(ctx, logsCfg, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize OTEL logs", zap.Error(err))
	}
	log := logProvider.Bridge(baseLog, cfg.Telemetry.ServiceName, zapcore.InfoLevel)
	defer func() { _ = log.Sync() }()

	log.Info("Starting CRM backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("devtools", handler.DevtoolsEnabled),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, otelCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	db, err := persistence.NewDatabase(ctx, cfg.Database, persistence.DatabaseOptions{
		Logger:   log,
		LogLevel: cfg.Log.Level,
		Tracing:  tracerProvider.IsEnabled(),
	})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected")

	var redisClient *redis.Client
	if cfg.Session.CacheBackend == cache.BackendRedis {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}
	stores, err := cache.NewStores(cfg.Session.CacheBackend, redisClient, cfg.Sections.CacheTTL, log)
	if err != nil {
		log.Fatal("Failed to create caches", zap.Error(err))
	}

	sessionMetrics, err := telemetry.NewSessionMetrics(meterProvider.Meter("crm-backend/session"))
	if err != nil {
		log.Fatal("Failed to create session metrics", zap.Error(err))
	}
	machine := session.NewMachine(
		session.WithObserver(logTransitions(log)),
		session.WithObserver(sessionMetrics.Observe),
	)

	// Identity
	profileService := identityapp.NewProfileService(persistence.NewGormProfileRepository(db.DB), log)
	permissionService := identityapp.NewPermissionService(persistence.NewGormRoleCapabilityRepository(db.DB), log)

	// Session
	bus := event.NewInMemoryEventBus(log)
	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if redisClient != nil {
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
	}
	provider := auth.NewSessionProvider(stores.Sessions, auth.NewJWTService(cfg.JWT), blacklist, bus, log)

	bootstrapConfig := sessionapp.DefaultBootstrapConfig()
	bootstrapConfig.StepTimeout = cfg.Session.StepTimeout
	bootstrapper := sessionapp.NewBootstrapper(machine, provider, profileService, permissionService, bootstrapConfig, log)

	// Sections
	source := persistence.NewGormSectionSource(db.DB, cfg.Sections.RowLimit)
	loader := section.NewLoader(source.Fetchers(),
		section.WithCache(stores.Sections, cfg.Sections.CacheTTL),
		section.WithTimeout(cfg.Sections.LoadTimeout),
		section.WithEscalation(bootstrapper, cfg.Sections.EscalatedSections()...),
		section.WithRecorder(sessionMetrics),
		section.WithLogger(log),
	)
	gate := section.NewGate(loader, identityapp.NewCapabilityPolicy(permissionService, log), log)
	recovery := sessionapp.NewRecovery(bootstrapper, loader, log)

	sessionEvents := sessionapp.NewSessionEventHandler(bootstrapper, log).WithSectionReset(loader)
	bus.Subscribe(sessionEvents, sessionEvents.EventTypes()...)
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// HTTP
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	}))
	engine.Use(middleware.SpanEnricher())
	engine.Use(middleware.HTTPMetrics(meterProvider.Meter("crm-backend/http"), log))
	engine.Use(middleware.Profiling(profiler.IsEnabled()))
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.HTTP.CORSAllowOrigins...)))
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodyBytes))

	engine.GET("/health", healthHandler(db, redisClient))

	var limiter middleware.Limiter = middleware.NewWindowLimiter(cfg.HTTP.LoginRateLimit, cfg.HTTP.LoginRateWindow)
	if redisClient != nil {
		limiter = middleware.NewRedisLimiter(redisClient, cfg.HTTP.LoginRateLimit, cfg.HTTP.LoginRateWindow)
	}

	messages := i18n.NewMessages()
	sessionHandler := handler.NewSessionHandler(bootstrapper, recovery, provider, messages, log)
	sectionHandler := handler.NewSectionHandler(gate, bootstrapper, messages, cfg.HTTP.SectionMountWait, log)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	sessionRoutes := router.NewDomainGroup("session", "/session")
	sessionRoutes.GET("/state", sessionHandler.State)
	sessionRoutes.POST("/boot", sessionHandler.Boot)
	sessionRoutes.POST("/retry", sessionHandler.Retry)
	sessionRoutes.POST("/login", middleware.RateLimit(limiter, log), sessionHandler.Login)
	sessionRoutes.POST("/logout", sessionHandler.Logout)

	sectionRoutes := router.NewDomainGroup("sections", "/sections")
	sectionRoutes.GET("/:section", sectionHandler.Get)
	sectionRoutes.POST("/:section/retry", sectionHandler.Retry)

	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/ping", systemHandler.Ping)
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)

	r.Register(sessionRoutes).
		Register(sectionRoutes).
		Register(systemRoutes).
		Register(handler.DevtoolsRoutes(machine, loader))
	r.Setup()

	for _, route := range r.Routes() {
		log.Debug("Route registered", zap.String("method", route.Method), zap.String("path", route.Path))
	}

	// Restore a stored session, if any, without holding up the listener.
	go bootstrapper.Boot(context.Background())

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := stores.Close(); err != nil {
		log.Error("Error closing caches", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis", zap.Error(err))
		}
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	log.Info("Server exited gracefully")
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		baseLog.Error("Error shutting down logger provider", zap.Error(err))
	}
}

// logTransitions logs every committed machine transition
func logTransitions(log *zap.Logger) session.Observer {
	return func(t session.Transition) {
		fields := []zap.Field{
			zap.String("from", t.From.Status().String()),
			zap.String("to", t.To.Status().String()),
		}
		if failed, ok := t.To.(session.Failed); ok {
			log.Warn("Session error",
				append(fields,
					zap.String("code", failed.Err.Code),
					zap.Bool("can_retry", failed.Err.CanRetry))...)
			return
		}
		if _, ok := t.To.(session.Ready); ok {
			log.Info("Session ready", fields...)
			return
		}
		log.Debug("Session transition", fields...)
	}
}

// healthHandler reports database and Redis reachability
func healthHandler(db *persistence.Database, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := gin.H{
			"status":   "healthy",
			"time":     time.Now().UTC().Format(time.RFC3339),
			"database": "ok",
		}
		reqLog := logger.GetGinLogger(c, zap.NewNop())

		if err := db.Ping(ctx); err != nil {
			reqLog.Warn("Health check failed", zap.String("dependency", "database"), zap.Error(err))
			status, body["status"], body["database"] = http.StatusServiceUnavailable, "unhealthy", "error"
		}
		if redisClient != nil {
			body["redis"] = "ok"
			if err := redisClient.Ping(ctx).Err(); err != nil {
				reqLog.Warn("Health check failed", zap.String("dependency", "redis"), zap.Error(err))
				status, body["status"], body["redis"] = http.StatusServiceUnavailable, "unhealthy", "error"
			}
		}
		c.JSON(status, body)
	}
}
