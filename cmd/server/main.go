package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	accessapp "github.com/finbook/backend/internal/application/access"
	identityapp "github.com/finbook/backend/internal/application/identity"
	"github.com/finbook/backend/internal/infrastructure/auth"
	"github.com/finbook/backend/internal/infrastructure/cache"
	"github.com/finbook/backend/internal/infrastructure/config"
	"github.com/finbook/backend/internal/infrastructure/email"
	"github.com/finbook/backend/internal/infrastructure/logger"
	"github.com/finbook/backend/internal/infrastructure/persistence"
	"github.com/finbook/backend/internal/infrastructure/telemetry"
	"github.com/finbook/backend/internal/interfaces/http/handler"
	"github.com/finbook/backend/internal/interfaces/http/middleware"
	"github.com/finbook/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()

	// Telemetry providers. All of them degrade to no-ops when disabled.
	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logs provider", zap.Error(err))
	}
	defer func() {
		if err := logsProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down logs provider", zap.Error(err))
		}
	}()

	// Bridge application logs to the collector when enabled
	log = telemetry.BridgeLogger(log, logsProvider, cfg.Telemetry.ServiceName, zapcore.InfoLevel)

	log.Info("Starting Finbook Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingEndpoint,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	// Database with zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := db.DB.Use(otelgorm.NewPlugin()); err != nil {
			log.Warn("Failed to enable database tracing", zap.Error(err))
		}
	}
	log.Info("Database connected successfully")

	// Attempt limiter backing OTP brute-force protection. Redis in normal
	// operation; development without Redis falls back to in-memory.
	var limiter cache.AttemptLimiter
	redisLimiter, err := cache.NewRedisAttemptLimiter(cache.RedisAttemptLimiterConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		if cfg.App.Env == "production" {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		log.Warn("Redis unavailable, using in-memory attempt limiter", zap.Error(err))
		limiter = cache.NewInMemoryAttemptLimiter()
	} else {
		limiter = redisLimiter
		defer func() {
			if err := redisLimiter.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
	}

	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	companyRepo := persistence.NewGormCompanyRepository(db.DB)
	inviteRepo := persistence.NewGormInviteRepository(db.DB)
	membershipRepo := persistence.NewGormMembershipRepository(db.DB)
	sessionRepo := persistence.NewGormSessionRepository(db.DB)
	auditRepo := persistence.NewGormAuditRepository(db.DB)

	// Infrastructure services
	jwtService := auth.NewJWTService(cfg.JWT)
	mailer := email.NewMailer(cfg.Email, log)

	accessMetrics, err := telemetry.NewAccessMetrics(meterProvider.Meter("finbook/access"), log)
	if err != nil {
		log.Fatal("Failed to initialize access metrics", zap.Error(err))
	}

	// Application services
	auditService := accessapp.NewAuditService(auditRepo, companyRepo, log)
	auditService.SetMetrics(accessMetrics)
	sessionService := accessapp.NewSessionService(sessionRepo, auditService, cfg.Session, log)
	inviteService := accessapp.NewInviteService(
		inviteRepo, membershipRepo, userRepo, companyRepo,
		sessionService, auditService, mailer, limiter, cfg.Invite, log,
	)
	contextService := accessapp.NewContextService(
		jwtService, sessionService, userRepo, companyRepo, membershipRepo, auditService, log,
	)
	membershipService := accessapp.NewMembershipService(
		membershipRepo, companyRepo, userRepo, sessionService, auditService, log,
	)
	authService := identityapp.NewAuthService(
		userRepo, companyRepo, auditRepo, jwtService, identityapp.DefaultAuthServiceConfig(), log,
	)

	// Periodic expired-session sweep
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sessionService.StartCleanupLoop(sweepCtx)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack. The session resolver runs globally so every route
	// sees the resolved session; route groups enforce their own requirements.
	if cfg.Telemetry.Enabled {
		engine.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsConfig))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	engine.Use(middleware.SessionResolver(contextService, cfg.Cookie))

	// The public invite endpoints get a stricter per-IP limit than the
	// global one
	publicInviteLimiter := middleware.RateLimit(middleware.NewRateLimiter(10, time.Minute))
	companyCtx := middleware.CompanyContext(contextService, cfg.Cookie)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, sessionService, cfg.Cookie)
	inviteHandler := handler.NewInviteHandler(inviteService, cfg.Cookie, companyCtx, publicInviteLimiter)
	companyHandler := handler.NewCompanyHandler(contextService, auditService, companyCtx, cfg.Cookie)
	membershipHandler := handler.NewMembershipHandler(membershipService, companyCtx)
	auditHandler := handler.NewAuditHandler(auditService, companyCtx)
	systemHandler := handler.NewSystemHandler(db.DB)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(authHandler).
		Register(inviteHandler).
		Register(companyHandler).
		Register(membershipHandler).
		Register(auditHandler).
		Register(systemHandler)
	r.Setup()

	// Health check endpoint outside API versioning
	engine.GET("/health", healthHandler(db))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for the root health check endpoint
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
