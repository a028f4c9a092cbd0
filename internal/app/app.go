package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/thevvip/server/internal/module/admin"
	"github.com/thevvip/server/internal/module/auth"
	"github.com/thevvip/server/internal/module/notification"
	"github.com/thevvip/server/internal/module/payment"
	"github.com/thevvip/server/internal/module/plan"
	"github.com/thevvip/server/internal/module/profile"
	"github.com/thevvip/server/internal/module/subscription"
	"github.com/thevvip/server/internal/shared/cache"
	"github.com/thevvip/server/internal/shared/config"
	"github.com/thevvip/server/internal/shared/database"
	"github.com/thevvip/server/internal/shared/metrics"
	"github.com/thevvip/server/internal/shared/middleware"
	"github.com/thevvip/server/internal/shared/storage"
)

// App owns the server's dependencies and lifecycle.
type App struct {
	cfg    *config.Config
	log    *zap.Logger
	db     *gorm.DB
	redis  *redis.Client
	server *http.Server
}

// New wires the application together.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	db, err := database.Connect(&cfg.Database, log)
	if err != nil {
		return nil, err
	}

	// Redis backs rate limiting only; the server runs without it.
	var limiter cache.RateLimiter = cache.NoopRateLimiter{}
	var webhookLimiter cache.RateLimiter = cache.NoopRateLimiter{}
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
		redisClient = nil
	} else {
		limiter = cache.NewRedisRateLimiter(redisClient, "api", 60, time.Minute)
		webhookLimiter = cache.NewRedisRateLimiter(redisClient, "webhook", 300, time.Minute)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	catalog := plan.NewCatalog(&cfg.Stripe)
	var processor payment.Processor
	if cfg.Stripe.Configured() {
		processor = payment.NewBreakerProcessor(payment.NewStripeProcessor(cfg.Stripe.SecretKey), m, log)
	} else {
		log.Warn("stripe secret key not set, billing commands will be refused")
	}

	notifier := notification.NewNotifier(&cfg.Email, m, log)
	tokens := auth.NewTokenManager(&cfg.Auth)

	profiles := profile.NewRepository(db)
	store := subscription.NewStore(db)
	subscriptionService := subscription.NewService(store, catalog, processor, notifier, m, log)
	reconciler := subscription.NewReconciler(store, catalog, processor, notifier, m, log)
	subscriptionHandler := subscription.NewHandler(subscriptionService, &cfg.Stripe, log)
	webhookHandler := subscription.NewWebhookHandler(reconciler, cfg.Stripe.WebhookSecret, m, log)

	objectStore, err := storage.NewS3Store(ctx, &cfg.Storage)
	if err != nil {
		return nil, err
	}
	adminService := admin.NewService(profiles, objectStore, notifier, log)
	adminHandler := admin.NewHandler(adminService, log)
	profileHandler := profile.NewHandler(profiles, objectStore, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logging(log),
		middleware.CORS(cfg.Server.AllowedOrigins),
		middleware.Metrics(m),
	)

	router.GET("/health", healthHandler(&cfg.Stripe))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	webhooks := router.Group("")
	webhooks.Use(middleware.RateLimitByIP(webhookLimiter, log))
	webhookHandler.RegisterRoutes(webhooks)

	api := router.Group("/api/v1")
	subscriptionHandler.RegisterPublicRoutes(api)

	authed := api.Group("")
	authed.Use(middleware.RequireAuth(tokens), middleware.RateLimitByUser(limiter, log))
	subscriptionHandler.RegisterRoutes(authed)
	profileHandler.RegisterRoutes(authed)

	adminRoutes := api.Group("/admin")
	adminRoutes.Use(middleware.RequireAuth(tokens), middleware.RequireAdmin())
	adminHandler.RegisterRoutes(adminRoutes)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		cfg:    cfg,
		log:    log,
		db:     db,
		redis:  redisClient,
		server: server,
	}, nil
}

// Run serves HTTP until the listener closes.
func (a *App) Run() error {
	a.log.Info("server listening", zap.String("address", a.cfg.Server.Address))
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests and closes connections.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("shutting down")

	if err := a.server.Shutdown(ctx); err != nil {
		return err
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("close redis", zap.Error(err))
		}
	}
	return database.Close(a.db)
}

func healthHandler(stripeCfg *config.StripeConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		mode := "unconfigured"
		if stripeCfg.Configured() {
			mode = "test"
			if stripeCfg.LiveMode() {
				mode = "live"
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"stripe_mode": mode,
			"time":        time.Now().UTC().Format(time.RFC3339),
		})
	}
}
