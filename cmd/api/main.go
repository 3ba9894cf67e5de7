package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/promptvault/promptvault-backend/api/routes"
	"github.com/promptvault/promptvault-backend/internal/auth"
	"github.com/promptvault/promptvault-backend/internal/catalog"
	"github.com/promptvault/promptvault-backend/internal/checkout"
	"github.com/promptvault/promptvault-backend/internal/entitlements"
	"github.com/promptvault/promptvault-backend/internal/purchases"
	"github.com/promptvault/promptvault-backend/internal/subscriptions"
	"github.com/promptvault/promptvault-backend/internal/users"
	stripewebhook "github.com/promptvault/promptvault-backend/internal/webhooks/stripe"
	"github.com/promptvault/promptvault-backend/pkg/auth/session"
	"github.com/promptvault/promptvault-backend/pkg/config"
	"github.com/promptvault/promptvault-backend/pkg/db"
	"github.com/promptvault/promptvault-backend/pkg/logger"
	"github.com/promptvault/promptvault-backend/pkg/metrics"
	"github.com/promptvault/promptvault-backend/pkg/migrate"
	"github.com/promptvault/promptvault-backend/pkg/redis"
	pkgstripe "github.com/promptvault/promptvault-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	userRepo := users.NewRepository(gormDB)
	purchaseRepo := purchases.NewRepository(gormDB)
	tierRepo := catalog.NewTierRepository(gormDB)
	promptRepo := catalog.NewPromptRepository(gormDB)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	entitlementService, err := entitlements.NewService(entitlements.ServiceParams{
		UserRepo:     userRepo,
		PurchaseRepo: purchaseRepo,
		TierRepo:     tierRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create entitlement service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		PromptRepo: promptRepo,
		Resolver:   entitlementService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	var stripeClient *pkgstripe.Client
	if cfg.Stripe.Configured() {
		stripeClient, err = pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create stripe client", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "stripe credentials missing; paid checkouts disabled")
	}

	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		TierRepo:     tierRepo,
		UserRepo:     userRepo,
		PurchaseRepo: purchaseRepo,
		Sessions:     checkout.NewSessionClient(stripeClient),
		URLs:         cfg.Checkout,
		Metrics:      paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		TierRepo:     tierRepo,
		UserRepo:     userRepo,
		PurchaseRepo: purchaseRepo,
		Sessions:     checkout.NewSessionClient(stripeClient),
		Billing:      subscriptions.NewStripeClient(stripeClient),
		URLs:         cfg.Checkout,
		Metrics:      paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		UserRepo:          userRepo,
		PurchaseRepo:      purchaseRepo,
		TransactionRunner: dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, "webhook:stripe")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:               cfg,
			Logger:               logg,
			DB:                   dbClient,
			Redis:                redisClient,
			Sessions:             sessionManager,
			AuthService:          authService,
			CatalogService:       catalogService,
			EntitlementService:   entitlementService,
			CheckoutService:      checkoutService,
			SubscriptionService:  subscriptionService,
			TierRepo:             tierRepo,
			PurchaseRepo:         purchaseRepo,
			StripeClient:         stripeClient,
			StripeWebhookService: webhookService,
			StripeWebhookGuard:   webhookGuard,
			PaymentMetrics:       paymentMetrics,
		}),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(stopCtx); err != nil {
			logg.Error(stopCtx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}
