package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/promptvault/promptvault-backend/api/controllers"
	webhookcontrollers "github.com/promptvault/promptvault-backend/api/controllers/webhooks"
	"github.com/promptvault/promptvault-backend/api/middleware"
	"github.com/promptvault/promptvault-backend/internal/auth"
	"github.com/promptvault/promptvault-backend/internal/catalog"
	checkoutsvc "github.com/promptvault/promptvault-backend/internal/checkout"
	"github.com/promptvault/promptvault-backend/internal/entitlements"
	"github.com/promptvault/promptvault-backend/internal/purchases"
	subscriptionsvc "github.com/promptvault/promptvault-backend/internal/subscriptions"
	stripewebhook "github.com/promptvault/promptvault-backend/internal/webhooks/stripe"
	"github.com/promptvault/promptvault-backend/pkg/auth/session"
	"github.com/promptvault/promptvault-backend/pkg/config"
	"github.com/promptvault/promptvault-backend/pkg/logger"
	"github.com/promptvault/promptvault-backend/pkg/metrics"
	"github.com/promptvault/promptvault-backend/pkg/redis"
	pkgstripe "github.com/promptvault/promptvault-backend/pkg/stripe"
)

// RouterParams bundles everything the HTTP surface needs.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker

	AuthService          auth.Service
	CatalogService       *catalog.Service
	EntitlementService   *entitlements.Service
	CheckoutService      checkoutsvc.Service
	SubscriptionService  subscriptionsvc.Service
	TierRepo             controllers.TierLister
	PurchaseRepo         purchases.Repository
	StripeClient         *pkgstripe.Client
	StripeWebhookService webhookcontrollers.StripeWebhookService
	StripeWebhookGuard   *stripewebhook.IdempotencyGuard
	PaymentMetrics       *metrics.PaymentMetrics
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	// Typed-nil guards: a missing redis client must disable the redis-backed
	// middleware instead of panicking inside it.
	var idemStore redis.IdempotencyStore
	var rateStore middleware.RateLimiterStore
	var redisPinger controllers.Pinger
	if p.Redis != nil {
		idemStore = p.Redis
		rateStore = p.Redis
		redisPinger = p.Redis
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, redisPinger))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Same typed-nil discipline for the webhook guard: the controller checks
	// its interface against nil and a typed-nil pointer would slip past that.
	var webhookGuard webhookcontrollers.StripeWebhookGuard
	if p.StripeWebhookGuard != nil {
		webhookGuard = p.StripeWebhookGuard
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(p.StripeWebhookService, p.StripeClient, webhookGuard, p.PaymentMetrics, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, rateStore, logg),
			middleware.Idempotency(idemStore, logg),
		).Post("/register", controllers.AuthRegister(p.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(p.AuthService, cfg.JWT, logg))
	})

	// Catalog is public. A bearer token, when present, unlocks the
	// caller's own ladder.
	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, p.Sessions, logg))
		r.Get("/tiers", controllers.TierList(p.TierRepo, logg))
		r.Get("/tiers/{slug}", controllers.TierDetail(p.TierRepo, logg))
		r.Get("/prompts", controllers.PromptSearch(p.CatalogService, logg))
		r.Get("/prompts/{slug}", controllers.PromptDetail(p.CatalogService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/me", func(r chi.Router) {
			r.Get("/entitlements", controllers.MyEntitlements(p.EntitlementService, logg))
			r.Get("/purchases", controllers.MyPurchases(p.PurchaseRepo, logg))
		})

		r.Post("/checkout", controllers.Checkout(p.CheckoutService, logg))
		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", controllers.SubscriptionCreate(p.SubscriptionService, logg))
			r.Delete("/", controllers.SubscriptionCancel(p.SubscriptionService, logg))
		})
	})

	return r
}
