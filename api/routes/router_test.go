package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/promptvault/promptvault-backend/internal/auth"
	"github.com/promptvault/promptvault-backend/internal/catalog"
	checkoutsvc "github.com/promptvault/promptvault-backend/internal/checkout"
	"github.com/promptvault/promptvault-backend/internal/entitlements"
	"github.com/promptvault/promptvault-backend/internal/purchases"
	subscriptionsvc "github.com/promptvault/promptvault-backend/internal/subscriptions"
	"github.com/promptvault/promptvault-backend/internal/users"
	pkgAuth "github.com/promptvault/promptvault-backend/pkg/auth"
	"github.com/promptvault/promptvault-backend/pkg/auth/session"
	"github.com/promptvault/promptvault-backend/pkg/config"
	"github.com/promptvault/promptvault-backend/pkg/db/models"
	"github.com/promptvault/promptvault-backend/pkg/enums"
	"github.com/promptvault/promptvault-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	return &users.UserDTO{ID: uuid.New(), Email: req.Email}, nil
}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{AccessToken: "token"}, nil
}

func (stubAuthService) Logout(ctx context.Context, accessID string) error { return nil }

type stubCheckoutService struct{}

func (stubCheckoutService) Start(ctx context.Context, userID uuid.UUID, input checkoutsvc.StartInput) (*checkoutsvc.StartResult, error) {
	return &checkoutsvc.StartResult{
		RedirectURL: "https://example.com/session",
		SessionID:   "cs_test",
		Purchase:    &models.Purchase{ID: uuid.New(), Status: enums.PurchaseStatusPending},
	}, nil
}

type stubSubscriptionService struct{}

func (stubSubscriptionService) Start(ctx context.Context, userID uuid.UUID, input subscriptionsvc.StartInput) (*subscriptionsvc.StartResult, error) {
	return &subscriptionsvc.StartResult{RedirectURL: "https://example.com/session", SessionID: "cs_sub"}, nil
}

func (stubSubscriptionService) Cancel(ctx context.Context, userID uuid.UUID) error { return nil }

type stubPromptRepo struct{}

func (stubPromptRepo) Search(ctx context.Context, filter catalog.PromptFilter) ([]models.Prompt, int64, error) {
	return []models.Prompt{
		{ID: uuid.New(), Slug: "cold-email", Title: "Cold Email", Body: "secret body", Category: "sales", TierSlug: enums.TierPro},
	}, 1, nil
}

func (stubPromptRepo) FindBySlug(ctx context.Context, slug string) (*models.Prompt, error) {
	return &models.Prompt{ID: uuid.New(), Slug: slug, Title: "Cold Email", Body: "secret body", Category: "sales", TierSlug: enums.TierPro}, nil
}

type stubUserFinder struct{}

func (stubUserFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return &models.User{ID: id, Email: "user@example.com"}, nil
}

type stubTierFinder struct{}

func (stubTierFinder) FindBySlug(ctx context.Context, slug enums.Tier) (*models.PricingTier, error) {
	return &models.PricingTier{Slug: slug, Price: decimal.Zero}, nil
}

type stubTierLister struct{}

func (stubTierLister) ListActive(ctx context.Context) ([]models.PricingTier, error) {
	return []models.PricingTier{{ID: uuid.New(), Slug: enums.TierFree, Name: "Free"}}, nil
}

func (stubTierLister) FindBySlug(ctx context.Context, slug enums.Tier) (*models.PricingTier, error) {
	return &models.PricingTier{ID: uuid.New(), Slug: slug, Name: "Pro"}, nil
}

type stubPurchaseRepo struct{}

func (s stubPurchaseRepo) WithTx(tx *gorm.DB) purchases.Repository { return s }

func (stubPurchaseRepo) Create(ctx context.Context, purchase *models.Purchase) (*models.Purchase, error) {
	return purchase, nil
}

func (stubPurchaseRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error) {
	return nil, nil
}

func (stubPurchaseRepo) FindBySession(ctx context.Context, userID uuid.UUID, sessionID string) (*models.Purchase, error) {
	return nil, gorm.ErrRecordNotFound
}

func (stubPurchaseRepo) FindActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.Purchase, error) {
	return nil, gorm.ErrRecordNotFound
}

func (stubPurchaseRepo) CompleteBySession(ctx context.Context, id uuid.UUID, paymentIntentID, subscriptionID *string) error {
	return nil
}

func (stubPurchaseRepo) CancelBySubscription(ctx context.Context, subscriptionID string) (int64, error) {
	return 0, nil
}

type stubWebhookService struct{}

func (stubWebhookService) HandleEvent(ctx context.Context, event *stripe.Event) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
			SessionTTLMinutes: 120,
		},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		PromptRepo: stubPromptRepo{},
		Resolver:   mustEntitlementService(t),
	})
	if err != nil {
		t.Fatalf("catalog service: %v", err)
	}

	return NewRouter(RouterParams{
		Config:               cfg,
		Logger:               logg,
		DB:                   stubPinger{},
		Sessions:             stubSessionChecker{},
		AuthService:          stubAuthService{},
		CatalogService:       catalogService,
		EntitlementService:   mustEntitlementService(t),
		CheckoutService:      stubCheckoutService{},
		SubscriptionService:  stubSubscriptionService{},
		TierRepo:             stubTierLister{},
		PurchaseRepo:         stubPurchaseRepo{},
		StripeWebhookService: stubWebhookService{},
	})
}

func mustEntitlementService(t *testing.T) *entitlements.Service {
	t.Helper()
	svc, err := entitlements.NewService(entitlements.ServiceParams{
		UserRepo:     stubUserFinder{},
		PurchaseRepo: stubPurchaseRepo{},
		TierRepo:     stubTierFinder{},
	})
	if err != nil {
		t.Fatalf("entitlement service: %v", err)
	}
	return svc
}

func buildToken(t *testing.T, cfg *config.Config, userID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Email:  "user@example.com",
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestEntitlementsRequireToken(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/entitlements", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestEntitlementsWithToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/entitlements", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestCatalogIsPublicAndLocked(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/prompts", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for anonymous catalog got %d (%s)", resp.Code, resp.Body.String())
	}

	var payload struct {
		Data struct {
			Prompts []struct {
				Locked bool   `json:"locked"`
				Body   string `json:"body"`
			} `json:"prompts"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Data.Prompts) != 1 {
		t.Fatalf("expected one prompt got %d", len(payload.Data.Prompts))
	}
	if !payload.Data.Prompts[0].Locked || payload.Data.Prompts[0].Body != "" {
		t.Fatalf("expected pro prompt locked for anonymous caller")
	}
}

func TestCheckoutRequiresToken(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestCheckoutWithToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)
	body := `{"tier_id":"` + uuid.NewString() + `","tier_slug":"pro"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestWebhookMissingSignature(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusInternalServerError && resp.Code != http.StatusBadRequest {
		t.Fatalf("expected failure for unsigned webhook got %d", resp.Code)
	}
	if resp.Code == http.StatusOK {
		t.Fatal("unsigned webhook must not be acknowledged")
	}
}
