package checkout

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"

	pkgstripe "github.com/promptvault/promptvault-backend/pkg/stripe"
)

// Metadata keys attached to every checkout session. The webhook reconciler
// requires user_id and pricing_tier_id to apply a completed session.
const (
	metadataUserID        = "user_id"
	metadataPricingTierID = "pricing_tier_id"
	metadataTierSlug      = "tier_slug"
	metadataBillingType   = "billing_type"
)

var centsFactor = decimal.NewFromInt(100)

// SessionClient exposes the subset of Stripe checkout operations required
// by the purchase orchestrators.
type SessionClient interface {
	CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeSessionClient struct{}

// NewSessionClient wraps the provided Stripe client so the checkout flow can
// be tested against a stub.
func NewSessionClient(api *pkgstripe.Client) SessionClient {
	if api == nil {
		return nil
	}
	return &stripeSessionClient{}
}

func (w *stripeSessionClient) CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params != nil {
		params.Context = ctx
	}
	return session.New(params)
}
