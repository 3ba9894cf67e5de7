package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/promptvault/promptvault-backend/api/responses"
	"github.com/promptvault/promptvault-backend/pkg/db/models"
	"github.com/promptvault/promptvault-backend/pkg/enums"
	pkgerrors "github.com/promptvault/promptvault-backend/pkg/errors"
	"github.com/promptvault/promptvault-backend/pkg/logger"
)

// TierLister is the read surface the tier endpoints need.
type TierLister interface {
	ListActive(ctx context.Context) ([]models.PricingTier, error)
	FindBySlug(ctx context.Context, slug enums.Tier) (*models.PricingTier, error)
}

type tierResponse struct {
	ID              uuid.UUID       `json:"id"`
	Slug            string          `json:"slug"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	MonthlyPrice    decimal.Decimal `json:"monthly_price"`
	AnnualPrice     decimal.Decimal `json:"annual_price"`
	OptimizerAccess bool            `json:"optimizer_access"`
	PromptLimit     int             `json:"prompt_limit"`
}

// TierList returns the active pricing ladder, cheapest first.
func TierList(repo TierLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tier repository unavailable"))
			return
		}

		tiers, err := repo.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list tiers"))
			return
		}

		out := make([]tierResponse, 0, len(tiers))
		for _, tier := range tiers {
			out = append(out, tierResponse{
				ID:              tier.ID,
				Slug:            string(tier.Slug),
				Name:            tier.Name,
				Description:     tier.Description,
				Price:           tier.Price,
				MonthlyPrice:    tier.MonthlyPrice,
				AnnualPrice:     tier.AnnualPrice,
				OptimizerAccess: tier.OptimizerAccess,
				PromptLimit:     tier.PromptLimit,
			})
		}
		responses.WriteSuccess(w, map[string]any{"tiers": out})
	}
}

// TierDetail returns a single pricing tier by slug.
func TierDetail(repo TierLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tier repository unavailable"))
			return
		}

		slug, err := enums.ParseTier(chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "tier not found"))
			return
		}

		tier, err := repo.FindBySlug(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "tier not found"))
			return
		}

		responses.WriteSuccess(w, tierResponse{
			ID:              tier.ID,
			Slug:            string(tier.Slug),
			Name:            tier.Name,
			Description:     tier.Description,
			Price:           tier.Price,
			MonthlyPrice:    tier.MonthlyPrice,
			AnnualPrice:     tier.AnnualPrice,
			OptimizerAccess: tier.OptimizerAccess,
			PromptLimit:     tier.PromptLimit,
		})
	}
}
