package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/promptvault/promptvault-backend/api/responses"
	"github.com/promptvault/promptvault-backend/pkg/db/models"
	pkgerrors "github.com/promptvault/promptvault-backend/pkg/errors"
	"github.com/promptvault/promptvault-backend/pkg/logger"
)

type purchaseLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error)
}

type purchaseResponse struct {
	ID          uuid.UUID       `json:"id"`
	TierSlug    string          `json:"tier_slug"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	BillingType *string         `json:"billing_type,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MyPurchases lists the caller's purchase history, newest first.
func MyPurchases(repo purchaseLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase repository unavailable"))
			return
		}

		userID, err := requireCallerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := repo.ListByUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list purchases"))
			return
		}

		out := make([]purchaseResponse, 0, len(rows))
		for _, row := range rows {
			resp := purchaseResponse{
				ID:        row.ID,
				TierSlug:  string(row.TierSlug),
				Amount:    row.Amount,
				Status:    string(row.Status),
				CreatedAt: row.CreatedAt,
			}
			if row.BillingType != nil {
				billing := string(*row.BillingType)
				resp.BillingType = &billing
			}
			out = append(out, resp)
		}
		responses.WriteSuccess(w, map[string]any{"purchases": out})
	}
}
