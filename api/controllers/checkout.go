package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/promptvault/promptvault-backend/api/responses"
	"github.com/promptvault/promptvault-backend/api/validators"
	checkoutsvc "github.com/promptvault/promptvault-backend/internal/checkout"
	"github.com/promptvault/promptvault-backend/pkg/enums"
	pkgerrors "github.com/promptvault/promptvault-backend/pkg/errors"
	"github.com/promptvault/promptvault-backend/pkg/logger"
)

type checkoutRequest struct {
	TierID   uuid.UUID `json:"tier_id" validate:"required"`
	TierSlug string    `json:"tier_slug" validate:"required"`
}

type checkoutResponse struct {
	RedirectURL string    `json:"redirect_url"`
	SessionID   string    `json:"session_id,omitempty"`
	PurchaseID  uuid.UUID `json:"purchase_id"`
	Status      string    `json:"status"`
}

// Checkout starts a one-time purchase of the selected tier.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := requireCallerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Start(r.Context(), userID, checkoutsvc.StartInput{
			TierID:   payload.TierID,
			TierSlug: enums.Tier(payload.TierSlug),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCheckoutResponse(result))
	}
}

func newCheckoutResponse(result *checkoutsvc.StartResult) checkoutResponse {
	if result == nil {
		return checkoutResponse{}
	}
	resp := checkoutResponse{
		RedirectURL: result.RedirectURL,
		SessionID:   result.SessionID,
	}
	if result.Purchase != nil {
		resp.PurchaseID = result.Purchase.ID
		resp.Status = string(result.Purchase.Status)
	}
	return resp
}
