package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/promptvault/promptvault-backend/api/responses"
	"github.com/promptvault/promptvault-backend/api/validators"
	subscriptionsvc "github.com/promptvault/promptvault-backend/internal/subscriptions"
	"github.com/promptvault/promptvault-backend/pkg/enums"
	pkgerrors "github.com/promptvault/promptvault-backend/pkg/errors"
	"github.com/promptvault/promptvault-backend/pkg/logger"
)

type subscriptionRequest struct {
	TierID      uuid.UUID `json:"tier_id" validate:"required"`
	BillingType string    `json:"billing_type" validate:"required,oneof=one_time monthly annual"`
}

// SubscriptionCreate starts a recurring checkout for the selected tier.
func SubscriptionCreate(svc subscriptionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := requireCallerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload subscriptionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Start(r.Context(), userID, subscriptionsvc.StartInput{
			TierID:      payload.TierID,
			BillingType: enums.BillingType(payload.BillingType),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := checkoutResponse{
			RedirectURL: result.RedirectURL,
			SessionID:   result.SessionID,
		}
		if result.Purchase != nil {
			resp.PurchaseID = result.Purchase.ID
			resp.Status = string(result.Purchase.Status)
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// SubscriptionCancel ends the caller's active subscription at the gateway.
func SubscriptionCancel(svc subscriptionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := requireCallerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Cancel(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancellation_requested"})
	}
}
