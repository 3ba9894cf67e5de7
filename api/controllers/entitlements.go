package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/promptvault/promptvault-backend/api/middleware"
	"github.com/promptvault/promptvault-backend/api/responses"
	"github.com/promptvault/promptvault-backend/internal/entitlements"
	pkgerrors "github.com/promptvault/promptvault-backend/pkg/errors"
	"github.com/promptvault/promptvault-backend/pkg/logger"
)

// MyEntitlements returns the caller's resolved access snapshot.
func MyEntitlements(svc *entitlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entitlement service unavailable"))
			return
		}

		userID, err := requireCallerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.ForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func requireCallerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user context")
	}
	return id, nil
}
