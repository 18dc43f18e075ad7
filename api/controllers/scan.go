package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/scanningworld/scanningworld-backend/api/middleware"
	"github.com/scanningworld/scanningworld-backend/api/responses"
	"github.com/scanningworld/scanningworld-backend/api/validators"
	"github.com/scanningworld/scanningworld-backend/internal/scan"
	pkgerrors "github.com/scanningworld/scanningworld-backend/pkg/errors"
	"github.com/scanningworld/scanningworld-backend/pkg/logger"
)

// ScanRedeem exchanges a scanned place code for points.
func ScanRedeem(svc scan.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scan service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "missing credentials"))
			return
		}

		var body scan.RedeemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.RedeemCode(ctx, userID, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
