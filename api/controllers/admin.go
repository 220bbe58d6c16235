package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orro3790/drive-sub004/api/middleware"
	"github.com/orro3790/drive-sub004/api/responses"
	"github.com/orro3790/drive-sub004/api/validators"
	"github.com/orro3790/drive-sub004/internal/bidding"
	"github.com/orro3790/drive-sub004/internal/health"
	"github.com/orro3790/drive-sub004/internal/lifecycle"
	"github.com/orro3790/drive-sub004/pkg/enums"
	pkgerrors "github.com/orro3790/drive-sub004/pkg/errors"
	"github.com/orro3790/drive-sub004/pkg/logger"
)

// managerFromRequest resolves the acting manager's id. Managers arrive
// through the same identity header as drivers; the role gate upstream
// already established they are managers.
func managerFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.DriverIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodePolicyDenied, "manager context missing")
	}
	managerID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid manager id")
	}
	return managerID, nil
}

type reassignRequest struct {
	DriverID string `json:"driver_id" validate:"required,uuid"`
}

// ReassignAssignment moves an assignment to a new driver without penalties.
func ReassignAssignment(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lifecycle service unavailable"))
			return
		}

		orgID, err := orgFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		assignmentID, err := pathUUID(chi.URLParam(r, "assignmentId"), "assignment id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reassignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		driverID, err := uuid.Parse(strings.TrimSpace(payload.DriverID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid driver id"))
			return
		}

		assignment, err := svc.Reassign(r.Context(), lifecycle.ReassignInput{
			OrgID:        orgID,
			AssignmentID: assignmentID,
			DriverID:     driverID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assignment)
	}
}

type forceOpenWindowRequest struct {
	PayBonusPercent string `json:"pay_bonus_percent"`
}

// ForceOpenWindow puts a slot on the market manually, outside the
// automatic cancellation and no-show triggers.
func ForceOpenWindow(svc bidding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bidding service unavailable"))
			return
		}

		orgID, err := orgFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		assignmentID, err := pathUUID(chi.URLParam(r, "assignmentId"), "assignment id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload forceOpenWindowRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bonus := decimal.Zero
		if raw := strings.TrimSpace(payload.PayBonusPercent); raw != "" {
			bonus, err = decimal.NewFromString(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid pay_bonus_percent"))
				return
			}
			if bonus.IsNegative() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "pay_bonus_percent must not be negative"))
				return
			}
		}

		window, err := svc.ForceOpenWindow(r.Context(), bidding.OpenWindowInput{
			OrgID:           orgID,
			AssignmentID:    assignmentID,
			Trigger:         enums.BidTriggerManual,
			PayBonusPercent: bonus,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, window)
	}
}

type reinstateRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

// ReinstateDriver clears a hard-stopped driver back into rotation.
func ReinstateDriver(svc health.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "health service unavailable"))
			return
		}

		orgID, err := orgFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		managerID, err := managerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		driverID, err := pathUUID(chi.URLParam(r, "driverId"), "driver id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reinstateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.Reinstate(r.Context(), health.ReinstateInput{
			OrgID:     orgID,
			DriverID:  driverID,
			ManagerID: managerID,
			Reason:    strings.TrimSpace(payload.Reason),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}
