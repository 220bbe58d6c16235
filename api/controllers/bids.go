package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orro3790/drive-sub004/api/responses"
	"github.com/orro3790/drive-sub004/internal/bidding"
	pkgerrors "github.com/orro3790/drive-sub004/pkg/errors"
	"github.com/orro3790/drive-sub004/pkg/logger"
)

// PlaceBid submits a competitive bid on an open window.
func PlaceBid(svc bidding.Service, logg *logger.Logger) http.HandlerFunc {
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
		driverID, err := driverFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		windowID, err := pathUUID(chi.URLParam(r, "windowId"), "window id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bid, err := svc.PlaceBid(r.Context(), bidding.PlaceBidInput{
			OrgID:    orgID,
			DriverID: driverID,
			WindowID: windowID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, bid)
	}
}

// ClaimWindow is the first-accept path for instant and emergency windows.
// The winner gets the assignment in the same response.
func ClaimWindow(svc bidding.Service, logg *logger.Logger) http.HandlerFunc {
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
		driverID, err := driverFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		windowID, err := pathUUID(chi.URLParam(r, "windowId"), "window id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignment, err := svc.AcceptClaim(r.Context(), bidding.ClaimInput{
			OrgID:    orgID,
			DriverID: driverID,
			WindowID: windowID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assignment)
	}
}
