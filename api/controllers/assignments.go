package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orro3790/drive-sub004/api/responses"
	"github.com/orro3790/drive-sub004/api/validators"
	"github.com/orro3790/drive-sub004/internal/lifecycle"
	pkgerrors "github.com/orro3790/drive-sub004/pkg/errors"
	"github.com/orro3790/drive-sub004/pkg/logger"
)

func actionInputFromRequest(r *http.Request) (lifecycle.ActionInput, error) {
	orgID, err := orgFromRequest(r)
	if err != nil {
		return lifecycle.ActionInput{}, err
	}
	driverID, err := driverFromRequest(r)
	if err != nil {
		return lifecycle.ActionInput{}, err
	}
	assignmentID, err := pathUUID(chi.URLParam(r, "assignmentId"), "assignment id")
	if err != nil {
		return lifecycle.ActionInput{}, err
	}
	return lifecycle.ActionInput{
		OrgID:        orgID,
		DriverID:     driverID,
		AssignmentID: assignmentID,
	}, nil
}

// ConfirmAssignment handles the driver accepting a scheduled shift.
func ConfirmAssignment(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lifecycle service unavailable"))
			return
		}

		input, err := actionInputFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignment, err := svc.Confirm(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assignment)
	}
}

// CancelAssignment handles a driver-initiated drop of a confirmed or
// scheduled shift. Penalty classification happens in the service.
func CancelAssignment(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lifecycle service unavailable"))
			return
		}

		input, err := actionInputFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignment, err := svc.Cancel(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assignment)
	}
}

// ArriveAssignment marks the driver on-site inside the arrival window.
func ArriveAssignment(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lifecycle service unavailable"))
			return
		}

		input, err := actionInputFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shift, err := svc.Arrive(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shift)
	}
}

type startShiftRequest struct {
	ParcelsStart int `json:"parcels_start" validate:"gte=0"`
}

// StartShift records the loaded parcel count and begins the shift.
func StartShift(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lifecycle service unavailable"))
			return
		}

		input, err := actionInputFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload startShiftRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shift, err := svc.StartShift(r.Context(), lifecycle.StartShiftInput{
			ActionInput:  input,
			ParcelsStart: payload.ParcelsStart,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shift)
	}
}

type completeShiftRequest struct {
	ParcelsReturned int `json:"parcels_returned" validate:"gte=0"`
	ExceptedReturns int `json:"excepted_returns" validate:"gte=0"`
}

// CompleteShift closes out the shift with the day's return counts.
func CompleteShift(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lifecycle service unavailable"))
			return
		}

		input, err := actionInputFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload completeShiftRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shift, err := svc.Complete(r.Context(), lifecycle.CompleteInput{
			ActionInput:     input,
			ParcelsReturned: payload.ParcelsReturned,
			ExceptedReturns: payload.ExceptedReturns,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shift)
	}
}

// AmendShift corrects parcel counts inside the post-completion edit window.
func AmendShift(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lifecycle service unavailable"))
			return
		}

		input, err := actionInputFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload completeShiftRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shift, err := svc.AmendShift(r.Context(), lifecycle.AmendShiftInput{
			ActionInput:     input,
			ParcelsReturned: payload.ParcelsReturned,
			ExceptedReturns: payload.ExceptedReturns,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shift)
	}
}
