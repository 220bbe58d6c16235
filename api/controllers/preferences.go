package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/orro3790/drive-sub004/api/responses"
	"github.com/orro3790/drive-sub004/api/validators"
	"github.com/orro3790/drive-sub004/internal/preferences"
	pkgerrors "github.com/orro3790/drive-sub004/pkg/errors"
	"github.com/orro3790/drive-sub004/pkg/logger"
)

// GetPreferences returns the acting driver's weekday and route preferences.
func GetPreferences(svc preferences.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "preferences service unavailable"))
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

		preference, err := svc.Get(r.Context(), orgID, driverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, preference)
	}
}

type updatePreferencesRequest struct {
	Weekdays        []int    `json:"weekdays" validate:"required"`
	PreferredRoutes []string `json:"preferred_routes" validate:"max=3,dive,uuid"`
}

func (req updatePreferencesRequest) toInput(orgID, driverID uuid.UUID) (preferences.UpdateInput, error) {
	routes := make([]uuid.UUID, 0, len(req.PreferredRoutes))
	for _, raw := range req.PreferredRoutes {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return preferences.UpdateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid route id")
		}
		routes = append(routes, id)
	}
	return preferences.UpdateInput{
		OrgID:           orgID,
		DriverID:        driverID,
		Weekdays:        req.Weekdays,
		PreferredRoutes: routes,
	}, nil
}

// UpdatePreferences replaces the driver's preferences wholesale.
func UpdatePreferences(svc preferences.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "preferences service unavailable"))
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

		var payload updatePreferencesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(orgID, driverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		preference, err := svc.Update(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, preference)
	}
}
