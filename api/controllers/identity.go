package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/orro3790/drive-sub004/api/middleware"
	pkgerrors "github.com/orro3790/drive-sub004/pkg/errors"
)

// orgFromRequest resolves the tenant id set by the identity middleware.
func orgFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.OrgIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodePolicyDenied, "org context missing")
	}
	orgID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid org id")
	}
	return orgID, nil
}

// driverFromRequest resolves the acting driver id set by the identity middleware.
func driverFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.DriverIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodePolicyDenied, "driver context missing")
	}
	driverID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid driver id")
	}
	return driverID, nil
}

// pathUUID parses a chi URL parameter as a uuid.
func pathUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	return id, nil
}
