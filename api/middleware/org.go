package middleware

import (
	"net/http"

	"github.com/orro3790/drive-sub004/api/responses"
	pkgerrors "github.com/orro3790/drive-sub004/pkg/errors"
	"github.com/orro3790/drive-sub004/pkg/logger"
)

// OrgContext rejects requests that arrived without a tenant identity.
func OrgContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if OrgIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodePolicyDenied, "org context missing"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
