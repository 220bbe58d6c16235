package middleware

import (
	"net/http"
	"strings"

	"github.com/orro3790/drive-sub004/pkg/logger"
)

const (
	orgIDHeader    = "X-Org-Id"
	driverIDHeader = "X-Driver-Id"
	roleHeader     = "X-Actor-Role"
)

// Identity copies the trusted identity headers into request context.
// Authentication happens upstream at the gateway; this service only
// consumes the identity it is handed.
func Identity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if orgID := strings.TrimSpace(r.Header.Get(orgIDHeader)); orgID != "" {
				ctx = WithOrgID(ctx, orgID)
				if logg != nil {
					ctx = logg.WithOrgID(ctx, orgID)
				}
			}
			if driverID := strings.TrimSpace(r.Header.Get(driverIDHeader)); driverID != "" {
				ctx = WithDriverID(ctx, driverID)
				if logg != nil {
					ctx = logg.WithDriverID(ctx, driverID)
				}
			}
			if role := strings.TrimSpace(r.Header.Get(roleHeader)); role != "" {
				ctx = WithRole(ctx, role)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
