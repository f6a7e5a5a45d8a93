package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/arbormed/clinicstock-backend/api/responses"
	pkgerrors "github.com/arbormed/clinicstock-backend/pkg/errors"
	"github.com/arbormed/clinicstock-backend/pkg/logger"
)

const apiKeyHeader = "X-Api-Key"

// SupplierAPIKey guards the inbound supplier callback routes with a static
// shared key.
func SupplierAPIKey(key string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inbound api key not configured"))
				return
			}
			presented := strings.TrimSpace(r.Header.Get(apiKeyHeader))
			if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid api key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
