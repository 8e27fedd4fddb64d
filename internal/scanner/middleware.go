package scanner

import (
	"context"
	"net/http"

	"gatepass/internal/scanner/models"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/httputil"
)

const keyHeader = "X-Scanner-Key"

type contextKey string

const scannerKey contextKey = "scanner"

// RequireScanner authenticates the device key header and stores the scanner
// in the request context.
func (s *Service) RequireScanner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(keyHeader)
		if key == "" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing scanner key"))
			return
		}
		sc, err := s.Authenticate(r.Context(), key)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), scannerKey, sc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext returns the authenticated scanner, if any.
func FromContext(ctx context.Context) (*models.Scanner, bool) {
	sc, ok := ctx.Value(scannerKey).(*models.Scanner)
	return sc, ok && sc != nil
}
