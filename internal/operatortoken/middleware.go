package operatortoken

import (
	"context"
	"net/http"
	"strings"

	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/httputil"
)

type contextKey string

const operatorKey contextKey = "operator"

// RequireOperator rejects requests without a valid bearer token and stores
// the operator name in the request context.
func (s *Service) RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing operator token"))
			return
		}
		claims, err := s.Validate(token)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), operatorKey, claims.Operator)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OperatorFromContext returns the authenticated operator name, if any.
func OperatorFromContext(ctx context.Context) (string, bool) {
	op, ok := ctx.Value(operatorKey).(string)
	return op, ok && op != ""
}
