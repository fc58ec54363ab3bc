package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-backoffice/internal/domain/auth"
	"github.com/xenking/kart-backoffice/pkg/httpmiddleware"
)

// APIKeyHeader carries the operator API key.
const APIKeyHeader = "api_key"

type operatorKey struct{}

// OperatorFromContext returns the authenticated API key of the request.
func OperatorFromContext(ctx context.Context) (*auth.APIKeyInfo, bool) {
	info, ok := ctx.Value(operatorKey{}).(*auth.APIKeyInfo)
	return info, ok
}

// SecurityHandler authenticates requests via HMAC-SHA256 hashed API keys.
type SecurityHandler struct {
	auth *auth.Authenticator
}

// NewSecurityHandler creates a SecurityHandler backed by a.
func NewSecurityHandler(a *auth.Authenticator) *SecurityHandler {
	return &SecurityHandler{auth: a}
}

// Require serves next only for requests carrying a valid key granted scope.
// The operator name is added to the request logger.
func (s *SecurityHandler) Require(scope string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		info, err := s.auth.Authenticate(ctx, r.Header.Get(APIKeyHeader))
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		if !info.HasScope(scope) {
			httpmiddleware.WriteError(w, http.StatusForbidden, "forbidden", "api key lacks scope "+scope)
			return
		}

		ctx = context.WithValue(ctx, operatorKey{}, info)
		ctx = zctx.Base(ctx, zctx.From(ctx).With(zap.String("operator", info.Name)))
		next(w, r.WithContext(ctx))
	})
}
