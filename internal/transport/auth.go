package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rpggio/vestline/internal/domain/role"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

// CallerHeader names the caller when authentication is disabled.
const CallerHeader = "X-Vestline-Caller"

type callerKey struct{}

// IdentityResolver resolves a caller identity from a bearer token.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (role.Address, error)
}

// CallerFromContext returns the caller from context, if present.
func CallerFromContext(ctx context.Context) (role.Address, bool) {
	caller, ok := ctx.Value(callerKey{}).(role.Address)
	return caller, ok && !caller.IsZero()
}

// AuthMiddleware enforces bearer token authentication.
func AuthMiddleware(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			caller, err := resolver.ResolveIdentity(r.Context(), token)
			if err != nil || caller.IsZero() {
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), callerKey{}, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CallerMiddleware trusts the X-Vestline-Caller header and falls back to
// defaultIdentity. Only for deployments with authentication disabled.
func CallerMiddleware(defaultIdentity role.Address) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := role.Address(strings.TrimSpace(r.Header.Get(CallerHeader)))
			if caller.IsZero() {
				caller = defaultIdentity
			}
			ctx := context.WithValue(r.Context(), callerKey{}, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
