// Package auth turns an inbound Authorization header into a verified
// identity before protected handlers run.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dharsanguruparan/VideoGate/internal/apperr"
	"github.com/dharsanguruparan/VideoGate/internal/identity"
)

// Resolver looks up the identity behind a bearer token. *identity.Client
// satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, token string) (identity.Identity, error)
}

// Gate enforces bearer authentication and scope membership.
type Gate struct {
	resolver Resolver
	logger   *slog.Logger
}

// NewGate builds a Gate on top of resolver.
func NewGate(resolver Resolver, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{resolver: resolver, logger: logger.With("component", "auth_gate")}
}

// RequireIdentity validates the header and resolves the caller.
func (g *Gate) RequireIdentity(ctx context.Context, header string) (identity.Identity, error) {
	scheme, token, _ := strings.Cut(strings.TrimSpace(header), " ")
	if scheme == "" || !strings.EqualFold(scheme, "bearer") {
		return nil, apperr.New(apperr.Unauthorized, "missing bearer token")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.New(apperr.Unauthorized, "empty bearer token")
	}
	user, err := g.resolver.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if user.Inactive() {
		g.logger.Info("inactive user rejected", "user_id", user.ID(), "token_id", identity.TokenDigest(token))
		return nil, apperr.New(apperr.Forbidden, "inactive user")
	}
	return user, nil
}

// RequireScopes resolves the caller and checks that every required scope is
// granted.
func (g *Gate) RequireScopes(ctx context.Context, required []string, header string) (identity.Identity, error) {
	user, err := g.RequireIdentity(ctx, header)
	if err != nil {
		return nil, err
	}
	if !HasEvery(required, user.Scopes()) {
		return nil, apperr.New(apperr.Forbidden, "insufficient scope")
	}
	return user, nil
}

// HasEvery reports whether required is a subset of granted. Comparison is
// set-based and ignores blank entries.
func HasEvery(required, granted []string) bool {
	have := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		if s = strings.TrimSpace(s); s != "" {
			have[s] = struct{}{}
		}
	}
	for _, s := range required {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := have[s]; !ok {
			return false
		}
	}
	return true
}

// ErrorWriter renders a gate failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware rejects requests that fail RequireScopes and stores the
// resolved identity in the request context otherwise.
func (g *Gate) Middleware(scopes []string, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := g.RequireScopes(r.Context(), scopes, r.Header.Get("Authorization"))
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), user)))
		})
	}
}

type ctxKey struct{}

// WithIdentity stores user in ctx.
func WithIdentity(ctx context.Context, user identity.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// FromContext returns the identity stored by Middleware.
func FromContext(ctx context.Context) (identity.Identity, bool) {
	user, ok := ctx.Value(ctxKey{}).(identity.Identity)
	return user, ok
}
