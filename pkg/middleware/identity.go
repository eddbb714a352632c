package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sunil0336/MovieBuffs-sub000/pkg/auth"
	apperrors "github.com/sunil0336/MovieBuffs-sub000/pkg/errors"
	"github.com/sunil0336/MovieBuffs-sub000/pkg/httputil"
)

// RoleAdmin is the role that may edit or delete content owned by others.
const RoleAdmin = "admin"

// Identity is the caller as vouched for by the identity collaborator.
type Identity struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type identityKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity resolved for the request, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// UserIDFromContext returns the caller's user ID or "".
func UserIDFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.UserID
}

// IdentityResolver extracts the caller from a request. It returns ok=false
// when the request carries no credentials and an error when the credentials
// are present but invalid.
type IdentityResolver func(r *http.Request) (id Identity, ok bool, err error)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// JWTResolver reads "Authorization: Bearer <token>".
func JWTResolver(v TokenVerifier) IdentityResolver {
	return func(r *http.Request) (Identity, bool, error) {
		header := r.Header.Get("Authorization")
		if header == "" {
			return Identity{}, false, nil
		}
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			return Identity{}, false, apperrors.Unauthorized("invalid authorization header format")
		}
		claims, err := v.Verify(strings.TrimSpace(token))
		if err != nil {
			return Identity{}, false, apperrors.Unauthorized("invalid or expired token")
		}
		return Identity{UserID: claims.UserID, Role: claims.Role}, true, nil
	}
}

// HeaderResolver trusts X-User-ID and X-User-Role set by an upstream gateway
// that already authenticated the caller.
func HeaderResolver() IdentityResolver {
	return func(r *http.Request) (Identity, bool, error) {
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if userID == "" {
			return Identity{}, false, nil
		}
		return Identity{UserID: userID, Role: strings.TrimSpace(r.Header.Get("X-User-Role"))}, true, nil
	}
}

// Authenticate resolves the caller and stores the identity in the request
// context. Anonymous requests pass through; invalid credentials get a 401.
func Authenticate(resolve IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok, err := resolve(r)
			if err != nil {
				httputil.WriteError(w, r, err, nil)
				return
			}
			if ok {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireIdentity rejects anonymous requests with 401.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects callers whose role is not in roles with 403.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), nil)
				return
			}
			if _, ok := allowed[id.Role]; !ok {
				httputil.WriteError(w, r, apperrors.Forbidden("insufficient permissions"), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
