package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mwynn/storefront/pkg/httputil"
)

type contextKeyType string

const identityKey contextKeyType = "identity"

// Identity is the authenticated principal attached to the request context.
type Identity struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// IdentityResolver validates a raw credential and resolves the identity it
// refers to. The service injects its own JWT validation plus user lookup.
type IdentityResolver func(ctx context.Context, credential string) (*Identity, error)

// CredentialCookie is the cookie the session credential travels in.
const CredentialCookie = "token"

// Authenticate extracts the session credential from the "token" cookie or the
// Authorization header, resolves the identity behind it, and attaches the
// identity to the request context. Requests without a valid credential are
// rejected with 401.
func Authenticate(resolve IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := credentialFromRequest(r)
			if credential == "" {
				writeAuthError(w, http.StatusUnauthorized, "please login to access this resource")
				return
			}

			identity, err := resolve(r.Context(), credential)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose authenticated identity is not in the
// allowed role set. The set is built once at mount time; membership is checked
// once per request. Must be mounted after Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity == nil {
				writeAuthError(w, http.StatusUnauthorized, "please login to access this resource")
				return
			}
			if _, ok := roleSet[identity.Role]; !ok {
				writeAuthError(w, http.StatusForbidden,
					"role "+identity.Role+" is not allowed to access this resource")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext extracts the authenticated identity from the request
// context, or nil when the request did not pass Authenticate.
func IdentityFromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityKey).(*Identity); ok {
		return id
	}
	return nil
}

func credentialFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CredentialCookie); err == nil && c.Value != "" {
		return c.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	httputil.WriteJSON(w, status, httputil.Envelope{
		"success": false,
		"message": message,
	})
}
