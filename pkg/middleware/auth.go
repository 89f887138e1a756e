package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/platinummonkey/quill/pkg/auth"
	"github.com/platinummonkey/quill/pkg/contextkeys"
	"github.com/platinummonkey/quill/pkg/httputil"
)

const msgAuthenticationRequired = "Authentication required"

// TokenVerifier verifies a bearer token and returns the caller's identity
type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

// Authenticator attaches the caller's identity from a bearer token
type Authenticator struct {
	verifier TokenVerifier
}

// NewAuthenticator creates a new Authenticator
func NewAuthenticator(verifier TokenVerifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

// Handler verifies the Authorization header when present. Requests without
// one continue anonymously; guards and RequireAuthentication reject them.
// A malformed or invalid token is always rejected.
func (a *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		// Format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			httputil.WriteUnauthorized(w, "Invalid authorization header")
			return
		}

		identity, err := a.verifier.Verify(parts[1])
		if err != nil {
			httputil.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx := auth.WithIdentity(r.Context(), identity)
		ctx = contextkeys.WithUserID(ctx, strconv.FormatInt(identity.UserID, 10))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuthentication rejects requests without an identity
func RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := auth.RequireIdentity(r.Context()); err != nil {
			writeDenial(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
