package auth

import (
	"context"
	"encoding/json"
	"net/http"
)

// PublicUserID is the principal assigned to requests carrying no usable
// token. Public requests read and write the shared root workspace.
const PublicUserID = "public"

// Principal is the resolved identity of a request.
type Principal struct {
	UserID       string
	Email        string
	ActiveTeamID string
}

// Authenticated reports whether the principal is a real signed-in user
// rather than the public fallback.
func (p Principal) Authenticated() bool {
	return p.UserID != "" && p.UserID != PublicUserID
}

type principalKey struct{}

// WithPrincipal stores the principal on the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal resolved by the middleware.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Require rejects requests that do not carry a valid bearer token.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := a.resolve(r)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// Optional resolves a principal when a valid token is present and falls
// back to the shared public principal otherwise. Requests never fail
// here; handlers decide what the public user may do.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := a.resolve(r)
		if !ok {
			p = Principal{UserID: PublicUserID}
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

func (a *Authenticator) resolve(r *http.Request) (Principal, bool) {
	token, ok := BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return Principal{}, false
	}
	claims, err := a.ParseToken(token)
	if err != nil {
		return Principal{}, false
	}
	return Principal{
		UserID:       claims.Subject,
		Email:        claims.Email,
		ActiveTeamID: claims.ActiveTeamID,
	}, true
}
