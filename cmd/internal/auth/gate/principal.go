package gate

import (
	"context"
	"net/http"

	"myauth/cmd/identity"
	"myauth/cmd/internal/httpx"
)

// Principal is the authenticated caller bound to a request context.
type Principal struct {
	UserID string
	Email  string
	Name   string
	Role   identity.Role
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal bound to ctx, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != ""
}

// RequirePrincipal rejects anonymous callers with 401 NO_TOKEN.
func RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); !ok {
			httpx.WriteError(w, r, http.StatusUnauthorized, httpx.CodeNoToken, httpx.ActionLoginRequired, httpx.MsgNoToken)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func principalOf(u identity.User) Principal {
	return Principal{UserID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}
