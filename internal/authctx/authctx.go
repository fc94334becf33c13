// Package authctx carries the authenticated caller through request contexts.
package authctx

import (
	"context"

	"github.com/iliyamo/movietix/internal/model"
)

// Principal is the caller decoded from a verified access token.
type Principal struct {
	UserID uint64
	Role   string
	Email  string
}

// IsAdmin reports whether the principal holds the ADMIN role.
func (p Principal) IsAdmin() bool { return p.Role == model.RoleAdmin }

// CanAccess reports whether the principal may act on a resource owned by
// ownerID.  Admins may act on anything.
func (p Principal) CanAccess(ownerID uint64) bool {
	return p.IsAdmin() || p.UserID == ownerID
}

type ctxKeyPrincipal struct{}

var principalKey = ctxKeyPrincipal{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext returns the principal stored by the auth middleware, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok && p.UserID != 0
}
