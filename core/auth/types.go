package auth

import (
	"context"

	"github.com/shenulal/telematics-io-manager/core/rbac"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Identity is what the authorization gate attaches to a request context:
// the verified token claims plus the permission set resolved fresh from
// the store for this request.
type Identity struct {
	UserID      int64
	Username    string
	Email       string
	Permissions rbac.Set
}

type contextKey string

// IdentityContextKey carries *Identity through the request context.
const IdentityContextKey contextKey = "tio.identity"

func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(IdentityContextKey).(*Identity)
	return id
}

func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, id)
}
