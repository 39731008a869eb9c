package auth

import "context"

// Context carries the authenticated actor for one request. It is built once
// by the HTTP auth middleware and threaded through every service call, so
// services never reach into session state themselves.
type Context struct {
	UserID      string
	Role        Role
	Permissions []string
}

// Can reports whether the actor holds perm.
func (c *Context) Can(perm string) bool {
	if c == nil {
		return false
	}
	for _, p := range c.Permissions {
		if p == PermAll || p == perm {
			return true
		}
	}
	return false
}

// NewContext builds an actor context for userID with the permission set of
// role.
func NewContext(userID string, role Role) *Context {
	return &Context{
		UserID:      userID,
		Role:        role,
		Permissions: Permissions(role),
	}
}

type ctxKey string

const actorKey ctxKey = "ehr.actor"

// WithActor stores the actor context in ctx.
func WithActor(ctx context.Context, actor *Context) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext extracts the actor context if present.
func ActorFromContext(ctx context.Context) (*Context, bool) {
	actor, ok := ctx.Value(actorKey).(*Context)
	return actor, ok && actor != nil
}
