package sessions

import "context"

type ctxKey string

const sessionIDKey ctxKey = "ehr.session_id"

// WithSessionID stores the authenticated session id on the context so
// logout can revoke the right record.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok
}
