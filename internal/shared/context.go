package shared

import "context"

type actorContextKey struct{}

// ContextWithActor stores the authenticated caller's user ID in context.
// Identity is resolved by an upstream authentication collaborator; this
// service never parses credentials itself.
func ContextWithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, userID)
}

// ActorFromContext extracts the caller's user ID from context. Empty
// when the request carried no identity.
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorContextKey{}).(string)
	return actor
}
