package shared

import "context"

type actorContextKey struct{}

// ContextWithActor stores the authenticated actor name in context.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor name from context. Requests that
// reached the core without an upstream identity are attributed to "system".
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorContextKey{}).(string)
	if actor == "" {
		return "system"
	}
	return actor
}
