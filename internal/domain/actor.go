package domain

import (
	"context"

	"github.com/google/uuid"
)

// Actor is the caller of a request, carried on the context for audit
// attribution. UserID is uuid.Nil until the request is authenticated.
type Actor struct {
	UserID    uuid.UUID
	Role      Role
	IPAddress string
	RequestID string
}

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
