package httpapi

import (
	"context"

	"github.com/pixeltrip/tripboard/internal/domain"
)

type actorKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	v, ok := ctx.Value(actorKey{}).(domain.Actor)
	return v, ok && v.ParticipantID != "" && v.TripGroup != ""
}
