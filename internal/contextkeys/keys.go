package contextkeys

import (
	"context"

	"github.com/BatmanBruc/jondor-ad-bot/types"
)

type eventKey struct{}
type requestIDKey struct{}

func WithEvent(ctx context.Context, ev *types.Event) context.Context {
	return context.WithValue(ctx, eventKey{}, ev)
}

func GetEvent(ctx context.Context) (*types.Event, bool) {
	ev, ok := ctx.Value(eventKey{}).(*types.Event)
	return ev, ok && ev != nil
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func GetRequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey{}).(string)
	return v, ok
}
