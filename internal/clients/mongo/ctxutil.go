package mongo

import (
	"context"
	"time"
)

// OpTimeout bounds a single local store operation.
const OpTimeout = 5 * time.Second

// WithRepoTimeout applies d to ctx unless ctx is already done or will expire
// within d. The returned cancel is always safe to defer.
func WithRepoTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx.Err() != nil {
		return ctx, func() {}
	}
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) <= d {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
