package usecase

import (
	"context"
	"time"
)

// boundStore limits one store round trip. d <= 0 leaves ctx unbounded.
func boundStore(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
