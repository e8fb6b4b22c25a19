package clip

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultOperationTimeout bounds one clip operation: planning plus every cut.
const DefaultOperationTimeout = 30 * time.Minute

// WithinTimeout runs op under a context that expires after timeout
// (DefaultOperationTimeout when timeout <= 0). If op fails because that
// deadline passed while ctx itself is still live, the error wraps
// ErrOperationTimeout. Cancellation of ctx is returned as is.
func WithinTimeout(ctx context.Context, timeout time.Duration, op func(ctx context.Context) error) error {
	if timeout <= 0 {
		timeout = DefaultOperationTimeout
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := op(opCtx)
	if err != nil && ctx.Err() == nil && errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %v: %v", ErrOperationTimeout, timeout, err)
	}
	return err
}
