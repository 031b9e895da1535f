package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// hook is a best-effort side effect run after the authoritative write.
type hook struct {
	name string
	fn   func(ctx context.Context) error
}

// runHooks runs every hook in order. A failing or panicking hook is logged and
// never affects the next hook or the caller.
func runHooks(ctx context.Context, orderID string, hooks []hook) {
	for _, h := range hooks {
		if err := runHook(ctx, h); err != nil {
			logrus.WithFields(logrus.Fields{
				"order_id": orderID,
				"hook":     h.name,
				"error":    TransportError(err, "%s failed", h.name).Error(),
			}).Warn("post-commit hook failed")
		}
	}
}

func runHook(ctx context.Context, h hook) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.fn(ctx)
}
