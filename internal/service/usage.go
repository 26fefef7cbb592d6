package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/moni-del/dragon-d/internal/repository"
)

// DefaultUsageWriteTimeout bounds a single usage increment.
const DefaultUsageWriteTimeout = 5 * time.Second

// UsageWriter records discount usage in the background. A failed write is
// logged and counted but never undoes the discount it belongs to, so the
// registry may under-count uses while it is unavailable.
type UsageWriter struct {
	registry repository.DiscountRegistry
	timeout  time.Duration
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewUsageWriter creates a usage writer.
func NewUsageWriter(registry repository.DiscountRegistry, timeout time.Duration, logger *slog.Logger) *UsageWriter {
	if timeout <= 0 {
		timeout = DefaultUsageWriteTimeout
	}
	return &UsageWriter{registry: registry, timeout: timeout, logger: logger}
}

// Record increments the used count of document id without blocking the
// caller. The write outlives the request that triggered it.
func (u *UsageWriter) Record(ctx context.Context, id, code string) {
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()

		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.timeout)
		defer cancel()

		if err := u.registry.IncrementUsage(wctx, id); err != nil {
			usageWriteFailures.Inc()
			u.logger.ErrorContext(wctx, "failed to record discount usage",
				slog.String("discount_id", id),
				slog.String("code", code),
				slog.String("error_kind", "registry_unavailable"),
				slog.String("error", err.Error()),
			)
			return
		}
		u.logger.DebugContext(wctx, "discount usage recorded",
			slog.String("discount_id", id),
			slog.String("code", code),
		)
	}()
}

// Wait blocks until every pending write has finished.
func (u *UsageWriter) Wait() {
	u.wg.Wait()
}

// Drain waits for pending writes or until ctx is done.
func (u *UsageWriter) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		u.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
