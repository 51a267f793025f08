// Package poll runs a view's recurring refresh.
package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vbonduro/snapsync/internal/logging"
)

// DefaultInterval is used when a loop is built with a non-positive interval.
const DefaultInterval = 3 * time.Second

// RefreshFunc performs one refresh. Its error is logged and never stops the loop.
type RefreshFunc func(ctx context.Context) error

type Loop struct {
	name     string
	interval time.Duration
	refresh  RefreshFunc
	logger   *slog.Logger
}

func New(name string, interval time.Duration, refresh RefreshFunc, logger *slog.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		name:     name,
		interval: interval,
		refresh:  refresh,
		logger:   logging.OrDefault(logger).With("loop", name),
	}
}

// Run refreshes once immediately and then on every tick until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	l.tick(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Start runs the loop on its own goroutine. The returned stop function
// cancels the loop and waits for it to exit; it is safe to call twice.
func (l *Loop) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.Run(ctx)
	}()
	l.logger.Debug("poll loop started", "interval", l.interval)
	return func() {
		cancel()
		wg.Wait()
	}
}

func (l *Loop) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := l.refresh(ctx); err != nil && ctx.Err() == nil {
		l.logger.Warn("refresh failed", "error", err)
	}
}
