package service

import (
	"context"
	"log/slog"
	"time"
)

// Loop drives the engine's consumer side. It drains the inbound queues on a
// fixed frame tick and immediately after a wake signal, so new data shows up
// promptly without the render surface ever blocking on a queue.
type Loop struct {
	engine   *Engine
	interval time.Duration
	wake     chan struct{}
	logger   *slog.Logger
}

func NewLoop(engine *Engine, interval time.Duration, logger *slog.Logger) *Loop {
	return &Loop{
		engine:   engine,
		interval: interval,
		wake:     make(chan struct{}, 1),
		logger:   logger.With("component", "loop"),
	}
}

// Wake requests an immediate drain. It never blocks; coalescing repeated
// wake-ups into one pending signal is fine because a drain empties
// everything.
func (l *Loop) Wake() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Start runs the consumer loop until the context is canceled.
func (l *Loop) Start(ctx context.Context) error {
	l.logger.Info("consumer loop started", "interval", l.interval)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("consumer loop stopped")
			return ctx.Err()
		case <-ticker.C:
			l.drain(ctx)
		case <-l.wake:
			l.drain(ctx)
		}
	}
}

func (l *Loop) drain(ctx context.Context) {
	if n := l.engine.Drain(ctx); n > 0 {
		l.logger.Debug("drained inbound queues",
			"processed", n,
			"feeds", l.engine.Feeds().Len(),
			"theme", l.engine.Config().CurrentTheme,
		)
	}
}
