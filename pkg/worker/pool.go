package worker

import (
	"context"

	"go.uber.org/zap"
)

// Pool bounds the number of concurrently executing heavy tasks. Solver runs
// are CPU-bound and long-lived, so request goroutines hand the work to the
// pool instead of each spinning an unbounded search.
type Pool struct {
	name   string
	slots  chan struct{}
	logger *zap.Logger
}

// NewPool creates a pool admitting at most size concurrent tasks.
func NewPool(name string, size int, logger *zap.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		name:   name,
		slots:  make(chan struct{}, size),
		logger: logger,
	}
}

// Run executes fn once a slot is available, releasing the slot when fn
// returns. Admission respects ctx: a caller whose deadline expires while
// queued gets ctx.Err() without fn ever starting.
func (p *Pool) Run(ctx context.Context, fn func(context.Context) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.slots <- struct{}{}:
	}
	defer func() { <-p.slots }()

	p.logger.Debug("pool task admitted", zap.String("pool", p.name))
	return fn(ctx)
}

// InFlight reports how many tasks currently hold a slot.
func (p *Pool) InFlight() int {
	return len(p.slots)
}
