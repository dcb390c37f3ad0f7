package pipeline

import (
	"context"
	"sync"

	"github.com/pable/go-dota-metrics/internal/logger"
)

// Pool fans jobs out over a fixed number of workers.
type Pool struct {
	name    string
	workers int
	log     logger.Logger
}

// NewPool returns a pool with n workers; n < 1 means one.
func NewPool(name string, n int, log logger.Logger) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{name: name, workers: n, log: log.Named(name)}
}

// Run calls job for indices 0..n-1 and waits for every started job. Once ctx
// is cancelled no further job is dispatched; jobs already running receive a
// context that is detached from the cancellation and run to completion. Run
// returns the number of dispatched jobs and ctx.Err() if it stopped early.
func (p *Pool) Run(ctx context.Context, n int, job func(ctx context.Context, i int)) (int, error) {
	jobs := make(chan int)
	detached := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				job(detached, i)
			}
		}()
	}

	dispatched := 0
	var err error
dispatch:
	for i := 0; i < n; i++ {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break dispatch
		case jobs <- i:
			dispatched++
		}
	}
	close(jobs)
	wg.Wait()
	if err != nil {
		p.log.Warn(ctx, "dispatch stopped", logger.Int("dispatched", dispatched), logger.Int("total", n), logger.Error(err))
	}
	return dispatched, err
}
