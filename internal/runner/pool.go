package runner

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

type Job func(ctx context.Context) error

// RunPool executes jobs with at most maxWorkers concurrently. The first error
// cancels the context handed to the remaining jobs and is returned.
func RunPool(ctx context.Context, maxWorkers int, jobs []Job) error {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	p := pool.New().
		WithContext(ctx).
		WithFailFast().
		WithMaxGoroutines(maxWorkers)
	for _, job := range jobs {
		job := job
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return job(ctx)
		})
	}
	return p.Wait()
}
