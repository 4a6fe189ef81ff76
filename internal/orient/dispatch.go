package orient

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// StationJob is the unit of work handed to the dispatcher: one station's
// angle sweep.
type StationJob struct {
	Station string
	Run     func(ctx context.Context) (*AmplitudeCurve, int, error)
}

// StationResult pairs a completed sweep with its station.
type StationResult struct {
	Station      string
	Curve        *AmplitudeCurve
	Contributing int
}

// Dispatch runs the jobs across at most workers goroutines and returns the
// results in submission order. The first failure cancels the remaining jobs
// and fails the whole batch; a panicking job is reported as a failure rather
// than crashing the process.
func Dispatch(ctx context.Context, jobs []StationJob, workers int) ([]StationResult, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]StationResult, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, job := range jobs {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("station %s: sweep panic: %v", job.Station, r)
				}
			}()
			if err := ctx.Err(); err != nil {
				return err
			}
			curve, contributing, err := job.Run(ctx)
			if err != nil {
				return fmt.Errorf("station %s: %w", job.Station, err)
			}
			results[i] = StationResult{Station: job.Station, Curve: curve, Contributing: contributing}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
