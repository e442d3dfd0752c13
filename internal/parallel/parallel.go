// Package parallel runs independent scan units on a bounded worker group.
package parallel

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ansible/ansible-risk-insight-sub000/internal/ctxlog"
)

// ExecutionResult is the outcome of one unit
type ExecutionResult[R any] struct {
	Index    int           // index of the item in the original list
	Item     string        // the item being processed
	Value    R             // value returned by the unit
	Error    error         // error if the unit failed or was skipped
	Duration time.Duration // how long the unit took
}

// Executor bounds the number of units running at once
type Executor struct {
	maxWorkers int
	failFast   bool
	output     io.Writer
	verbose    bool

	mu sync.Mutex // guards output
}

// NewExecutor creates an executor. maxWorkers <= 0 means one worker per item.
func NewExecutor(maxWorkers int, failFast bool, output io.Writer) *Executor {
	if output == nil {
		output = io.Discard
	}
	return &Executor{
		maxWorkers: maxWorkers,
		failFast:   failFast,
		output:     output,
	}
}

// SetVerbose toggles per-unit progress lines
func (e *Executor) SetVerbose(verbose bool) {
	e.verbose = verbose
}

// printf writes one progress line; units report from their own goroutines
func (e *Executor) printf(format string, args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, _ = fmt.Fprintf(e.output, format, args...)
}

// Execute runs fn once per item and returns the results in item order. With
// fail-fast, the first failure cancels the context passed to later units and
// units not yet started are skipped; the first error is returned. Without
// fail-fast every unit runs and errors are reported only in the results.
func Execute[R any](ctx context.Context, e *Executor, items []string, fn func(ctx context.Context, item string) (R, error)) ([]ExecutionResult[R], error) {
	results := make([]ExecutionResult[R], len(items))
	if len(items) == 0 {
		return results, nil
	}

	workers := e.maxWorkers
	if workers <= 0 || workers > len(items) {
		workers = len(items)
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("starting parallel scan", "items", len(items), "workers", workers)

	var g *errgroup.Group
	gctx := ctx
	if e.failFast {
		g, gctx = errgroup.WithContext(ctx)
	} else {
		g = &errgroup.Group{}
	}
	g.SetLimit(workers)

	for i, item := range items {
		results[i] = ExecutionResult[R]{Index: i, Item: item}

		g.Go(func() error {
			// Cancellation is only checked between units
			if err := gctx.Err(); err != nil {
				results[i].Error = fmt.Errorf("skipped: %w", err)
				return nil
			}

			start := time.Now()
			value, err := fn(gctx, item)
			results[i].Value = value
			results[i].Error = err
			results[i].Duration = time.Since(start)

			if err != nil {
				logger.Warn("unit failed", "item", item, "error", err)
				if e.verbose {
					e.printf("❌ %s failed: %v\n", item, err)
				}
				if e.failFast {
					return fmt.Errorf("%s: %w", item, err)
				}
				return nil
			}
			if e.verbose {
				e.printf("✅ %s done in %v\n", item, results[i].Duration.Round(time.Millisecond))
			}
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

// Errors returns the errors of failed results in item order
func Errors[R any](results []ExecutionResult[R]) []error {
	var errs []error
	for _, r := range results {
		if r.Error != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Item, r.Error))
		}
	}
	return errs
}
