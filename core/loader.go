package core

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// LoadRoutine runs one module's full load path. The Manager supplies a
// routine that memoizes through its LoadMemoizer, so a routine invoked twice
// for the same id stays single-execution.
type LoadRoutine func(ctx context.Context, m Module) (Module, error)

// ParallelLoader drains a ready queue into a bounded set of in-flight loads
// and collects completions. One batch runs at a time; concurrent callers
// serialize behind the gate.
type ParallelLoader struct {
	gate        sync.Mutex
	maxParallel int
	retryLimit  int
	load        LoadRoutine
	logger      *slog.Logger
}

func NewParallelLoader(maxParallel, retryLimit int, load LoadRoutine, logger *slog.Logger) *ParallelLoader {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &ParallelLoader{
		maxParallel: maxParallel,
		retryLimit:  retryLimit,
		load:        load,
		logger:      logger,
	}
}

type loadOutcome struct {
	id  string
	mod Module
	err error
}

// LoadModules loads the given set, dependencies first, at most maxParallel
// at a time. The returned slice is in completion order and holds everything
// that finished loading; on error it accompanies the first failure.
//
// A failure or a cancelled ctx stops admission of new work but never
// interrupts loads already in flight; the batch drains before returning.
func (l *ParallelLoader) LoadModules(ctx context.Context, modules []Module) ([]Module, error) {
	l.gate.Lock()
	defer l.gate.Unlock()

	if len(modules) == 0 {
		return nil, nil
	}

	logger := l.logger.With("batch", uuid.NewString()[:8])

	queue := newReadyQueue(l.retryLimit)
	queue.Enqueue(modules)

	// Dependencies outside this set were loaded earlier or are ensured by
	// the load routine itself; the queue only sequences the batch.
	inSet := make(map[string]bool, len(modules))
	for _, m := range modules {
		inSet[m.ID()] = true
	}
	for _, m := range modules {
		for _, dep := range m.Manifest().Dependencies {
			if !inSet[dep] {
				queue.MarkSatisfied(dep)
			}
		}
	}

	logger.Info("load batch starting", "modules", len(modules), "maxParallel", l.maxParallel)

	results := make(chan loadOutcome)
	inflight := 0
	loaded := make([]Module, 0, len(modules))
	var firstErr error

	for queue.Len() > 0 || inflight > 0 {
		for firstErr == nil && inflight < l.maxParallel {
			if err := ctx.Err(); err != nil {
				firstErr = err
				break
			}
			next, err := queue.Next()
			if err != nil {
				firstErr = err
				break
			}
			if next == nil {
				break
			}
			inflight++
			go func(m Module) {
				mod, err := l.load(ctx, m)
				results <- loadOutcome{id: m.ID(), mod: mod, err: err}
			}(next)
		}

		if inflight == 0 {
			if firstErr == nil && queue.Len() > 0 {
				firstErr = &DeadlockError{Unsatisfied: queue.Pending()}
				logger.Error("load batch stuck", "error", firstErr)
			}
			break
		}

		outcome := <-results
		inflight--
		if outcome.err != nil {
			logger.Error("module load failed", "module", outcome.id, "error", outcome.err)
			if firstErr == nil {
				firstErr = outcome.err
			}
			continue
		}
		// Unblocks queued dependents of the finished module. Dependents of a
		// failed one stay ineligible and are simply never admitted.
		queue.MarkSatisfied(outcome.id)
		loaded = append(loaded, outcome.mod)
	}

	if firstErr != nil {
		return loaded, firstErr
	}
	logger.Info("load batch complete", "loaded", len(loaded))
	return loaded, nil
}
