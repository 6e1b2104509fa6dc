package core

import (
	"context"
	"sync"
	"time"
)

// LoadFunc executes one module's full load routine.
type LoadFunc func(ctx context.Context) (Module, error)

// loadCall is the pending handle shared by every concurrent requester of one
// id. mod and err are written before done closes.
type loadCall struct {
	done chan struct{}
	mod  Module
	err  error
}

type completedLoad struct {
	mod      Module
	loadedAt time.Time
}

// LoadMemoizer guarantees at most one execution of a load routine per module
// id per lifecycle. The first requester becomes the executor; concurrent
// requesters block on the shared in-flight handle and receive the same
// outcome. Executions system-wide are bounded by a counting semaphore sized
// at construction.
//
// Failures are delivered to every waiter but never cached, so a later
// request starts a clean retry.
type LoadMemoizer struct {
	mu        sync.Mutex
	pending   map[string]*loadCall
	completed map[string]completedLoad
	slots     chan struct{}
}

func NewLoadMemoizer(maxParallel int) *LoadMemoizer {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &LoadMemoizer{
		pending:   make(map[string]*loadCall),
		completed: make(map[string]completedLoad),
		slots:     make(chan struct{}, maxParallel),
	}
}

// GetOrCreate returns the completed module for id, joins an in-flight load,
// or executes fn as the sole executor. Waiters abandoned by a cancelled ctx
// return early; the execution itself keeps running for the others.
func (lm *LoadMemoizer) GetOrCreate(ctx context.Context, id string, fn LoadFunc) (Module, error) {
	lm.mu.Lock()
	if done, ok := lm.completed[id]; ok {
		lm.mu.Unlock()
		return done.mod, nil
	}
	if call, ok := lm.pending[id]; ok {
		lm.mu.Unlock()
		select {
		case <-call.done:
			return call.mod, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &loadCall{done: make(chan struct{})}
	lm.pending[id] = call
	lm.mu.Unlock()

	call.mod, call.err = lm.execute(ctx, fn)

	lm.mu.Lock()
	if call.err == nil {
		lm.completed[id] = completedLoad{mod: call.mod, loadedAt: time.Now()}
	}
	delete(lm.pending, id)
	lm.mu.Unlock()
	close(call.done)

	return call.mod, call.err
}

// execute runs fn inside the bulkhead. Acquiring a slot respects ctx so a
// cancelled batch does not pile up executors.
func (lm *LoadMemoizer) execute(ctx context.Context, fn LoadFunc) (Module, error) {
	select {
	case lm.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-lm.slots }()
	return fn(ctx)
}

// Completed returns the cached module for id if a load finished this
// lifecycle.
func (lm *LoadMemoizer) Completed(id string) (Module, bool) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	done, ok := lm.completed[id]
	return done.mod, ok
}

// Forget drops the completed entry for id so the next request starts a new
// lifecycle. Unloading calls this.
func (lm *LoadMemoizer) Forget(id string) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	delete(lm.completed, id)
}

// InFlight reports how many executions currently hold bulkhead slots.
func (lm *LoadMemoizer) InFlight() int {
	return len(lm.slots)
}
