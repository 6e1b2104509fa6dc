package core

import "sort"

// DefaultQueueRetryLimit caps how many times one queued module may be
// passed over before the queue declares a scheduling deadlock.
const DefaultQueueRetryLimit = 100

type queueEntry struct {
	module  Module
	retries int
}

// readyQueue yields modules whose dependencies have already been processed,
// highest priority tier first. It is not safe for concurrent use; the
// ParallelLoader owns one per batch and drives it from a single goroutine.
type readyQueue struct {
	tiers      []int // sorted descending
	buckets    map[int][]*queueEntry
	processed  map[string]bool
	size       int
	retryLimit int
}

func newReadyQueue(retryLimit int) *readyQueue {
	if retryLimit <= 0 {
		retryLimit = DefaultQueueRetryLimit
	}
	return &readyQueue{
		buckets:    make(map[int][]*queueEntry),
		processed:  make(map[string]bool),
		retryLimit: retryLimit,
	}
}

// Enqueue buckets the modules by priority tier. Within one tier the entries
// are pre-sorted so a module sits behind any same-tier dependency; cross-tier
// dependencies are handled by the eligibility check at dequeue time.
func (q *readyQueue) Enqueue(modules []Module) {
	byTier := make(map[int][]Module)
	for _, m := range modules {
		p := m.Manifest().Priority
		byTier[p] = append(byTier[p], m)
	}
	for tier, mods := range byTier {
		if _, known := q.buckets[tier]; !known {
			q.tiers = append(q.tiers, tier)
		}
		for _, m := range sortTier(mods) {
			q.buckets[tier] = append(q.buckets[tier], &queueEntry{module: m})
			q.size++
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(q.tiers)))
}

// MarkSatisfied records a completed dependency: a module loaded in an
// earlier batch, or one whose in-flight load just finished. Eligibility is
// judged against completions, never against dequeues, so a dependent cannot
// start while its dependency is still loading.
func (q *readyQueue) MarkSatisfied(id string) {
	q.processed[id] = true
}

func (q *readyQueue) Len() int { return q.size }

// Next scans tiers from highest to lowest and returns the first module whose
// dependencies have all been marked satisfied. Each tier is walked through
// one full rotation, ineligible entries cycling to the back, so a blocked
// front cannot hide an eligible entry behind it; when nothing in a tier is
// eligible the rotation restores its order. Next returns (nil, nil) when the
// queue is empty or nothing is eligible right now; the caller waits for a
// completion and asks again.
//
// An entry passed over more than the retry limit raises a DeadlockError;
// with a validated dependency graph that cannot happen.
func (q *readyQueue) Next() (Module, error) {
	if q.size == 0 {
		return nil, nil
	}
	for _, tier := range q.tiers {
		bucket := q.buckets[tier]
		for n := len(bucket); n > 0; n-- {
			head := bucket[0]
			if q.eligible(head.module) {
				q.buckets[tier] = bucket[1:]
				q.size--
				return head.module, nil
			}
			head.retries++
			if head.retries > q.retryLimit {
				return nil, &DeadlockError{Unsatisfied: map[string][]string{
					head.module.ID(): q.unsatisfied(head.module),
				}}
			}
			bucket = append(bucket[1:], head)
		}
		q.buckets[tier] = bucket
	}
	return nil, nil
}

// Pending reports every queued module with its unsatisfied dependencies, for
// deadlock diagnostics.
func (q *readyQueue) Pending() map[string][]string {
	out := make(map[string][]string, q.size)
	for _, bucket := range q.buckets {
		for _, e := range bucket {
			out[e.module.ID()] = q.unsatisfied(e.module)
		}
	}
	return out
}

func (q *readyQueue) eligible(m Module) bool {
	for _, dep := range m.Manifest().Dependencies {
		if !q.processed[dep] {
			return false
		}
	}
	return true
}

func (q *readyQueue) unsatisfied(m Module) []string {
	var missing []string
	for _, dep := range m.Manifest().Dependencies {
		if !q.processed[dep] {
			missing = append(missing, dep)
		}
	}
	sort.Strings(missing)
	return missing
}

// sortTier orders one tier's modules so same-tier dependencies come first,
// walking the in-tier edges iteratively in post-order. Entry order is sorted
// by id so the result is deterministic.
func sortTier(mods []Module) []Module {
	sort.Slice(mods, func(i, j int) bool { return mods[i].ID() < mods[j].ID() })
	inTier := make(map[string]Module, len(mods))
	for _, m := range mods {
		inTier[m.ID()] = m
	}

	type frame struct {
		m    Module
		next int
	}
	visited := make(map[string]bool, len(mods))
	out := make([]Module, 0, len(mods))

	for _, m := range mods {
		if visited[m.ID()] {
			continue
		}
		visited[m.ID()] = true
		stack := []frame{{m: m}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := top.m.Manifest().Dependencies
			descended := false
			for top.next < len(deps) {
				dep := deps[top.next]
				top.next++
				if dm, ok := inTier[dep]; ok && !visited[dep] {
					visited[dep] = true
					stack = append(stack, frame{m: dm})
					descended = true
					break
				}
			}
			if descended {
				continue
			}
			out = append(out, top.m)
			stack = stack[:len(stack)-1]
		}
	}
	return out
}
