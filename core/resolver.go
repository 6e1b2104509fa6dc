package core

import (
	"fmt"
	"sort"
)

// ResolveOrder validates the dependency graph over the given modules and
// returns one deterministic load order: dependencies before dependents, ties
// between simultaneously ready modules broken by higher priority, then by
// lexically smaller id.
//
// A manifest referencing an id outside the set fails with
// MissingDependencyError; a cycle fails with CircularDependencyError.
func ResolveOrder(modules []Module) ([]Module, error) {
	index := make(map[string]Module, len(modules))
	for _, m := range modules {
		index[m.ID()] = m
	}
	for _, m := range modules {
		for _, dep := range m.Manifest().Dependencies {
			if _, ok := index[dep]; !ok {
				return nil, &MissingDependencyError{ModuleID: m.ID(), MissingID: dep}
			}
		}
	}
	if cycle := findCycle(index); len(cycle) > 0 {
		return nil, &CircularDependencyError{Members: cycle}
	}

	// Kahn's algorithm. The ready set is drained best-first each round so
	// the order is fully deterministic for a given catalog.
	indegree := make(map[string]int, len(modules))
	dependents := make(map[string][]string, len(modules))
	for _, m := range modules {
		indegree[m.ID()] = len(m.Manifest().Dependencies)
		for _, dep := range m.Manifest().Dependencies {
			dependents[dep] = append(dependents[dep], m.ID())
		}
	}

	ready := make([]string, 0, len(modules))
	for id, n := range indegree {
		if n == 0 {
			ready = append(ready, id)
		}
	}

	out := make([]Module, 0, len(modules))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			pi := index[ready[i]].Manifest().Priority
			pj := index[ready[j]].Manifest().Priority
			if pi != pj {
				return pi > pj
			}
			return ready[i] < ready[j]
		})
		id := ready[0]
		ready = ready[1:]
		out = append(out, index[id])
		for _, dep := range dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(out) != len(modules) {
		// The cycle check above should make this unreachable.
		return nil, fmt.Errorf("core: resolver produced %d of %d modules, dependency graph is inconsistent", len(out), len(modules))
	}
	return out, nil
}

// ResolveOrderIDs is ResolveOrder reduced to ids, for diagnostics surfaces.
func ResolveOrderIDs(modules []Module) ([]string, error) {
	order, err := ResolveOrder(modules)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(order))
	for i, m := range order {
		ids[i] = m.ID()
	}
	return ids, nil
}

// findCycle runs an iterative depth-first search with an explicit stack and
// returns the first dependency cycle found, entry module first and repeated
// at the end, or nil. Start order is sorted so the reported cycle is stable.
func findCycle(index map[string]Module) []string {
	const (
		white = iota // unvisited
		gray         // on the current path
		black        // fully explored
	)
	color := make(map[string]int, len(index))

	ids := make([]string, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, start := range ids {
		if color[start] != white {
			continue
		}
		stack := []dfsFrame{{id: start}}
		color[start] = gray
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := index[top.id].Manifest().Dependencies
			if top.next < len(deps) {
				dep := deps[top.next]
				top.next++
				switch color[dep] {
				case white:
					color[dep] = gray
					stack = append(stack, dfsFrame{id: dep})
				case gray:
					return cycleFromStack(stack, dep)
				}
				continue
			}
			color[top.id] = black
			stack = stack[:len(stack)-1]
		}
	}
	return nil
}

type dfsFrame struct {
	id   string
	next int
}

func cycleFromStack(stack []dfsFrame, entry string) []string {
	start := 0
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].id == entry {
			start = i
			break
		}
	}
	cycle := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		cycle = append(cycle, f.id)
	}
	return append(cycle, entry)
}
