package core

import (
	"sort"
	"sync"
)

// Catalog stores registered modules by id. It holds no loading state; the
// Manager layers lifecycle tracking on top.
type Catalog struct {
	mu      sync.RWMutex
	modules map[string]Module
}

func NewCatalog() *Catalog {
	return &Catalog{modules: make(map[string]Module)}
}

// Register stores the module under its id. Registration is idempotent: a
// second module claiming a known id is ignored and Register reports false.
func (c *Catalog) Register(m Module) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.modules[m.ID()]; exists {
		return false
	}
	c.modules[m.ID()] = m
	return true
}

func (c *Catalog) Get(id string) (Module, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.modules[id]
	return m, ok
}

// All returns the registered modules sorted by id for stable iteration.
func (c *Catalog) All() []Module {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Module, 0, len(c.modules))
	for _, m := range c.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// ByStrategy returns the modules whose manifest declares the strategy,
// sorted by id.
func (c *Catalog) ByStrategy(s LoadingStrategy) []Module {
	all := c.All()
	out := make([]Module, 0, len(all))
	for _, m := range all {
		if m.Manifest().Strategy == s {
			out = append(out, m)
		}
	}
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.modules)
}
