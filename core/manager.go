package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oleksandrmelnychenko/ecliptix-desktop-sub008/metrics"
)

// DefaultMaxParallelism bounds concurrent module loads when Options leaves
// it unset.
const DefaultMaxParallelism = 4

// Options tunes a Manager.
type Options struct {
	// MaxParallelism bounds concurrent module loads system-wide, whatever
	// mix of entry points drives them. Zero means DefaultMaxParallelism.
	MaxParallelism int
	// QueueRetryLimit caps ready-queue rotations per module before a
	// DeadlockError. Zero means DefaultQueueRetryLimit.
	QueueRetryLimit int
	// LoadTimeout bounds one module's Load call. Zero means no limit.
	LoadTimeout time.Duration
	// ForwardKeys extends the allow-list of host container keys copied into
	// every module scope. The logger and message bus are always forwarded.
	ForwardKeys []any
}

// LoadingStats is a point-in-time summary of loader activity.
type LoadingStats struct {
	LoadedCount        int
	ActiveLoadingCount int
	AverageLoadTimeMs  float64
}

// ModuleStatus describes one catalog entry for diagnostics surfaces.
type ModuleStatus struct {
	ID           string
	State        ModuleState
	Priority     int
	Strategy     LoadingStrategy
	Dependencies []string
	LoadMillis   int64
	LoadedAt     time.Time
}

type moduleEntry struct {
	module     Module
	state      atomic.Int32
	loadMillis atomic.Int64
	loadedAtNs atomic.Int64
}

func (e *moduleEntry) getState() ModuleState {
	return ModuleState(e.state.Load())
}

func (e *moduleEntry) casState(from, to ModuleState) bool {
	return e.state.CompareAndSwap(int32(from), int32(to))
}

func (e *moduleEntry) setState(s ModuleState) {
	e.state.Store(int32(s))
}

// Manager owns the module catalog and every load and unload that happens to
// it. All entry points funnel through one memoizer, so a module's load
// routine runs at most once per lifecycle no matter how it is reached.
type Manager struct {
	catalog   *Catalog
	memo      *LoadMemoizer
	loader    *ParallelLoader
	resources *ResourceManager
	host      Container
	bus       *MessageBus
	logger    *slog.Logger
	events    eventDispatcher
	opts      Options

	mu      sync.RWMutex
	entries map[string]*moduleEntry

	seqMu   sync.Mutex
	loadSeq []string // completion order, for reverse unload

	totalLoads  atomic.Int64
	totalLoadMs atomic.Int64
}

// NewManager builds a Manager around the given host container. The logger
// and the manager's message bus are registered into the host so modules can
// resolve them like any other service.
func NewManager(host Container, logger *slog.Logger, opts Options) *Manager {
	if opts.MaxParallelism <= 0 {
		opts.MaxParallelism = DefaultMaxParallelism
	}
	m := &Manager{
		catalog: NewCatalog(),
		memo:    NewLoadMemoizer(opts.MaxParallelism),
		host:    host,
		bus:     NewMessageBus(logger),
		logger:  logger,
		opts:    opts,
		entries: make(map[string]*moduleEntry),
	}

	Put[*slog.Logger](host, logger)
	Put[*MessageBus](host, m.bus)

	forward := []any{TypeKey[*slog.Logger]{}, TypeKey[*MessageBus]{}}
	forward = append(forward, opts.ForwardKeys...)
	m.resources = NewResourceManager(host, logger, forward...)

	m.loader = NewParallelLoader(opts.MaxParallelism, opts.QueueRetryLimit, m.ensureLoaded, logger)
	return m
}

// RegisterModule adds the module to the catalog in the NotLoaded state.
// Registration is idempotent by id; a duplicate is ignored and reported as
// false.
func (m *Manager) RegisterModule(mod Module) bool {
	if !m.catalog.Register(mod) {
		m.logger.Warn("duplicate module registration ignored", "module", mod.ID())
		return false
	}
	m.mu.Lock()
	m.entries[mod.ID()] = &moduleEntry{module: mod}
	m.mu.Unlock()

	man := mod.Manifest()
	m.logger.Debug("module registered",
		"module", mod.ID(),
		"strategy", man.Strategy.String(),
		"priority", man.Priority,
		"dependencies", man.Dependencies)
	return true
}

// GetModule returns the registered module, loaded or not.
func (m *Manager) GetModule(id string) (Module, bool) {
	return m.catalog.Get(id)
}

// State reports the module's lifecycle state. Unknown ids read as NotLoaded.
func (m *Manager) State(id string) ModuleState {
	if e, ok := m.entry(id); ok {
		return e.getState()
	}
	return StateNotLoaded
}

// Bus returns the inter-module message bus.
func (m *Manager) Bus() *MessageBus { return m.bus }

// Host returns the application-wide container.
func (m *Manager) Host() Container { return m.host }

// Subscribe registers a channel for lifecycle events. Use a buffered
// channel: delivery is non-blocking and a full buffer misses events.
func (m *Manager) Subscribe(ch chan Event) {
	m.events.subscribe(ch)
}

// LoadOrder resolves one deterministic order over the whole catalog without
// loading anything.
func (m *Manager) LoadOrder() ([]string, error) {
	return ResolveOrderIDs(m.catalog.All())
}

// LoadModule loads one module and blocks until it completes, loading any
// not-yet-loaded dependencies first. A module already loaded returns
// immediately; a module another caller is currently loading returns
// ErrModuleLoading instead of blocking.
func (m *Manager) LoadModule(ctx context.Context, id string) (Module, error) {
	entry, ok := m.entry(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}
	switch entry.getState() {
	case StateLoaded:
		return entry.module, nil
	case StateLoading:
		return nil, fmt.Errorf("%w: %s", ErrModuleLoading, id)
	case StateUnloading:
		return nil, fmt.Errorf("core: module %s is unloading, try again later", id)
	}
	return m.ensureLoaded(ctx, entry.module)
}

// LoadAll loads every registered module that is not yet loaded, dependencies
// first, bounded by MaxParallelism. The returned modules are in completion
// order.
func (m *Manager) LoadAll(ctx context.Context) ([]Module, error) {
	if _, err := ResolveOrder(m.catalog.All()); err != nil {
		return nil, err
	}
	batch, err := m.closure(m.notLoaded(m.catalog.All()))
	if err != nil {
		return nil, err
	}
	return m.loader.LoadModules(ctx, batch)
}

// LoadByStrategy loads every not-yet-loaded module declaring the strategy,
// pulling in whatever dependencies those modules still need regardless of
// the dependencies' own strategies.
func (m *Manager) LoadByStrategy(ctx context.Context, s LoadingStrategy) ([]Module, error) {
	if _, err := ResolveOrder(m.catalog.All()); err != nil {
		return nil, err
	}
	batch, err := m.closure(m.notLoaded(m.catalog.ByStrategy(s)))
	if err != nil {
		return nil, err
	}
	return m.loader.LoadModules(ctx, batch)
}

// StartBackgroundPreloading kicks off loading of Background-strategy modules
// as detached work. Failures and panics are logged, never surfaced; nothing
// waits on the result.
func (m *Manager) StartBackgroundPreloading(ctx context.Context) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				m.logger.Error("background preloading panicked", "panic", rec)
			}
		}()
		loaded, err := m.LoadByStrategy(ctx, StrategyBackground)
		if err != nil {
			m.logger.Warn("background preloading finished with errors",
				"loaded", len(loaded), "error", err)
			return
		}
		if len(loaded) > 0 {
			m.logger.Info("background preloading complete", "loaded", len(loaded))
		}
	}()
}

// UnloadModule releases one module: its Unload hook runs, its scope is
// disposed, and its next load starts a fresh lifecycle. Only a Loaded module
// unloads; any other state is a no-op. An Unload hook failure is logged and
// teardown continues, so a module cannot wedge itself half-unloaded.
func (m *Manager) UnloadModule(ctx context.Context, id string) error {
	entry, ok := m.entry(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}
	if !entry.casState(StateLoaded, StateUnloading) {
		return nil
	}

	m.logger.Info("unloading module", "module", id)
	if err := entry.module.Unload(ctx); err != nil {
		m.logger.Warn("module unload hook failed, continuing teardown", "module", id, "error", err)
	}
	m.resources.Release(id)
	m.memo.Forget(id)
	m.dropLoadSeq(id)
	entry.loadMillis.Store(0)
	entry.loadedAtNs.Store(0)
	entry.setState(StateUnloaded)

	metrics.ModuleUnloaded()
	m.publish(Event{Type: EventUnloaded, ModuleID: id, At: time.Now()})
	m.logger.Info("module unloaded", "module", id)
	return nil
}

// UnloadAll unloads every loaded module in reverse completion order, so
// dependents release before the modules they depend on.
func (m *Manager) UnloadAll(ctx context.Context) {
	m.seqMu.Lock()
	order := append([]string(nil), m.loadSeq...)
	m.seqMu.Unlock()

	for i := len(order) - 1; i >= 0; i-- {
		if err := m.UnloadModule(ctx, order[i]); err != nil {
			m.logger.Warn("unload failed", "module", order[i], "error", err)
		}
	}
	m.resources.ReleaseAll()
}

// Stats summarizes loader activity.
func (m *Manager) Stats() LoadingStats {
	m.mu.RLock()
	loaded, active := 0, 0
	for _, e := range m.entries {
		switch e.getState() {
		case StateLoaded:
			loaded++
		case StateLoading:
			active++
		}
	}
	m.mu.RUnlock()

	stats := LoadingStats{LoadedCount: loaded, ActiveLoadingCount: active}
	if n := m.totalLoads.Load(); n > 0 {
		stats.AverageLoadTimeMs = float64(m.totalLoadMs.Load()) / float64(n)
	}
	return stats
}

// Snapshot lists every registered module with its lifecycle state, sorted by
// id.
func (m *Manager) Snapshot() []ModuleStatus {
	mods := m.catalog.All()
	out := make([]ModuleStatus, 0, len(mods))
	for _, mod := range mods {
		entry, ok := m.entry(mod.ID())
		if !ok {
			continue
		}
		man := mod.Manifest()
		status := ModuleStatus{
			ID:           mod.ID(),
			State:        entry.getState(),
			Priority:     man.Priority,
			Strategy:     man.Strategy,
			Dependencies: append([]string(nil), man.Dependencies...),
			LoadMillis:   entry.loadMillis.Load(),
		}
		if ns := entry.loadedAtNs.Load(); ns > 0 {
			status.LoadedAt = time.Unix(0, ns)
		}
		out = append(out, status)
	}
	return out
}

func (m *Manager) entry(id string) (*moduleEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	return e, ok
}

func (m *Manager) notLoaded(mods []Module) []Module {
	out := make([]Module, 0, len(mods))
	for _, mod := range mods {
		if m.State(mod.ID()) != StateLoaded {
			out = append(out, mod)
		}
	}
	return out
}

// closure expands the roots with their not-yet-loaded transitive
// dependencies so a batch is self-contained. Already loaded dependencies are
// left out; the loader marks them satisfied.
func (m *Manager) closure(roots []Module) ([]Module, error) {
	seen := make(map[string]bool, len(roots))
	out := make([]Module, 0, len(roots))
	stack := append([]Module(nil), roots...)
	for len(stack) > 0 {
		mod := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[mod.ID()] {
			continue
		}
		seen[mod.ID()] = true
		out = append(out, mod)
		for _, depID := range mod.Manifest().Dependencies {
			if seen[depID] {
				continue
			}
			dep, ok := m.catalog.Get(depID)
			if !ok {
				return nil, &MissingDependencyError{ModuleID: mod.ID(), MissingID: depID}
			}
			if m.State(depID) == StateLoaded {
				continue
			}
			stack = append(stack, dep)
		}
	}
	return out, nil
}

// ensureLoaded blocks until the module and its transitive dependencies are
// loaded, joining any loads already in flight. Dependencies are memoized
// BEFORE the module's own bulkheaded execution, so a load never holds a
// parallelism slot while waiting for its dependency's slot.
func (m *Manager) ensureLoaded(ctx context.Context, mod Module) (Module, error) {
	chain, err := m.dependencyChain(mod)
	if err != nil {
		return nil, err
	}
	var loaded Module
	for _, step := range chain {
		loaded, err = m.memo.GetOrCreate(ctx, step.ID(), func(ctx context.Context) (Module, error) {
			return m.executeLoad(ctx, step)
		})
		if err != nil {
			return nil, err
		}
	}
	return loaded, nil
}

// dependencyChain returns mod's transitive dependencies in dependency order,
// ending with mod itself. The walk is iterative; a missing or cyclic
// dependency fails here before anything loads.
func (m *Manager) dependencyChain(mod Module) ([]Module, error) {
	const (
		white = iota
		gray
		black
	)
	color := map[string]int{mod.ID(): gray}
	modsByID := map[string]Module{mod.ID(): mod}

	stack := []dfsFrame{{id: mod.ID()}}
	out := make([]Module, 0, 4)
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		deps := modsByID[top.id].Manifest().Dependencies
		if top.next < len(deps) {
			depID := deps[top.next]
			top.next++
			switch color[depID] {
			case black:
				continue
			case gray:
				return nil, &CircularDependencyError{Members: cycleFromStack(stack, depID)}
			}
			dep, ok := m.catalog.Get(depID)
			if !ok {
				return nil, &MissingDependencyError{ModuleID: top.id, MissingID: depID}
			}
			color[depID] = gray
			modsByID[depID] = dep
			stack = append(stack, dfsFrame{id: depID})
			continue
		}
		color[top.id] = black
		out = append(out, modsByID[top.id])
		stack = stack[:len(stack)-1]
	}
	return out, nil
}

// executeLoad is the sole executor path for one module's lifecycle; the
// memoizer guarantees it runs at most once per lifecycle and inside the
// bulkhead.
func (m *Manager) executeLoad(ctx context.Context, mod Module) (Module, error) {
	id := mod.ID()
	entry, ok := m.entry(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}

	if !m.claimLoading(entry) {
		// A full lifecycle finished between the memoizer check and this
		// claim. Serve whatever state it left behind.
		if entry.getState() == StateLoaded {
			return entry.module, nil
		}
		return nil, fmt.Errorf("core: module %s is %s, cannot start a load", id, entry.getState())
	}

	start := time.Now()
	metrics.LoadStarted()
	m.publish(Event{Type: EventLoading, ModuleID: id, At: start})
	m.logger.Info("loading module", "module", id)

	err := m.runLoad(ctx, entry)
	elapsed := time.Since(start)
	metrics.LoadFinished()

	if err != nil {
		entry.setState(StateFailed)
		metrics.RecordLoad(metrics.OutcomeFailure, elapsed)
		m.publish(Event{Type: EventFailed, ModuleID: id, Err: err, At: time.Now()})
		m.logger.Error("module load failed",
			"module", id, "elapsed_ms", elapsed.Milliseconds(), "error", err)
		return nil, &LoadError{ModuleID: id, Err: err}
	}

	entry.loadMillis.Store(elapsed.Milliseconds())
	entry.loadedAtNs.Store(time.Now().UnixNano())
	entry.setState(StateLoaded)
	m.totalLoads.Add(1)
	m.totalLoadMs.Add(elapsed.Milliseconds())
	m.appendLoadSeq(id)

	metrics.RecordLoad(metrics.OutcomeSuccess, elapsed)
	metrics.ModuleLoaded()
	m.publish(Event{Type: EventLoaded, ModuleID: id, Elapsed: elapsed, At: time.Now()})
	m.logger.Info("module loaded", "module", id, "elapsed_ms", elapsed.Milliseconds())

	if err := mod.SetupMessageHandlers(m.bus); err != nil {
		m.logger.Warn("message handler setup failed", "module", id, "error", err)
	}
	return entry.module, nil
}

// runLoad is the pre-flight gate, scope creation, and Load call for one
// module. On any failure, including a panic in the module code, the scope
// created here is released before the error is returned.
func (m *Manager) runLoad(ctx context.Context, entry *moduleEntry) (err error) {
	mod := entry.module
	id := mod.ID()
	scopeCreated := false
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic during load: %v", rec)
		}
		if err != nil && scopeCreated {
			m.resources.Release(id)
		}
	}()

	ok, err := mod.CanLoad(ctx)
	if err != nil {
		err = fmt.Errorf("pre-flight check: %w", err)
		return err
	}
	if !ok {
		err = ErrLoadRefused
		return err
	}

	registrar, _ := mod.(ServiceRegistrar)
	scope, err := m.resources.CreateScope(id, registrar)
	if err != nil {
		return err
	}
	scopeCreated = true

	loadCtx := ctx
	if m.opts.LoadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, m.opts.LoadTimeout)
		defer cancel()
	}

	err = mod.Load(loadCtx, HostServices{
		Host:   m.host,
		Scope:  scope,
		Logger: m.logger.With("module", id),
		Bus:    m.bus,
	})
	return err
}

func (m *Manager) claimLoading(e *moduleEntry) bool {
	for _, from := range []ModuleState{StateNotLoaded, StateUnloaded, StateFailed} {
		if e.casState(from, StateLoading) {
			return true
		}
	}
	return false
}

func (m *Manager) publish(evt Event) {
	m.events.publish(evt)
}

func (m *Manager) appendLoadSeq(id string) {
	m.seqMu.Lock()
	defer m.seqMu.Unlock()
	m.loadSeq = append(m.loadSeq, id)
}

func (m *Manager) dropLoadSeq(id string) {
	m.seqMu.Lock()
	defer m.seqMu.Unlock()
	for i, seq := range m.loadSeq {
		if seq == id {
			m.loadSeq = append(m.loadSeq[:i], m.loadSeq[i+1:]...)
			return
		}
	}
}
