package core

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ModuleScope is one module's isolated resource container. Reads try the
// module-local registrations first and fall back to the host container, so
// a local registration shadows a host one under the same key. Writes always
// stay local and are released on disposal.
type ModuleScope struct {
	moduleID string
	local    *container
	parent   Container
	logger   *slog.Logger
	disposed atomic.Bool
}

var _ Container = (*ModuleScope)(nil)

func (s *ModuleScope) ModuleID() string { return s.moduleID }

func (s *ModuleScope) Set(key, val any) { s.local.Set(key, val) }

func (s *ModuleScope) Get(key any) (any, bool) {
	if v, ok := s.local.Get(key); ok {
		return v, true
	}
	return s.parent.Get(key)
}

func (s *ModuleScope) MustGet(key any) any {
	if v, ok := s.Get(key); ok {
		return v
	}
	panic(fmt.Errorf("scope %s: missing dependency %v (%T)", s.moduleID, key, key))
}

// Remove drops a local registration. Host registrations are not reachable
// through a scope.
func (s *ModuleScope) Remove(key any) { s.local.Remove(key) }

// Dispose releases every local registration. Values implementing io.Closer
// are closed; close errors are logged and swallowed so teardown always
// finishes. Dispose is idempotent.
func (s *ModuleScope) Dispose() {
	if !s.disposed.CompareAndSwap(false, true) {
		return
	}
	for _, v := range s.local.drain() {
		closer, ok := v.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			s.logger.Warn("scope resource close failed", "module", s.moduleID, "error", err)
		}
	}
}

// ResourceManager creates and releases module scopes. A fixed allow-list of
// host singleton keys is copied into each new scope by reference, giving the
// module a stable view of those services even if the host replaces them
// later.
type ResourceManager struct {
	parent  Container
	forward []any
	logger  *slog.Logger

	mu     sync.Mutex
	scopes map[string]*ModuleScope
}

func NewResourceManager(parent Container, logger *slog.Logger, forward ...any) *ResourceManager {
	return &ResourceManager{
		parent:  parent,
		forward: forward,
		logger:  logger,
		scopes:  make(map[string]*ModuleScope),
	}
}

// CreateScope builds the isolated container for a module: the forwarded host
// singletons plus whatever reg registers locally. A module already owning a
// live scope fails with DuplicateScopeError.
func (rm *ResourceManager) CreateScope(moduleID string, reg ServiceRegistrar) (*ModuleScope, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if _, exists := rm.scopes[moduleID]; exists {
		return nil, &DuplicateScopeError{ModuleID: moduleID}
	}
	scope := &ModuleScope{
		moduleID: moduleID,
		local:    newContainer(),
		parent:   rm.parent,
		logger:   rm.logger,
	}
	for _, key := range rm.forward {
		if v, ok := rm.parent.Get(key); ok {
			scope.local.Set(key, v)
		}
	}
	if reg != nil {
		reg.RegisterServices(scope)
	}
	rm.scopes[moduleID] = scope
	return scope, nil
}

// Release disposes and deregisters the module's scope. Releasing a module
// without one is a no-op.
func (rm *ResourceManager) Release(moduleID string) {
	rm.mu.Lock()
	scope := rm.scopes[moduleID]
	delete(rm.scopes, moduleID)
	rm.mu.Unlock()
	if scope != nil {
		scope.Dispose()
	}
}

// Scope returns the live scope for a module, if any.
func (rm *ResourceManager) Scope(moduleID string) (*ModuleScope, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	s, ok := rm.scopes[moduleID]
	return s, ok
}

// ReleaseAll disposes every live scope. The host calls it during shutdown
// after modules unload, as a backstop for scopes whose owners failed.
func (rm *ResourceManager) ReleaseAll() {
	rm.mu.Lock()
	scopes := make([]*ModuleScope, 0, len(rm.scopes))
	for _, s := range rm.scopes {
		scopes = append(scopes, s)
	}
	rm.scopes = make(map[string]*ModuleScope)
	rm.mu.Unlock()
	for _, s := range scopes {
		s.Dispose()
	}
}
