package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrModuleLoading reports that another caller currently holds the load
	// claim for the module. The eventual value is available through the
	// blocking paths (LoadAll, LoadByStrategy, a repeated LoadModule).
	ErrModuleLoading = errors.New("core: module is currently loading")

	// ErrUnknownModule reports an id absent from the catalog.
	ErrUnknownModule = errors.New("core: unknown module")

	// ErrLoadRefused reports a pre-flight gate that returned false.
	ErrLoadRefused = errors.New("core: module refused to load")
)

// MissingDependencyError is fatal at resolve time: a manifest references an
// id that was never registered.
type MissingDependencyError struct {
	ModuleID  string
	MissingID string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("core: module %s depends on %s, which is not registered", e.ModuleID, e.MissingID)
}

// CircularDependencyError is fatal at resolve time. Members walks the cycle
// starting and ending at its entry module.
type CircularDependencyError struct {
	Members []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("core: circular dependency: %s", strings.Join(e.Members, " -> "))
}

// DeadlockError reports that no queued module can make progress even though
// the dependency graph validated. Unsatisfied maps each stuck module to the
// dependencies it is waiting on.
type DeadlockError struct {
	Unsatisfied map[string][]string
}

func (e *DeadlockError) Error() string {
	ids := make([]string, 0, len(e.Unsatisfied))
	for id := range e.Unsatisfied {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s waiting on [%s]", id, strings.Join(e.Unsatisfied[id], " ")))
	}
	return "core: no module is currently loadable, likely an unsatisfiable dependency: " + strings.Join(parts, "; ")
}

// LoadError wraps a failure from one module's load routine.
type LoadError struct {
	ModuleID string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("core: loading module %s: %v", e.ModuleID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// DuplicateScopeError reports a scope created twice without a release in
// between.
type DuplicateScopeError struct {
	ModuleID string
}

func (e *DuplicateScopeError) Error() string {
	return fmt.Sprintf("core: module %s already owns a resource scope", e.ModuleID)
}
