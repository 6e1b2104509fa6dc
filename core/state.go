package core

import "fmt"

// ModuleState tracks one module through its lifecycle. Within a lifecycle
// the transitions are NotLoaded -> Loading -> Loaded or Failed, then
// Loaded -> Unloading -> Unloaded. Unloaded and Failed modules may re-enter
// Loading on a later request.
type ModuleState int32

const (
	StateNotLoaded ModuleState = iota
	StateLoading
	StateLoaded
	StateUnloading
	StateUnloaded
	StateFailed
)

func (s ModuleState) String() string {
	switch s {
	case StateNotLoaded:
		return "not-loaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateUnloading:
		return "unloading"
	case StateUnloaded:
		return "unloaded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}
