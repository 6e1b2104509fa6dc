package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// LoadingStrategy controls when the host loads a module.
type LoadingStrategy int

const (
	// StrategyEager modules load during host startup.
	StrategyEager LoadingStrategy = iota
	// StrategyLazy modules load on first explicit request.
	StrategyLazy
	// StrategyBackground modules load opportunistically after startup.
	// Their failures are logged, never surfaced to a caller.
	StrategyBackground
)

func (s LoadingStrategy) String() string {
	switch s {
	case StrategyEager:
		return "eager"
	case StrategyLazy:
		return "lazy"
	case StrategyBackground:
		return "background"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy maps config values onto a LoadingStrategy. The empty string
// means eager.
func ParseStrategy(s string) (LoadingStrategy, error) {
	switch strings.ToLower(s) {
	case "eager", "":
		return StrategyEager, nil
	case "lazy":
		return StrategyLazy, nil
	case "background":
		return StrategyBackground, nil
	}
	return StrategyEager, fmt.Errorf("core: unknown loading strategy %q", s)
}

// Manifest is the static metadata a module declares at registration. The
// Manager never mutates it.
type Manifest struct {
	// Dependencies names modules that must be loaded before this one.
	Dependencies []string
	// Priority orders modules that are simultaneously ready. Higher loads
	// earlier.
	Priority int
	Strategy LoadingStrategy
}

// HostServices is handed to a module while it loads.
type HostServices struct {
	// Host is the application-wide container shared across modules.
	Host Container
	// Scope is the module's isolated container. Reads fall back to Host;
	// writes stay local and are released when the module unloads.
	Scope  Container
	Logger *slog.Logger
	Bus    *MessageBus
}

// Module is a unit of capability with declared dependencies, loaded at most
// once per lifecycle by the Manager.
type Module interface {
	ID() string
	Manifest() Manifest
	// CanLoad is the pre-flight gate. Returning false or an error marks the
	// module failed without its Load ever running.
	CanLoad(ctx context.Context) (bool, error)
	Load(ctx context.Context, host HostServices) error
	Unload(ctx context.Context) error
	// SetupMessageHandlers runs once after a successful load. An error here
	// is logged; the module stays loaded.
	SetupMessageHandlers(bus *MessageBus) error
}

// ServiceRegistrar is implemented by modules that want module-local services
// registered into their scope before Load runs. Local registrations shadow
// host ones.
type ServiceRegistrar interface {
	RegisterServices(c Container)
}
