package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oleksandrmelnychenko/ecliptix-desktop-sub008/config"
	"github.com/oleksandrmelnychenko/ecliptix-desktop-sub008/core"
)

const Name = "web"

// Engine resolves the shared gin engine other modules mount routes on.
func Engine(c core.Container) *gin.Engine {
	return core.Get[*gin.Engine](c)
}

// Module builds the HTTP control-plane module. It constructs the engine and
// server during its load and publishes both into the host container, but
// binds the listener only once the host announces readiness on the message
// bus, so dependent modules get their routes mounted before traffic arrives.
func Module(cfg config.ServerConfig, opts ...Option) core.Module {
	var options Options
	for _, o := range opts {
		o(&options)
	}
	return &webModule{cfg: cfg, opts: options}
}

type webModule struct {
	cfg     config.ServerConfig
	opts    Options
	host    core.Container
	server  *http.Server
	logger  *slog.Logger
	started atomic.Bool
}

func (m *webModule) ID() string { return Name }

func (m *webModule) Manifest() core.Manifest {
	return core.Manifest{
		Priority: 100,
		Strategy: core.StrategyEager,
	}
}

func (m *webModule) CanLoad(ctx context.Context) (bool, error) {
	return m.cfg.Addr != "", nil
}

func (m *webModule) Load(ctx context.Context, host core.HostServices) error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Middlewares: request ID, recovery, access log
	r.Use(RequestID())
	r.Use(RecoveryProblem(host.Logger))
	r.Use(AccessLog(host.Logger))
	for _, mw := range m.opts.Middlewares {
		r.Use(mw)
	}

	// Routes from the embedding app and from dependent modules
	for _, reg := range m.opts.Routes {
		reg(r)
	}

	srv := &http.Server{
		Addr:         m.cfg.Addr,
		Handler:      r,
		ReadTimeout:  m.cfg.ReadTimeout,
		WriteTimeout: m.cfg.WriteTimeout,
		IdleTimeout:  m.cfg.IdleTimeout,
	}

	// Shared with dependents: the actuator mounts its routes on this engine.
	core.Put[*gin.Engine](host.Host, r)
	core.Put[*http.Server](host.Host, srv)

	m.host = host.Host
	m.server = srv
	m.logger = host.Logger
	return nil
}

// SetupMessageHandlers defers the listener bind to the host-ready
// announcement. Everything loaded in the startup batch has mounted its
// routes by then.
func (m *webModule) SetupMessageHandlers(bus *core.MessageBus) error {
	bus.Subscribe(core.TopicHostReady, func(any) { m.serve() })
	return nil
}

func (m *webModule) serve() {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		m.logger.Info("http server starting", "addr", m.server.Addr)
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("http server error", "error", err)
		}
	}()
}

func (m *webModule) Unload(ctx context.Context) error {
	m.host.Remove(core.TypeKey[*gin.Engine]{})
	m.host.Remove(core.TypeKey[*http.Server]{})
	if !m.started.Load() {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	m.started.Store(false)
	return nil
}
