package actuator

import (
	"context"
	"errors"
	"net/http"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oleksandrmelnychenko/ecliptix-desktop-sub008/config"
	"github.com/oleksandrmelnychenko/ecliptix-desktop-sub008/core"
	"github.com/oleksandrmelnychenko/ecliptix-desktop-sub008/web"
)

const Name = "actuator"

const defaultBasePath = "/actuator"

// Module exposes the module loading pipeline over HTTP: health, info,
// per-module state, load order, loader stats, and on-demand load/unload of
// individual modules.
func Module(mgr *core.Manager) core.Module {
	return &module{mgr: mgr}
}

type module struct {
	mgr   *core.Manager
	bound atomic.Bool
}

func (m *module) ID() string { return Name }

func (m *module) Manifest() core.Manifest {
	return core.Manifest{
		Dependencies: []string{web.Name},
		Priority:     90,
		Strategy:     core.StrategyEager,
	}
}

// CanLoad refuses a second load: gin cannot unbind routes from a live
// engine, so rebinding would register them twice.
func (m *module) CanLoad(ctx context.Context) (bool, error) {
	return m.mgr != nil && !m.bound.Load(), nil
}

func (m *module) Load(ctx context.Context, host core.HostServices) error {
	engine := web.Engine(host.Host)
	cfg := core.Get[config.Root](host.Scope)

	base := cfg.Actuator.BasePath
	if base == "" {
		base = defaultBasePath
	}
	group := engine.Group(base)

	// Health
	group.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status": "UP",
			"checks": []gin.H{},
		})
	})

	// Info
	group.GET("/info", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"app": gin.H{
				"name":    cfg.App.Name,
				"version": cfg.App.Version,
			},
			"runtime": gin.H{
				"go":           runtime.Version(),
				"numGoroutine": runtime.NumGoroutine(),
				"time":         time.Now().UTC().Format(time.RFC3339),
				"pid":          os.Getpid(),
			},
		})
	})

	// Module pipeline
	group.GET("/modules", m.listModules)
	group.GET("/loadorder", m.loadOrder)
	group.GET("/stats", m.stats)
	group.POST("/modules/:id/load", m.loadModule)
	group.POST("/modules/:id/unload", m.unloadModule)

	// Metrics
	if cfg.Observability.Metrics.Enabled {
		group.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	m.bound.Store(true)
	return nil
}

func (m *module) Unload(_ context.Context) error { return nil }

func (m *module) SetupMessageHandlers(_ *core.MessageBus) error { return nil }

func (m *module) listModules(c *gin.Context) {
	statuses := m.mgr.Snapshot()
	out := make([]gin.H, 0, len(statuses))
	for _, s := range statuses {
		entry := gin.H{
			"id":           s.ID,
			"state":        s.State.String(),
			"priority":     s.Priority,
			"strategy":     s.Strategy.String(),
			"dependencies": s.Dependencies,
		}
		if s.State == core.StateLoaded {
			entry["loadMillis"] = s.LoadMillis
			entry["loadedAt"] = s.LoadedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"modules": out})
}

func (m *module) loadOrder(c *gin.Context) {
	order, err := m.mgr.LoadOrder()
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (m *module) stats(c *gin.Context) {
	stats := m.mgr.Stats()
	c.JSON(http.StatusOK, gin.H{
		"loadedCount":        stats.LoadedCount,
		"activeLoadingCount": stats.ActiveLoadingCount,
		"averageLoadTimeMs":  stats.AverageLoadTimeMs,
	})
}

func (m *module) loadModule(c *gin.Context) {
	id := c.Param("id")
	mod, err := m.mgr.LoadModule(c.Request.Context(), id)
	switch {
	case errors.Is(err, core.ErrUnknownModule):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrModuleLoading):
		c.JSON(http.StatusAccepted, gin.H{"id": id, "state": core.StateLoading.String()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"id": mod.ID(), "state": m.mgr.State(mod.ID()).String()})
	}
}

func (m *module) unloadModule(c *gin.Context) {
	id := c.Param("id")
	if err := m.mgr.UnloadModule(c.Request.Context(), id); err != nil {
		if errors.Is(err, core.ErrUnknownModule) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "state": m.mgr.State(id).String()})
}
