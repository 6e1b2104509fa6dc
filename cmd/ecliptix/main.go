package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oleksandrmelnychenko/ecliptix-desktop-sub008/actuator"
	"github.com/oleksandrmelnychenko/ecliptix-desktop-sub008/config"
	"github.com/oleksandrmelnychenko/ecliptix-desktop-sub008/config/source"
	"github.com/oleksandrmelnychenko/ecliptix-desktop-sub008/core"
	"github.com/oleksandrmelnychenko/ecliptix-desktop-sub008/logging"
	"github.com/oleksandrmelnychenko/ecliptix-desktop-sub008/web"
)

func main() {
	// 1) config: file < env < cli
	var cfg config.Root
	cfgMgr, err := config.NewManager(&cfg, config.Options{},
		&source.FileSource{BasePath: "configs", Profile: os.Getenv("ECLIPTIX_PROFILE")},
		&source.EnvSource{},
		&source.CLISource{},
	)
	if err != nil {
		panic(err)
	}
	defer cfgMgr.Close()

	// 2) logging
	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.JSON).With(
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
	)

	// 3) the module host
	host := core.NewContainer()
	core.Put[config.Root](host, cfg)

	manager := core.NewManager(host, logger, core.Options{
		MaxParallelism:  cfg.Loader.MaxParallelism,
		QueueRetryLimit: cfg.Loader.QueueRetryLimit,
		LoadTimeout:     cfg.Loader.LoadTimeout,
		ForwardKeys:     []any{core.TypeKey[config.Root]{}},
	})

	// 4) register modules
	manager.RegisterModule(web.Module(cfg.Server,
		// example route alongside the module-provided ones
		web.WithRoutes(func(r web.Router) {
			r.GET("/hello", func(c *gin.Context) {
				c.JSON(200, gin.H{"message": "world"})
			})
		}),
	))
	manager.RegisterModule(actuator.Module(manager))

	// 5) load the startup set, then open the doors
	ctx := context.Background()
	if _, err := manager.LoadByStrategy(ctx, core.StrategyEager); err != nil {
		logger.Error("startup load failed", "error", err)
		os.Exit(1)
	}
	manager.Bus().Publish(core.TopicHostReady, nil)

	if cfg.Loader.PreloadBackground {
		manager.StartBackgroundPreloading(ctx)
	}

	// 6) wait for a signal, then unload in reverse completion order
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	timeout := cfg.Loader.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	manager.UnloadAll(shutdownCtx)
	logger.Info("shutdown complete")
}
