package config

import "time"

type AppInfo struct {
	Name    string `config:"name" validate:"required"`
	Version string `config:"version" validate:"required"`
}

type LoggingConfig struct {
	Level string `config:"level" validate:"omitempty,oneof=debug info warn error"`
	JSON  bool   `config:"json"`
}

// LoaderConfig tunes the module loading pipeline.
type LoaderConfig struct {
	// MaxParallelism bounds concurrent module loads.
	MaxParallelism int `config:"maxParallelism" validate:"required,min=1,max=64"`
	// QueueRetryLimit caps ready-queue rotations per module before the
	// scheduler gives up and reports a deadlock.
	QueueRetryLimit int `config:"queueRetryLimit" validate:"omitempty,min=1"`
	// LoadTimeout bounds a single module load. Zero disables the limit.
	LoadTimeout time.Duration `config:"loadTimeout"`
	// PreloadBackground starts background-strategy modules after startup.
	PreloadBackground bool `config:"preloadBackground"`
	// ShutdownTimeout bounds the unload pass on exit.
	ShutdownTimeout time.Duration `config:"shutdownTimeout"`
}

type MetricsConfig struct {
	Enabled bool   `config:"enabled"`
	Path    string `config:"path"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `config:"metrics"`
}

type ActuatorConfig struct {
	BasePath string `config:"basePath"`
}

type ServerConfig struct {
	Addr         string        `config:"addr" validate:"required"`
	ReadTimeout  time.Duration `config:"readTimeout"`
	WriteTimeout time.Duration `config:"writeTimeout"`
	IdleTimeout  time.Duration `config:"idleTimeout"`
}

type Root struct {
	App           AppInfo             `config:"app"`
	Logging       LoggingConfig       `config:"logging"`
	Loader        LoaderConfig        `config:"loader"`
	Server        ServerConfig        `config:"server"`
	Observability ObservabilityConfig `config:"observability"`
	Actuator      ActuatorConfig      `config:"actuator"`
}
