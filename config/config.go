// Package config loads the process-level settings from spec.md §6's
// "Environment variables" section (PORT, cluster flag, request-timeout
// override), with an optional YAML file overlay for values that don't fit
// comfortably in an environment variable (route cache defaults, log
// rotation policy).
//
// The search-path YAML overlay is grounded in
// arkd0ng-go-utils/logging.LoadAppConfig's cfg/app.yaml / apps/app.yaml /
// app.yaml probing; environment variables always win over the file, since
// they are the documented override surface of spec.md §6.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved process configuration.
type Config struct {
	Port            int
	Cluster         bool
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxConcurrency  int

	CacheDefaultTTL time.Duration
	LogFilePath     string
}

// fileOverlay is the shape of the optional YAML file; only fields present
// are applied, and only where the environment left the setting at zero.
type fileOverlay struct {
	Server struct {
		Port            int    `yaml:"port"`
		MaxConcurrency  int    `yaml:"maxConcurrency"`
		RequestTimeoutMS int   `yaml:"requestTimeoutMs"`
		ShutdownTimeoutMS int  `yaml:"shutdownTimeoutMs"`
	} `yaml:"server"`
	Cache struct {
		DefaultTTLMS int `yaml:"defaultTtlMs"`
	} `yaml:"cache"`
	Logging struct {
		FilePath string `yaml:"filePath"`
	} `yaml:"logging"`
}

var yamlSearchPaths = []string{
	"cfg/app.yaml",
	"config/app.yaml",
	"app.yaml",
}

// Load resolves configuration from the optional YAML overlay first, then
// environment variables, which always take precedence. Defaults fill
// whatever neither source set.
func Load() Config {
	cfg := defaults()
	if ov, ok := loadOverlay(); ok {
		applyOverlay(&cfg, ov)
	}
	applyEnv(&cfg)
	return cfg
}

func defaults() Config {
	return Config{
		Port:            3000,
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		MaxConcurrency:  100,
		CacheDefaultTTL: 0,
	}
}

func loadOverlay() (fileOverlay, bool) {
	for _, p := range yamlSearchPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		data, err := os.ReadFile(abs)
		if err != nil {
			continue
		}
		var ov fileOverlay
		if err := yaml.Unmarshal(data, &ov); err != nil {
			continue
		}
		return ov, true
	}
	return fileOverlay{}, false
}

func applyOverlay(cfg *Config, ov fileOverlay) {
	if ov.Server.Port != 0 {
		cfg.Port = ov.Server.Port
	}
	if ov.Server.MaxConcurrency != 0 {
		cfg.MaxConcurrency = ov.Server.MaxConcurrency
	}
	if ov.Server.RequestTimeoutMS != 0 {
		cfg.RequestTimeout = time.Duration(ov.Server.RequestTimeoutMS) * time.Millisecond
	}
	if ov.Server.ShutdownTimeoutMS != 0 {
		cfg.ShutdownTimeout = time.Duration(ov.Server.ShutdownTimeoutMS) * time.Millisecond
	}
	if ov.Cache.DefaultTTLMS != 0 {
		cfg.CacheDefaultTTL = time.Duration(ov.Cache.DefaultTTLMS) * time.Millisecond
	}
	if ov.Logging.FilePath != "" {
		cfg.LogFilePath = ov.Logging.FilePath
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("IGNITE_CLUSTER"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Cluster = b
		}
	}
	if v := os.Getenv("IGNITE_REQUEST_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RequestTimeout = time.Duration(n) * time.Millisecond
		}
	}
	if v := os.Getenv("IGNITE_SHUTDOWN_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ShutdownTimeout = time.Duration(n) * time.Millisecond
		}
	}
	if v := os.Getenv("IGNITE_MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConcurrency = n
		}
	}
	if v := os.Getenv("IGNITE_LOG_FILE"); v != "" {
		cfg.LogFilePath = v
	}
}
