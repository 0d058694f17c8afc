package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"skillbuilder/internal/common/cache"
	"skillbuilder/internal/grading/engine"
	"skillbuilder/pkg/utils/logger"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8090"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultContentDir      = "modules"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// ContentConfig holds module content settings.
type ContentConfig struct {
	Dir string `yaml:"dir"`
}

// SandboxConfig holds interpreter engine settings.
type SandboxConfig struct {
	InterpreterCmd       string        `yaml:"interpreterCmd"`
	SubmissionTimeout    time.Duration `yaml:"submissionTimeout"`
	GraderTimeout        time.Duration `yaml:"graderTimeout"`
	KillGrace            time.Duration `yaml:"killGrace"`
	StdoutStderrMaxBytes int64         `yaml:"stdoutStderrMaxBytes"`
	MemoryLimitMB        int64         `yaml:"memoryLimitMB"`
	MaxConcurrentRuns    int           `yaml:"maxConcurrentRuns"`
	EnableNamespaces     bool          `yaml:"enableNamespaces"`
	DisableNetwork       bool          `yaml:"disableNetwork"`
}

func (c SandboxConfig) toEngineConfig() engine.Config {
	return engine.Config{
		InterpreterCmd:       c.InterpreterCmd,
		SubmissionTimeout:    c.SubmissionTimeout,
		GraderTimeout:        c.GraderTimeout,
		KillGrace:            c.KillGrace,
		StdoutStderrMaxBytes: c.StdoutStderrMaxBytes,
		MemoryLimitMB:        c.MemoryLimitMB,
		MaxConcurrentRuns:    c.MaxConcurrentRuns,
		EnableNamespaces:     c.EnableNamespaces,
		DisableNetwork:       c.DisableNetwork,
	}
}

// GradingConfig holds grading service settings.
type GradingConfig struct {
	MaxCodeBytes int           `yaml:"maxCodeBytes"`
	ResultTTL    time.Duration `yaml:"resultTTL"`
}

// AppConfig holds grader-service config.
type AppConfig struct {
	Server  ServerConfig      `yaml:"server"`
	Logger  logger.Config     `yaml:"logger"`
	Redis   cache.RedisConfig `yaml:"redis"`
	Content ContentConfig     `yaml:"content"`
	Sandbox SandboxConfig     `yaml:"sandbox"`
	Grading GradingConfig     `yaml:"grading"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Content.Dir == "" {
		cfg.Content.Dir = defaultContentDir
	}
	// Redis is optional: an empty addr disables result caching.
	if cfg.Redis.Addr != "" {
		applyRedisDefaults(&cfg.Redis)
	}
	return &cfg, nil
}

func applyRedisDefaults(cfg *cache.RedisConfig) {
	defaults := cache.DefaultRedisConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.MinRetryBackoff == 0 {
		cfg.MinRetryBackoff = defaults.MinRetryBackoff
	}
	if cfg.MaxRetryBackoff == 0 {
		cfg.MaxRetryBackoff = defaults.MaxRetryBackoff
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaults.PoolSize
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = defaults.MinIdleConns
	}
	if cfg.PoolTimeout == 0 {
		cfg.PoolTimeout = defaults.PoolTimeout
	}
}
