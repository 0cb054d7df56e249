package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/remediator/internal/remediation/executor"
	"github.com/vietddude/remediator/internal/remediation/strategy"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${ENV} references and applying
// defaults.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *AppConfig {
	var cfg AppConfig
	cfg.applyDefaults()
	return &cfg
}

func (cfg *AppConfig) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.Audit.Backend == "" {
		if cfg.Database.URL != "" {
			cfg.Audit.Backend = BackendPostgres
		} else {
			cfg.Audit.Backend = BackendMemory
		}
	}
	if cfg.Audit.HistoryLimit == 0 {
		cfg.Audit.HistoryLimit = 50
	}
	if cfg.Audit.PruneInterval == 0 {
		cfg.Audit.PruneInterval = time.Hour
	}

	limits := strategy.DefaultLimits()
	r := &cfg.Remediation
	if r.MaxUploadSize == 0 {
		r.MaxUploadSize = limits.MaxUploadSize
	}
	if len(r.AllowedExtensions) == 0 {
		r.AllowedExtensions = limits.AllowedExtensions
	}
	if r.MinQuality == 0 {
		r.MinQuality = limits.MinQuality
	}
	if r.MaxMemory == 0 {
		r.MaxMemory = limits.MaxMemory
	}
	if r.HandlerTimeout == 0 {
		r.HandlerTimeout = executor.DefaultTimeout
	}
}

// Validate rejects settings the service cannot run with.
func (cfg *AppConfig) Validate() error {
	switch cfg.Audit.Backend {
	case BackendMemory:
	case BackendPostgres:
		if cfg.Database.URL == "" {
			return fmt.Errorf("audit backend %q requires database.url", BackendPostgres)
		}
	case BackendRedis:
		if cfg.Redis.URL == "" {
			return fmt.Errorf("audit backend %q requires redis.url", BackendRedis)
		}
	default:
		return fmt.Errorf("unknown audit backend %q", cfg.Audit.Backend)
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if cfg.Server.GRPCPort < 0 || cfg.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port %d", cfg.Server.GRPCPort)
	}
	if cfg.Remediation.MaxUploadSize < 0 || cfg.Remediation.MaxMemory < 0 {
		return fmt.Errorf("remediation limits must not be negative")
	}
	if cfg.Remediation.MinQuality < 0 || cfg.Remediation.MinQuality > 1 {
		return fmt.Errorf("remediation.min_quality must be within [0, 1], got %v", cfg.Remediation.MinQuality)
	}
	if cfg.Audit.RetentionPeriod < 0 || cfg.System.SampleInterval < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}
