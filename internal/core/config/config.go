package config

import (
	"time"

	redisclient "github.com/vietddude/remediator/internal/infra/redis"
	"github.com/vietddude/remediator/internal/infra/storage/postgres"
	"github.com/vietddude/remediator/internal/remediation/strategy"
)

// Audit backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server      ServerConfig       `yaml:"server"`
	Logging     LoggingConfig      `yaml:"logging"`
	Database    postgres.Config    `yaml:"database"`
	Redis       redisclient.Config `yaml:"redis"`
	Audit       AuditConfig        `yaml:"audit"`
	Remediation RemediationConfig  `yaml:"remediation"`
	System      SystemConfig       `yaml:"system"`
}

// ServerConfig holds HTTP and gRPC server settings.
type ServerConfig struct {
	Port     int `yaml:"port"`
	GRPCPort int `yaml:"grpc_port"` // 0 = disabled
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// AuditConfig selects and tunes the audit store.
type AuditConfig struct {
	Backend         string        `yaml:"backend"`          // memory, postgres, redis
	RetentionPeriod time.Duration `yaml:"retention_period"` // 0 = infinite
	PruneInterval   time.Duration `yaml:"prune_interval"`
	HistoryLimit    int           `yaml:"history_limit"`
}

// RemediationConfig holds the thresholds the correction rules use.
type RemediationConfig struct {
	MaxUploadSize     int64         `yaml:"max_upload_size"`
	AllowedExtensions []string      `yaml:"allowed_extensions"`
	MinQuality        float64       `yaml:"min_quality"`
	MaxMemory         int64         `yaml:"max_memory"`
	HandlerTimeout    time.Duration `yaml:"handler_timeout"`
}

// SystemConfig configures the resource watcher.
type SystemConfig struct {
	SampleInterval time.Duration `yaml:"sample_interval"` // 0 = disabled
}

// Limits converts the remediation settings into resolver limits.
func (c RemediationConfig) Limits() strategy.Limits {
	return strategy.Limits{
		MaxUploadSize:     c.MaxUploadSize,
		AllowedExtensions: c.AllowedExtensions,
		MinQuality:        c.MinQuality,
		MaxMemory:         c.MaxMemory,
	}
}
