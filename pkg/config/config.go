// pkg/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the top-level configuration structure for bridgeselectord.
type Config struct {
	App        AppConfig        `koanf:"app"`
	GRPC       GRPCConfig       `koanf:"grpc"`
	HTTP       HTTPConfig       `koanf:"http"`
	Log        LogConfig        `koanf:"log"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Tracing    TracingConfig    `koanf:"tracing"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	Audit      AuditConfig      `koanf:"audit"`
	BridgePool BridgePoolConfig `koanf:"bridge_pool"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// GRPCConfig configures the admin gRPC server (health + reflection).
type GRPCConfig struct {
	Port              int             `koanf:"port"`
	MaxRecvMsgSize    int             `koanf:"max_recv_msg_size"` // bytes
	MaxSendMsgSize    int             `koanf:"max_send_msg_size"` // bytes
	MaxConcurrentConn int             `koanf:"max_concurrent_conn"`
	KeepAlive         KeepAliveConfig `koanf:"keepalive"`
	TLS               TLSConfig       `koanf:"tls"`
}

// KeepAliveConfig configures gRPC keepalive behaviour.
type KeepAliveConfig struct {
	MaxConnectionIdle     time.Duration `koanf:"max_connection_idle"`
	MaxConnectionAge      time.Duration `koanf:"max_connection_age"`
	MaxConnectionAgeGrace time.Duration `koanf:"max_connection_age_grace"`
	Time                  time.Duration `koanf:"time"`
	Timeout               time.Duration `koanf:"timeout"`
}

// TLSConfig configures gRPC transport security.
type TLSConfig struct {
	Enabled  bool   `koanf:"enabled"`
	CertFile string `koanf:"cert_file"`
	KeyFile  string `koanf:"key_file"`
	CAFile   string `koanf:"ca_file"`
}

// HTTPConfig configures the operator admin mux (ListBridges, Stats,
// SetOperational — SPEC_FULL.md §4.7).
type HTTPConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file
	FilePath   string `koanf:"file_path"`
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"`     // days
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// RateLimitConfig configures the admin mux's per-key rate limiter. Only the
// in-memory backend is supported — there is no distributed state to
// coordinate across instances for a handful of operator endpoints.
type RateLimitConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Requests        int           `koanf:"requests"`
	Window          time.Duration `koanf:"window"`
	Strategy        string        `koanf:"strategy"`
	BurstSize       int           `koanf:"burst_size"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// AuditConfig configures the audit trail for administrative actions.
type AuditConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Backend         string        `koanf:"backend"`
	FilePath        string        `koanf:"file_path"`
	BufferSize      int           `koanf:"buffer_size"`
	FlushPeriod     time.Duration `koanf:"flush_period"`
	ExcludeMethods  []string      `koanf:"exclude_methods"`
	IncludeRequest  bool          `koanf:"include_request"`
	IncludeResponse bool          `koanf:"include_response"`
}

// BridgePoolConfig is the domain configuration surface named in
// SPEC_FULL.md §6.
type BridgePoolConfig struct {
	HealthChecksInterval            time.Duration `koanf:"health_checks_interval"`
	HealthChecksRetryDelay          time.Duration `koanf:"health_checks_retry_delay"`
	HealthCheckReplyTimeout         time.Duration `koanf:"health_check_reply_timeout"`
	FailureResetThreshold           time.Duration `koanf:"failure_reset_threshold"`
	ParticipantRampupInterval       time.Duration `koanf:"participant_rampup_interval"`
	AverageParticipantStress        float64       `koanf:"average_participant_stress"`
	AverageParticipantPacketRatePps int64         `koanf:"average_participant_packet_rate_pps"`
	MaxBridgePacketRatePps          int64         `koanf:"max_bridge_packet_rate_pps"`
	StressThreshold                 float64       `koanf:"stress_threshold"`
	SelectionStrategy               string        `koanf:"selection_strategy"` // single, region, intra-region, split
	RegionGroups                    map[string][]string `koanf:"region_groups"`
	OctoEnabled                     bool          `koanf:"octo_enabled"`
	BreweryRoom                     string        `koanf:"brewery_room"`
}

// Validate checks the configuration for obviously-broken values.
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.GRPC.Port <= 0 || c.GRPC.Port > 65535 {
		errs = append(errs, fmt.Sprintf("grpc.port must be between 1 and 65535, got %d", c.GRPC.Port))
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Sprintf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	validStrategies := map[string]bool{"single": true, "region": true, "intra-region": true, "split": true}
	if c.BridgePool.SelectionStrategy != "" && !validStrategies[c.BridgePool.SelectionStrategy] {
		errs = append(errs, fmt.Sprintf("bridge_pool.selection_strategy must be one of: single, region, intra-region, split, got %s", c.BridgePool.SelectionStrategy))
	}

	if c.BridgePool.StressThreshold < 0 {
		errs = append(errs, "bridge_pool.stress_threshold must be non-negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment reports whether the app is running in a development
// environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction reports whether the app is running in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
