// Package config loads and validates the per-node YAML configuration: a
// single LoadConfig entry point, a ValidateConfig pass before anything is
// wired, and a LogConfig call so every boot logs the config it is actually
// running with.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/feng-zhe/zhechord/internal/logger"
)

// Config is the whole per-node configuration file: the protocol's tuning
// parameters plus logging, bootstrap, and telemetry knobs.
type Config struct {
	Node      NodeConfig      `yaml:"node"`
	Ring      RingConfig      `yaml:"ring"`
	Transport TransportConfig `yaml:"transport"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	Logger    LoggerConfig    `yaml:"logger"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// NodeConfig describes the process's own listening identity.
type NodeConfig struct {
	// ID, if set, is the node's canonical hex identifier. Empty means
	// derive it from the advertised address.
	ID string `yaml:"id"`
	// Bind is the host:port the HTTP RPC server listens on.
	Bind string `yaml:"bind"`
	// Advertise is the host:port other nodes should dial to reach this
	// one. Defaults to Bind when empty.
	Advertise string `yaml:"advertise"`
}

// RingConfig carries the identifier width, backup-list length, and the
// maintenance cadence.
type RingConfig struct {
	Bits             int `yaml:"bits"`
	BackupSuccessors int `yaml:"backup_successors"`
	StabilizeMinMS   int `yaml:"stabilize_interval_min_ms"`
	StabilizeMaxMS   int `yaml:"stabilize_interval_max_ms"`
}

// TransportConfig carries the RPC client's timeout/retry/back-off policy.
type TransportConfig struct {
	RequestTimeoutMS int `yaml:"request_timeout_ms"`
	ConnRetry        int `yaml:"conn_retry"`
	BackoffMinMS     int `yaml:"backoff_min_ms"`
	BackoffMaxMS     int `yaml:"backoff_max_ms"`
}

// BootstrapConfig selects and configures peer discovery.
type BootstrapConfig struct {
	// Mode is "static" or "route53".
	Mode    string        `yaml:"mode"`
	Peers   []string      `yaml:"peers"`
	Route53 Route53Config `yaml:"route53"`
}

// Route53Config names the hosted zone/record set used for discovery.
type Route53Config struct {
	HostedZoneID string `yaml:"hosted_zone_id"`
	RecordName   string `yaml:"record_name"`
	TTLSeconds   int64  `yaml:"ttl_seconds"`
}

// LoggerConfig controls the zap backend and its rotating file sink.
type LoggerConfig struct {
	Active     bool   `yaml:"active"`
	Level      string `yaml:"level"`
	FilePath   string `yaml:"file_path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig selects the exporter: "stdout" or "otlp".
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

// LoadConfig reads and parses the YAML configuration at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return &cfg, nil
}

// applyEnvOverrides lets container deployments override the identity and
// peering fields without editing the mounted config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ZHECHORD_NODE_ID"); v != "" {
		c.Node.ID = v
	}
	if v := os.Getenv("ZHECHORD_BIND"); v != "" {
		c.Node.Bind = v
	}
	if v := os.Getenv("ZHECHORD_ADVERTISE"); v != "" {
		c.Node.Advertise = v
	}
	if v := os.Getenv("ZHECHORD_BOOTSTRAP_PEERS"); v != "" {
		c.Bootstrap.Peers = strings.Split(v, ",")
	}
	if v := os.Getenv("ZHECHORD_LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.Node.Advertise == "" {
		c.Node.Advertise = c.Node.Bind
	}
	if c.Ring.Bits == 0 {
		c.Ring.Bits = 160
	}
	if c.Ring.BackupSuccessors == 0 {
		c.Ring.BackupSuccessors = 2
	}
	if c.Ring.StabilizeMinMS == 0 {
		c.Ring.StabilizeMinMS = 5000
	}
	if c.Ring.StabilizeMaxMS == 0 {
		c.Ring.StabilizeMaxMS = 10000
	}
	if c.Transport.RequestTimeoutMS == 0 {
		c.Transport.RequestTimeoutMS = 2000
	}
	if c.Transport.ConnRetry == 0 {
		c.Transport.ConnRetry = 3
	}
	if c.Transport.BackoffMinMS == 0 {
		c.Transport.BackoffMinMS = 1000
	}
	if c.Transport.BackoffMaxMS == 0 {
		c.Transport.BackoffMaxMS = 3000
	}
	if c.Bootstrap.Mode == "" {
		c.Bootstrap.Mode = "static"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
}

// ValidateConfig checks invariants that must hold before any component is
// wired — catching a bad configuration here beats failing mid-join.
func (c *Config) ValidateConfig() error {
	if c.Node.Bind == "" {
		return fmt.Errorf("config: node.bind is required")
	}
	if c.Ring.Bits <= 0 {
		return fmt.Errorf("config: ring.bits must be > 0, got %d", c.Ring.Bits)
	}
	if c.Ring.BackupSuccessors <= 0 {
		return fmt.Errorf("config: ring.backup_successors must be > 0, got %d", c.Ring.BackupSuccessors)
	}
	if c.Ring.StabilizeMinMS <= 0 || c.Ring.StabilizeMaxMS < c.Ring.StabilizeMinMS {
		return fmt.Errorf("config: ring.stabilize_interval_{min,max}_ms must satisfy 0 < min <= max")
	}
	if c.Transport.RequestTimeoutMS <= 0 {
		return fmt.Errorf("config: transport.request_timeout_ms must be > 0")
	}
	if c.Transport.ConnRetry <= 0 {
		return fmt.Errorf("config: transport.conn_retry must be > 0")
	}
	if c.Transport.BackoffMinMS <= 0 || c.Transport.BackoffMaxMS < c.Transport.BackoffMinMS {
		return fmt.Errorf("config: transport.backoff_min_ms/backoff_max_ms must satisfy 0 < min <= max")
	}
	switch c.Bootstrap.Mode {
	case "static":
		// an empty peer list is valid — it means "found a new ring"
	case "route53":
		if c.Bootstrap.Route53.HostedZoneID == "" || c.Bootstrap.Route53.RecordName == "" {
			return fmt.Errorf("config: bootstrap.route53 requires hosted_zone_id and record_name")
		}
	default:
		return fmt.Errorf("config: unsupported bootstrap.mode %q", c.Bootstrap.Mode)
	}
	return nil
}

// LogConfig emits the effective configuration at Info level — run once at
// boot so every node's logs record exactly what it was started with.
func (c *Config) LogConfig(lgr logger.Logger) {
	lgr.Info("configuration loaded",
		logger.F("node.bind", c.Node.Bind),
		logger.F("node.advertise", c.Node.Advertise),
		logger.F("ring.bits", c.Ring.Bits),
		logger.F("ring.backup_successors", c.Ring.BackupSuccessors),
		logger.F("bootstrap.mode", c.Bootstrap.Mode),
		logger.F("telemetry.tracing.enabled", c.Telemetry.Tracing.Enabled),
	)
}

// StabilizeInterval returns the configured [min,max] stabilize period as
// time.Durations, for the periodic maintenance worker to sample from
// uniformly.
func (c *Config) StabilizeInterval() (min, max time.Duration) {
	return time.Duration(c.Ring.StabilizeMinMS) * time.Millisecond,
		time.Duration(c.Ring.StabilizeMaxMS) * time.Millisecond
}
