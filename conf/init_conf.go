package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config application configuration structure
type Config struct {
	// HTTP API configuration
	Server ServerConfig

	// Key-value store backing the app directory
	Database DatabaseConfig

	// Sandbox lifecycle configuration
	Sandbox SandboxConfig

	// Reconciliation job configuration
	Cleanup CleanupConfig

	// Artifact generator backend
	Generator GeneratorConfig

	// Sandbox provisioner backend
	Provisioner ProvisionerConfig

	// Admin and API key configuration
	Admin AdminConfig

	// Lifecycle event publishing
	Events EventsConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig HTTP API configuration
type ServerConfig struct {
	Port           string   // API service port
	PathPrefix     string   // Path prefix for reverse proxy (e.g., "/sandbox")
	SwaggerBaseUrl string   // Swagger API base URL
	AllowedOrigins []string // CORS origins, "*" allows all
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	Type       string // Store type: pebble, sqlite, memory
	DataDir    string // PebbleDB data directory
	SqlitePath string // SQLite database file
}

// SandboxConfig sandbox lifecycle configuration
type SandboxConfig struct {
	Image             string // Environment image handed to the provisioner
	HealthMaxAttempts int    // Heartbeat attempts before a sandbox is declared terminated
	HealthDelayMs     int    // Delay between heartbeat attempts
	HealthTimeoutMs   int    // Timeout of a single heartbeat request
	PushTimeoutMs     int    // Timeout of an artifact push
	HeartbeatPath     string // Control endpoint heartbeat path
	EditPath          string // Control endpoint edit path
}

// CleanupConfig reconciliation configuration
type CleanupConfig struct {
	Enable          bool // Run the periodic reconciliation job
	IntervalSeconds int  // Interval between passes
	ProbeAttempts   int  // Liveness probes before an app is declared dead
}

// GeneratorConfig artifact generator configuration
type GeneratorConfig struct {
	BaseUrl          string
	ApiKey           string
	Model            string
	ExplainModel     string
	MaxTokens        int
	ExplainMaxTokens int
	Temperature      float64
	TimeoutMs        int
}

// ProvisionerConfig sandbox provisioner configuration
type ProvisionerConfig struct {
	BaseUrl               string
	ApiKey                string
	TimeoutSeconds        int
	ControlPort           int
	UserPort              int
	SandboxTimeoutSeconds int
}

// AdminConfig admin authentication configuration
type AdminConfig struct {
	Secret     string   // Plain admin secret (development)
	SecretHash string   // bcrypt hash of the admin secret, preferred over Secret
	ApiKeys    []string // Accepted X-API-Key values; empty disables the check
}

// EventsConfig lifecycle event configuration
type EventsConfig struct {
	ZmqEnabled bool   // Publish lifecycle events over ZMQ
	ZmqAddress string // ZMQ PUB bind address, e.g. "tcp://*:28400"
}

// LogConfig logging configuration
type LogConfig struct {
	Level string
	Json  bool
}

// Cfg global configuration instance
var Cfg *Config

// InitConfig initialize configuration
func InitConfig() error {
	viper.SetConfigFile(GetYaml())
	viper.SetEnvPrefix("SANDBOX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("Fatal error config file: %s", err)
	}

	Cfg = FromViper(viper.GetViper())
	return nil
}

// FromViper builds a Config from v and applies defaults
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("server.port"),
			PathPrefix:     v.GetString("server.path_prefix"),
			SwaggerBaseUrl: v.GetString("server.swagger_base_url"),
			AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
		},

		Database: DatabaseConfig{
			Type:       v.GetString("database.type"),
			DataDir:    v.GetString("database.data_dir"),
			SqlitePath: v.GetString("database.sqlite_path"),
		},

		Sandbox: SandboxConfig{
			Image:             v.GetString("sandbox.image"),
			HealthMaxAttempts: v.GetInt("sandbox.health_max_attempts"),
			HealthDelayMs:     v.GetInt("sandbox.health_delay_ms"),
			HealthTimeoutMs:   v.GetInt("sandbox.health_timeout_ms"),
			PushTimeoutMs:     v.GetInt("sandbox.push_timeout_ms"),
			HeartbeatPath:     v.GetString("sandbox.heartbeat_path"),
			EditPath:          v.GetString("sandbox.edit_path"),
		},

		Cleanup: CleanupConfig{
			IntervalSeconds: v.GetInt("cleanup.interval_seconds"),
			ProbeAttempts:   v.GetInt("cleanup.probe_attempts"),
		},

		Generator: GeneratorConfig{
			BaseUrl:          v.GetString("generator.base_url"),
			ApiKey:           v.GetString("generator.api_key"),
			Model:            v.GetString("generator.model"),
			ExplainModel:     v.GetString("generator.explain_model"),
			MaxTokens:        v.GetInt("generator.max_tokens"),
			ExplainMaxTokens: v.GetInt("generator.explain_max_tokens"),
			Temperature:      v.GetFloat64("generator.temperature"),
			TimeoutMs:        v.GetInt("generator.timeout_ms"),
		},

		Provisioner: ProvisionerConfig{
			BaseUrl:               v.GetString("provisioner.base_url"),
			ApiKey:                v.GetString("provisioner.api_key"),
			TimeoutSeconds:        v.GetInt("provisioner.timeout_seconds"),
			ControlPort:           v.GetInt("provisioner.control_port"),
			UserPort:              v.GetInt("provisioner.user_port"),
			SandboxTimeoutSeconds: v.GetInt("provisioner.sandbox_timeout_seconds"),
		},

		Admin: AdminConfig{
			Secret:     v.GetString("admin.secret"),
			SecretHash: v.GetString("admin.secret_hash"),
			ApiKeys:    v.GetStringSlice("admin.api_keys"),
		},

		Events: EventsConfig{
			ZmqEnabled: v.GetBool("events.zmq_enabled"),
			ZmqAddress: v.GetString("events.zmq_address"),
		},

		Log: LogConfig{
			Level: v.GetString("log.level"),
			Json:  v.GetBool("log.json"),
		},
	}

	// cleanup is on unless explicitly disabled
	cfg.Cleanup.Enable = true
	if v.IsSet("cleanup.enable") {
		cfg.Cleanup.Enable = v.GetBool("cleanup.enable")
	}

	applyDefaults(cfg)
	return cfg
}

// Default returns a configuration with every default applied
func Default() *Config {
	return FromViper(viper.New())
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "7380"
	}
	if cfg.Server.SwaggerBaseUrl == "" {
		cfg.Server.SwaggerBaseUrl = "localhost:" + cfg.Server.Port
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	if cfg.Database.DataDir == "" {
		cfg.Database.DataDir = "./data"
	}
	if cfg.Database.SqlitePath == "" {
		cfg.Database.SqlitePath = "./data/sandbox_apps.db"
	}
	if cfg.Sandbox.HealthMaxAttempts == 0 {
		cfg.Sandbox.HealthMaxAttempts = 30
	}
	if cfg.Sandbox.HealthDelayMs == 0 {
		cfg.Sandbox.HealthDelayMs = 1000
	}
	if cfg.Sandbox.HealthTimeoutMs == 0 {
		cfg.Sandbox.HealthTimeoutMs = 10000
	}
	if cfg.Sandbox.PushTimeoutMs == 0 {
		cfg.Sandbox.PushTimeoutMs = 60000
	}
	if cfg.Sandbox.HeartbeatPath == "" {
		cfg.Sandbox.HeartbeatPath = "/heartbeat"
	}
	if cfg.Sandbox.EditPath == "" {
		cfg.Sandbox.EditPath = "/edit"
	}
	if cfg.Cleanup.IntervalSeconds == 0 {
		cfg.Cleanup.IntervalSeconds = 60
	}
	if cfg.Cleanup.ProbeAttempts == 0 {
		cfg.Cleanup.ProbeAttempts = 1
	}
	if cfg.Generator.BaseUrl == "" {
		cfg.Generator.BaseUrl = "https://api.anthropic.com"
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "claude-sonnet-4-20250514"
	}
	if cfg.Generator.ExplainModel == "" {
		cfg.Generator.ExplainModel = "claude-3-5-haiku-20241022"
	}
	if cfg.Generator.MaxTokens == 0 {
		cfg.Generator.MaxTokens = 8192
	}
	if cfg.Generator.ExplainMaxTokens == 0 {
		cfg.Generator.ExplainMaxTokens = 64
	}
	if cfg.Generator.Temperature == 0 {
		cfg.Generator.Temperature = 0.5
	}
	if cfg.Generator.TimeoutMs == 0 {
		cfg.Generator.TimeoutMs = 120000
	}
	if cfg.Provisioner.TimeoutSeconds == 0 {
		cfg.Provisioner.TimeoutSeconds = 300
	}
	if cfg.Provisioner.ControlPort == 0 {
		cfg.Provisioner.ControlPort = 8000
	}
	if cfg.Provisioner.UserPort == 0 {
		cfg.Provisioner.UserPort = 5173
	}
	if cfg.Provisioner.SandboxTimeoutSeconds == 0 {
		cfg.Provisioner.SandboxTimeoutSeconds = 86400 // 24 hours
	}
	if cfg.Events.ZmqAddress == "" {
		cfg.Events.ZmqAddress = "tcp://*:28400"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// HealthDelay delay between heartbeat attempts
func (s SandboxConfig) HealthDelay() time.Duration {
	return time.Duration(s.HealthDelayMs) * time.Millisecond
}

// HealthTimeout timeout of one heartbeat request
func (s SandboxConfig) HealthTimeout() time.Duration {
	return time.Duration(s.HealthTimeoutMs) * time.Millisecond
}

// PushTimeout timeout of one artifact push
func (s SandboxConfig) PushTimeout() time.Duration {
	return time.Duration(s.PushTimeoutMs) * time.Millisecond
}

// Interval interval between reconciliation passes
func (c CleanupConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}
