// Package config loads the gateway's single structured configuration
// document (server, logging, channels, routing, image pipelines, dedup,
// proxy) via spf13/viper: mapstructure-tagged nested structs, env var
// override of the config file path, validation at load time.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vitaliisemenov/alert-router/internal/logging"
	"github.com/vitaliisemenov/alert-router/internal/routing"
)

// ConfigFileEnvVar is the environment variable that overrides the
// default config file location.
const ConfigFileEnvVar = "CONFIG_FILE"

// DefaultConfigFile is used when ConfigFileEnvVar is unset.
const DefaultConfigFile = "./config.yaml"

// Config is the top-level configuration document.
type Config struct {
	Server   ServerConfig        `mapstructure:"server"`
	Logging  logging.Config      `mapstructure:"logging"`
	Channels map[string]Channel  `mapstructure:"channels"`
	Routing  []routing.Rule      `mapstructure:"routing"`

	PrometheusImage ImageConfig `mapstructure:"prometheus_image"`
	GrafanaImage    ImageConfig `mapstructure:"grafana_image"`

	TemplatesDir      string `mapstructure:"templates_dir"`
	TemplateCacheSize int    `mapstructure:"template_cache_size"`

	JenkinsDedup DedupConfig `mapstructure:"jenkins_dedup"`

	Proxy        ProxyConfig `mapstructure:"proxy"`
	ProxyEnabled bool        `mapstructure:"proxy_enabled"`
}

// ServerConfig controls the HTTP front door.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ImageConfig controls one producer's image-pipeline settings.
type ImageConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	PrometheusURL   string        `mapstructure:"prometheus_url"`
	LookbackMinutes int           `mapstructure:"lookback_minutes"`
	StepSeconds     int           `mapstructure:"step_seconds"`
	TimeoutSeconds  int           `mapstructure:"timeout_seconds"`
	MaxSeries       int           `mapstructure:"max_series"`
	Renderer        string        `mapstructure:"renderer"` // "native" (only implementation)
}

// DedupConfig controls the build-system dedup predicate and TTL.
type DedupConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	TTLSeconds       int      `mapstructure:"ttl_seconds"`
	ClearOnResolved  bool     `mapstructure:"clear_on_resolved"`
	ReceiverContains []string `mapstructure:"receiver_contains"`
	AlertnamePattern string   `mapstructure:"alertname_pattern"`
}

// ProxyConfig describes a global or per-channel proxy setting.
type ProxyConfig struct {
	HTTP   string `mapstructure:"http"`
	HTTPS  string `mapstructure:"https"`
	SOCKS5 string `mapstructure:"socks5"`
}

// Load reads the config file named by path (falling back to
// DefaultConfigFile when path is empty), unmarshals it, and
// validates it. An invalid rule pattern or malformed channel aborts
// load.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path == "" {
		path = DefaultConfigFile
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("prometheus_image.lookback_minutes", 60)
	v.SetDefault("prometheus_image.step_seconds", 60)
	v.SetDefault("prometheus_image.timeout_seconds", 10)
	v.SetDefault("prometheus_image.max_series", 5)
	v.SetDefault("prometheus_image.renderer", "native")

	v.SetDefault("grafana_image.lookback_minutes", 60)
	v.SetDefault("grafana_image.step_seconds", 60)
	v.SetDefault("grafana_image.timeout_seconds", 10)
	v.SetDefault("grafana_image.max_series", 5)
	v.SetDefault("grafana_image.renderer", "native")

	v.SetDefault("templates_dir", "./templates")
	v.SetDefault("template_cache_size", 64)

	v.SetDefault("jenkins_dedup.enabled", true)
	v.SetDefault("jenkins_dedup.ttl_seconds", 900)
	v.SetDefault("jenkins_dedup.clear_on_resolved", true)
	v.SetDefault("jenkins_dedup.receiver_contains", []string{"jenkins"})
	v.SetDefault("jenkins_dedup.alertname_pattern", `(?i).*jenkins.*`)
}

// ConfigFilePath resolves the effective config path from an explicit
// flag value, the CONFIG_FILE env var, and the documented default.
func ConfigFilePath(flagValue string, lookupEnv func(string) (string, bool)) string {
	if flagValue != "" {
		return flagValue
	}
	if v, ok := lookupEnv(ConfigFileEnvVar); ok && v != "" {
		return v
	}
	return DefaultConfigFile
}
