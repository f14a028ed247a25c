package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"price-stream/src/models"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. PRICESTREAM_SERIES_CAPACITY.
const EnvPrefix = "PRICESTREAM"

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig loads defaults, the optional YAML file at configPath and environment
// overrides, in that order of precedence (lowest first).
func NewConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
		}
	}

	var modelConfig models.MConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           &modelConfig,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			stringToBoolHook,
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create config decoder: %w", err)
	}
	if err := dec.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyWorkspaceHost(os.Getenv)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func setDefaults(v *viper.Viper) {
	v.SetDefault("name", "price-stream")
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("port", 8090)
	v.SetDefault("log_level", "info")
	v.SetDefault("dev_mode", false)
	v.SetDefault("grpc_host", "127.0.0.1")
	v.SetDefault("grpc_port", 50061)
	v.SetDefault("metrics_path", "/metrics")

	v.SetDefault("feed.host_name", "")
	v.SetDefault("feed.workspace_domain", "app.github.dev")
	v.SetDefault("feed.frontend_port", 3000)
	v.SetDefault("feed.service_port", 8080)
	v.SetDefault("feed.local_host", "localhost")
	v.SetDefault("feed.stream_path", "/ws")
	v.SetDefault("feed.reset_path", "/reset")

	v.SetDefault("series.capacity", 200)

	v.SetDefault("stream.handshake_timeout", "10s")
	v.SetDefault("stream.read_timeout", "60s")
	v.SetDefault("stream.max_message_size", 1024*1024)
	v.SetDefault("stream.event_buffer", 256)

	v.SetDefault("reconnect.auto", false)
	v.SetDefault("reconnect.initial_interval", "1s")
	v.SetDefault("reconnect.max_interval", "30s")
	v.SetDefault("reconnect.multiplier", 2.0)
	v.SetDefault("reconnect.max_elapsed", "5m")

	v.SetDefault("network.timeout", "10s")
	v.SetDefault("network.proxies", []string{})
	v.SetDefault("network.user_agent", "price-stream/1.0")

	v.SetDefault("telemetry.otel_endpoint", "")
	v.SetDefault("telemetry.insecure", true)
}

// stringToBoolHook parses "true"/"false" coming from the environment.
func stringToBoolHook(f, t reflect.Kind, data interface{}) (interface{}, error) {
	if f == reflect.String && t == reflect.Bool {
		return strconv.ParseBool(data.(string))
	}
	return data, nil
}

// -----------------------------------------------------------------------------

// applyWorkspaceHost fills an empty feed host name from the Codespaces environment,
// producing the host a browser on the forwarded frontend port would see.
func (c *Config) applyWorkspaceHost(getenv func(string) string) {
	if c.Feed.HostName != "" {
		return
	}
	name := getenv("CODESPACE_NAME")
	domain := getenv("GITHUB_CODESPACES_PORT_FORWARDING_DOMAIN")
	if name == "" || domain == "" {
		return
	}
	c.Feed.HostName = fmt.Sprintf("%s-%d.%s", name, c.Feed.FrontendPort, domain)
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of [debug, info, warn, error], got %q", c.LogLevel)
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d", c.Port)
	}
	if c.GrpcPort <= 0 || c.GrpcPort > 65535 {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}
	if !strings.HasPrefix(c.MetricsPath, "/") {
		return fmt.Errorf("metrics_path must start with '/'")
	}

	// Feed
	if c.Feed.ServicePort <= 0 || c.Feed.ServicePort > 65535 {
		return fmt.Errorf("invalid feed service port: %d", c.Feed.ServicePort)
	}
	if c.Feed.FrontendPort <= 0 || c.Feed.FrontendPort > 65535 {
		return fmt.Errorf("invalid feed frontend port: %d", c.Feed.FrontendPort)
	}
	if c.Feed.LocalHost == "" {
		return fmt.Errorf("feed local host cannot be empty")
	}
	if !strings.HasPrefix(c.Feed.StreamPath, "/") || !strings.HasPrefix(c.Feed.ResetPath, "/") {
		return fmt.Errorf("feed stream_path and reset_path must start with '/'")
	}

	// Series
	if c.Series.Capacity <= 0 {
		return fmt.Errorf("series capacity must be greater than 0")
	}

	// Stream
	if c.Stream.HandshakeTimeout <= 0 {
		return fmt.Errorf("stream handshake timeout must be greater than 0")
	}
	if c.Stream.ReadTimeout < 0 {
		return fmt.Errorf("stream read timeout cannot be negative")
	}
	if c.Stream.MaxMessageSize <= 0 {
		return fmt.Errorf("stream max message size must be greater than 0")
	}
	if c.Stream.EventBuffer < 0 {
		return fmt.Errorf("stream event buffer cannot be negative")
	}

	// Reconnect
	if c.Reconnect.Auto {
		if c.Reconnect.InitialInterval <= 0 || c.Reconnect.MaxInterval <= 0 {
			return fmt.Errorf("reconnect intervals must be greater than 0")
		}
		if c.Reconnect.Multiplier < 1 {
			return fmt.Errorf("reconnect multiplier must be >= 1")
		}
	}

	// Network
	if c.Network.Timeout <= 0 {
		return fmt.Errorf("network timeout must be greater than 0")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Marshal renders the effective configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to YAML: %w", err)
	}
	return data, nil
}

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
