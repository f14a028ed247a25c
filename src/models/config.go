package models

import "time"

// MConfig Structure
type MConfig struct {
	Name        string           `mapstructure:"name" yaml:"name"`
	Host        string           `mapstructure:"host" yaml:"host"`
	Port        int              `mapstructure:"port" yaml:"port"`
	LogLevel    string           `mapstructure:"log_level" yaml:"log_level"`
	DevMode     bool             `mapstructure:"dev_mode" yaml:"dev_mode"`
	GrpcHost    string           `mapstructure:"grpc_host" yaml:"grpc_host"`
	GrpcPort    int              `mapstructure:"grpc_port" yaml:"grpc_port"`
	MetricsPath string           `mapstructure:"metrics_path" yaml:"metrics_path"`
	Feed        MFeedConfig      `mapstructure:"feed" yaml:"feed"`
	Series      MSeriesConfig    `mapstructure:"series" yaml:"series"`
	Stream      MStreamConfig    `mapstructure:"stream" yaml:"stream"`
	Reconnect   MReconnectConfig `mapstructure:"reconnect" yaml:"reconnect"`
	Network     MNetworkConfig   `mapstructure:"network" yaml:"network"`
	Telemetry   MTelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
}

// MFeedConfig describes where the feed lives relative to the current host name.
type MFeedConfig struct {
	HostName        string `mapstructure:"host_name" yaml:"host_name"`
	WorkspaceDomain string `mapstructure:"workspace_domain" yaml:"workspace_domain"`
	FrontendPort    int    `mapstructure:"frontend_port" yaml:"frontend_port"`
	ServicePort     int    `mapstructure:"service_port" yaml:"service_port"`
	LocalHost       string `mapstructure:"local_host" yaml:"local_host"`
	StreamPath      string `mapstructure:"stream_path" yaml:"stream_path"`
	ResetPath       string `mapstructure:"reset_path" yaml:"reset_path"`
}

type MSeriesConfig struct {
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
}

type MStreamConfig struct {
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" yaml:"handshake_timeout"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"` // 0 disables
	MaxMessageSize   int64         `mapstructure:"max_message_size" yaml:"max_message_size"`
	EventBuffer      int           `mapstructure:"event_buffer" yaml:"event_buffer"`
}

// MReconnectConfig controls the optional automatic reconnect. Manual-only when Auto is false.
type MReconnectConfig struct {
	Auto            bool          `mapstructure:"auto" yaml:"auto"`
	InitialInterval time.Duration `mapstructure:"initial_interval" yaml:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval" yaml:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier" yaml:"multiplier"`
	MaxElapsed      time.Duration `mapstructure:"max_elapsed" yaml:"max_elapsed"`
}

type MNetworkConfig struct {
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Proxies   []string      `mapstructure:"proxies" yaml:"proxies"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
}

type MTelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otel_endpoint" yaml:"otel_endpoint"`
	Insecure     bool   `mapstructure:"insecure" yaml:"insecure"`
}
