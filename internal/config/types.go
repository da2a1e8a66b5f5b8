package config

import "time"

// Config holds all configuration for the relay process.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Upstream  UpstreamConfig  `yaml:"upstream" mapstructure:"upstream"`
	Streaming StreamingConfig `yaml:"streaming" mapstructure:"streaming"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig holds HTTP listener configuration for the proxy's own surface.
type ServerConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `yaml:"max_body_size" mapstructure:"max_body_size"`
}

// UpstreamConfig describes the single chat-completions backend relay forwards to.
type UpstreamConfig struct {
	BaseURL         string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey          string        `yaml:"api_key" mapstructure:"api_key"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`
	ResponseTimeout time.Duration `yaml:"response_timeout" mapstructure:"response_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"` // max gap between streamed chunks
}

// StreamingConfig tunes the reader-task/channel pipeline used for SSE responses.
type StreamingConfig struct {
	ChannelCapacity int `yaml:"channel_capacity" mapstructure:"channel_capacity"`
}

// LoggingConfig holds logging configuration, reloadable at runtime.
type LoggingConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Theme      string `yaml:"theme" mapstructure:"theme"`
	PrettyLogs bool   `yaml:"pretty_logs" mapstructure:"pretty_logs"`
	FileOutput bool   `yaml:"file_output" mapstructure:"file_output"`
	LogDir     string `yaml:"log_dir" mapstructure:"log_dir"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"` // megabytes
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"` // days
}
