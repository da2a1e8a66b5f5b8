package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	DefaultPort = 8881
	DefaultHost = "0.0.0.0"

	DefaultFileWriteDelay = 150 * time.Millisecond // lets a slow write settle before reload fires
)

var (
	lastReload  time.Time
	reloadMutex sync.Mutex
)

// DefaultConfig returns a configuration with sensible defaults for running against
// a local OpenAI-compatible backend.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodySize:     10 << 20, // 10MiB, generous for tool-heavy request bodies
		},
		Upstream: UpstreamConfig{
			BaseURL:         "http://localhost:11434/v1",
			ConnectTimeout:  30 * time.Second,
			ResponseTimeout: 10 * time.Minute, // long-running completions
			ReadTimeout:     120 * time.Second,
		},
		Streaming: StreamingConfig{
			ChannelCapacity: 128,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Theme:      "default",
			PrettyLogs: true,
			FileOutput: false,
			LogDir:     "./logs",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

// Load reads configuration from ./config.yaml (or RELAY_CONFIG_FILE), overlays
// RELAY_-prefixed environment variables, and watches the file for changes.
// onConfigChange is invoked after a debounced reload; it is expected to re-read
// the Logging section and re-wire the logger.
func Load(onConfigChange func()) (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("RELAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// AutomaticEnv only surfaces env values for keys viper already knows
	// about; bind the full key set explicitly so RELAY_* variables override
	// even without a config file present.
	for _, key := range []string{
		"server.host", "server.port", "server.read_timeout", "server.write_timeout",
		"server.shutdown_timeout", "server.max_body_size",
		"upstream.base_url", "upstream.api_key", "upstream.connect_timeout",
		"upstream.response_timeout", "upstream.read_timeout",
		"streaming.channel_capacity",
		"logging.level", "logging.theme", "logging.pretty_logs", "logging.file_output",
		"logging.log_dir", "logging.max_size", "logging.max_backups", "logging.max_age",
	} {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if configFile := os.Getenv("RELAY_CONFIG_FILE"); configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	viper.WatchConfig()

	if onConfigChange != nil {
		viper.OnConfigChange(func(e fsnotify.Event) {
			reloadMutex.Lock()
			defer reloadMutex.Unlock()

			now := time.Now()
			if now.Sub(lastReload) < 500*time.Millisecond {
				return // debounce rapid-fire fsnotify events
			}
			lastReload = now

			// some editors/filesystems fire the event before the write lands
			time.Sleep(DefaultFileWriteDelay)
			onConfigChange()
		})
	}

	return cfg, nil
}
