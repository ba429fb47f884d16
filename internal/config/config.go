package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	APIBaseURL        string        `mapstructure:"api_base_url"`
	SocketURL         string        `mapstructure:"socket_url"`
	RedisURL          string        `mapstructure:"redis_url"`
	ServerPort        string        `mapstructure:"server_port"`
	GinMode           string        `mapstructure:"gin_mode"`
	SessionTimeout    time.Duration `mapstructure:"session_timeout"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	OrderHistoryTTL   time.Duration `mapstructure:"order_history_ttl"`
	TypingTimeout     time.Duration `mapstructure:"typing_timeout"`
	ReconnectAttempts int           `mapstructure:"reconnect_attempts"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	APITimeout        time.Duration `mapstructure:"api_timeout"`
}

var defaults = map[string]interface{}{
	"api_base_url":       "http://localhost:8000/api/v1",
	"socket_url":         "ws://localhost:8000/ws/chat",
	"redis_url":          "redis://localhost:6379",
	"server_port":        "8080",
	"gin_mode":           "release",
	"session_timeout":    time.Hour,
	"cache_ttl":          30 * time.Minute,
	"order_history_ttl":  5 * time.Minute,
	"typing_timeout":     3 * time.Second,
	"reconnect_attempts": 5,
	"reconnect_delay":    time.Second,
	"api_timeout":        30 * time.Second,
}

// Load reads configuration from, in increasing priority: defaults, the
// optional config file, the environment (a .env file is loaded first) and
// any bound command-line flags.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Load .env file if exists
	godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if _, known := defaults[key]; !known || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(key, f)
		})
		if bindErr != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	var cfg Config
	decoderConfigOption := viper.DecoderConfigOption(func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			secondsToDurationHook,
			mapstructure.StringToTimeDurationHookFunc(),
		)
	})
	if err := v.Unmarshal(&cfg, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// secondsToDurationHook accepts bare integers for duration keys, the way
// SESSION_TIMEOUT=3600 used to be written.
func secondsToDurationHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	secs, err := strconv.Atoi(data.(string))
	if err != nil {
		return data, nil
	}
	return time.Duration(secs) * time.Second, nil
}

func (c *Config) validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api_base_url must be set")
	}
	if c.OrderHistoryTTL <= 0 {
		return fmt.Errorf("order_history_ttl must be positive, got %s", c.OrderHistoryTTL)
	}
	if c.TypingTimeout <= 0 {
		return fmt.Errorf("typing_timeout must be positive, got %s", c.TypingTimeout)
	}
	if c.ReconnectAttempts < 0 {
		return fmt.Errorf("reconnect_attempts must not be negative")
	}
	return nil
}
