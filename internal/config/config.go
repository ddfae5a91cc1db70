package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Assessor AssessorConfig `yaml:"assessor" mapstructure:"assessor"`
	Approval ApprovalConfig `yaml:"approval" mapstructure:"approval"`
	Monitor  MonitorConfig  `yaml:"monitor" mapstructure:"monitor"`
	Import   ImportConfig   `yaml:"import" mapstructure:"import"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the REST API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AssessorConfig configures the deal assessment service.
type AssessorConfig struct {
	Mode         string `yaml:"mode" mapstructure:"mode"` // "remote" or "heuristic"
	AnthropicKey string `yaml:"anthropic_key" mapstructure:"anthropic_key"`
	Model        string `yaml:"model" mapstructure:"model"`
	MaxTokens    int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ApprovalConfig tunes the approval pipeline.
type ApprovalConfig struct {
	BottleneckThresholdHours int `yaml:"bottleneck_threshold_hours" mapstructure:"bottleneck_threshold_hours"`
}

// MonitorConfig configures the background bottleneck monitor.
type MonitorConfig struct {
	Enabled             bool    `yaml:"enabled" mapstructure:"enabled"`
	CheckIntervalSecs   int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	WebhookURL          string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	BottleneckThreshold int     `yaml:"bottleneck_threshold" mapstructure:"bottleneck_threshold"` // alert when at least this many
	StalledRateAlert    float64 `yaml:"stalled_rate_alert" mapstructure:"stalled_rate_alert"`
}

// ImportConfig configures bulk deal import.
type ImportConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DEALDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit_rps", 50)
	v.SetDefault("server.rate_limit_burst", 100)
	v.SetDefault("assessor.mode", "heuristic")
	v.SetDefault("assessor.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("assessor.max_tokens", 1024)
	v.SetDefault("approval.bottleneck_threshold_hours", 24)
	v.SetDefault("monitor.enabled", false)
	v.SetDefault("monitor.check_interval_secs", 300)
	v.SetDefault("monitor.bottleneck_threshold", 1)
	v.SetDefault("monitor.stalled_rate_alert", 0.5)
	v.SetDefault("import.max_concurrent", 5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
