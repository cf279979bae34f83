package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	Secret     string        `mapstructure:"secret"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`

	// Roll processing limits.
	MaxPhysicalDice     int `mapstructure:"max_physical_dice"`
	MaxTotalDice        int `mapstructure:"max_total_dice"`
	ComplexityThreshold int `mapstructure:"complexity_threshold"`

	// Highlight lifecycle.
	HighlightDuration      time.Duration `mapstructure:"highlight_duration"`
	MaxHighlights          int           `mapstructure:"max_highlights"`
	HighlightSweepInterval time.Duration `mapstructure:"highlight_sweep_interval"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("max_physical_dice", 10)
	v.SetDefault("max_total_dice", 10000)
	v.SetDefault("complexity_threshold", 100)
	v.SetDefault("highlight_duration", "30s")
	v.SetDefault("max_highlights", 10)
	v.SetDefault("highlight_sweep_interval", "60s")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
