// Package config - CLI settings.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. LVMATCH_LOG_LEVEL.
const EnvPrefix = "LVMATCH"

// Settings are the process-wide knobs. Precedence: flag, environment,
// settings file, default.
type Settings struct {
	LogLevel    string        `mapstructure:"log-level" validate:"oneof=debug info warn error"`
	LogDev      bool          `mapstructure:"log-dev"`
	TimeLimit   time.Duration `mapstructure:"time-limit" validate:"gte=0"`
	Parallelism int           `mapstructure:"parallelism" validate:"gte=1"`
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{LogLevel: "info", TimeLimit: 30 * time.Second, Parallelism: 4}
}

// AddFlags registers the settings flags on fs with their defaults.
func AddFlags(fs *pflag.FlagSet) {
	d := DefaultSettings()
	fs.String("log-level", d.LogLevel, "log level: debug, info, warn or error")
	fs.Bool("log-dev", d.LogDev, "human-readable development logging")
	fs.Duration("time-limit", d.TimeLimit, "solver time limit per round (0 = none)")
	fs.Int("parallelism", d.Parallelism, "rounds solved concurrently")
}

// LoadSettings merges the settings file (if any), LVMATCH_* environment
// variables and the flags of fs.
func LoadSettings(fs *pflag.FlagSet, file string) (Settings, error) {
	v := viper.New()
	d := DefaultSettings()
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-dev", d.LogDev)
	v.SetDefault("time-limit", d.TimeLimit)
	v.SetDefault("parallelism", d.Parallelism)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return Settings{}, err
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("config: read settings %s: %w", file, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("config: settings: %w", err)
	}
	if err := validate.Struct(&s); err != nil {
		return Settings{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return s, nil
}
