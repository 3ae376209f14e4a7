// Package config loads bridge settings from an optional config file,
// environment variables, and CLI flags, in that order of increasing
// precedence.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds everything a bridge session needs beyond what's passed as
// the firmware image itself.
type Config struct {
	Port         string `mapstructure:"port"`
	Baud         int    `mapstructure:"baud"`
	ResetPin     int    `mapstructure:"reset_pin"`
	InBufferSize int    `mapstructure:"in_buffer_size"`
	Debug        bool   `mapstructure:"debug"`
}

// Load reads configFile (if non-empty) merged with environment variables
// prefixed XBEEBOOT_, with defaults for anything unset.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("XBEEBOOT")
	v.AutomaticEnv()

	v.SetDefault("port", "")
	v.SetDefault("baud", 0)
	v.SetDefault("reset_pin", 0)
	v.SetDefault("in_buffer_size", 0)
	v.SetDefault("debug", false)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}
