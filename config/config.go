// Package config loads InstruMesh settings from an optional YAML file and the
// environment via viper. All values have working defaults, so a missing file
// is not an error.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config carries the tunable defaults of a connection context and its
// in-process workers.
type Config struct {
	LogLevel   string        `mapstructure:"log_level"`
	LogFormat  string        `mapstructure:"log_format"`
	AskTimeout time.Duration `mapstructure:"ask_timeout"`
	BufferSize int           `mapstructure:"worker_buffer_size"`
}

// Load reads the configuration from path (optional) and INSTRUMESH_*
// environment variables, falling back to defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("instrumesh")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("ask_timeout", "30s")
	v.SetDefault("worker_buffer_size", 16)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}
