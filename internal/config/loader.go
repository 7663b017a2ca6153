package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix every environment-variable override uses,
// e.g. CCTALKD_BUS_DEVICE overrides bus.device.
const EnvPrefix = "CCTALKD"

// Loader reads a YAML config file plus environment overrides into a
// validated Config.
type Loader struct {
	configPath string
	viper      *viper.Viper
}

// NewLoader builds a Loader that searches configPath (a directory) for
// a file named "cctalkd.yaml", falling back to the current directory.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath, viper: viper.New()}
}

// Load reads, merges, unmarshals and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	l.viper.SetConfigName("cctalkd")
	l.viper.SetConfigType("yaml")
	if l.configPath != "" {
		l.viper.AddConfigPath(l.configPath)
	}
	l.viper.AddConfigPath(".")

	l.viper.SetEnvPrefix(EnvPrefix)
	l.viper.AutomaticEnv()
	l.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(l.viper)

	if err := l.viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &cfg, nil
}

// ConfigFileUsed returns the path of the config file actually loaded,
// or "" if none was found and defaults/environment alone were used.
func (l *Loader) ConfigFileUsed() string {
	return l.viper.ConfigFileUsed()
}
