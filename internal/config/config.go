// Package config loads and hot-reloads the daemon's configuration: the
// serial link to open, the devices expected on the bus, and the retry/
// polling policy the transport and pools should run with.
package config

import (
	"fmt"
	"time"
)

// Config is the daemon's full, validated configuration tree.
type Config struct {
	Bus       BusConfig       `mapstructure:"bus"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Poll      PollConfig      `mapstructure:"poll"`
	Devices   DevicesConfig   `mapstructure:"devices"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Publish   PublishConfig   `mapstructure:"publish"`
}

// BusConfig identifies the serial link the transport opens.
type BusConfig struct {
	Device       string        `mapstructure:"device"`
	BaudRate     int           `mapstructure:"baud_rate"`
	ChecksumType string        `mapstructure:"checksum_type"` // "simple" or "crc16"
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	MinimumDelay time.Duration `mapstructure:"minimum_delay"`
}

// RetryConfig mirrors transport.RetryConfig; kept as its own struct here
// (rather than importing the transport type directly) so this package
// has no dependency on pkg/cctalk/transport and can be unit-tested in
// isolation.
type RetryConfig struct {
	MaxRetries           int           `mapstructure:"max_retries"`
	RetryDelay           time.Duration `mapstructure:"retry_delay"`
	RetryOnTimeout       bool          `mapstructure:"retry_on_timeout"`
	RetryOnChecksumError bool          `mapstructure:"retry_on_checksum_error"`
	RetryOnNack          bool          `mapstructure:"retry_on_nack"`
	RetryOnSocketError   bool          `mapstructure:"retry_on_socket_error"`
}

// PollConfig sets the background polling cadence for each coordinator.
type PollConfig struct {
	CurrencyInterval time.Duration `mapstructure:"currency_interval"`
	PayoutInterval   time.Duration `mapstructure:"payout_interval"`
	SensorInterval   time.Duration `mapstructure:"sensor_interval"`
}

// DeviceEntry is one device's bus address and role-specific metadata.
type DeviceEntry struct {
	Address byte   `mapstructure:"address"`
	Name    string `mapstructure:"name"`
}

// HopperEntry is one payout hopper's address and coin value.
type HopperEntry struct {
	Address byte   `mapstructure:"address"`
	Value   uint32 `mapstructure:"value"`
}

// DevicesConfig enumerates every device the daemon expects to find.
type DevicesConfig struct {
	CoinValidators []DeviceEntry `mapstructure:"coin_validators"`
	BillValidators []DeviceEntry `mapstructure:"bill_validators"`
	Hoppers        []HopperEntry `mapstructure:"hoppers"`
}

// LogConfig configures logrus plus the lumberjack rotating file sink.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig configures the Prometheus HTTP exporter.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// PublishConfig configures the optional Redis progress-event fan-out.
type PublishConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Channel string `mapstructure:"channel"`
}

// Validate checks invariants LoadConfig alone cannot enforce via
// defaults — out-of-range values and missing required fields.
func (c *Config) Validate() error {
	if c.Bus.Device == "" {
		return fmt.Errorf("bus.device must be set")
	}
	if c.Bus.ChecksumType != "simple" && c.Bus.ChecksumType != "crc16" {
		return fmt.Errorf("bus.checksum_type must be \"simple\" or \"crc16\", got %q", c.Bus.ChecksumType)
	}
	if c.Bus.ReadTimeout <= 0 {
		return fmt.Errorf("bus.read_timeout must be positive")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0")
	}
	if c.Poll.CurrencyInterval <= 0 {
		return fmt.Errorf("poll.currency_interval must be positive")
	}
	if c.Poll.PayoutInterval <= 0 {
		return fmt.Errorf("poll.payout_interval must be positive")
	}
	if c.Poll.SensorInterval <= 0 {
		return fmt.Errorf("poll.sensor_interval must be positive")
	}
	for _, h := range c.Devices.Hoppers {
		if h.Value == 0 {
			return fmt.Errorf("devices.hoppers: hopper at address %d has a zero value", h.Address)
		}
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics.address must be set when metrics.enabled is true")
	}
	if c.Publish.Enabled && c.Publish.Addr == "" {
		return fmt.Errorf("publish.addr must be set when publish.enabled is true")
	}
	return nil
}

// setDefaults seeds every field a fresh install can run on without a
// config file: conservative retry/poll timing, info-level logging to
// stderr-adjacent rotation, metrics and publish both off. No coin
// validators, bill validators or hoppers are configured by default.
func setDefaults(v viperSetter) {
	v.SetDefault("bus.device", "/dev/ttyUSB0")
	v.SetDefault("bus.baud_rate", 9600)
	v.SetDefault("bus.checksum_type", "simple")
	v.SetDefault("bus.read_timeout", "500ms")
	v.SetDefault("bus.minimum_delay", "0s")

	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.retry_delay", "100ms")
	v.SetDefault("retry.retry_on_timeout", true)
	v.SetDefault("retry.retry_on_checksum_error", true)
	v.SetDefault("retry.retry_on_nack", false)
	v.SetDefault("retry.retry_on_socket_error", true)

	v.SetDefault("poll.currency_interval", "150ms")
	v.SetDefault("poll.payout_interval", "250ms")
	v.SetDefault("poll.sensor_interval", "1s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file_path", "./log/cctalkd.log")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", true)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", ":9337")

	v.SetDefault("publish.enabled", false)
	v.SetDefault("publish.channel", "cctalk:payout:events")
}

// viperSetter is the one *viper.Viper method setDefaults needs, kept as
// an interface so this file stays free of the viper import (loader.go
// carries that dependency instead).
type viperSetter interface {
	SetDefault(key string, value any)
}
