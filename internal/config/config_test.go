package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadUsesDefaultsWithNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(dir)

	cfg, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyUSB0", cfg.Bus.Device)
	require.Equal(t, "simple", cfg.Bus.ChecksumType)
	require.Equal(t, 3, cfg.Retry.MaxRetries)
	require.Equal(t, 150*time.Millisecond, cfg.Poll.CurrencyInterval)
	require.False(t, cfg.Metrics.Enabled)
	require.Empty(t, loader.ConfigFileUsed())
}

func TestLoadReadsConfigFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
bus:
  device: /dev/ttyAMA0
  checksum_type: crc16
poll:
  currency_interval: 200ms
devices:
  hoppers:
    - address: 3
      value: 100
    - address: 4
      value: 50
`)

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyAMA0", cfg.Bus.Device)
	require.Equal(t, "crc16", cfg.Bus.ChecksumType)
	require.Equal(t, 200*time.Millisecond, cfg.Poll.CurrencyInterval)
	require.Len(t, cfg.Devices.Hoppers, 2)
	require.Equal(t, uint32(100), cfg.Devices.Hoppers[0].Value)
}

func TestLoadRejectsInvalidChecksumType(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "bus:\n  checksum_type: bogus\n")

	_, err := NewLoader(dir).Load()
	require.ErrorContains(t, err, "checksum_type")
}

func TestLoadRejectsZeroValueHopper(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
devices:
  hoppers:
    - address: 3
      value: 0
`)

	_, err := NewLoader(dir).Load()
	require.ErrorContains(t, err, "zero value")
}

func TestLoadRejectsMetricsEnabledWithoutAddress(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "metrics:\n  enabled: true\n  address: \"\"\n")

	_, err := NewLoader(dir).Load()
	require.ErrorContains(t, err, "metrics.address")
}

func TestWatcherReloadsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "bus:\n  device: /dev/ttyUSB0\n")

	w, err := NewWatcher(dir, nil)
	require.NoError(t, err)
	defer w.Stop()

	require.Equal(t, "/dev/ttyUSB0", w.Current().Bus.Device)

	reloaded := make(chan *Config, 1)
	w.OnChange(func(oldConfig, newConfig *Config) error {
		reloaded <- newConfig
		return nil
	})

	// lastReload starts at the zero time, so this first rewrite already
	// falls outside the debounce window.
	writeConfig(t, dir, "bus:\n  device: /dev/ttyAMA1\n")

	select {
	case cfg := <-reloaded:
		require.Equal(t, "/dev/ttyAMA1", cfg.Bus.Device)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}

func TestWatcherRejectsReloadWhenCallbackErrors(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "bus:\n  device: /dev/ttyUSB0\n")

	w, err := NewWatcher(dir, nil)
	require.NoError(t, err)
	defer w.Stop()

	w.OnChange(func(oldConfig, newConfig *Config) error {
		return require.AnError
	})

	writeConfig(t, dir, "bus:\n  device: /dev/ttyAMA1\n")
	time.Sleep(2 * time.Second)

	require.Equal(t, "/dev/ttyUSB0", w.Current().Bus.Device, "rejected reload must not replace the active config")
}

func writeConfig(t *testing.T, dir, contents string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, "cctalkd.yaml"), []byte(contents), 0o644)
	require.NoError(t, err)
}
