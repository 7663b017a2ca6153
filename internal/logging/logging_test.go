package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/cctalk/cctalk-host/internal/config"
)

func TestNewFallsBackToInfoOnBadLevel(t *testing.T) {
	logger := New(config.LogConfig{Level: "not-a-level"})
	require.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestNewWritesToFileWhenPathIsSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cctalkd.log")

	logger := New(config.LogConfig{Level: "info", FilePath: path})
	logger.Info("hello")

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestReconfigureAppliesNewLevel(t *testing.T) {
	logger := New(config.LogConfig{Level: "info"})
	require.NoError(t, Reconfigure(logger, config.LogConfig{Level: "warn"}))
	require.Equal(t, logrus.WarnLevel, logger.GetLevel())
}

func TestReconfigureRejectsBadLevel(t *testing.T) {
	logger := New(config.LogConfig{Level: "info"})
	err := Reconfigure(logger, config.LogConfig{Level: "nonsense"})
	require.Error(t, err)
	require.Equal(t, logrus.InfoLevel, logger.GetLevel(), "a rejected reconfigure must not change the active level")
}
