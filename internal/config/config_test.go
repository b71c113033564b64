package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/char5742/magicmoused/internal/coreerr"
)

func TestLoad_MissingFileWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Gesture, cfg.Gesture)
	assert.FileExists(t, path)

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Gesture, reloaded.Gesture)
}

func TestLoad_PartialDocumentKeepsDefaultsForOmittedKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	// Only scroll_threshold is present; every other key, and the whole
	// [device] table, is omitted and must keep Default()'s values.
	require.NoError(t, os.WriteFile(path, []byte("[gesture]\nscroll_threshold = 1\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.Gesture.ScrollThresholdRaw)
	assert.Equal(t, Default().Gesture.SwipeThresholdRaw, cfg.Gesture.SwipeThresholdRaw)
	assert.Equal(t, Default().Device, cfg.Device)
}

func TestValidate_RejectsNonPositiveThresholds(t *testing.T) {
	cfg := Default()
	cfg.Gesture.SwipeThresholdRaw = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, coreerr.ErrConfigInvalid))
}

func TestValidate_RejectsMissingPathWithoutAutoDetect(t *testing.T) {
	cfg := Default()
	cfg.Device.AutoDetect = false
	cfg.Device.Path = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, coreerr.ErrConfigInvalid))
}

func TestThresholds_ConvertsMillisecondsToDuration(t *testing.T) {
	cfg := Default()
	th := cfg.Thresholds()
	assert.Equal(t, cfg.Gesture.TapTimeoutMs, th.TapTimeout.Milliseconds())
	assert.Equal(t, cfg.Gesture.DebounceMs, th.DebounceWindow.Milliseconds())
}
