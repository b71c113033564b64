// Package config loads and validates the daemon's on-disk configuration
// (spec §3, §6.2): device selection, gesture tunables, and the gesture ->
// action string mapping. Grounded on the teacher's
// internal/config.Config/LoadConfig/SaveConfig TOML shape.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"github.com/char5742/magicmoused/internal/coreerr"
	"github.com/char5742/magicmoused/internal/gesture"
)

// DeviceConfig selects which input device node to read (spec §4.1).
type DeviceConfig struct {
	Path        string `toml:"path"`
	AutoDetect  bool   `toml:"auto_detect"`
	NamePattern string `toml:"name_pattern"`
}

// GestureConfig holds the tuned thresholds from spec §6.2.
type GestureConfig struct {
	ScrollThresholdRaw          float64 `toml:"scroll_threshold"`
	SwipeThresholdRaw           float64 `toml:"swipe_threshold"`
	PinchThreshold              float64 `toml:"pinch_threshold"`
	TapTimeoutMs                int64   `toml:"tap_timeout_ms"`
	DebounceMs                  int64   `toml:"debounce_ms"`
	TwoFingerTapTimeoutMs       int64   `toml:"two_finger_tap_timeout_ms"`
	TwoFingerTapDistanceMM      float64 `toml:"two_finger_tap_distance_threshold"`
	ContactPressureThreshold    float64 `toml:"contact_pressure_threshold"`
	SimultaneousContactWindowMs int64   `toml:"simultaneous_contact_window_ms"`
}

// Config is the full process configuration, constructed once at startup and
// read-only for the process lifetime thereafter (spec §3 "Lifecycle";
// spec §9 "avoid module-level singletons").
type Config struct {
	Device  DeviceConfig      `toml:"device"`
	Gesture GestureConfig     `toml:"gesture"`
	Actions map[string]string `toml:"actions"`
}

// Default returns the built-in defaults from spec §6.2, with the action
// map the source prototype shipped (xdotool-driven bindings).
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			AutoDetect:  true,
			NamePattern: "Magic Mouse",
		},
		Gesture: GestureConfig{
			ScrollThresholdRaw:          50,
			SwipeThresholdRaw:           100,
			PinchThreshold:              0.1,
			TapTimeoutMs:                300,
			DebounceMs:                  100,
			TwoFingerTapTimeoutMs:       250,
			TwoFingerTapDistanceMM:      30,
			ContactPressureThreshold:    50,
			SimultaneousContactWindowMs: 100,
		},
		Actions: map[string]string{
			"tap_1finger":         "click",
			"tap_2finger":         "right_click",
			"swipe_left_2finger":  "xdotool key alt+Right",
			"swipe_right_2finger": "xdotool key alt+Left",
			"swipe_up_2finger":    "xdotool key ctrl+t",
			"swipe_down_2finger":  "xdotool key ctrl+w",
			"scroll_vertical":     "scroll_vertical",
			"scroll_horizontal":   "scroll_horizontal",
			"pinch_in":            "xdotool key ctrl+minus",
			"pinch_out":           "xdotool key ctrl+plus",
			"button_left":         "",
			"button_right":        "",
			"button_middle":       "",
		},
	}
}

// DefaultPath resolves the default configuration file location under the
// user's XDG config home (~/.config/magicmoused/config.toml), rather than
// the teacher's fixed relative path, since this daemon is meant to run as
// a per-user service.
func DefaultPath() string {
	path, err := xdg.ConfigFile(filepath.Join("magicmoused", "config.toml"))
	if err != nil {
		return filepath.Join(".", "magicmoused.toml")
	}
	return path
}

// Load reads path, filling in spec-default values for any key the document
// omits (missing keys take defaults, spec §6.2), and validates the result.
// If path does not exist, the defaults are written there and returned, so a
// fresh install gets an editable starting point.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", coreerr.ErrConfigInvalid, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating its parent directory if needed.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create config dir %s: %v", coreerr.ErrConfigInvalid, dir, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", coreerr.ErrConfigInvalid, path, err)
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Validate rejects configuration documents whose values could never
// correspond to a sane pipeline (spec §7 ConfigInvalid: "fatal at startup
// with a message identifying the offending key").
func (c *Config) Validate() error {
	switch {
	case c.Gesture.ScrollThresholdRaw <= 0:
		return fmt.Errorf("%w: gesture.scroll_threshold must be > 0", coreerr.ErrConfigInvalid)
	case c.Gesture.SwipeThresholdRaw <= 0:
		return fmt.Errorf("%w: gesture.swipe_threshold must be > 0", coreerr.ErrConfigInvalid)
	case c.Gesture.PinchThreshold <= 0:
		return fmt.Errorf("%w: gesture.pinch_threshold must be > 0", coreerr.ErrConfigInvalid)
	case c.Gesture.TapTimeoutMs <= 0:
		return fmt.Errorf("%w: gesture.tap_timeout_ms must be > 0", coreerr.ErrConfigInvalid)
	case c.Gesture.DebounceMs < 0:
		return fmt.Errorf("%w: gesture.debounce_ms must be >= 0", coreerr.ErrConfigInvalid)
	case c.Gesture.TwoFingerTapTimeoutMs <= 0:
		return fmt.Errorf("%w: gesture.two_finger_tap_timeout_ms must be > 0", coreerr.ErrConfigInvalid)
	case c.Gesture.TwoFingerTapDistanceMM <= 0:
		return fmt.Errorf("%w: gesture.two_finger_tap_distance_threshold must be > 0", coreerr.ErrConfigInvalid)
	case c.Gesture.ContactPressureThreshold < 0 || c.Gesture.ContactPressureThreshold > 100:
		return fmt.Errorf("%w: gesture.contact_pressure_threshold must be within 0..100", coreerr.ErrConfigInvalid)
	case c.Gesture.SimultaneousContactWindowMs < 0:
		return fmt.Errorf("%w: gesture.simultaneous_contact_window_ms must be >= 0", coreerr.ErrConfigInvalid)
	case !c.Device.AutoDetect && c.Device.Path == "":
		return fmt.Errorf("%w: device.path is required when auto_detect is false", coreerr.ErrConfigInvalid)
	}
	return nil
}

// Thresholds converts the millisecond/raw-unit config fields into the
// gesture.Thresholds the Recognizer consumes.
func (c *Config) Thresholds() gesture.Thresholds {
	g := c.Gesture
	return gesture.Thresholds{
		ScrollThreshold:           g.ScrollThresholdRaw,
		SwipeThreshold:            g.SwipeThresholdRaw,
		PinchThreshold:            g.PinchThreshold,
		TapTimeout:                time.Duration(g.TapTimeoutMs) * time.Millisecond,
		DebounceWindow:            time.Duration(g.DebounceMs) * time.Millisecond,
		TwoFingerTapTimeout:       time.Duration(g.TwoFingerTapTimeoutMs) * time.Millisecond,
		TwoFingerTapDistanceMM:    g.TwoFingerTapDistanceMM,
		ContactPressureThreshold:  g.ContactPressureThreshold,
		SimultaneousContactWindow: time.Duration(g.SimultaneousContactWindowMs) * time.Millisecond,
	}
}

// TapArchiveWindow is the completed-contact archive GC window (spec §9:
// "bounded by tap_timeout_ms x 2").
func (c *Config) TapArchiveWindow() time.Duration {
	return time.Duration(c.Gesture.TapTimeoutMs) * time.Millisecond * 2
}
