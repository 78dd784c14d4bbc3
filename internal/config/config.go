// Package config loads xtraydock settings from a TOML file with
// environment overrides and watches the file for changes.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jezek/xgb/xproto"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/bnema/xtraydock/internal/logging"
	"github.com/bnema/xtraydock/internal/tray"
)

// EnvPrefix prefixes every environment override, e.g. XTRAYDOCK_TRAY_POSITION.
const EnvPrefix = "XTRAYDOCK"

type Config struct {
	Tray TrayConfig `toml:"tray" envconfig:"TRAY"`
	Bar  BarConfig  `toml:"bar" envconfig:"BAR"`
	Log  LogConfig  `toml:"log" envconfig:"LOG"`
}

type TrayConfig struct {
	Position        string   `toml:"position" envconfig:"POSITION"`
	Orientation     string   `toml:"orientation" envconfig:"ORIENTATION"`
	X               int      `toml:"x" envconfig:"X"`
	Y               int      `toml:"y" envconfig:"Y"`
	OffsetX         int      `toml:"offset_x" envconfig:"OFFSET_X"`
	OffsetY         int      `toml:"offset_y" envconfig:"OFFSET_Y"`
	Spacing         uint     `toml:"spacing" envconfig:"SPACING"`
	IconSize        uint     `toml:"icon_size" envconfig:"ICON_SIZE"`
	Background      string   `toml:"background" envconfig:"BACKGROUND"`
	Foreground      string   `toml:"foreground" envconfig:"FOREGROUND"`
	Detached        bool     `toml:"detached" envconfig:"DETACHED"`
	DetachedWidth   uint     `toml:"detached_width" envconfig:"DETACHED_WIDTH"`
	DetachedHeight  uint     `toml:"detached_height" envconfig:"DETACHED_HEIGHT"`
	ActivationDelay Duration `toml:"activation_delay" envconfig:"ACTIVATION_DELAY"`
}

type BarConfig struct {
	Window uint32 `toml:"window" envconfig:"WINDOW"`
	Width  uint   `toml:"width" envconfig:"WIDTH"`
	Height uint   `toml:"height" envconfig:"HEIGHT"`
}

type LogConfig struct {
	Level       string `toml:"level" envconfig:"LEVEL"`
	Development bool   `toml:"development" envconfig:"DEVELOPMENT"`
}

// Duration decodes "1s"-style strings from both TOML and the environment.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func Default() Config {
	return Config{
		Tray: TrayConfig{
			Position:        "right",
			Orientation:     "horizontal",
			Spacing:         2,
			IconSize:        16,
			Background:      "#222222",
			Foreground:      "#dfdfdf",
			Detached:        true,
			ActivationDelay: Duration{time.Second},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/xtraydock/config.toml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "xtraydock", "config.toml")
}

// Load reads path on top of the defaults, then applies environment
// overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := toml.Unmarshal(content, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("env overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := tray.ParsePosition(c.Tray.Position); err != nil {
		return err
	}
	if _, err := tray.ParseOrientation(c.Tray.Orientation); err != nil {
		return err
	}
	if c.Tray.IconSize == 0 {
		return errors.New("tray icon_size must be positive")
	}
	if _, err := ParseColor(c.Tray.Background); err != nil {
		return fmt.Errorf("tray background: %w", err)
	}
	if _, err := ParseColor(c.Tray.Foreground); err != nil {
		return fmt.Errorf("tray foreground: %w", err)
	}
	if c.Tray.ActivationDelay.Duration < 0 {
		return errors.New("tray activation_delay must not be negative")
	}
	return nil
}

// Settings converts the configuration into tray settings.
func (c Config) Settings() (tray.Settings, error) {
	position, err := tray.ParsePosition(c.Tray.Position)
	if err != nil {
		return tray.Settings{}, err
	}
	orientation, err := tray.ParseOrientation(c.Tray.Orientation)
	if err != nil {
		return tray.Settings{}, err
	}
	bg, err := ParseColor(c.Tray.Background)
	if err != nil {
		return tray.Settings{}, fmt.Errorf("tray background: %w", err)
	}
	fg, err := ParseColor(c.Tray.Foreground)
	if err != nil {
		return tray.Settings{}, fmt.Errorf("tray foreground: %w", err)
	}

	detached := c.Tray.Detached || c.Bar.Window == 0
	return tray.Settings{
		Position:     position,
		Orientation:  orientation,
		Pos:          tray.Point{X: c.Tray.X, Y: c.Tray.Y},
		Offset:       tray.Point{X: c.Tray.OffsetX, Y: c.Tray.OffsetY},
		Spacing:      c.Tray.Spacing,
		ClientSize:   tray.Size{Width: c.Tray.IconSize, Height: c.Tray.IconSize},
		Background:   bg,
		Foreground:   fg,
		Detached:     detached,
		DetachedSize: tray.Size{Width: c.Tray.DetachedWidth, Height: c.Tray.DetachedHeight},
		BarWindow:    xproto.Window(c.Bar.Window),
		BarSize:      tray.Size{Width: c.Bar.Width, Height: c.Bar.Height},
	}, nil
}

func (c Config) Logging() logging.Config {
	return logging.Config{
		Level:       c.Log.Level,
		Development: c.Log.Development,
	}
}
