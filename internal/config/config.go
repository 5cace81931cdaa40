// Package config loads the mdreveal command configuration.
//
// Values are resolved in order of precedence:
//   - command line flags (applied by the caller)
//   - environment variables (MDREVEAL_*)
//   - the TOML file given with --config, or $XDG_CONFIG_HOME/mdreveal/config.toml
//   - built-in defaults
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"pkt.systems/mdreveal"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the command configuration.
type Config struct {
	Theme string `toml:"theme"`
	// Width is the wrap width; 0 uses the terminal width.
	Width int `toml:"width"`
	// OSC8 is one of auto, on or off.
	OSC8   string       `toml:"osc8"`
	Timing TimingConfig `toml:"timing"`

	StripFrontMatter bool `toml:"strip_front_matter"`
	JoinParagraphs   bool `toml:"join_paragraphs"`
	TrimFences       bool `toml:"trim_incomplete_fences"`

	MathCacheSize int    `toml:"math_cache_size"`
	LogLevel      string `toml:"log_level"`
}

// TimingConfig holds reveal delays in milliseconds.
type TimingConfig struct {
	TextDelayMS       int `toml:"text_delay_ms"`
	CodeLineDelayMS   int `toml:"code_line_delay_ms"`
	InlineCodeDelayMS int `toml:"inline_code_delay_ms"`
}

// Default returns the built-in configuration.
func Default() *Config {
	t := mdreveal.DefaultTiming()
	return &Config{
		Theme: "default",
		OSC8:  "auto",
		Timing: TimingConfig{
			TextDelayMS:       int(t.Text / time.Millisecond),
			CodeLineDelayMS:   int(t.CodeLine / time.Millisecond),
			InlineCodeDelayMS: int(t.InlineCode / time.Millisecond),
		},
		StripFrontMatter: true,
		MathCacheSize:    mdreveal.DefaultMathCacheSize,
		LogLevel:         "warn",
	}
}

// DefaultPath returns the path of the per-user config file.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine config directory: %w", err)
	}
	return filepath.Join(dir, "mdreveal", "config.toml"), nil
}

// Load reads the config file at path. An empty path selects DefaultPath, which may be
// missing; an explicit path must exist. Environment overrides are applied and the
// result is validated.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return finish(Default())
		}
		path = p
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return finish(Default())
		}
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return LoadFromPath(path)
}

// LoadFromPath decodes the TOML file at path over the defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TOML config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalid, path, strings.Join(keys, ", "))
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides applies MDREVEAL_* environment variables.
func (c *Config) ApplyEnvOverrides() error {
	if v := os.Getenv("MDREVEAL_THEME"); v != "" {
		c.Theme = v
	}
	if v := os.Getenv("MDREVEAL_OSC8"); v != "" {
		c.OSC8 = v
	}
	if v := os.Getenv("MDREVEAL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	ints := []struct {
		name string
		dst  *int
	}{
		{"MDREVEAL_WIDTH", &c.Width},
		{"MDREVEAL_TEXT_DELAY_MS", &c.Timing.TextDelayMS},
		{"MDREVEAL_CODE_LINE_DELAY_MS", &c.Timing.CodeLineDelayMS},
		{"MDREVEAL_INLINE_CODE_DELAY_MS", &c.Timing.InlineCodeDelayMS},
		{"MDREVEAL_MATH_CACHE_SIZE", &c.MathCacheSize},
	}
	for _, e := range ints {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, e.name, v)
		}
		*e.dst = n
	}
	return nil
}

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate reports every invalid field. The returned error wraps ErrInvalid.
func (c *Config) Validate() error {
	var errs []string
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}.Error())
	}
	if _, ok := mdreveal.ThemeByName(c.Theme); !ok {
		add("theme", "unknown theme %q", c.Theme)
	}
	if c.Width < 0 {
		add("width", "must be >= 0, got %d", c.Width)
	}
	switch strings.ToLower(strings.TrimSpace(c.OSC8)) {
	case "", "auto", "on", "off", "true", "false", "1", "0", "yes", "no":
	default:
		add("osc8", "invalid value %q, must be one of: auto, on, off", c.OSC8)
	}
	for _, d := range []struct {
		field string
		ms    int
	}{
		{"timing.text_delay_ms", c.Timing.TextDelayMS},
		{"timing.code_line_delay_ms", c.Timing.CodeLineDelayMS},
		{"timing.inline_code_delay_ms", c.Timing.InlineCodeDelayMS},
	} {
		if d.ms < 0 {
			add(d.field, "must be >= 0, got %d", d.ms)
		}
	}
	if c.MathCacheSize < 0 {
		add("math_cache_size", "must be >= 0, got %d", c.MathCacheSize)
	}
	if _, err := c.Level(); err != nil {
		add("log_level", "%v", err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(errs, "; "))
	}
	return nil
}

// RevealTiming converts the millisecond delays.
func (c *Config) RevealTiming() mdreveal.Timing {
	return mdreveal.Timing{
		Text:       time.Duration(c.Timing.TextDelayMS) * time.Millisecond,
		CodeLine:   time.Duration(c.Timing.CodeLineDelayMS) * time.Millisecond,
		InlineCode: time.Duration(c.Timing.InlineCodeDelayMS) * time.Millisecond,
	}
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn, err
	}
	return level, nil
}
