// Package config loads and validates the YAML configuration file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"remindd/pkg/engine"
	"remindd/pkg/gateway"
	"remindd/pkg/sched"
)

// Duration wraps time.Duration so YAML values read as "10m" or "24h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("bad duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full daemon configuration.
type Config struct {
	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path"`

	// Sources are the ICS subscription files to watch.
	Sources []gateway.Source `yaml:"sources"`

	// Timezone for quiet-window arithmetic, e.g. "Europe/Berlin". Empty
	// means the system's local zone.
	Timezone string `yaml:"timezone"`

	LogLevel string `yaml:"log_level"`

	// Calendar expansion.
	DefaultReminder Duration `yaml:"default_reminder"`
	Lookback        Duration `yaml:"lookback"`
	Horizon         Duration `yaml:"horizon"`
	MaxOccurrences  int      `yaml:"max_occurrences"`
	RefreshTTL      Duration `yaml:"refresh_ttl"`

	// Engine.
	SafetyThreshold Duration `yaml:"safety_threshold"`
	ScanCap         int      `yaml:"scan_cap"`
	RetentionDays   int      `yaml:"retention_days"`
	PollInterval    Duration `yaml:"poll_interval"`

	// Presentation.
	MaxVisible int `yaml:"max_visible"`

	// Quiet window bounds, 24h local clock ("22:00", "07:30"). Both must
	// be set to enable the window.
	QuietStart string `yaml:"quiet_start"`
	QuietEnd   string `yaml:"quiet_end"`

	// Alarm planning.
	ReminderInterval Duration `yaml:"reminder_interval"`
	SnoozeDefault    Duration `yaml:"snooze_default"`
	SnoozeStep       Duration `yaml:"snooze_step"`
	Guard            Duration `yaml:"guard"`
	AggressiveGuard  Duration `yaml:"aggressive_guard"`
	Aggressive       bool     `yaml:"aggressive"`
	ExactAlarms      bool     `yaml:"exact_alarms"`

	quiet sched.QuietConfig
	loc   *time.Location
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DBPath:           "remindd.db",
		LogLevel:         "info",
		DefaultReminder:  Duration(10 * time.Minute),
		Lookback:         Duration(24 * time.Hour),
		Horizon:          Duration(14 * 24 * time.Hour),
		RefreshTTL:       Duration(5 * time.Minute),
		SafetyThreshold:  Duration(2 * time.Second),
		ScanCap:          100,
		RetentionDays:    30,
		PollInterval:     Duration(5 * time.Minute),
		MaxVisible:       4,
		ReminderInterval: Duration(30 * time.Minute),
		SnoozeDefault:    Duration(10 * time.Minute),
		SnoozeStep:       Duration(time.Second),
		Guard:            Duration(2 * time.Second),
		AggressiveGuard:  Duration(time.Second),
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged (still normalized).
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.Normalize(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Normalize validates the configuration and derives internal state.
func (c *Config) Normalize() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path must be set")
	}
	if c.ScanCap <= 0 {
		return fmt.Errorf("scan_cap must be positive, got %d", c.ScanCap)
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("retention_days must be positive, got %d", c.RetentionDays)
	}
	if c.MaxVisible < 2 {
		return fmt.Errorf("max_visible must be at least 2, got %d", c.MaxVisible)
	}
	seen := make(map[string]bool)
	for _, s := range c.Sources {
		if s.ID == "" || s.Path == "" {
			return fmt.Errorf("source needs id and path: %+v", s)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate source id %q", s.ID)
		}
		seen[s.ID] = true
	}

	loc := time.Local
	if c.Timezone != "" {
		l, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return fmt.Errorf("bad timezone %q: %w", c.Timezone, err)
		}
		loc = l
	}
	c.loc = loc

	switch {
	case c.QuietStart == "" && c.QuietEnd == "":
		c.quiet = sched.QuietConfig{}
	case c.QuietStart == "" || c.QuietEnd == "":
		return fmt.Errorf("quiet_start and quiet_end must both be set")
	default:
		start, err := parseClockMinute(c.QuietStart)
		if err != nil {
			return fmt.Errorf("quiet_start: %w", err)
		}
		end, err := parseClockMinute(c.QuietEnd)
		if err != nil {
			return fmt.Errorf("quiet_end: %w", err)
		}
		c.quiet = sched.QuietConfig{Enabled: true, StartMinute: start, EndMinute: end}
	}
	return nil
}

// Location returns the configured timezone.
func (c *Config) Location() *time.Location { return c.loc }

// Quiet returns the derived quiet-window configuration.
func (c *Config) Quiet() sched.QuietConfig { return c.quiet }

// Retention returns the ledger retention window.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// GatewayOptions maps the config onto ICS gateway options.
func (c *Config) GatewayOptions() gateway.Options {
	return gateway.Options{
		DefaultReminder:        c.DefaultReminder.Std(),
		Lookback:               c.Lookback.Std(),
		Horizon:                c.Horizon.Std(),
		MaxOccurrencesPerEvent: c.MaxOccurrences,
		RefreshTTL:             c.RefreshTTL.Std(),
	}
}

// EngineOptions maps the config onto engine options.
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		SafetyThreshold: c.SafetyThreshold.Std(),
		ScanCap:         c.ScanCap,
		SnoozeStep:      c.SnoozeStep.Std(),
		Quiet:           c.quiet,
	}
}

// SchedOptions maps the config onto planner options.
func (c *Config) SchedOptions() sched.Options {
	return sched.Options{
		Guard:            c.Guard.Std(),
		AggressiveGuard:  c.AggressiveGuard.Std(),
		Aggressive:       c.Aggressive,
		Exact:            c.ExactAlarms,
		ReminderInterval: c.ReminderInterval.Std(),
		Quiet:            c.quiet,
	}
}

// parseClockMinute parses "HH:MM" into minutes after midnight.
func parseClockMinute(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	return h*60 + m, nil
}
