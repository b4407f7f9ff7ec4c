package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/amariwan/class-digest/internal/models"
	"github.com/amariwan/class-digest/internal/notify"
	"github.com/amariwan/class-digest/internal/schedule"
)

// EnvPrefix prefixes environment overrides, e.g. CLASS_DIGEST_SMTP__HOST
const EnvPrefix = "CLASS_DIGEST_"

// legacyEnv maps the older EMAIL_* credential variables onto config keys
var legacyEnv = map[string]string{
	"EMAIL_USER": "smtp.username",
	"EMAIL_PASS": "smtp.password",
	"EMAIL_FROM": "smtp.from",
	"EMAIL_TO":   "smtp.to",
}

type Config struct {
	Schedule    ScheduleConfig    `json:"schedule"`
	Exceptions  string            `json:"exceptions"`
	Timezone    string            `json:"timezone"`
	SendOnEmpty bool              `json:"send_on_empty"`
	Subject     string            `json:"subject"`
	Semester    SemesterConfig    `json:"semester"`
	SMTP        notify.SMTPConfig `json:"smtp"`

	location *time.Location
}

// ScheduleConfig locates the weekly class table
type ScheduleConfig struct {
	Path  string `json:"path"`
	Sheet string `json:"sheet"`
}

// SemesterConfig enables odd/even week handling when Start is set
type SemesterConfig struct {
	Start        string   `json:"start"`
	HolidayWeeks []string `json:"holiday_weeks"`
}

// Load reads path (YAML or JSON) when it is non-empty and applies environment
// overrides. A missing file at the default location is not an error; pass
// required=true when the path was given explicitly.
func Load(path string, required bool) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		_, statErr := os.Stat(path)
		switch {
		case statErr == nil:
			parser, err := parserFor(path)
			if err != nil {
				return nil, err
			}
			if err := k.Load(file.Provider(path), parser); err != nil {
				return nil, fmt.Errorf("failed to load config %s: %w", path, err)
			}
		case errors.Is(statErr, os.ErrNotExist) && !required:
		default:
			return nil, fmt.Errorf("failed to load config: %w", statErr)
		}
	}

	// The callbacks emit dotted keys, so "." is the nesting delimiter
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(EnvPrefix))
		key = strings.ReplaceAll(key, "__", ".")
		return key, envValue(key, value)
	}), nil); err != nil {
		return nil, err
	}
	if err := k.Load(env.ProviderWithValue("EMAIL_", ".", func(key, value string) (string, interface{}) {
		key = legacyEnv[key]
		return key, envValue(key, value)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envValue splits comma separated recipient lists, e.g. EMAIL_TO=a@x.org,b@x.org
func envValue(key, value string) interface{} {
	if key != "smtp.to" {
		return value
	}
	var to []string
	for _, addr := range strings.Split(value, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	return to
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
}

// SetDefaults looks for schedule.xlsx and exceptions.json in the working directory
func (c *Config) SetDefaults() {
	if c.Schedule.Path == "" {
		c.Schedule.Path = "schedule.xlsx"
	}
	if c.Exceptions == "" {
		c.Exceptions = "exceptions.json"
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.Subject == "" {
		c.Subject = notify.DefaultSubjectPrefix
	}
	c.SMTP.SetDefaults()
}

// Validate checks values that can be checked without touching the network
func (c *Config) Validate() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	c.location = loc

	if _, err := c.Semester.Parse(loc); err != nil {
		return err
	}
	if err := c.SMTP.Validate(); err != nil {
		return err
	}
	return nil
}

// Location returns the timezone used to decide what "today" is
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// Parse converts the semester dates. The zero Semester disables parity handling.
func (s SemesterConfig) Parse(loc *time.Location) (schedule.Semester, error) {
	if s.Start == "" {
		if len(s.HolidayWeeks) > 0 {
			return schedule.Semester{}, errors.New("semester.holiday_weeks requires semester.start")
		}
		return schedule.Semester{}, nil
	}

	start, err := time.ParseInLocation(models.DateLayout, s.Start, loc)
	if err != nil {
		return schedule.Semester{}, fmt.Errorf("invalid semester.start %q: want YYYY-MM-DD", s.Start)
	}
	sem := schedule.Semester{Start: start}
	for _, raw := range s.HolidayWeeks {
		hw, err := time.ParseInLocation(models.DateLayout, raw, loc)
		if err != nil {
			return schedule.Semester{}, fmt.Errorf("invalid semester.holiday_weeks entry %q: want YYYY-MM-DD", raw)
		}
		sem.HolidayWeeks = append(sem.HolidayWeeks, hw)
	}
	return sem, nil
}

// Secrets lists credential values that must never appear in logs
func (c *Config) Secrets() []string {
	return []string{c.SMTP.Password}
}
