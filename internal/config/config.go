// Package config resolves the settings of one artefactos session from
// defaults, an optional YAML file, ARTEFACTOS_* environment variables and
// command line flags, in that order of precedence.
package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-artefacts/pkg/logger"
	"github.com/goliatone/go-artefacts/pkg/renderers/document"
	"github.com/goliatone/go-artefacts/pkg/transport"
)

// EnvPrefix prefixes every environment variable read by Resolve.
const EnvPrefix = "ARTEFACTOS_"

// ErrMissingProject is returned when no project id is configured for an
// online session.
var ErrMissingProject = errors.New("config: project id is required unless offline")

// Config holds everything a session needs to reach its backend.
type Config struct {
	BaseURL      string `yaml:"base_url"`
	ProjectID    string `yaml:"project_id"`
	Token        string `yaml:"token"`
	Offline      bool   `yaml:"offline"`
	Locale       string `yaml:"locale"`
	LogLevel     string `yaml:"log_level"`
	LogFile      string `yaml:"log_file"`
	Theme        string `yaml:"theme"`
	ThemeVariant string `yaml:"theme_variant"`
	OpenAPI      string `yaml:"openapi"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BaseURL:  "http://127.0.0.1:8000",
		Locale:   "es",
		LogLevel: "info",
		Theme:    document.DefaultTheme,
	}
}

// Flags are the command line bindings registered by Bind.
type Flags struct {
	set    *flag.FlagSet
	path   string
	values Config
}

// Bind registers one flag per configuration key on set.
func Bind(set *flag.FlagSet) *Flags {
	f := &Flags{set: set}
	set.StringVar(&f.path, "config", "", "YAML configuration file")
	set.StringVar(&f.values.BaseURL, "base-url", "", "backend base URL")
	set.StringVar(&f.values.ProjectID, "project", "", "project id")
	set.StringVar(&f.values.Token, "token", "", "bearer token")
	set.BoolVar(&f.values.Offline, "offline", false, "use the in-memory demo backend")
	set.StringVar(&f.values.Locale, "locale", "", "locale for dates (es, en, ...)")
	set.StringVar(&f.values.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	set.StringVar(&f.values.LogFile, "log-file", "", "log file path (stderr if empty)")
	set.StringVar(&f.values.Theme, "theme", "", "document theme name")
	set.StringVar(&f.values.ThemeVariant, "theme-variant", "", "document theme variant")
	set.StringVar(&f.values.OpenAPI, "openapi", "", "backend OpenAPI document used for required fields")
	return f
}

// Resolve merges every source into a validated Config. getenv may be nil to
// read the process environment.
func Resolve(flags *Flags, getenv func(string) string) (Config, error) {
	return resolve(flags, getenv, (*Config).Validate)
}

// ResolveAccount is Resolve for commands that work on the account's project
// list and need no project id.
func ResolveAccount(flags *Flags, getenv func(string) string) (Config, error) {
	return resolve(flags, getenv, (*Config).ValidateAccount)
}

func resolve(flags *Flags, getenv func(string) string, validate func(*Config) error) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Default()

	path := getenv(EnvPrefix + "CONFIG")
	if flags != nil && flags.path != "" {
		path = flags.path
	}
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	if flags != nil {
		flags.apply(&cfg)
	}
	if err := validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile decodes a YAML document over cfg. Keys the document omits keep
// their current value.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return decode(data, path, cfg)
}

func decode(data []byte, path string, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"BASE_URL", &cfg.BaseURL},
		{"PROJECT", &cfg.ProjectID},
		{"TOKEN", &cfg.Token},
		{"LOCALE", &cfg.Locale},
		{"LOG_LEVEL", &cfg.LogLevel},
		{"LOG_FILE", &cfg.LogFile},
		{"THEME", &cfg.Theme},
		{"THEME_VARIANT", &cfg.ThemeVariant},
		{"OPENAPI", &cfg.OpenAPI},
	}
	for _, s := range strs {
		if v := strings.TrimSpace(getenv(EnvPrefix + s.key)); v != "" {
			*s.dst = v
		}
	}
	if raw := strings.TrimSpace(getenv(EnvPrefix + "OFFLINE")); raw != "" {
		offline, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("config: %sOFFLINE: %w", EnvPrefix, err)
		}
		cfg.Offline = offline
	}
	return nil
}

func (f *Flags) apply(cfg *Config) {
	if f.set == nil {
		return
	}
	f.set.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "base-url":
			cfg.BaseURL = f.values.BaseURL
		case "project":
			cfg.ProjectID = f.values.ProjectID
		case "token":
			cfg.Token = f.values.Token
		case "offline":
			cfg.Offline = f.values.Offline
		case "locale":
			cfg.Locale = f.values.Locale
		case "log-level":
			cfg.LogLevel = f.values.LogLevel
		case "log-file":
			cfg.LogFile = f.values.LogFile
		case "theme":
			cfg.Theme = f.values.Theme
		case "theme-variant":
			cfg.ThemeVariant = f.values.ThemeVariant
		case "openapi":
			cfg.OpenAPI = f.values.OpenAPI
		}
	})
}

// Validate normalises cfg and reports the first invalid setting. The demo
// project always runs offline and an offline session without a project uses
// the demo project.
func (c *Config) Validate() error {
	return c.validate(true)
}

// ValidateAccount is Validate without the project id requirement.
func (c *Config) ValidateAccount() error {
	return c.validate(false)
}

func (c *Config) validate(needProject bool) error {
	c.ProjectID = strings.TrimSpace(c.ProjectID)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")

	if c.ProjectID == transport.DemoProject {
		c.Offline = true
	}
	if c.ProjectID == "" && needProject {
		if !c.Offline {
			return ErrMissingProject
		}
		c.ProjectID = transport.DemoProject
	}
	if !c.Offline {
		u, err := url.Parse(c.BaseURL)
		if err != nil {
			return fmt.Errorf("config: base url: %w", err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config: base url %q must be absolute http(s)", c.BaseURL)
		}
	}
	if _, err := language.Parse(c.Locale); err != nil {
		return fmt.Errorf("config: locale %q: %w", c.Locale, err)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
