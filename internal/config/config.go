// CLAUDE:SUMMARY YAML configuration with defaults, validation, .env loading and ACTREC_* overrides.
// Package config loads the recorder service configuration from a YAML file,
// with overrides from the environment (and an optional .env file).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/actrec/action"
	"github.com/hazyhaar/actrec/internal/safe"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ACTREC_"

// Config is the top-level configuration.
type Config struct {
	Browser  BrowserConfig  `yaml:"browser"`
	Recorder RecorderConfig `yaml:"recorder"`
	Sinks    []SinkConfig   `yaml:"sinks"`
	Store    StoreConfig    `yaml:"store"`
	Server   ServerConfig   `yaml:"server"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	Mode             string        `yaml:"mode"` // headless | headful
	Xvfb             bool          `yaml:"xvfb"`
	XvfbDisplay      string        `yaml:"xvfb_display"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	Stealth          bool          `yaml:"stealth"`
	UserDataDir      string        `yaml:"user_data_dir"`
	NavigateTimeout  time.Duration `yaml:"navigate_timeout"`
}

// RecorderConfig selects the captured event types. Empty means all.
type RecorderConfig struct {
	Events []string `yaml:"events"`
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type    string `yaml:"type"`    // stdout | file | webhook | store
	URL     string `yaml:"url"`     // webhook
	Path    string `yaml:"path"`    // file: may contain {id}
	Retries int    `yaml:"retries"` // webhook
}

// StoreConfig locates the SQLite session archive. Empty Path disables it.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig controls the control surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	MCP  bool   `yaml:"mcp"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Browser.Mode == "" {
		c.Browser.Mode = "headful"
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 30 * time.Second
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8321"
	}
	if len(c.Sinks) == 0 {
		c.Sinks = []SinkConfig{{Type: "stdout"}}
	}
	for i := range c.Sinks {
		if c.Sinks[i].Type == "webhook" && c.Sinks[i].Retries <= 0 {
			c.Sinks[i].Retries = 3
		}
	}
}

// Validate reports configuration errors, joined.
func (c *Config) Validate() error {
	var errs []error
	switch c.Browser.Mode {
	case "headless", "headful":
	default:
		errs = append(errs, fmt.Errorf("config: browser.mode %q: want headless or headful", c.Browser.Mode))
	}
	for _, e := range c.Recorder.Events {
		if !action.Type(e).Valid() {
			errs = append(errs, fmt.Errorf("config: recorder.events: unknown type %q", e))
		}
	}
	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "file":
			if s.Path == "" {
				errs = append(errs, fmt.Errorf("config: sinks[%d]: file sink needs a path", i))
			}
		case "webhook":
			if s.URL == "" {
				errs = append(errs, fmt.Errorf("config: sinks[%d]: webhook sink needs a url", i))
			} else if err := safe.ValidateURL(s.URL, "http", "https"); err != nil {
				errs = append(errs, fmt.Errorf("config: sinks[%d]: %w", i, err))
			}
		case "store":
			if c.Store.Path == "" {
				errs = append(errs, fmt.Errorf("config: sinks[%d]: store sink needs store.path", i))
			}
		default:
			errs = append(errs, fmt.Errorf("config: sinks[%d]: unknown type %q", i, s.Type))
		}
	}
	return errors.Join(errs...)
}

// EventTypes returns the configured event types, nil for all.
func (c *Config) EventTypes() []action.Type {
	if len(c.Recorder.Events) == 0 {
		return nil
	}
	out := make([]action.Type, 0, len(c.Recorder.Events))
	for _, e := range c.Recorder.Events {
		out = append(out, action.Type(e))
	}
	return out
}

// LoadDotEnv loads .env style files into the process environment without
// overriding variables already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from ACTREC_* variables found through lookup
// (os.LookupEnv in production), then re-validates.
//
//	ACTREC_REMOTE        browser.remote
//	ACTREC_MODE          browser.mode
//	ACTREC_XVFB          browser.xvfb (bool)
//	ACTREC_STEALTH       browser.stealth (bool)
//	ACTREC_USER_DATA_DIR browser.user_data_dir
//	ACTREC_EVENTS        recorder.events (comma separated)
//	ACTREC_STORE         store.path
//	ACTREC_ADDR          server.addr
//	ACTREC_WEBHOOK       appends a webhook sink
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}
	var errs []error
	getBool := func(name string, dst *bool) {
		v, ok := get(name)
		if !ok {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = b
	}

	if v, ok := get("REMOTE"); ok {
		c.Browser.Remote = v
	}
	if v, ok := get("MODE"); ok {
		c.Browser.Mode = v
	}
	getBool("XVFB", &c.Browser.Xvfb)
	getBool("STEALTH", &c.Browser.Stealth)
	if v, ok := get("USER_DATA_DIR"); ok {
		c.Browser.UserDataDir = v
	}
	if v, ok := get("EVENTS"); ok {
		c.Recorder.Events = nil
		for _, e := range strings.Split(v, ",") {
			if e = strings.TrimSpace(e); e != "" {
				c.Recorder.Events = append(c.Recorder.Events, e)
			}
		}
	}
	if v, ok := get("STORE"); ok {
		c.Store.Path = v
	}
	if v, ok := get("ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := get("WEBHOOK"); ok {
		c.Sinks = append(c.Sinks, SinkConfig{Type: "webhook", URL: v, Retries: 3})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return c.Validate()
}
