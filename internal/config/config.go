// Package config loads client settings from defaults, a YAML file, a .env
// file and the environment, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables.
const (
	EnvBaseURL  = "NOTEKEEPER_BASE_URL"
	EnvLogLevel = "NOTEKEEPER_LOG_LEVEL"
	EnvTimeout  = "NOTEKEEPER_TIMEOUT"
)

// FileName of the YAML config inside Dir().
const FileName = "config.yaml"

// Config holds client settings.
type Config struct {
	BaseURL        string        `yaml:"base_url"`
	LogLevel       string        `yaml:"log_level"`
	Timeout        time.Duration `yaml:"timeout"`
	EditDebounce   time.Duration `yaml:"edit_debounce"`
	ColorDebounce  time.Duration `yaml:"color_debounce"`
	SearchDebounce time.Duration `yaml:"search_debounce"`

	// Dir holds the session record. Not read from files.
	Dir string `yaml:"-"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BaseURL:       "http://localhost:8080",
		LogLevel:      "warn",
		Timeout:       30 * time.Second,
		EditDebounce:  time.Second,
		ColorDebounce: 200 * time.Millisecond,
		Dir:           Dir(),
	}
}

// Dir is $XDG_CONFIG_HOME/notekeeper or ~/.config/notekeeper.
func Dir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "notekeeper")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "notekeeper")
}

// Load builds the config. path names the YAML file; when empty
// Dir()/config.yaml is used if present. envFile names a dotenv file; when
// empty ".env" in the working directory is used if present. Values already in
// the process environment win over the dotenv file.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.Dir, FileName)
	}
	if err := readYAML(path, &cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	dotenv, err := readDotenv(envFile)
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) (string, bool) {
		if v := os.Getenv(key); v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	if v, ok := lookup(EnvBaseURL); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		cfg.Timeout = d
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readYAML(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func readDotenv(file string) (map[string]string, error) {
	explicit := file != ""
	if !explicit {
		file = ".env"
	}
	m, err := godotenv.Read(file)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	return m, nil
}

// Validate checks the URL and durations.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("base url %q: want http(s)://host", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.EditDebounce < 0 || c.ColorDebounce < 0 || c.SearchDebounce < 0 {
		return errors.New("debounce windows must not be negative")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}
