// Package config holds the settings of an export run.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/koizuka/douban2letterboxd/douban"
	"github.com/koizuka/douban2letterboxd/letterboxd"
)

// Config is the content of the optional YAML file, merged with flags.
type Config struct {
	User      string `yaml:"user"`
	Cookie    string `yaml:"cookie"`
	Output    string `yaml:"output"`
	MaxPages  int    `yaml:"max_pages"`
	BaseURL   string `yaml:"base_url"`
	Chrome    bool   `yaml:"chrome"`
	SavePages string `yaml:"save_pages"` // directory to dump fetched pages into
	BOM       bool   `yaml:"bom"`
}

func Default() Config {
	return Config{
		Output:   letterboxd.DefaultFilename,
		MaxPages: douban.DefaultMaxPages,
		BaseURL:  douban.DefaultBaseURL,
	}
}

// Load reads a YAML file over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Overrides are values given on the command line; nil fields are unset.
type Overrides struct {
	User      *string
	Cookie    *string
	Output    *string
	MaxPages  *int
	BaseURL   *string
	Chrome    *bool
	SavePages *string
	BOM       *bool
}

// Merge applies the set fields of o over cfg.
func (cfg Config) Merge(o Overrides) Config {
	if o.User != nil {
		cfg.User = *o.User
	}
	if o.Cookie != nil {
		cfg.Cookie = *o.Cookie
	}
	if o.Output != nil {
		cfg.Output = *o.Output
	}
	if o.MaxPages != nil {
		cfg.MaxPages = *o.MaxPages
	}
	if o.BaseURL != nil {
		cfg.BaseURL = *o.BaseURL
	}
	if o.Chrome != nil {
		cfg.Chrome = *o.Chrome
	}
	if o.SavePages != nil {
		cfg.SavePages = *o.SavePages
	}
	if o.BOM != nil {
		cfg.BOM = *o.BOM
	}
	return cfg
}

var (
	ErrMissingUser   = errors.New("user is required")
	ErrMissingCookie = errors.New("cookie is required")
)

// Validate trims the values and reports the first problem found.
func (cfg *Config) Validate() error {
	cfg.User = strings.TrimSpace(cfg.User)
	cfg.Cookie = strings.TrimSpace(cfg.Cookie)
	cfg.Output = strings.TrimSpace(cfg.Output)

	if cfg.User == "" {
		return ErrMissingUser
	}
	if cfg.Cookie == "" {
		return ErrMissingCookie
	}
	if cfg.Output == "" {
		cfg.Output = letterboxd.DefaultFilename
	}
	if cfg.MaxPages <= 0 {
		return fmt.Errorf("max_pages must be positive, got %d", cfg.MaxPages)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = douban.DefaultBaseURL
	}
	return nil
}
