// Package config loads sfmap settings from a YAML file and SFMAP_*
// environment variables. Command-line flags are applied on top by the CLI.
//
// Precedence, lowest first: defaults, file, environment, flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "SFMAP_"

// Config holds the settings shared by all commands.
type Config struct {
	// MappingPaths are the search roots for mapping definition files, in
	// lookup order.
	MappingPaths []string `yaml:"mapping_paths"`

	// Format is the definition file format: xml, yaml or cue.
	Format string `yaml:"format"`

	// Database is the SQLite file holding links and pending events.
	Database string `yaml:"database"`

	// Schema is an optional declared persistence schema used for offline
	// validation.
	Schema string `yaml:"schema"`

	// Cache memoises loaded metadata per class.
	Cache bool `yaml:"cache"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		MappingPaths: []string{"mappings"},
		Format:       "xml",
		Database:     "sfmap.db",
		Cache:        true,
	}
}

// Load reads the file at path over the defaults, then applies the process
// environment. An empty path skips the file.
//
// Relative paths inside the file are resolved against the file's directory.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.resolveRelative(filepath.Dir(path))
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults without touching the environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) resolveRelative(dir string) {
	for i, p := range c.MappingPaths {
		c.MappingPaths[i] = resolve(dir, p)
	}
	c.Database = resolve(dir, c.Database)
	c.Schema = resolve(dir, c.Schema)
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// ApplyEnv overrides settings from SFMAP_* variables found by lookup.
// SFMAP_MAPPING_PATHS uses the OS path list separator.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefix + "MAPPING_PATHS"); ok {
		c.MappingPaths = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "FORMAT"); ok {
		c.Format = v
	}
	if v, ok := lookup(EnvPrefix + "DATABASE"); ok {
		c.Database = v
	}
	if v, ok := lookup(EnvPrefix + "SCHEMA"); ok {
		c.Schema = v
	}
	if v, ok := lookup(EnvPrefix + "CACHE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sCACHE: %w", EnvPrefix, err)
		}
		c.Cache = b
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range filepath.SplitList(v) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the settings are usable.
func (c Config) Validate() error {
	if len(c.MappingPaths) == 0 {
		return errors.New("config: at least one mapping path is required")
	}
	switch strings.ToLower(c.Format) {
	case "", "xml", "yaml", "yml", "cue":
	default:
		return fmt.Errorf("config: unknown format %q (must be xml, yaml or cue)", c.Format)
	}
	return nil
}
