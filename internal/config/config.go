// Package config loads the host configuration for a bridge run.
//
// Precedence is defaults, then the YAML file, then command-line flags that
// were explicitly set. The CLI applies the last step.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/wasmbridge/internal/bridge"
	"github.com/roach88/wasmbridge/internal/engine"
	"github.com/roach88/wasmbridge/internal/payload"
	"github.com/roach88/wasmbridge/internal/trigger"
)

// Config holds every tunable of a run.
type Config struct {
	// TickRate is engine ticks per second.
	TickRate float64 `yaml:"tick_rate"`

	// Drain is the poll policy: "one" or "all".
	Drain string `yaml:"drain"`

	// Format is the payload text format: json, yaml or cue.
	Format string `yaml:"format"`

	// Schema is a CUE schema file used when Format is cue. Empty means the
	// built-in schema for the example payload.
	Schema string `yaml:"schema,omitempty"`

	// MaxBytes limits the size of an uploaded file. Zero disables the limit.
	MaxBytes int64 `yaml:"max_bytes"`

	// WatchDir, if set, is watched for new or rewritten files to upload.
	WatchDir string `yaml:"watch_dir,omitempty"`

	// Pattern selects which files in WatchDir are uploaded.
	Pattern string `yaml:"pattern"`

	// Journal is the path of the delivery journal. Empty disables it.
	Journal string `yaml:"journal,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		TickRate: engine.DefaultTickRate,
		Drain:    bridge.DrainOne.String(),
		Format:   payload.FormatJSON,
		MaxBytes: trigger.DefaultMaxBytes,
		Pattern:  "*.json",
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default values; unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	// Relative paths in the file are relative to the file.
	base := filepath.Dir(path)
	cfg.Schema = resolve(base, cfg.Schema)
	cfg.WatchDir = resolve(base, cfg.WatchDir)
	cfg.Journal = resolve(base, cfg.Journal)

	return cfg, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error

	if c.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("tick_rate must be positive, got %v", c.TickRate))
	}
	if _, err := bridge.ParsePolicy(c.Drain); err != nil {
		errs = append(errs, err)
	}
	if !validFormat(c.Format) {
		errs = append(errs, fmt.Errorf("format %q: must be one of %v", c.Format, payload.ValidFormats))
	}
	if c.Schema != "" && c.Format != payload.FormatCUE {
		errs = append(errs, fmt.Errorf("schema is only used with format %q", payload.FormatCUE))
	}
	if c.MaxBytes < 0 {
		errs = append(errs, fmt.Errorf("max_bytes must not be negative, got %d", c.MaxBytes))
	}
	if _, err := filepath.Match(c.Pattern, ""); err != nil {
		errs = append(errs, fmt.Errorf("pattern %q: %w", c.Pattern, err))
	}

	return errors.Join(errs...)
}

// Policy returns the parsed drain policy. Call Validate first.
func (c Config) Policy() bridge.Policy {
	p, _ := bridge.ParsePolicy(c.Drain)
	return p
}

// Decoder builds the payload decoder the config describes, reading the CUE
// schema file if one is set.
func Decoder[T any](c Config) (payload.Decoder[T], error) {
	schema := ""
	if c.Schema != "" {
		data, err := os.ReadFile(c.Schema)
		if err != nil {
			return nil, fmt.Errorf("read schema: %w", err)
		}
		schema = string(data)
	}
	return payload.NewDecoder[T](c.Format, schema)
}

func validFormat(f string) bool {
	for _, v := range payload.ValidFormats {
		if v == f {
			return true
		}
	}
	return false
}
