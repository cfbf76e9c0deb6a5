package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// LoadFile decodes the TOML options file at path on top of opts. Keys
// absent from the file leave the existing values untouched, which is what
// lets option layers stack.
func LoadFile(path string, opts *Options) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open options %s: %w", path, err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(opts); err != nil {
		return fmt.Errorf("parse options %s: %w", path, err)
	}
	return nil
}

// Normalize fills derived defaults and makes paths absolute. The config
// path defaults to "<root>/../config/assets.yml".
func (o *Options) Normalize() error {
	if o.Root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
		o.Root = wd
	}
	root, err := filepath.Abs(o.Root)
	if err != nil {
		return fmt.Errorf("resolving root %s: %w", o.Root, err)
	}
	o.Root = root

	if o.Config == "" {
		o.Config = filepath.Join(o.Root, "..", "config", "assets.yml")
	}
	cfg, err := filepath.Abs(o.Config)
	if err != nil {
		return fmt.Errorf("resolving config %s: %w", o.Config, err)
	}
	o.Config = cfg

	o.CSS.Source = cleanRel(o.CSS.Source)
	o.CSS.BundleTo = cleanRel(o.CSS.BundleTo)
	o.JS.Source = cleanRel(o.JS.Source)
	o.JS.BundleTo = cleanRel(o.JS.BundleTo)
	o.Only = strings.TrimSpace(o.Only)
	return nil
}

func cleanRel(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return filepath.Clean(filepath.FromSlash(p))
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("options validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks Options for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(o *Options) []string {
	var errs []string

	if o.Concurrent < 1 {
		errs = append(errs, fmt.Sprintf("concurrency must be at least 1, got %d", o.Concurrent))
	}
	if o.JS.LineBreakAt < 0 {
		errs = append(errs, fmt.Sprintf("js.line_break_at must not be negative, got %d", o.JS.LineBreakAt))
	}
	if o.JS.Indent < 0 {
		errs = append(errs, fmt.Sprintf("js.indent must not be negative, got %d", o.JS.Indent))
	}

	errs = append(errs, validateRel("css.source", o.CSS.Source)...)
	errs = append(errs, validateRel("css.bundle_to", o.CSS.BundleTo)...)
	errs = append(errs, validateRel("js.source", o.JS.Source)...)
	errs = append(errs, validateRel("js.bundle_to", o.JS.BundleTo)...)

	if o.CSS.AssetHosts != "" && strings.ContainsAny(o.CSS.AssetHosts, "/ ") {
		errs = append(errs, fmt.Sprintf("css.asset_hosts '%s' must be a bare host pattern such as assets[0-3].example.com", o.CSS.AssetHosts))
	}

	return errs
}

func validateRel(name, p string) []string {
	switch {
	case p == "":
		return []string{fmt.Sprintf("%s is required", name)}
	case filepath.IsAbs(p):
		return []string{fmt.Sprintf("%s '%s' must be relative to the root", name, p)}
	case p == ".." || strings.HasPrefix(p, ".."+string(filepath.Separator)):
		return []string{fmt.Sprintf("%s '%s' escapes the root", name, p)}
	}
	return nil
}

// ConfigError reports a missing config file or root directory, detected
// before any processing starts.
type ConfigError struct {
	Path string
	Err  error
	msg  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%q %s", e.Path, e.msg)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// CheckPaths verifies that the config file and the root directory exist.
// The config file is checked first.
func (o *Options) CheckPaths() error {
	if _, err := os.Stat(o.Config); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ConfigError{Path: o.Config, Err: err, msg: "is missing"}
		}
		return &ConfigError{Path: o.Config, Err: err, msg: "could not be read"}
	}

	info, err := os.Stat(o.Root)
	if err != nil {
		return &ConfigError{Path: o.Root, Err: err, msg: "could not be found"}
	}
	if !info.IsDir() {
		return &ConfigError{Path: o.Root, Err: fs.ErrInvalid, msg: "could not be found"}
	}
	return nil
}

// Resolve normalizes and validates opts in one step.
func Resolve(opts *Options) error {
	if err := opts.Normalize(); err != nil {
		return err
	}
	if errs := Validate(opts); len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
