package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const optionsFileName = "options.toml"
const projectOptionsFileName = "assetspkg.toml"
const configDirName = "assetspkg"

// Level represents the precedence level of an options file.
type Level string

const (
	LevelUser     Level = "user"
	LevelProject  Level = "project"
	LevelExplicit Level = "explicit"
)

// LayerInfo describes a discovered options file and its load status.
type LayerInfo struct {
	Err    error // non-nil if the file exists but failed to load
	Path   string
	Level  Level
	Loaded bool
}

// DiscoverOptions controls how options files are discovered.
type DiscoverOptions struct {
	// ConfigPath is the asset groups file; the project layer sits beside it.
	ConfigPath string

	// UserPath overrides the default user options path.
	// Empty means use the OS default. Set to a nonexistent path to skip.
	UserPath string

	// ExplicitPath is an options file named on the command line. It must exist.
	ExplicitPath string

	// NoInherit skips the user layer.
	NoInherit bool
}

// DiscoverPaths returns the ordered list of options files to check,
// from lowest precedence (user) to highest (explicit).
// Paths are deduplicated by resolved absolute path.
func DiscoverPaths(opts DiscoverOptions) []LayerInfo {
	var layers []LayerInfo
	seen := make(map[string]bool)

	addLayer := func(level Level, path string) {
		if path == "" {
			return
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if seen[abs] {
			return
		}
		seen[abs] = true
		layers = append(layers, LayerInfo{Path: path, Level: level})
	}

	if !opts.NoInherit {
		userPath := opts.UserPath
		if userPath == "" {
			userPath = defaultUserOptionsPath()
		}
		addLayer(LevelUser, userPath)
	}

	if opts.ConfigPath != "" {
		addLayer(LevelProject, filepath.Join(filepath.Dir(opts.ConfigPath), projectOptionsFileName))
	}

	addLayer(LevelExplicit, opts.ExplicitPath)

	return layers
}

// LoadLayers decodes every existing layer onto opts in order, so later
// layers win. Missing user and project files are skipped; a missing
// explicit file is an error. The returned slice records what was loaded.
func LoadLayers(layers []LayerInfo, opts *Options) ([]LayerInfo, error) {
	out := make([]LayerInfo, len(layers))
	copy(out, layers)

	for i := range out {
		_, err := os.Stat(out[i].Path)
		if errors.Is(err, fs.ErrNotExist) {
			if out[i].Level == LevelExplicit {
				return out, fmt.Errorf("options file %s does not exist", out[i].Path)
			}
			continue
		}
		if err != nil {
			out[i].Err = err
			return out, fmt.Errorf("checking options file %s: %w", out[i].Path, err)
		}

		if err := LoadFile(out[i].Path, opts); err != nil {
			out[i].Err = err
			return out, err
		}
		out[i].Loaded = true
	}
	return out, nil
}

// defaultUserOptionsPath returns the platform-standard user options path.
func defaultUserOptionsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, configDirName, optionsFileName)
}

// EnvNoInherit returns true if ASSETSPKG_NO_INHERIT is set to "1" or "true".
func EnvNoInherit() bool {
	return envBoolTrue("ASSETSPKG_NO_INHERIT")
}

// envBoolTrue returns true if the env var is set to "1" or "true" (case-insensitive).
func envBoolTrue(key string) bool {
	v := os.Getenv(key)
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true"
}
