// Package stamp persists the cache-booster table: the fingerprint of every
// stamped bundle, keyed by asset type and group, in a JSON sidecar file
// beside the asset configuration.
package stamp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/tidwall/jsonc"
)

// PathFor returns the sidecar path for a configuration file:
// "<config-dir>/.<config-basename>.json".
func PathFor(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "."+filepath.Base(configPath)+".json")
}

// Load reads the sidecar at path. A missing file yields an empty table.
// Comments and trailing commas are tolerated so the file may be hand edited.
func Load(path string) (*Table, error) {
	t := NewTable()
	entries, err := readEntries(path)
	if err != nil {
		return nil, err
	}
	t.load(entries)
	return t, nil
}

func readEntries(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading stamp file %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]string{}, nil
	}

	entries := make(map[string]string)
	if err := json.Unmarshal(jsonc.ToJSON(data), &entries); err != nil {
		return nil, fmt.Errorf("parsing stamp file %s: %w", path, err)
	}
	return entries, nil
}

// Save writes the table to path. An exclusive lock on "<path>.lock" is held
// while the current file is re-read, merged with t, and replaced via a temp
// file and rename, so concurrent packager runs sharing one sidecar never
// lose each other's entries.
func Save(path string, t *Table) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking stamp file %s: %w", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	onDisk, err := readEntries(path)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(t.merged(onDisk), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling stamp table: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing temp stamp file %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming temp stamp file to %s: %w", path, err)
	}

	return nil
}
