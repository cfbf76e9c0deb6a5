package stamp

import (
	"sort"
	"sync"
)

// Table maps "<type>/<group>" keys to bundle fingerprints.
// It is safe for concurrent use. Keys set during a run are remembered so
// Save can prefer them over whatever is on disk at save time.
type Table struct {
	mu      sync.Mutex
	entries map[string]string
	dirty   map[string]bool
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		entries: make(map[string]string),
		dirty:   make(map[string]bool),
	}
}

// Key builds the table key for a group of the given asset type.
func Key(assetType, group string) string {
	return assetType + "/" + group
}

// Set records hash under key.
func (t *Table) Set(key, hash string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[key] = hash
	t.dirty[key] = true
}

// Get returns the hash stored under key.
func (t *Table) Get(key string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	hash, ok := t.entries[key]
	return hash, ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Snapshot returns a copy of all entries.
func (t *Table) Snapshot() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := make(map[string]string, len(t.entries))
	for k, v := range t.entries {
		cp[k] = v
	}
	return cp
}

// Changed returns the keys set since the table was loaded, sorted.
func (t *Table) Changed() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := make([]string, 0, len(t.dirty))
	for k := range t.dirty {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// load installs entries read from disk without marking them changed.
func (t *Table) load(entries map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range entries {
		t.entries[k] = v
	}
}

// merged overlays this table on top of onDisk. Keys set during the run
// win; keys only loaded at startup fill gaps but never clobber newer
// values written by someone else in the meantime.
func (t *Table) merged(onDisk map[string]string) map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]string, len(onDisk)+len(t.entries))
	for k, v := range onDisk {
		out[k] = v
	}
	for k, v := range t.entries {
		if _, exists := out[k]; !exists || t.dirty[k] {
			out[k] = v
		}
	}
	return out
}
