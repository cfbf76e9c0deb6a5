package config

import (
	"sort"
	"strings"
)

// OnlyFilter selects output files by exact name ("all.css") or by type
// wildcard ("*.css"). A nil filter selects everything.
type OnlyFilter struct {
	names     map[string]bool
	wildcards map[string]bool // extension -> every group of that type
}

// ParseOnly parses a comma-separated list of output filenames.
// Returns nil for an empty or blank list.
func ParseOnly(list string) *OnlyFilter {
	f := &OnlyFilter{
		names:     make(map[string]bool),
		wildcards: make(map[string]bool),
	}
	for _, part := range strings.Split(list, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if strings.HasPrefix(name, "*.") {
			f.wildcards[strings.TrimPrefix(name, "*.")] = true
			continue
		}
		f.names[name] = true
	}
	if len(f.names) == 0 && len(f.wildcards) == 0 {
		return nil
	}
	return f
}

// Has reports whether the output file name (e.g. "all.css") is selected.
func (f *OnlyFilter) Has(name string) bool {
	if f == nil {
		return true
	}
	if f.names[name] {
		return true
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return f.wildcards[name[i+1:]]
	}
	return false
}

// HasExtension reports whether any selected output has the extension.
func (f *OnlyFilter) HasExtension(ext string) bool {
	if f == nil {
		return true
	}
	if f.wildcards[ext] {
		return true
	}
	suffix := "." + ext
	for name := range f.names {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// HasCSS reports whether any stylesheet output is selected.
func (f *OnlyFilter) HasCSS() bool { return f.HasExtension("css") }

// HasJS reports whether any script output is selected.
func (f *OnlyFilter) HasJS() bool { return f.HasExtension("js") }

// String returns the filter in its canonical comma-separated form.
func (f *OnlyFilter) String() string {
	if f == nil {
		return ""
	}
	parts := make([]string, 0, len(f.names)+len(f.wildcards))
	for ext := range f.wildcards {
		parts = append(parts, "*."+ext)
	}
	for name := range f.names {
		parts = append(parts, name)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
