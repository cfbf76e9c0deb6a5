// Package expander reads asset groups from an assets.yml file and
// resolves their entries to source files.
//
// The file maps an asset type to its groups, and each group to an
// ordered list of entries:
//
//	stylesheets:
//	  all:
//	    - reset
//	    - site/*
//	javascripts:
//	  app:
//	    - vendor/**/*
//	    - application
//
// Entries are relative to the type's source directory, carry no
// extension, and may use doublestar globs.
package expander

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/bianoble/assetspkg/internal/engine"
)

// Group is a named, ordered list of entries.
type Group struct {
	Name    string
	Entries []string
	Line    int
}

// Expander implements engine.Expander over a parsed assets.yml.
type Expander struct {
	path   string
	groups map[engine.AssetType][]Group
}

// Load reads and parses the groups file at path.
func Load(path string) (*Expander, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses groups from data. path labels errors.
func Parse(data []byte, path string) (*Expander, error) {
	e := &Expander{path: path, groups: make(map[engine.AssetType][]Group)}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return e, nil
	}

	root := doc.Content[0]
	if isNull(root) {
		return e, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, e.errorf(root, "expected a mapping of asset types")
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		t, ok := engine.ParseAssetType(key.Value)
		if !ok {
			return nil, e.errorf(key, "unknown section '%s' (expected stylesheets or javascripts)", key.Value)
		}
		if _, dup := e.groups[t]; dup {
			return nil, e.errorf(key, "section '%s' is defined twice", key.Value)
		}
		groups, err := e.parseGroups(value)
		if err != nil {
			return nil, err
		}
		e.groups[t] = groups
	}
	return e, nil
}

func (e *Expander) parseGroups(node *yaml.Node) ([]Group, error) {
	if isNull(node) {
		return []Group{}, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, e.errorf(node, "expected a mapping of group names to entries")
	}

	groups := make([]Group, 0, len(node.Content)/2)
	seen := make(map[string]bool)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		name := strings.TrimSpace(key.Value)
		if err := validateGroupName(name); err != nil {
			return nil, e.errorf(key, "%v", err)
		}
		if seen[name] {
			return nil, e.errorf(key, "group '%s' is defined twice", name)
		}
		seen[name] = true

		entries, err := e.parseEntries(value)
		if err != nil {
			return nil, err
		}
		groups = append(groups, Group{Name: name, Entries: entries, Line: key.Line})
	}
	return groups, nil
}

func (e *Expander) parseEntries(node *yaml.Node) ([]string, error) {
	switch {
	case isNull(node):
		return nil, nil
	case node.Kind == yaml.ScalarNode:
		return []string{node.Value}, nil
	case node.Kind != yaml.SequenceNode:
		return nil, e.errorf(node, "expected a list of entries")
	}

	entries := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode || strings.TrimSpace(item.Value) == "" {
			return nil, e.errorf(item, "entries must be non-empty strings")
		}
		entries = append(entries, strings.TrimSpace(item.Value))
	}
	return entries, nil
}

func validateGroupName(name string) error {
	switch {
	case name == "":
		return errors.New("group name must not be empty")
	case strings.HasPrefix(name, "/") || filepath.IsAbs(name):
		return fmt.Errorf("group name '%s' must be relative", name)
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("group name '%s' has an invalid path segment", name)
		}
	}
	return nil
}

func (e *Expander) errorf(node *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("%s:%d: %s", e.path, node.Line, fmt.Sprintf(format, args...))
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}

// Path returns the file the groups were read from.
func (e *Expander) Path() string {
	return e.path
}

// AllTypes implements engine.Expander. A type with an empty section
// counts as absent.
func (e *Expander) AllTypes() []engine.AssetType {
	var types []engine.AssetType
	for _, t := range engine.Types {
		if len(e.groups[t]) > 0 {
			types = append(types, t)
		}
	}
	return types
}

// GroupsFor implements engine.Expander.
func (e *Expander) GroupsFor(t engine.AssetType) []string {
	names := make([]string, 0, len(e.groups[t]))
	for _, g := range e.groups[t] {
		names = append(names, g.Name)
	}
	return names
}

// Groups returns the parsed groups of t in file order.
func (e *Expander) Groups(t engine.AssetType) []Group {
	return e.groups[t]
}

// ProcessGroup implements engine.Expander. Each entry gets the type's
// extension and is matched under opts.Path; files matched by an earlier
// entry keep their first position. An entry that matches nothing is an
// error.
func (e *Expander) ProcessGroup(t engine.AssetType, group string, opts engine.GroupOptions) ([]string, error) {
	g, ok := e.lookup(t, group)
	if !ok {
		return nil, fmt.Errorf("no %s group named '%s' in %s", t, group, e.path)
	}

	var files []string
	seen := make(map[string]bool)
	for _, entry := range g.Entries {
		matches, err := matchEntry(opts.Path, entry, opts.Type)
		if err != nil {
			return nil, fmt.Errorf("%s group '%s': entry '%s': %w", t, group, entry, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%s group '%s': entry '%s' matches no files under %s", t, group, entry, opts.Path)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}

// ProcessList implements engine.Expander. A missing root lists nothing.
func (e *Expander) ProcessList(pattern string, opts engine.ListOptions) ([]string, error) {
	info, err := os.Stat(opts.Root)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", opts.Root, err)
	}

	matches, err := doublestar.Glob(os.DirFS(opts.Root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("listing %s in %s: %w", pattern, opts.Root, err)
	}
	sort.Strings(matches)

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		if opts.Type != "" && path.Ext(m) != "."+opts.Type {
			continue
		}
		files = append(files, filepath.Join(opts.Root, filepath.FromSlash(m)))
	}
	return files, nil
}

func (e *Expander) lookup(t engine.AssetType, name string) (Group, bool) {
	for _, g := range e.groups[t] {
		if g.Name == name {
			return g, true
		}
	}
	return Group{}, false
}

// matchEntry resolves one entry to absolute file paths in glob order.
func matchEntry(root, entry, ext string) ([]string, error) {
	pattern := strings.TrimPrefix(filepath.ToSlash(entry), "/")
	if suffix := "." + ext; ext != "" && !strings.HasSuffix(pattern, suffix) {
		pattern += suffix
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern '%s'", pattern)
	}
	if clean := path.Clean(pattern); clean == ".." || strings.HasPrefix(clean, "../") {
		return nil, errors.New("entries must stay inside the source directory")
	}

	if !strings.ContainsAny(pattern, "*?[{") {
		full := filepath.Join(root, filepath.FromSlash(pattern))
		info, err := os.Stat(full)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return nil, nil
		}
		return []string{full}, nil
	}

	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	files := make([]string, len(matches))
	for i, m := range matches {
		files[i] = filepath.Join(root, filepath.FromSlash(m))
	}
	return files, nil
}
