package engine

import "fmt"

// AssetType is the kind of bundle a group produces.
type AssetType string

const (
	Stylesheets AssetType = "stylesheets"
	Scripts     AssetType = "javascripts"
)

// Types lists every asset type in processing order.
var Types = []AssetType{Stylesheets, Scripts}

// Ext returns the extension of the type's bundles, without the dot.
func (t AssetType) Ext() string {
	switch t {
	case Stylesheets:
		return "css"
	case Scripts:
		return "js"
	}
	return ""
}

// ParseAssetType maps a config section name to its AssetType.
func ParseAssetType(s string) (AssetType, bool) {
	for _, t := range Types {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// GroupOptions tells an expander where a type's sources live.
type GroupOptions struct {
	Type string // file extension, e.g. "css"
	Path string // absolute source directory
}

// ListOptions scopes a pattern listing.
type ListOptions struct {
	Type string // file extension to keep; empty keeps everything
	Root string // absolute directory the pattern is relative to
}

// Expander supplies the groups of a packaging run and the files in each.
type Expander interface {
	// AllTypes returns the asset types present in the config.
	AllTypes() []AssetType

	// GroupsFor returns the groups of a type in config order.
	GroupsFor(t AssetType) []string

	// ProcessGroup returns the absolute paths of a group's files in
	// concatenation order.
	ProcessGroup(t AssetType, group string, opts GroupOptions) ([]string, error)

	// ProcessList returns the absolute paths of files matching pattern.
	ProcessList(pattern string, opts ListOptions) ([]string, error)
}

// BundleResult describes one processed group.
type BundleResult struct {
	Type     AssetType
	Group    string
	Files    int      // source files concatenated
	Hash     string   // empty unless cache boosters are on
	Outputs  []string // absolute paths written
	Bytes    int      // size of the primary plain payload
	Warnings []string
}

// Result holds the outcome of a packaging run.
type Result struct {
	Precompiled []string // stylesheet sources compiled to CSS
	Bundles     []BundleResult
}

// Outputs returns every file written by the run.
func (r *Result) Outputs() []string {
	var out []string
	for _, b := range r.Bundles {
		out = append(out, b.Outputs...)
	}
	return out
}

// GroupError attributes a failure to the group being processed.
type GroupError struct {
	Type  AssetType
	Group string
	Err   error
}

func (e *GroupError) Error() string {
	return fmt.Sprintf("%s group '%s': %s", e.Type, e.Group, e.Err)
}

func (e *GroupError) Unwrap() error {
	return e.Err
}
