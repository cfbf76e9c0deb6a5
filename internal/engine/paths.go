package engine

import (
	"path/filepath"
	"strings"
)

const noEmbedSuffix = "-noembed"

// FinalPath returns the bundle path for base, stamped with hash when one
// is given: "all.css" becomes "all-<hash>.css".
func FinalPath(base, hash string) string {
	if hash == "" {
		return base
	}
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "-" + hash + ext
}

// NoEmbedPath returns the path of the non-embedding variant of a
// stylesheet bundle.
func NoEmbedPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + noEmbedSuffix + ext
}

// GzipPath returns the path of a bundle's compressed sibling.
func GzipPath(path string) string {
	return path + ".gz"
}

// BundleName is the unstamped file name of a group's bundle.
func BundleName(t AssetType, group string) string {
	return group + "." + t.Ext()
}
