// Package sandbox keeps every write of a packaging run inside the asset root.
package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirMode is the permission used for directories created under the root.
const DirMode os.FileMode = 0775

// ValidatePath checks if targetPath is safely within root.
// targetPath may be absolute or relative to root. Symlinks are resolved
// for the longest existing prefix before containment is checked.
// Returns the resolved absolute path or an error.
func ValidatePath(root, targetPath string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("resolving root symlinks: %w", err)
	}

	var candidate string
	if filepath.IsAbs(targetPath) {
		candidate, err = resolveExistingPath(filepath.Clean(targetPath))
	} else {
		candidate, err = resolveExistingPath(filepath.Clean(filepath.Join(realRoot, targetPath)))
	}
	if err != nil {
		return "", fmt.Errorf("resolving target path: %w", err)
	}

	// Trailing separator avoids prefix matching "root2" for "root".
	rootPrefix := realRoot + string(filepath.Separator)
	if candidate != realRoot && !strings.HasPrefix(candidate, rootPrefix) {
		return "", fmt.Errorf("path '%s' resolves to '%s' which is outside the asset root '%s'", targetPath, candidate, realRoot)
	}

	return candidate, nil
}

// resolveExistingPath resolves symlinks for the longest existing prefix of the path,
// then appends the non-existing suffix. This handles paths that don't fully exist yet.
func resolveExistingPath(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)

	if dir == path {
		return path, nil
	}

	resolvedDir, err := resolveExistingPath(dir)
	if err != nil {
		return "", err
	}

	return filepath.Join(resolvedDir, base), nil
}

// Materialize creates every missing directory between root and dir, one
// segment at a time from root downward. dir must be root or a descendant
// of it. A segment created concurrently by another worker is not an error;
// a segment that exists as a non-directory is.
func Materialize(root, dir string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving directory: %w", err)
	}

	rel, err := filepath.Rel(absRoot, absDir)
	if err != nil {
		return fmt.Errorf("directory %s is not under root %s: %w", absDir, absRoot, err)
	}
	if rel == "." {
		return nil
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("directory %s is outside the asset root %s", absDir, absRoot)
	}

	current := absRoot
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		current = filepath.Join(current, part)

		err := os.Mkdir(current, DirMode)
		if err == nil {
			continue
		}
		if !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("creating directory %s: %w", current, err)
		}
		info, statErr := os.Stat(current)
		if statErr != nil {
			return fmt.Errorf("checking directory %s: %w", current, statErr)
		}
		if !info.IsDir() {
			return fmt.Errorf("creating directory %s: a file with that name exists", current)
		}
	}
	return nil
}

// SafeWrite atomically writes content to a path within root. The parent
// directory must already exist (see Materialize).
func SafeWrite(root, path string, content []byte, perm os.FileMode) error {
	resolved, err := ValidatePath(root, path)
	if err != nil {
		return err
	}

	// Temp file in the same directory keeps the rename on one filesystem.
	dir := filepath.Dir(resolved)
	tmp, err := os.CreateTemp(dir, ".assetspkg-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", resolved, err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}

	if err := os.Rename(tmpPath, resolved); err != nil {
		return fmt.Errorf("renaming temp file to %s: %w", resolved, err)
	}

	success = true
	return nil
}
