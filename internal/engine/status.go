package engine

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/bianoble/assetspkg/internal/config"
	"github.com/bianoble/assetspkg/internal/stamp"
)

// Group states reported by Status.
const (
	StateBuilt   = "built"   // the expected bundle exists
	StateMissing = "missing" // the expected bundle has not been written
	StatePending = "pending" // cache boosters are on but the group has no stamp yet
	StateError   = "error"   // the group's files could not be resolved
)

// StatusEngine reports what a packaging run would produce and whether
// it is already on disk.
type StatusEngine struct {
	Expander Expander
	Options  config.Options
	Stamps   *stamp.Table
}

// GroupStatus describes one configured group.
type GroupStatus struct {
	Type   AssetType
	Group  string
	Files  int
	Stamp  string
	Output string // expected bundle path, relative to the root
	Size   int64  // size of the bundle when built
	State  string
	Err    error
}

// Status returns the state of every group selected by the only filter,
// in config order.
func (e *StatusEngine) Status(ctx context.Context) ([]GroupStatus, error) {
	only := e.Options.OnlyFilter()
	p := &Packager{Options: e.Options}

	var statuses []GroupStatus
	for _, t := range Types {
		if !slices.Contains(e.Expander.AllTypes(), t) {
			continue
		}
		for _, name := range e.Expander.GroupsFor(t) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !only.Has(BundleName(t, name)) {
				continue
			}
			statuses = append(statuses, e.groupStatus(p, t, name))
		}
	}
	return statuses, nil
}

func (e *StatusEngine) groupStatus(p *Packager, t AssetType, name string) GroupStatus {
	s := GroupStatus{Type: t, Group: name}

	files, err := e.Expander.ProcessGroup(t, name, GroupOptions{Type: t.Ext(), Path: p.sourceDir(t)})
	if err != nil {
		s.State = StateError
		s.Err = err
		return s
	}
	s.Files = len(files)

	if e.Options.CacheBoosters {
		hash, ok := e.stamp(t, name)
		if !ok {
			s.State = StatePending
			return s
		}
		s.Stamp = hash
	}

	path := FinalPath(filepath.Join(p.bundleDir(t), BundleName(t, name)), s.Stamp)
	s.Output = p.rel(path)

	info, err := os.Stat(path)
	switch {
	case err == nil:
		s.State = StateBuilt
		s.Size = info.Size()
	case errors.Is(err, fs.ErrNotExist):
		s.State = StateMissing
	default:
		s.State = StateError
		s.Err = err
	}
	return s
}

func (e *StatusEngine) stamp(t AssetType, name string) (string, bool) {
	if e.Stamps == nil {
		return "", false
	}
	return e.Stamps.Get(stamp.Key(string(t), name))
}
