package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/bianoble/assetspkg/internal/config"
)

// processType processes every selected group of t with at most
// Options.Concurrent groups in flight. Groups start in config order; the
// first failure cancels the groups still running.
func (p *Packager) processType(ctx context.Context, t AssetType, only *config.OnlyFilter) ([]BundleResult, error) {
	if !p.hasType(t) || !only.HasExtension(t.Ext()) {
		p.Logger.Debug("skipping asset type", "type", t)
		return nil, nil
	}

	var groups []string
	for _, name := range p.Expander.GroupsFor(t) {
		if only.Has(BundleName(t, name)) {
			groups = append(groups, name)
		}
	}

	results := make([]*BundleResult, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit())
	for i, name := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := p.processGroup(gctx, t, name)
			if err != nil {
				return &GroupError{Type: t, Group: name, Err: err}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]BundleResult, 0, len(results))
	for _, r := range results {
		out = append(out, *r)
	}
	return out, nil
}
