package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/bianoble/assetspkg/internal/digest"
	"github.com/bianoble/assetspkg/internal/sandbox"
	"github.com/bianoble/assetspkg/internal/stamp"
	"github.com/bianoble/assetspkg/internal/transform"
)

// output is one file a group writes.
type output struct {
	path string
	data []byte
}

// processGroup builds and writes every variant of one group's bundle.
func (p *Packager) processGroup(ctx context.Context, t AssetType, name string) (*BundleResult, error) {
	files, err := p.Expander.ProcessGroup(t, name, GroupOptions{Type: t.Ext(), Path: p.sourceDir(t)})
	if err != nil {
		return nil, fmt.Errorf("resolving files: %w", err)
	}

	base := filepath.Join(p.bundleDir(t), BundleName(t, name))
	if err := sandbox.Materialize(p.Options.Root, filepath.Dir(base)); err != nil {
		return nil, err
	}

	sources, err := p.readSources(ctx, files)
	if err != nil {
		return nil, err
	}

	res := &BundleResult{Type: t, Group: name, Files: len(files)}
	var outputs []output

	switch t {
	case Stylesheets:
		styles, err := p.Styles.Process(sources, transform.EnhanceOptions{
			RootPath:       p.Options.Root,
			Pregzip:        p.Options.Gzip,
			ForceEmbed:     p.Options.CSS.EmbedAll,
			NoEmbedVersion: p.Options.SafeEmbed(),
			AssetHosts:     p.Options.CSS.AssetHosts,
			CryptedStamp:   p.Options.CacheBoosters,
		})
		if err != nil {
			return nil, err
		}
		for _, w := range styles.Warnings {
			p.Logger.Warn("asset reference left as written", "group", name, "reason", w)
		}

		res.Hash = p.stampFor(t, name, styles.Embedded.Plain)
		res.Bytes = len(styles.Embedded.Plain)
		res.Warnings = styles.Warnings

		final := FinalPath(base, res.Hash)
		outputs = appendVariant(outputs, final, styles.Embedded)
		if styles.HasNotEmbedded() {
			outputs = appendVariant(outputs, NoEmbedPath(final), styles.NotEmbedded)
		}

	case Scripts:
		script, err := p.Scripts.Process(sources, transform.ScriptOptions{
			Minify:      p.Options.MinifyJS(),
			LineBreakAt: p.Options.JS.LineBreakAt,
			Indent:      p.Options.JS.Indent,
		})
		if err != nil {
			return nil, err
		}

		res.Hash = p.stampFor(t, name, script)
		res.Bytes = len(script)

		variant := transform.Variant{Plain: script}
		if p.Options.Gzip {
			if variant.Compressed, err = transform.Gzip(script); err != nil {
				return nil, err
			}
		}
		outputs = appendVariant(outputs, FinalPath(base, res.Hash), variant)

	default:
		return nil, fmt.Errorf("unknown asset type %q", t)
	}

	if err := p.writeOutputs(outputs); err != nil {
		return nil, err
	}
	for _, o := range outputs {
		res.Outputs = append(res.Outputs, o.path)
	}

	p.Logger.Info("processed group", "type", t, "group", name, "files", len(files))
	return res, nil
}

// stampFor hashes the primary payload and records it in the stamp table
// when cache boosters are on. It returns the empty string otherwise.
func (p *Packager) stampFor(t AssetType, name string, payload []byte) string {
	if !p.Options.CacheBoosters {
		return ""
	}
	hash := digest.Sum(payload)
	p.Stamps.Set(stamp.Key(string(t), name), hash)
	return hash
}

// readSources reads files concurrently, keeping their order.
func (p *Packager) readSources(ctx context.Context, files []string) ([][]byte, error) {
	sources := make([][]byte, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit())
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading %s: %w", file, err)
			}
			sources[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}

// writeOutputs writes every variant at once.
func (p *Packager) writeOutputs(outputs []output) error {
	var g errgroup.Group
	for _, o := range outputs {
		g.Go(func() error {
			if err := sandbox.SafeWrite(p.Options.Root, o.path, o.data, 0644); err != nil {
				return fmt.Errorf("writing %s: %w", p.rel(o.path), err)
			}
			return nil
		})
	}
	return g.Wait()
}

func appendVariant(outputs []output, path string, v transform.Variant) []output {
	outputs = append(outputs, output{path: path, data: v.Plain})
	if v.Compressed != nil {
		outputs = append(outputs, output{path: GzipPath(path), data: v.Compressed})
	}
	return outputs
}
