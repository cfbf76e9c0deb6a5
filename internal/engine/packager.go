package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bianoble/assetspkg/internal/config"
	"github.com/bianoble/assetspkg/internal/logging"
	"github.com/bianoble/assetspkg/internal/sandbox"
	"github.com/bianoble/assetspkg/internal/stamp"
	"github.com/bianoble/assetspkg/internal/transform"
)

// precompilePattern selects the stylesheet sources compiled before grouping.
const precompilePattern = "**/*.less"

// Packager runs one packaging pass: precompile stylesheets, process the
// stylesheet groups, process the script groups, persist cache stamps.
type Packager struct {
	Expander Expander
	Compiler transform.StyleCompiler // nil skips precompilation
	Styles   *transform.StylePipeline
	Scripts  *transform.ScriptPipeline
	Stamps   *stamp.Table
	Options  config.Options
	Logger   *slog.Logger

	// StampPath is the sidecar file written when cache boosters are on.
	// Empty means the default beside the config file.
	StampPath string
}

// New returns a Packager wired with the default stages.
func New(opts config.Options, exp Expander, stamps *stamp.Table, logger *slog.Logger) *Packager {
	if stamps == nil {
		stamps = stamp.NewTable()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Packager{
		Expander: exp,
		Compiler: &transform.LessCompiler{},
		Styles:   transform.NewStylePipeline(),
		Scripts:  transform.NewScriptPipeline(),
		Stamps:   stamps,
		Options:  opts,
		Logger:   logger,
	}
}

type phase struct {
	name string
	run  func(ctx context.Context) error
}

// Run executes every phase in order. Each phase drains before the next
// starts; the first error stops the run and files already written stay.
func (p *Packager) Run(ctx context.Context) (*Result, error) {
	if p.Logger == nil {
		p.Logger = logging.Discard()
	}
	if p.Stamps == nil {
		p.Stamps = stamp.NewTable()
	}

	only := p.Options.OnlyFilter()
	result := &Result{}

	phases := []phase{
		{"precompile", func(ctx context.Context) error {
			compiled, err := p.precompile(ctx, only)
			result.Precompiled = compiled
			return err
		}},
		{string(Stylesheets), func(ctx context.Context) error {
			bundles, err := p.processType(ctx, Stylesheets, only)
			result.Bundles = append(result.Bundles, bundles...)
			return err
		}},
		{string(Scripts), func(ctx context.Context) error {
			bundles, err := p.processType(ctx, Scripts, only)
			result.Bundles = append(result.Bundles, bundles...)
			return err
		}},
		{"persist", p.persist},
	}

	for _, ph := range phases {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		start := time.Now()
		p.Logger.Debug("phase started", "phase", ph.name)
		if err := ph.run(ctx); err != nil {
			return result, err
		}
		p.Logger.Debug("phase finished", "phase", ph.name, "elapsed", time.Since(start).Round(time.Millisecond))
	}
	return result, nil
}

// precompile compiles every Less source under the stylesheet source path
// to a .css file beside it. It is skipped when the config has no
// stylesheets or the only filter selects no stylesheet output.
func (p *Packager) precompile(ctx context.Context, only *config.OnlyFilter) ([]string, error) {
	if p.Compiler == nil || !p.hasType(Stylesheets) || !only.HasCSS() {
		return nil, nil
	}

	files, err := p.Expander.ProcessList(precompilePattern, ListOptions{
		Type: "less",
		Root: p.sourceDir(Stylesheets),
	})
	if err != nil {
		return nil, fmt.Errorf("listing stylesheet sources: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit())
	for _, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return p.compileFile(file)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func (p *Packager) compileFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	css, err := p.Compiler.Compile(path, src)
	if err != nil {
		return fmt.Errorf("precompiling stylesheets: %w", err)
	}

	out := strings.TrimSuffix(path, filepath.Ext(path)) + ".css"
	if err := sandbox.SafeWrite(p.Options.Root, out, css, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	p.Logger.Debug("precompiled stylesheet", "source", p.rel(path))
	return nil
}

// persist writes the stamp table once every group phase has drained.
func (p *Packager) persist(_ context.Context) error {
	if !p.Options.CacheBoosters {
		return nil
	}
	path := p.StampPath
	if path == "" {
		path = stamp.PathFor(p.Options.Config)
	}
	if err := stamp.Save(path, p.Stamps); err != nil {
		return fmt.Errorf("saving cache stamps: %w", err)
	}
	p.Logger.Debug("saved cache stamps", "path", path, "entries", p.Stamps.Len(), "updated", len(p.Stamps.Changed()))
	return nil
}

func (p *Packager) hasType(t AssetType) bool {
	return slices.Contains(p.Expander.AllTypes(), t)
}

func (p *Packager) limit() int {
	return max(1, p.Options.Concurrent)
}

func (p *Packager) sourceDir(t AssetType) string {
	if t == Stylesheets {
		return filepath.Join(p.Options.Root, p.Options.CSS.Source)
	}
	return filepath.Join(p.Options.Root, p.Options.JS.Source)
}

func (p *Packager) bundleDir(t AssetType) string {
	if t == Stylesheets {
		return filepath.Join(p.Options.Root, p.Options.CSS.BundleTo)
	}
	return filepath.Join(p.Options.Root, p.Options.JS.BundleTo)
}

// rel shortens path for log lines; it falls back to path unchanged.
func (p *Packager) rel(path string) string {
	if r, err := filepath.Rel(p.Options.Root, path); err == nil {
		return filepath.ToSlash(r)
	}
	return path
}
