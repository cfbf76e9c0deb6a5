// Package assetspkg provides the public Go library API for the asset
// packager.
//
// A packaging run reads the asset groups file (assets.yml), compiles Less
// sources, concatenates and minifies each stylesheet and script group, and
// writes the bundles under the configured bundle directories.
//
// # Basic Usage
//
//	opts := assetspkg.DefaultOptions()
//	opts.Root = "/srv/app/public"
//	opts.Gzip = true
//
//	client, err := assetspkg.New(assetspkg.ClientOptions{Packaging: opts})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := client.Build(ctx)
package assetspkg

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bianoble/assetspkg/internal/config"
	"github.com/bianoble/assetspkg/internal/engine"
	"github.com/bianoble/assetspkg/internal/expander"
	"github.com/bianoble/assetspkg/internal/logging"
	"github.com/bianoble/assetspkg/internal/stamp"
)

// Builder runs packaging passes.
type Builder interface {
	Build(ctx context.Context) (*Result, error)
}

// StatusReporter reports the on-disk state of every configured group.
type StatusReporter interface {
	Status(ctx context.Context) ([]GroupStatus, error)
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// Packaging holds the run options. Zero-valued paths are filled from
	// DefaultOptions before validation.
	Packaging Options

	// Logger receives progress and warnings. Nil discards them.
	Logger *slog.Logger
}

// Client is the main entry point for the library.
// It implements Builder and StatusReporter.
type Client struct {
	opts   Options
	logger *slog.Logger
}

// DefaultOptions returns the options used when nothing overrides them.
func DefaultOptions() Options {
	return config.Default()
}

// New resolves and validates the options and checks that the config file
// and root directory exist. A missing path yields a *ConfigError.
func New(opts ClientOptions) (*Client, error) {
	o := withDefaults(opts.Packaging)
	if err := config.Resolve(&o); err != nil {
		return nil, err
	}
	if err := o.CheckPaths(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Client{opts: o, logger: logger}, nil
}

func withDefaults(o Options) Options {
	def := config.Default()
	if o.Concurrent == 0 {
		o.Concurrent = def.Concurrent
	}
	if o.CSS.Source == "" {
		o.CSS.Source = def.CSS.Source
	}
	if o.CSS.BundleTo == "" {
		o.CSS.BundleTo = def.CSS.BundleTo
	}
	if o.JS.Source == "" {
		o.JS.Source = def.JS.Source
	}
	if o.JS.BundleTo == "" {
		o.JS.BundleTo = def.JS.BundleTo
	}
	return o
}

// Options returns the resolved options the client runs with.
func (c *Client) Options() Options {
	return c.opts
}

// Build runs one packaging pass. With cache boosters on, the stamp
// sidecar is read before the run and saved after every group succeeded.
func (c *Client) Build(ctx context.Context) (*Result, error) {
	exp, err := expander.Load(c.opts.Config)
	if err != nil {
		return nil, err
	}

	var stamps *stamp.Table
	if c.opts.CacheBoosters {
		stamps, err = stamp.Load(stamp.PathFor(c.opts.Config))
		if err != nil {
			return nil, fmt.Errorf("loading cache stamps: %w", err)
		}
	}

	p := engine.New(c.opts, exp, stamps, c.logger)
	return p.Run(ctx)
}

// Status reports, for every group the only filter selects, the bundle it
// produces and whether that bundle is on disk.
func (c *Client) Status(ctx context.Context) ([]GroupStatus, error) {
	exp, err := expander.Load(c.opts.Config)
	if err != nil {
		return nil, err
	}

	stamps, err := stamp.Load(stamp.PathFor(c.opts.Config))
	if err != nil {
		return nil, fmt.Errorf("loading cache stamps: %w", err)
	}

	eng := &engine.StatusEngine{
		Expander: exp,
		Options:  c.opts,
		Stamps:   stamps,
	}
	return eng.Status(ctx)
}

// Groups returns the configured group names of an asset type in config order.
func (c *Client) Groups(t AssetType) ([]string, error) {
	exp, err := expander.Load(c.opts.Config)
	if err != nil {
		return nil, err
	}
	return exp.GroupsFor(t), nil
}
