package cmd

import (
	"github.com/spf13/pflag"

	"github.com/bianoble/assetspkg/internal/config"
)

// buildFlags holds the flags that feed config.Options.
type buildFlags struct {
	root    string
	config  string
	options string

	concurrent     int
	gzip           bool
	cacheBoosters  bool
	noEmbedVersion bool
	embedAll       bool
	assetHosts     string
	noMinifyJS     bool
	indent         int
	lineBreakAt    int
	only           string
}

func (f *buildFlags) register(fs *pflag.FlagSet) {
	def := config.Default()

	fs.StringVarP(&f.root, "root", "r", "", "asset root directory (default: current directory)")
	fs.StringVarP(&f.config, "config", "c", "", "asset groups file (default: <root>/../config/assets.yml)")
	fs.StringVar(&f.options, "options", "", "TOML options file applied over the user and project layers")

	fs.IntVarP(&f.concurrent, "concurrent", "j", def.Concurrent, "groups processed at once")
	fs.BoolVarP(&f.gzip, "gzip", "g", false, "also write a .gz sibling for every bundle")
	fs.BoolVarP(&f.cacheBoosters, "cache-boosters", "b", false, "stamp bundle names with a content hash")
	fs.BoolVarP(&f.noEmbedVersion, "no-embed-version", "n", false, "also write a -noembed stylesheet without inlined assets")
	fs.BoolVar(&f.embedAll, "embed-all", false, "inline every eligible asset, not only those marked ?embed")
	fs.StringVarP(&f.assetHosts, "asset-hosts", "a", "", "asset host pattern, e.g. assets[0-3].example.com")
	fs.BoolVar(&f.noMinifyJS, "no-minify-js", false, "concatenate scripts without minifying them")
	fs.IntVarP(&f.indent, "indent", "i", 0, "spaces per tab when scripts are not minified")
	fs.IntVar(&f.lineBreakAt, "line-break-at", 0, "wrap minified scripts after a ';' once a line reaches this width")
	fs.StringVarP(&f.only, "only", "o", "", "comma separated bundle names to build (*.css and *.js select a type)")
}

// resolve builds the run options: defaults, then options files from
// lowest to highest precedence, then every flag set on the command line.
func (f *buildFlags) resolve(fs *pflag.FlagSet) (config.Options, []config.LayerInfo, error) {
	opts := config.Default()

	// The project layer sits beside the groups file.
	groups, err := f.groupsPath()
	if err != nil {
		return opts, nil, err
	}

	layers := config.DiscoverPaths(config.DiscoverOptions{
		ConfigPath:   groups,
		ExplicitPath: f.options,
		NoInherit:    config.EnvNoInherit(),
	})
	loaded, err := config.LoadLayers(layers, &opts)
	if err != nil {
		return opts, loaded, err
	}

	f.apply(fs, &opts)
	if err := config.Resolve(&opts); err != nil {
		return opts, loaded, err
	}
	return opts, loaded, nil
}

// apply copies every flag the user set onto opts.
func (f *buildFlags) apply(fs *pflag.FlagSet, opts *config.Options) {
	set := fs.Changed

	if set("root") {
		opts.Root = f.root
	}
	if set("config") {
		opts.Config = f.config
	}
	if set("concurrent") {
		opts.Concurrent = f.concurrent
	}
	if set("gzip") {
		opts.Gzip = f.gzip
	}
	if set("cache-boosters") {
		opts.CacheBoosters = f.cacheBoosters
	}
	if set("no-embed-version") {
		opts.CSS.NoEmbedVersion = f.noEmbedVersion
	}
	if set("embed-all") {
		opts.CSS.EmbedAll = f.embedAll
	}
	if set("asset-hosts") {
		opts.CSS.AssetHosts = f.assetHosts
	}
	if set("no-minify-js") {
		opts.JS.NoMinify = f.noMinifyJS
	}
	if set("indent") {
		opts.JS.Indent = f.indent
	}
	if set("line-break-at") {
		opts.JS.LineBreakAt = f.lineBreakAt
	}
	if set("only") {
		opts.Only = f.only
	}
}

// groupsPath returns the asset groups file the flags point at, before
// any options file is read.
func (f *buildFlags) groupsPath() (string, error) {
	probe := config.Options{Root: f.root, Config: f.config}
	if err := probe.Normalize(); err != nil {
		return "", err
	}
	return probe.Config, nil
}
