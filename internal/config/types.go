package config

// Options is the process-wide packaging configuration, resolved once at
// startup from option files and command-line flags.
type Options struct {
	// Root is the asset root directory. Source and bundle paths are relative to it.
	Root string `toml:"root"`

	// Config is the path to the asset groups file (assets.yml).
	Config string `toml:"config"`

	// Concurrent bounds how many groups (or precompiled files) are processed at once.
	Concurrent int `toml:"concurrency"`

	// Gzip emits a .gz sibling for every bundle.
	Gzip bool `toml:"gzip"`

	// CacheBoosters stamps bundle filenames with a content hash and
	// persists the hashes in the sidecar stamp file.
	CacheBoosters bool `toml:"cache_boosters"`

	// Only restricts the run to the named output files, comma separated.
	// "*.css" and "*.js" select every group of that type.
	Only string `toml:"only"`

	CSS CSSOptions `toml:"css"`
	JS  JSOptions  `toml:"js"`
}

// CSSOptions configures the stylesheet pipeline.
type CSSOptions struct {
	Source   string `toml:"source"`
	BundleTo string `toml:"bundle_to"`

	// EmbedAll inlines every eligible asset, not just the ones marked ?embed.
	EmbedAll bool `toml:"embed_all"`

	// NoEmbedVersion also emits a -noembed variant with no inlined assets.
	NoEmbedVersion bool `toml:"no_embed_version"`

	// AssetHosts is a host pattern such as "assets[0-3].example.com".
	AssetHosts string `toml:"asset_hosts"`
}

// JSOptions configures the script pipeline.
type JSOptions struct {
	Source   string `toml:"source"`
	BundleTo string `toml:"bundle_to"`

	NoMinify    bool `toml:"no_minify"`
	LineBreakAt int  `toml:"line_break_at"`

	// Indent is the number of spaces per tab when scripts are re-emitted
	// without minification. Zero keeps the source byte for byte.
	Indent int `toml:"indent"`
}

// Default returns the options used when nothing overrides them.
func Default() Options {
	return Options{
		Concurrent: 1,
		CSS: CSSOptions{
			Source:   "public/stylesheets",
			BundleTo: "public/stylesheets/bundled",
		},
		JS: JSOptions{
			Source:   "public/javascripts",
			BundleTo: "public/javascripts/bundled",
		},
	}
}

// SafeEmbed reports whether a non-embedding stylesheet variant is requested.
func (o Options) SafeEmbed() bool {
	return o.CSS.NoEmbedVersion
}

// MinifyJS reports whether scripts are minified.
func (o Options) MinifyJS() bool {
	return !o.JS.NoMinify
}

// OnlyFilter parses Only. It is nil when no filter is set.
func (o Options) OnlyFilter() *OnlyFilter {
	return ParseOnly(o.Only)
}
