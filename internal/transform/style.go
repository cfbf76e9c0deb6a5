package transform

import "fmt"

// Variant is one view of a processed stylesheet bundle.
// Compressed is nil unless pre-compression was requested.
type Variant struct {
	Plain      []byte
	Compressed []byte
}

// EnhancedStyles is the result of the embed/rewrite stage. NotEmbedded is
// populated only when a non-embedding version was requested.
type EnhancedStyles struct {
	Embedded    Variant
	NotEmbedded Variant

	// Warnings lists references that could not be rewritten, such as
	// missing asset files. They do not fail the build.
	Warnings []string
}

// HasNotEmbedded reports whether the non-embedding view was produced.
func (s *EnhancedStyles) HasNotEmbedded() bool {
	return s.NotEmbedded.Plain != nil
}

// EnhanceOptions configures the embed/rewrite stage.
type EnhanceOptions struct {
	// RootPath resolves root-relative URLs ("/images/a.png") to files.
	RootPath string

	// Pregzip fills the Compressed form of every produced view.
	Pregzip bool

	// ForceEmbed inlines every eligible asset, not just those marked ?embed.
	ForceEmbed bool

	// NoEmbedVersion also produces the NotEmbedded view.
	NoEmbedVersion bool

	// AssetHosts is a host pattern; rewritten URLs rotate across its hosts.
	AssetHosts string

	// CryptedStamp stamps rewritten asset URLs with a content hash in the
	// filename instead of a modification-time query string.
	CryptedStamp bool
}

// Enhancer rewrites and embeds the references of minified CSS.
type Enhancer interface {
	Enhance(css []byte, opts EnhanceOptions) (*EnhancedStyles, error)
}

// StylePipeline concatenates, minifies and enhances the plain CSS of one
// group.
type StylePipeline struct {
	Minifier Minifier
	Enhancer Enhancer
}

// NewStylePipeline returns a pipeline built from the default stages.
func NewStylePipeline() *StylePipeline {
	return &StylePipeline{
		Minifier: NewCSSMinifier(),
		Enhancer: &StyleEnhancer{},
	}
}

// Process runs the group's sources, in order, through every stage.
func (p *StylePipeline) Process(sources [][]byte, opts EnhanceOptions) (*EnhancedStyles, error) {
	minified, err := p.Minifier.Minify(Concat(sources))
	if err != nil {
		return nil, fmt.Errorf("minifying stylesheets: %w", err)
	}

	enhanced, err := p.Enhancer.Enhance(minified, opts)
	if err != nil {
		return nil, fmt.Errorf("enhancing stylesheets: %w", err)
	}
	return enhanced, nil
}
