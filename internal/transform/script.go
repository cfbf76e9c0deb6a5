package transform

import (
	"bytes"
	"fmt"
)

// cufonSignature marks a Cufón font file. Those files break when their
// identifiers are renamed.
var cufonSignature = []byte("Cufon.registerFont")

// ScriptOptions configures the script pipeline.
type ScriptOptions struct {
	Minify bool

	// LineBreakAt wraps minified output once a line reaches this many
	// bytes. Zero disables wrapping.
	LineBreakAt int

	// Indent is the number of spaces that replace each leading tab when
	// the source is re-emitted instead of minified.
	Indent int
}

// ScriptPipeline concatenates and minifies the sources of one script group.
type ScriptPipeline struct {
	Minifier Minifier

	// SkipMinification reports whether concatenated source must be
	// re-emitted as written. Nil never skips.
	SkipMinification func(src []byte) bool
}

// NewScriptPipeline returns a pipeline that minifies with the default
// script minifier and leaves Cufón fonts alone.
func NewScriptPipeline() *ScriptPipeline {
	return &ScriptPipeline{
		Minifier:         NewJSMinifier(),
		SkipMinification: IsCufon,
	}
}

// Process runs the group's sources, in order, through the pipeline.
func (p *ScriptPipeline) Process(sources [][]byte, opts ScriptOptions) ([]byte, error) {
	src := Concat(sources)

	if !opts.Minify || (p.SkipMinification != nil && p.SkipMinification(src)) {
		return Reindent(src, opts.Indent), nil
	}

	out, err := p.Minifier.Minify(src)
	if err != nil {
		return nil, fmt.Errorf("minifying scripts: %w", err)
	}
	return WrapLines(out, opts.LineBreakAt), nil
}

// IsCufon reports whether src contains a Cufón font registration.
func IsCufon(src []byte) bool {
	return bytes.Contains(src, cufonSignature)
}

// Reindent re-expresses the leading tab indentation of every line as
// indent spaces per tab. A non-positive indent returns src unchanged.
func Reindent(src []byte, indent int) []byte {
	if indent <= 0 || !bytes.Contains(src, []byte("\t")) {
		return src
	}

	spaces := bytes.Repeat([]byte(" "), indent)
	out := make([]byte, 0, len(src))
	for len(src) > 0 {
		line := src
		if i := bytes.IndexByte(src, '\n'); i >= 0 {
			line = src[:i+1]
		}
		src = src[len(line):]

		j := 0
		for j < len(line) && (line[j] == '\t' || line[j] == ' ') {
			if line[j] == '\t' {
				out = append(out, spaces...)
			} else {
				out = append(out, ' ')
			}
			j++
		}
		out = append(out, line[j:]...)
	}
	return out
}
