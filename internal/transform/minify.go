package transform

import (
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
)

const (
	cssMediaType = "text/css"
	jsMediaType  = "application/javascript"
)

// NewCSSMinifier returns a Minifier for plain CSS.
func NewCSSMinifier() Minifier {
	m := minify.New()
	m.AddFunc(cssMediaType, css.Minify)
	return MinifierFunc(func(src []byte) ([]byte, error) {
		return m.Bytes(cssMediaType, src)
	})
}

// NewJSMinifier returns a Minifier for scripts. Local identifiers are
// renamed to shorter forms.
func NewJSMinifier() Minifier {
	m := minify.New()
	m.Add(jsMediaType, &js.Minifier{})
	return MinifierFunc(func(src []byte) ([]byte, error) {
		return m.Bytes(jsMediaType, src)
	})
}
