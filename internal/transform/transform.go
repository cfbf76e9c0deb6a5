// Package transform holds the source-to-source stages of the packager:
// stylesheet preprocessing, concatenation, minification, reference
// embedding, script minification and compression. Every stage is a
// function of its input bytes and options; the engine composes them.
package transform

import (
	"bytes"
	"fmt"
)

// Minifier reduces source text without changing its meaning.
type Minifier interface {
	Minify(src []byte) ([]byte, error)
}

// MinifierFunc adapts a function to the Minifier interface.
type MinifierFunc func(src []byte) ([]byte, error)

// Minify calls f(src).
func (f MinifierFunc) Minify(src []byte) ([]byte, error) { return f(src) }

// StyleCompiler compiles a stylesheet from its authoring syntax to plain CSS.
// filename is used to resolve imports and to label errors.
type StyleCompiler interface {
	Compile(filename string, src []byte) ([]byte, error)
}

// Concat joins sources in order with no separator.
func Concat(sources [][]byte) []byte {
	return bytes.Join(sources, nil)
}

// CompileError reports a stylesheet that failed to compile.
type CompileError struct {
	File string
	Line int
	Err  error
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}
