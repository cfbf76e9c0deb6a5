package transform

import "bytes"

// regexKeywords may directly precede a regular expression literal.
var regexKeywords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "throw": true, "case": true,
	"do": true, "else": true, "yield": true, "await": true,
}

// WrapLines inserts a newline after a statement-ending semicolon once the
// current line is at least width bytes long. Semicolons inside strings,
// template literals, regular expressions and comments are never break
// points. A non-positive width returns src unchanged.
func WrapLines(src []byte, width int) []byte {
	if width <= 0 {
		return src
	}

	w := &lineWrapper{out: make([]byte, 0, len(src)+len(src)/width+1)}
	var templates []int // open brace depth of each enclosing ${ } expression
	n := len(src)

	for i := 0; i < n; {
		c := src[i]
		switch {
		case c == '"' || c == '\'':
			j := skipQuoted(src, i, c)
			w.emit(src[i:j])
			i = j
			continue

		case c == '`':
			j, expr := scanTemplateText(src, i+1)
			w.emit(src[i:j])
			i = j
			if expr {
				templates = append(templates, 0)
			}
			continue

		case c == '{' && len(templates) > 0:
			templates[len(templates)-1]++

		case c == '}' && len(templates) > 0:
			top := len(templates) - 1
			if templates[top] > 0 {
				templates[top]--
				break
			}
			templates = templates[:top]
			j, expr := scanTemplateText(src, i+1)
			w.emit(src[i:j])
			i = j
			if expr {
				templates = append(templates, 0)
			}
			continue

		case c == '/' && i+1 < n && src[i+1] == '/':
			j := i + 2
			for j < n && src[j] != '\n' {
				j++
			}
			w.emit(src[i:j])
			i = j
			continue

		case c == '/' && i+1 < n && src[i+1] == '*':
			j := n
			if end := bytes.Index(src[i+2:], []byte("*/")); end >= 0 {
				j = i + 2 + end + 2
			}
			w.emit(src[i:j])
			i = j
			continue

		case c == '/' && w.regexAllowed():
			j := skipRegex(src, i)
			w.emit(src[i:j])
			i = j
			continue

		case c == ';':
			w.emit(src[i : i+1])
			i++
			if w.lineLen >= width && i < n && src[i] != '\n' {
				w.emit([]byte{'\n'})
			}
			continue
		}

		w.emit(src[i : i+1])
		i++
	}
	return w.out
}

type lineWrapper struct {
	out     []byte
	lineLen int
}

func (w *lineWrapper) emit(b []byte) {
	for _, c := range b {
		if c == '\n' {
			w.lineLen = 0
		} else {
			w.lineLen++
		}
	}
	w.out = append(w.out, b...)
}

// regexAllowed reports whether a '/' at the current position starts a
// regular expression rather than a division, judged by the last
// significant token written.
func (w *lineWrapper) regexAllowed() bool {
	k := len(w.out) - 1
	for k >= 0 && isJSSpace(w.out[k]) {
		k--
	}
	if k < 0 {
		return true
	}

	c := w.out[k]
	if isJSIdent(c) {
		end := k + 1
		for k >= 0 && isJSIdent(w.out[k]) {
			k--
		}
		return regexKeywords[string(w.out[k+1:end])]
	}
	if (c == '+' || c == '-') && k > 0 && w.out[k-1] == c {
		return false
	}
	return bytes.IndexByte([]byte("(,=:[!&|?{};+-*%<>~^"), c) >= 0
}

func skipQuoted(src []byte, i int, quote byte) int {
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		case '\n':
			return j
		}
	}
	return len(src)
}

// scanTemplateText scans template literal text starting at i. It returns
// the index after the closing backtick, or after "${" with expr set.
func scanTemplateText(src []byte, i int) (int, bool) {
	for j := i; j < len(src); j++ {
		switch {
		case src[j] == '\\':
			j++
		case src[j] == '`':
			return j + 1, false
		case src[j] == '$' && j+1 < len(src) && src[j+1] == '{':
			return j + 2, true
		}
	}
	return len(src), false
}

func skipRegex(src []byte, i int) int {
	inClass := false
	j := i + 1
loop:
	for ; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '\n':
			break loop
		case '/':
			if !inClass {
				j++
				break loop
			}
		}
	}
	j = min(j, len(src))
	for j < len(src) && isJSIdent(src[j]) {
		j++
	}
	return j
}

func isJSSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isJSIdent(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
