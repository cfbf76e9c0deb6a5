package transform

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// LessCompiler compiles a practical subset of Less to plain CSS:
// comments, variables with block scoping and @{} interpolation, nested
// rules with "&" parent references, @media and @supports blocks that
// bubble out of rules, parameterless mixins, and @import of other Less
// files. Anything else passes through as written.
type LessCompiler struct{}

var (
	variablePattern  = regexp.MustCompile(`(?s)^@([A-Za-z0-9_-]+)\s*:\s*(.*)$`)
	mixinCallPattern = regexp.MustCompile(`^(\.[A-Za-z_][A-Za-z0-9_-]*)\s*(?:\(\s*\))?\s*(?:!important)?$`)
	mixinDefPattern  = regexp.MustCompile(`^(\.[A-Za-z_][A-Za-z0-9_-]*)\s*(\(\s*\))?$`)
)

// bubbling at-rules are re-emitted around the selectors of the rule they
// are nested in.
var bubblingAtRules = map[string]bool{
	"@media":     true,
	"@supports":  true,
	"@document":  true,
	"@container": true,
}

// Compile implements StyleCompiler.
func (c *LessCompiler) Compile(filename string, src []byte) ([]byte, error) {
	run := &lessRun{
		importing: make(map[string]bool),
		imported:  make(map[string]bool),
		mixins:    make(map[string]*lessNode),
		expanding: make(map[string]bool),
		resolving: make(map[*lessNode]bool),
	}
	if abs, err := filepath.Abs(filename); err == nil {
		run.importing[abs] = true
	}

	nodes, err := run.parse(filename, src)
	if err != nil {
		return nil, err
	}
	run.collectMixins(nodes)

	_, blocks, err := run.eval(nodes, nil, newLessScope(nil))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writeCSS(&buf, blocks, "")
	return buf.Bytes(), nil
}

type lessKind int

const (
	lessDeclaration lessKind = iota
	lessVariable
	lessMixinCall
	lessRule
	lessBubble
	lessAtBlock
	lessAtStatement
)

type lessNode struct {
	kind     lessKind
	file     string
	line     int
	text     string // selector, at-rule prelude, declaration, statement or variable value
	name     string // variable or mixin name
	mixin    bool   // rule is a mixin definition and is not emitted
	children []*lessNode
}

func (n *lessNode) errorf(format string, args ...any) error {
	return &CompileError{File: n.file, Line: n.line, Err: fmt.Errorf(format, args...)}
}

type lessRun struct {
	importing map[string]bool // import chain in progress
	imported  map[string]bool // files already inlined once
	mixins    map[string]*lessNode
	expanding map[string]bool
	resolving map[*lessNode]bool
}

func (r *lessRun) parse(file string, src []byte) ([]*lessNode, error) {
	p := &lessParser{run: r, file: file, src: stripLessComments(src), line: 1}
	return p.block(0)
}

type lessParser struct {
	run  *lessRun
	file string
	src  []byte
	pos  int
	line int
}

func (p *lessParser) errorf(line int, format string, args ...any) error {
	return &CompileError{File: p.file, Line: line, Err: fmt.Errorf(format, args...)}
}

// block parses statements up to the brace closing a block opened on
// openLine, or to the end of input for the top level (openLine 0).
func (p *lessParser) block(openLine int) ([]*lessNode, error) {
	var nodes []*lessNode
	var buf []byte
	start, paren := 0, 0

	flush := func() error {
		text := strings.TrimSpace(string(buf))
		line := p.lineOr(start)
		buf, start = buf[:0], 0
		n, err := p.statement(text, line)
		if err != nil {
			return err
		}
		nodes = append(nodes, n...)
		return nil
	}

	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '"' || c == '\'':
			if start == 0 {
				start = p.line
			}
			buf = append(buf, p.quoted()...)
			continue
		case c == '\n':
			p.line++
		case c == '(':
			paren++
		case c == ')':
			if paren > 0 {
				paren--
			}
		case c == '{' && len(buf) > 0 && buf[len(buf)-1] == '@':
			end := bytes.IndexByte(p.src[p.pos:], '}')
			if end < 0 {
				return nil, p.errorf(p.line, "unterminated interpolation")
			}
			buf = append(buf, p.src[p.pos:p.pos+end+1]...)
			p.pos += end + 1
			continue
		case paren == 0 && c == ';':
			p.pos++
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		case paren == 0 && c == '{':
			prelude := strings.TrimSpace(string(buf))
			preludeLine := p.lineOr(start)
			buf, start = buf[:0], 0
			p.pos++
			children, err := p.block(p.line)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, p.blockNode(prelude, preludeLine, children))
			continue
		case paren == 0 && c == '}':
			if openLine == 0 {
				return nil, p.errorf(p.line, "unexpected '}'")
			}
			p.pos++
			if err := flush(); err != nil {
				return nil, err
			}
			return nodes, nil
		}
		if start == 0 && !isLessSpace(c) {
			start = p.line
		}
		buf = append(buf, c)
		p.pos++
	}

	if openLine > 0 {
		return nil, p.errorf(openLine, "missing '}' for block opened here")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (p *lessParser) lineOr(line int) int {
	if line == 0 {
		return p.line
	}
	return line
}

// quoted consumes a string literal, quotes included.
func (p *lessParser) quoted() []byte {
	q := p.src[p.pos]
	for i := p.pos + 1; i < len(p.src); i++ {
		switch p.src[i] {
		case '\\':
			if i+1 < len(p.src) && p.src[i+1] == '\n' {
				p.line++
			}
			i++
		case '\n':
			p.line++
		case q:
			s := p.src[p.pos : i+1]
			p.pos = i + 1
			return s
		}
	}
	s := p.src[p.pos:]
	p.pos = len(p.src)
	return s
}

func (p *lessParser) statement(text string, line int) ([]*lessNode, error) {
	if text == "" {
		return nil, nil
	}
	node := &lessNode{file: p.file, line: line, text: text}

	switch {
	case strings.HasPrefix(text, "@import") && len(text) > len("@import") && !isIdentByte(text[len("@import")]):
		return p.importNodes(text, line)
	case text[0] == '@':
		if m := variablePattern.FindStringSubmatch(text); m != nil {
			node.kind = lessVariable
			node.name = m[1]
			node.text = strings.TrimSpace(m[2])
			return []*lessNode{node}, nil
		}
		node.kind = lessAtStatement
	case mixinCallPattern.MatchString(text):
		node.kind = lessMixinCall
		node.name = mixinCallPattern.FindStringSubmatch(text)[1]
	default:
		node.kind = lessDeclaration
	}
	return []*lessNode{node}, nil
}

func (p *lessParser) blockNode(prelude string, line int, children []*lessNode) *lessNode {
	node := &lessNode{file: p.file, line: line, text: prelude, children: children}
	if strings.HasPrefix(prelude, "@") {
		node.kind = lessAtBlock
		if bubblingAtRules[strings.ToLower(atKeyword(prelude))] {
			node.kind = lessBubble
		}
		return node
	}
	node.kind = lessRule
	if m := mixinDefPattern.FindStringSubmatch(prelude); m != nil {
		node.name = m[1]
		node.mixin = m[2] != ""
	}
	return node
}

// importNodes inlines a Less import. CSS files, URLs and imports with
// media queries stay as plain @import statements.
func (p *lessParser) importNodes(text string, line int) ([]*lessNode, error) {
	target := strings.TrimSpace(strings.TrimPrefix(text, "@import"))
	if strings.HasPrefix(target, "(") {
		if i := strings.IndexByte(target, ')'); i >= 0 {
			target = strings.TrimSpace(target[i+1:])
		}
	}

	name, ok := unquoteLess(target)
	if !ok || isExternalURL(name) || strings.EqualFold(filepath.Ext(name), ".css") {
		return []*lessNode{{kind: lessAtStatement, file: p.file, line: line, text: text}}, nil
	}

	if filepath.Ext(name) == "" {
		name += ".less"
	}
	full := filepath.FromSlash(name)
	if !filepath.IsAbs(full) {
		full = filepath.Join(filepath.Dir(p.file), full)
	}
	abs, err := filepath.Abs(full)
	if err != nil {
		abs = full
	}

	if p.run.importing[abs] {
		return nil, p.errorf(line, "import cycle through %s", name)
	}
	if p.run.imported[abs] {
		return nil, nil
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, p.errorf(line, "importing %s: %w", name, err)
	}

	p.run.importing[abs] = true
	defer delete(p.run.importing, abs)
	nodes, err := p.run.parse(full, data)
	if err != nil {
		return nil, err
	}
	p.run.imported[abs] = true
	return nodes, nil
}

func (r *lessRun) collectMixins(nodes []*lessNode) {
	for _, n := range nodes {
		if n.kind == lessRule && n.name != "" {
			r.mixins[n.name] = n
		}
		if len(n.children) > 0 {
			r.collectMixins(n.children)
		}
	}
}

type lessScope struct {
	vars   map[string]*lessNode
	parent *lessScope
}

func newLessScope(parent *lessScope) *lessScope {
	return &lessScope{vars: make(map[string]*lessNode), parent: parent}
}

// eval flattens nodes under the given parent selectors. A nil parents
// slice means top level, where declarations are not allowed; an empty
// non-nil slice is the body of an at-rule such as @font-face.
func (r *lessRun) eval(nodes []*lessNode, parents []string, sc *lessScope) ([]string, []cssBlock, error) {
	for _, n := range nodes {
		if n.kind == lessVariable {
			sc.vars[n.name] = n
		}
	}

	var decls []string
	var blocks []cssBlock
	for _, n := range nodes {
		switch n.kind {
		case lessVariable:

		case lessDeclaration:
			if parents == nil {
				return nil, nil, n.errorf("declaration %q outside of a rule", n.text)
			}
			d, err := r.declaration(n, sc)
			if err != nil {
				return nil, nil, err
			}
			decls = append(decls, d)

		case lessMixinCall:
			if parents == nil {
				return nil, nil, n.errorf("mixin %s called outside of a rule", n.name)
			}
			def, ok := r.mixins[n.name]
			if !ok {
				return nil, nil, n.errorf("undefined mixin %s", n.name)
			}
			if r.expanding[n.name] {
				return nil, nil, n.errorf("mixin %s calls itself", n.name)
			}
			r.expanding[n.name] = true
			d, b, err := r.eval(def.children, parents, newLessScope(sc))
			delete(r.expanding, n.name)
			if err != nil {
				return nil, nil, err
			}
			decls = append(decls, d...)
			blocks = append(blocks, b...)

		case lessRule:
			if n.mixin {
				continue
			}
			sel, err := r.substitute(n, n.text, sc, false)
			if err != nil {
				return nil, nil, err
			}
			selectors := nestSelectors(parents, splitSelectors(sel))
			d, b, err := r.eval(n.children, selectors, newLessScope(sc))
			if err != nil {
				return nil, nil, err
			}
			if len(d) > 0 {
				blocks = append(blocks, cssBlock{selector: strings.Join(selectors, ", "), decls: d})
			}
			blocks = append(blocks, b...)

		case lessBubble:
			prelude, err := r.atPrelude(n, sc)
			if err != nil {
				return nil, nil, err
			}
			d, b, err := r.eval(n.children, parents, newLessScope(sc))
			if err != nil {
				return nil, nil, err
			}
			inner := b
			if len(d) > 0 {
				if len(parents) == 0 {
					// @media nested directly in a @font-face-like block.
					blocks = append(blocks, cssBlock{at: prelude, decls: d, inner: b})
					continue
				}
				inner = append([]cssBlock{{selector: strings.Join(parents, ", "), decls: d}}, b...)
			}
			blocks = append(blocks, cssBlock{at: prelude, inner: inner})

		case lessAtBlock:
			prelude, err := r.atPrelude(n, sc)
			if err != nil {
				return nil, nil, err
			}
			d, b, err := r.eval(n.children, []string{}, newLessScope(sc))
			if err != nil {
				return nil, nil, err
			}
			blocks = append(blocks, cssBlock{at: prelude, decls: d, inner: b})

		case lessAtStatement:
			text, err := r.atPrelude(n, sc)
			if err != nil {
				return nil, nil, err
			}
			blocks = append(blocks, cssBlock{raw: text + ";"})
		}
	}
	return decls, blocks, nil
}

func (r *lessRun) declaration(n *lessNode, sc *lessScope) (string, error) {
	prop, value, ok := strings.Cut(n.text, ":")
	if !ok {
		return "", n.errorf("expected a declaration, got %q", n.text)
	}
	prop, err := r.substitute(n, strings.TrimSpace(prop), sc, false)
	if err != nil {
		return "", err
	}
	value, err = r.substitute(n, strings.TrimSpace(value), sc, true)
	if err != nil {
		return "", err
	}
	return prop + ": " + value, nil
}

// atPrelude substitutes variables in everything after the at-keyword.
func (r *lessRun) atPrelude(n *lessNode, sc *lessScope) (string, error) {
	keyword := atKeyword(n.text)
	rest, err := r.substitute(n, n.text[len(keyword):], sc, true)
	if err != nil {
		return "", err
	}
	return keyword + rest, nil
}

// substitute replaces @{name} everywhere and, when bare is set, @name
// outside string literals.
func (r *lessRun) substitute(n *lessNode, s string, sc *lessScope, bare bool) (string, error) {
	if !strings.Contains(s, "@") {
		return s, nil
	}

	var b strings.Builder
	var quote byte
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '@' && i+1 < len(s) && s[i+1] == '{':
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				return "", n.errorf("unterminated interpolation in %q", s)
			}
			v, err := r.lookup(n, s[i+2:i+end], sc)
			if err != nil {
				return "", err
			}
			b.WriteString(unquoteValue(v))
			i += end + 1
			continue
		case quote != 0:
			if c == '\\' && i+1 < len(s) {
				b.WriteString(s[i : i+2])
				i += 2
				continue
			}
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case bare && c == '@' && i+1 < len(s) && isIdentStart(s[i+1]):
			j := i + 1
			for j < len(s) && isIdentByte(s[j]) {
				j++
			}
			v, err := r.lookup(n, s[i+1:j], sc)
			if err != nil {
				return "", err
			}
			b.WriteString(v)
			i = j
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), nil
}

func (r *lessRun) lookup(n *lessNode, name string, sc *lessScope) (string, error) {
	for s := sc; s != nil; s = s.parent {
		def, ok := s.vars[name]
		if !ok {
			continue
		}
		if r.resolving[def] {
			return "", n.errorf("variable @%s refers to itself", name)
		}
		r.resolving[def] = true
		v, err := r.substitute(def, def.text, s, true)
		delete(r.resolving, def)
		return v, err
	}
	return "", n.errorf("undefined variable @%s", name)
}

// splitSelectors splits a selector list on top-level commas.
func splitSelectors(s string) []string {
	var out []string
	depth, start := 0, 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case c == ',' && depth == 0:
			out = appendSelector(out, s[start:i])
			start = i + 1
		}
	}
	return appendSelector(out, s[start:])
}

func appendSelector(out []string, sel string) []string {
	sel = strings.Join(strings.Fields(sel), " ")
	if sel == "" {
		return out
	}
	return append(out, sel)
}

// nestSelectors combines parent and child selectors. "&" in a child is
// replaced by the parent; otherwise the child is a descendant.
func nestSelectors(parents, children []string) []string {
	if len(parents) == 0 {
		out := make([]string, 0, len(children))
		for _, c := range children {
			out = append(out, strings.TrimSpace(strings.ReplaceAll(c, "&", "")))
		}
		return out
	}
	out := make([]string, 0, len(parents)*len(children))
	for _, p := range parents {
		for _, c := range children {
			if strings.Contains(c, "&") {
				out = append(out, strings.ReplaceAll(c, "&", p))
				continue
			}
			out = append(out, p+" "+c)
		}
	}
	return out
}

type cssBlock struct {
	selector string
	at       string
	raw      string
	decls    []string
	inner    []cssBlock
}

func writeCSS(buf *bytes.Buffer, blocks []cssBlock, indent string) {
	for _, b := range blocks {
		if b.raw != "" {
			buf.WriteString(indent + b.raw + "\n")
			continue
		}
		header := b.selector
		if b.at != "" {
			header = b.at
		}
		buf.WriteString(indent + header + " {\n")
		for _, d := range b.decls {
			buf.WriteString(indent + "  " + d + ";\n")
		}
		writeCSS(buf, b.inner, indent+"  ")
		buf.WriteString(indent + "}\n")
	}
}

// stripLessComments removes /* */ and // comments outside strings,
// keeping newlines so line numbers stay accurate. // inside parentheses
// is left alone so url(http://...) survives.
func stripLessComments(src []byte) []byte {
	out := make([]byte, 0, len(src))
	var quote byte
	paren := 0
	for i := 0; i < len(src); i++ {
		c := src[i]
		if quote != 0 {
			out = append(out, c)
			switch {
			case c == '\\' && i+1 < len(src):
				i++
				out = append(out, src[i])
			case c == quote || c == '\n':
				quote = 0
			}
			continue
		}

		switch {
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			paren++
		case c == ')':
			if paren > 0 {
				paren--
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			stop := len(src)
			if end := bytes.Index(src[i+2:], []byte("*/")); end >= 0 {
				stop = i + 2 + end + 2
			}
			for _, b := range src[i:stop] {
				if b == '\n' {
					out = append(out, '\n')
				}
			}
			i = stop - 1
			continue
		case c == '/' && paren == 0 && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			if i < len(src) {
				out = append(out, '\n')
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

func atKeyword(s string) string {
	i := 1
	for i < len(s) && isIdentByte(s[i]) {
		i++
	}
	return s[:i]
}

func unquoteLess(s string) (string, bool) {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1], true
	}
	return "", false
}

func unquoteValue(s string) string {
	if v, ok := unquoteLess(s); ok {
		return v
	}
	return s
}

func isLessSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || c == '-' || (c >= '0' && c <= '9')
}
