package transform

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func compileLess(t *testing.T, src string) string {
	t.Helper()
	c := &LessCompiler{}
	out, err := c.Compile(filepath.Join(t.TempDir(), "test.less"), []byte(src))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return string(out)
}

func TestLessPlainRule(t *testing.T) {
	got := compileLess(t, "a{color:red}")
	if got != "a {\n  color: red;\n}\n" {
		t.Errorf("got %q", got)
	}
}

func TestLessVariablesAndNesting(t *testing.T) {
	src := `
@brand: #336699;
.nav {
  color: @brand;
  a {
    color: black;
    &:hover { color: @brand; }
  }
}
`
	want := ".nav {\n  color: #336699;\n}\n" +
		".nav a {\n  color: black;\n}\n" +
		".nav a:hover {\n  color: #336699;\n}\n"
	if got := compileLess(t, src); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestLessVariableScoping(t *testing.T) {
	src := `
@size: 10px;
.a { @size: 20px; width: @size; }
.b { width: @size; }
`
	want := ".a {\n  width: 20px;\n}\n.b {\n  width: 10px;\n}\n"
	if got := compileLess(t, src); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestLessVariableDeclaredAfterUse(t *testing.T) {
	got := compileLess(t, ".a { color: @c; }\n@c: blue;\n")
	if got != ".a {\n  color: blue;\n}\n" {
		t.Errorf("got %q", got)
	}
}

func TestLessComments(t *testing.T) {
	src := `// header comment
/* block
   comment */
.logo {
  background: url(http://example.com/logo.png); // trailing
  content: "// not a comment";
}
`
	got := compileLess(t, src)
	if strings.Contains(got, "comment */") || strings.Contains(got, "trailing") || strings.Contains(got, "header") {
		t.Errorf("comments not stripped:\n%s", got)
	}
	if !strings.Contains(got, "url(http://example.com/logo.png)") {
		t.Errorf("url mangled:\n%s", got)
	}
	if !strings.Contains(got, `"// not a comment"`) {
		t.Errorf("string mangled:\n%s", got)
	}
}

func TestLessCommaSelectors(t *testing.T) {
	got := compileLess(t, "h1, h2 { b, i { color: red; } }")
	want := "h1 b, h1 i, h2 b, h2 i {\n  color: red;\n}\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLessMediaBubbles(t *testing.T) {
	src := `
@tablet: 600px;
.a {
  color: red;
  @media (max-width: @tablet) { color: blue; }
}
`
	want := ".a {\n  color: red;\n}\n" +
		"@media (max-width: 600px) {\n  .a {\n    color: blue;\n  }\n}\n"
	if got := compileLess(t, src); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestLessAtBlocksPassThrough(t *testing.T) {
	src := `
@font-face { font-family: "Icons"; src: url(/fonts/icons.woff); }
@keyframes spin { from { opacity: 0; } to { opacity: 1; } }
`
	want := "@font-face {\n  font-family: \"Icons\";\n  src: url(/fonts/icons.woff);\n}\n" +
		"@keyframes spin {\n  from {\n    opacity: 0;\n  }\n  to {\n    opacity: 1;\n  }\n}\n"
	if got := compileLess(t, src); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestLessMixins(t *testing.T) {
	src := `
.rounded() { border-radius: 4px; }
.bordered { border: 1px solid black; }
.box { .rounded; .bordered(); color: red; }
`
	want := ".bordered {\n  border: 1px solid black;\n}\n" +
		".box {\n  border-radius: 4px;\n  border: 1px solid black;\n  color: red;\n}\n"
	if got := compileLess(t, src); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestLessInterpolation(t *testing.T) {
	src := `
@name: banner;
@dir: "/images";
.@{name} { background: url("@{dir}/bg.png"); }
`
	want := ".banner {\n  background: url(\"/images/bg.png\");\n}\n"
	if got := compileLess(t, src); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLessImport(t *testing.T) {
	dir := t.TempDir()
	writeLess(t, dir, "vars.less", "@accent: green;\n")
	writeLess(t, dir, "mixins/shadow.less", ".shadow() { box-shadow: none; }\n")
	main := writeLess(t, dir, "main.less",
		"@import \"vars\";\n@import 'mixins/shadow.less';\n@import url(reset.css);\n.a { color: @accent; .shadow; }\n")

	data, _ := os.ReadFile(main)
	c := &LessCompiler{}
	out, err := c.Compile(main, data)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := "@import url(reset.css);\n.a {\n  color: green;\n  box-shadow: none;\n}\n"
	if string(out) != want {
		t.Errorf("got:\n%s\nwant:\n%s", out, want)
	}
}

func TestLessImportCycle(t *testing.T) {
	dir := t.TempDir()
	writeLess(t, dir, "b.less", "@import \"a\";\n")
	a := writeLess(t, dir, "a.less", "@import \"b\";\n")

	data, _ := os.ReadFile(a)
	c := &LessCompiler{}
	_, err := c.Compile(a, data)
	if err == nil {
		t.Fatal("expected an import cycle error")
	}
	if !strings.Contains(err.Error(), "import cycle") {
		t.Errorf("error = %v", err)
	}
}

func TestLessMissingImport(t *testing.T) {
	dir := t.TempDir()
	a := writeLess(t, dir, "a.less", "@import \"nope\";\n")
	data, _ := os.ReadFile(a)
	c := &LessCompiler{}
	_, err := c.Compile(a, data)
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CompileError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped not-exist error, got %v", err)
	}
}

func TestLessErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		line     int
		contains string
	}{
		{"undefined variable", "a {\n  color: @nope;\n}", 2, "undefined variable @nope"},
		{"unclosed block", "a {\n  color: red;\n", 1, "missing '}'"},
		{"stray brace", "a { color: red; }\n}", 2, "unexpected '}'"},
		{"declaration at top level", "color: red;", 1, "outside of a rule"},
		{"undefined mixin", "a {\n\n  .missing;\n}", 3, "undefined mixin .missing"},
		{"self reference", "@a: @a;\nb { c: @a; }", 1, "refers to itself"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &LessCompiler{}
			_, err := c.Compile("broken.less", []byte(tt.src))
			var ce *CompileError
			if !errors.As(err, &ce) {
				t.Fatalf("expected CompileError, got %v", err)
			}
			if ce.File != "broken.less" {
				t.Errorf("File = %q", ce.File)
			}
			if ce.Line != tt.line {
				t.Errorf("Line = %d, want %d", ce.Line, tt.line)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not contain %q", err, tt.contains)
			}
		})
	}
}

func writeLess(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
