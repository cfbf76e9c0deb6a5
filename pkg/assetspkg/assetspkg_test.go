package assetspkg

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const groupsYAML = `stylesheets:
  all:
    - one
    - two
javascripts:
  app:
    - lib/*
    - main
`

// writeProject lays out a root with Less and script sources plus an
// assets.yml beside it, and returns options pointing at both.
func writeProject(t *testing.T) Options {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "public")

	files := map[string]string{
		"config/assets.yml":                  groupsYAML,
		"public/public/stylesheets/one.less": "@c: red;\na { color: @c; }\n",
		"public/public/stylesheets/two.less": "b {\n  margin: 0;\n}\n",
		"public/public/javascripts/lib/a.js": "var a = 1;\n",
		"public/public/javascripts/lib/b.js": "var b = 2;\n",
		"public/public/javascripts/main.js":  "function main() { return a + b; }\n",
	}
	for rel, content := range files {
		path := filepath.Join(base, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	opts := DefaultOptions()
	opts.Root = root
	return opts
}

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	client, err := New(ClientOptions{Packaging: opts})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestNewDefaultConfigPath(t *testing.T) {
	opts := writeProject(t)
	client := newTestClient(t, opts)

	want := filepath.Join(filepath.Dir(opts.Root), "config", "assets.yml")
	if got := client.Options().Config; got != want {
		t.Errorf("Config = %q, want %q", got, want)
	}
}

func TestNewFillsZeroPaths(t *testing.T) {
	opts := writeProject(t)
	client := newTestClient(t, Options{Root: opts.Root})

	got := client.Options()
	if got.Concurrent != 1 {
		t.Errorf("Concurrent = %d, want 1", got.Concurrent)
	}
	if got.CSS.Source != filepath.FromSlash("public/stylesheets") {
		t.Errorf("CSS.Source = %q", got.CSS.Source)
	}
}

func TestNewMissingConfig(t *testing.T) {
	opts := writeProject(t)
	opts.Config = filepath.Join(t.TempDir(), "nope.yml")

	_, err := New(ClientOptions{Packaging: opts})
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	want := `"` + opts.Config + `" is missing`
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err, want)
	}
}

func TestNewMissingRoot(t *testing.T) {
	opts := writeProject(t)
	opts.Config = filepath.Join(filepath.Dir(opts.Root), "config", "assets.yml")
	opts.Root = filepath.Join(opts.Root, "gone")

	_, err := New(ClientOptions{Packaging: opts})
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if !strings.HasSuffix(err.Error(), "could not be found") {
		t.Errorf("error = %q", err)
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	opts := writeProject(t)
	opts.JS.LineBreakAt = -1

	if _, err := New(ClientOptions{Packaging: opts}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestBuildEndToEnd(t *testing.T) {
	opts := writeProject(t)
	opts.Gzip = true
	client := newTestClient(t, opts)

	res, err := client.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	css := readFile(t, filepath.Join(opts.Root, "public/stylesheets/bundled/all.css"))
	if css != "a{color:red}b{margin:0}" {
		t.Errorf("all.css = %q", css)
	}
	if _, err := os.Stat(filepath.Join(opts.Root, "public/stylesheets/bundled/all.css.gz")); err != nil {
		t.Errorf("gzip sibling: %v", err)
	}

	js := readFile(t, filepath.Join(opts.Root, "public/javascripts/bundled/app.js"))
	ia, ib, im := strings.Index(js, "a=1"), strings.Index(js, "b=2"), strings.Index(js, "main")
	if ia < 0 || ib < ia || im < ib {
		t.Errorf("app.js out of order: %q", js)
	}

	if len(res.Bundles) != 2 {
		t.Fatalf("bundles = %+v", res.Bundles)
	}
	if res.Bundles[0].Type != Stylesheets || res.Bundles[1].Type != Scripts {
		t.Errorf("bundle order = %s, %s", res.Bundles[0].Type, res.Bundles[1].Type)
	}
	if res.Bundles[1].Files != 3 {
		t.Errorf("app files = %d, want 3", res.Bundles[1].Files)
	}
}

func TestBuildCacheBoosters(t *testing.T) {
	opts := writeProject(t)
	opts.CacheBoosters = true
	client := newTestClient(t, opts)

	res, err := client.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	sidecar := filepath.Join(filepath.Dir(client.Options().Config), ".assets.yml.json")
	var stamps map[string]string
	if err := json.Unmarshal([]byte(readFile(t, sidecar)), &stamps); err != nil {
		t.Fatalf("sidecar: %v", err)
	}

	cssHash := stamps["stylesheets/all"]
	if len(cssHash) != 32 {
		t.Fatalf("stylesheets/all stamp = %q", cssHash)
	}
	if _, ok := stamps["javascripts/app"]; !ok {
		t.Error("javascripts/app stamp missing")
	}
	if res.Bundles[0].Hash != cssHash {
		t.Errorf("result hash %q, sidecar %q", res.Bundles[0].Hash, cssHash)
	}

	stamped := filepath.Join(opts.Root, "public/stylesheets/bundled/all-"+cssHash+".css")
	if _, err := os.Stat(stamped); err != nil {
		t.Errorf("stamped bundle: %v", err)
	}
}

func TestBuildMissingEntryNamesGroup(t *testing.T) {
	opts := writeProject(t)
	if err := os.Remove(filepath.Join(opts.Root, "public/javascripts/main.js")); err != nil {
		t.Fatal(err)
	}
	client := newTestClient(t, opts)

	_, err := client.Build(context.Background())
	var ge *GroupError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GroupError, got %v", err)
	}
	if ge.Type != Scripts || ge.Group != "app" {
		t.Errorf("group error = %+v", ge)
	}
}

func TestStatusAfterBuild(t *testing.T) {
	opts := writeProject(t)
	client := newTestClient(t, opts)

	before, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(before) != 2 || before[1].State != StateMissing {
		t.Fatalf("before build = %+v", before)
	}

	if _, err := client.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	after, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	for _, s := range after {
		if s.State != StateBuilt {
			t.Errorf("%s/%s state = %s", s.Type, s.Group, s.State)
		}
		if s.Size == 0 {
			t.Errorf("%s/%s size = 0", s.Type, s.Group)
		}
	}
}

func TestGroups(t *testing.T) {
	client := newTestClient(t, writeProject(t))

	got, err := client.Groups(Scripts)
	if err != nil {
		t.Fatalf("Groups: %v", err)
	}
	if len(got) != 1 || got[0] != "app" {
		t.Errorf("Groups = %v", got)
	}
}
