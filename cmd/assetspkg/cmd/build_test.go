package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// runRoot executes a fresh root command with args and returns what it
// printed to stdout and stderr.
func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCommand(t, runBuild, args...)
}

// runCommand executes run as a fresh command carrying every root flag.
func runCommand(t *testing.T, run func(*cobra.Command, []string) error, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("ASSETSPKG_NO_INHERIT", "1")

	var out, errOut bytes.Buffer
	oldOut, oldErr, oldBuild := stdout, stderr, build
	stdout, stderr = &out, &errOut
	t.Cleanup(func() { stdout, stderr, build = oldOut, oldErr, oldBuild })

	build = buildFlags{}
	cmd := &cobra.Command{
		Use:           "assetspkg",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	build.register(cmd.Flags())
	registerOutputFlags(cmd.Flags())
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// writeApp lays out a root with one stylesheet group and one script group.
func writeApp(t *testing.T) (string, string) {
	t.Helper()
	root, cfgDir := projectDirs(t)
	files := map[string]string{
		"public/stylesheets/one.less": "a { color: red; }\n",
		"public/stylesheets/two.less": "b { margin: 0; }\n",
		"public/javascripts/app.js":   "var answer = 42;\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		writeText(t, path, content)
	}
	writeText(t, filepath.Join(cfgDir, "assets.yml"), "stylesheets:\n  all: [one, two]\njavascripts:\n  app: [app]\n")
	return root, cfgDir
}

func TestRunBuildMissingConfig(t *testing.T) {
	root, cfgDir := projectDirs(t)

	out, errOut, err := runRoot(t, "-r", root)
	if err != nil {
		t.Fatalf("missing config should not fail the command: %v", err)
	}
	if out != "" {
		t.Errorf("stdout = %q, want nothing", out)
	}
	want := `"` + filepath.Join(cfgDir, "assets.yml") + `" is missing` + "\n"
	if errOut != want {
		t.Errorf("stderr = %q, want %q", errOut, want)
	}
}

func TestRunBuildMissingRoot(t *testing.T) {
	root, cfgDir := writeApp(t)
	missing := filepath.Join(root, "gone")

	out, errOut, err := runRoot(t, "-r", missing, "-c", filepath.Join(cfgDir, "assets.yml"))
	if err != nil {
		t.Fatalf("missing root should not fail the command: %v", err)
	}
	if out != "" {
		t.Errorf("stdout = %q, want nothing", out)
	}
	if errOut != `"`+missing+`" could not be found`+"\n" {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestRunBuildWritesBundles(t *testing.T) {
	root, _ := writeApp(t)

	out, errOut, err := runRoot(t, "-r", root, "-g")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if errOut != "" {
		t.Errorf("stderr = %q", errOut)
	}
	for _, line := range []string{
		"processed group type=stylesheets group=all files=2",
		"processed group type=javascripts group=app files=1",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("stdout missing %q:\n%s", line, out)
		}
	}
	for _, rel := range []string{
		"public/stylesheets/bundled/all.css",
		"public/stylesheets/bundled/all.css.gz",
		"public/javascripts/bundled/app.js",
		"public/javascripts/bundled/app.js.gz",
	} {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel))); err != nil {
			t.Errorf("%s: %v", rel, err)
		}
	}
}

func TestRunBuildOnlyFilter(t *testing.T) {
	root, _ := writeApp(t)

	if _, _, err := runRoot(t, "-r", root, "-o", "app.js"); err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "public/javascripts/bundled/app.js")); err != nil {
		t.Errorf("app.js: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "public/stylesheets/bundled/all.css")); err == nil {
		t.Error("all.css written although only app.js was requested")
	}
}

func TestRunBuildQuiet(t *testing.T) {
	root, _ := writeApp(t)

	out, _, err := runRoot(t, "-r", root, "--quiet")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if out != "" {
		t.Errorf("stdout = %q, want nothing in quiet mode", out)
	}
}

func TestRunBuildVerboseSummary(t *testing.T) {
	root, _ := writeApp(t)

	out, _, err := runRoot(t, "-r", root, "--verbose")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, want := range []string{"GROUP", "public/stylesheets/bundled/all.css", "2 bundle(s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestRunBuildJSONLogs(t *testing.T) {
	root, _ := writeApp(t)

	out, _, err := runRoot(t, "-r", root, "--log-format", "json")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(out, `"msg":"processed group"`) {
		t.Errorf("stdout is not JSON logs:\n%s", out)
	}
}

func TestRunBuildFailsOnUnknownEntry(t *testing.T) {
	root, cfgDir := writeApp(t)
	writeText(t, filepath.Join(cfgDir, "assets.yml"), "javascripts:\n  app: [nope]\n")

	_, _, err := runRoot(t, "-r", root)
	if err == nil {
		t.Fatal("expected an error for an entry that matches nothing")
	}
	if !strings.Contains(err.Error(), "app") {
		t.Errorf("error should name the group: %v", err)
	}
}

func TestStatusBeforeAndAfterBuild(t *testing.T) {
	root, _ := writeApp(t)

	out, errOut, err := runCommand(t, statusCmd.RunE, "-r", root)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "missing") {
		t.Errorf("app should be missing before a build:\n%s", out)
	}
	// all.css is built from one.css and two.css, which only exist after precompilation.
	if !strings.Contains(errOut, "stylesheets group 'all'") {
		t.Errorf("stderr = %q", errOut)
	}

	if _, _, err := runRoot(t, "-r", root); err != nil {
		t.Fatalf("build: %v", err)
	}

	out, errOut, err = runCommand(t, statusCmd.RunE, "-r", root)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if strings.Contains(out, "missing") || strings.Count(out, "built") != 2 {
		t.Errorf("status after build:\n%s", out)
	}
	if errOut != "" {
		t.Errorf("stderr = %q", errOut)
	}
}
