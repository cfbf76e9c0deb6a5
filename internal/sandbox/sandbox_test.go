package sandbox

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

func TestValidatePathWithinRoot(t *testing.T) {
	root := t.TempDir()

	resolved, err := ValidatePath(root, "bundled/all.css")
	if err != nil {
		t.Fatalf("ValidatePath: %v", err)
	}

	realRoot, _ := filepath.EvalSymlinks(root)
	expected := filepath.Join(realRoot, "bundled", "all.css")
	if resolved != expected {
		t.Errorf("got %q, want %q", resolved, expected)
	}
}

func TestValidatePathAbsolute(t *testing.T) {
	root := t.TempDir()
	realRoot, _ := filepath.EvalSymlinks(root)

	resolved, err := ValidatePath(root, filepath.Join(realRoot, "js", "app.js"))
	if err != nil {
		t.Fatalf("ValidatePath: %v", err)
	}
	if resolved != filepath.Join(realRoot, "js", "app.js") {
		t.Errorf("got %q", resolved)
	}
}

func TestValidatePathRejectsDotDot(t *testing.T) {
	root := t.TempDir()

	_, err := ValidatePath(root, "bundled/../../escape.css")
	if err == nil {
		t.Fatal("expected error for .. escape")
	}
	if !strings.Contains(err.Error(), "outside the asset root") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidatePathRejectsSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test not reliable on Windows")
	}

	root := t.TempDir()
	outsideDir := t.TempDir()

	symlink := filepath.Join(root, "escape-link")
	if err := os.Symlink(outsideDir, symlink); err != nil {
		t.Fatalf("creating symlink: %v", err)
	}

	_, err := ValidatePath(root, "escape-link/all.css")
	if err == nil {
		t.Fatal("expected error for symlink escape")
	}
	if !strings.Contains(err.Error(), "outside the asset root") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMaterializeCreatesSegments(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "public", "stylesheets", "bundled")

	if err := Materialize(root, target); err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("directory should exist: %v", err)
	}
	if !info.IsDir() {
		t.Error("should be a directory")
	}
}

func TestMaterializeExistingIsNoop(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "bundled")
	if err := os.Mkdir(target, 0755); err != nil {
		t.Fatal(err)
	}

	if err := Materialize(root, target); err != nil {
		t.Fatalf("Materialize on existing dir: %v", err)
	}
	if err := Materialize(root, root); err != nil {
		t.Fatalf("Materialize on root: %v", err)
	}
}

func TestMaterializeConcurrent(t *testing.T) {
	root := t.TempDir()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub := "shared"
			if i%2 == 0 {
				sub = filepath.Join("shared", "even")
			}
			errs <- Materialize(root, filepath.Join(root, "public", sub))
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent Materialize: %v", err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "public", "shared", "even")); err != nil {
		t.Errorf("nested directory missing: %v", err)
	}
}

func TestMaterializeRejectsOutsideRoot(t *testing.T) {
	root := t.TempDir()
	err := Materialize(filepath.Join(root, "inner"), filepath.Join(root, "other"))
	if err == nil {
		t.Fatal("expected error for directory outside root")
	}
	if !strings.Contains(err.Error(), "outside the asset root") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMaterializeFileInTheWay(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "bundled"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	err := Materialize(root, filepath.Join(root, "bundled", "css"))
	if err == nil {
		t.Fatal("expected error when a file blocks the path")
	}
}

func TestSafeWriteCreatesFile(t *testing.T) {
	root := t.TempDir()

	if err := SafeWrite(root, "all.css", []byte("a{color:red}"), 0644); err != nil {
		t.Fatalf("SafeWrite: %v", err)
	}

	written, err := os.ReadFile(filepath.Join(root, "all.css"))
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if string(written) != "a{color:red}" {
		t.Errorf("content = %q", string(written))
	}

	entries, _ := os.ReadDir(root)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestSafeWriteOverwritesExisting(t *testing.T) {
	root := t.TempDir()

	if err := SafeWrite(root, "app.js", []byte("original"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := SafeWrite(root, "app.js", []byte("updated"), 0644); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(filepath.Join(root, "app.js"))
	if string(data) != "updated" {
		t.Errorf("content = %q, want %q", string(data), "updated")
	}
}

func TestSafeWriteRejectsEscape(t *testing.T) {
	root := t.TempDir()
	if err := SafeWrite(root, "../escape.css", []byte("bad"), 0644); err == nil {
		t.Fatal("expected error for escape attempt")
	}
}

func TestSafeWriteRequiresDirectory(t *testing.T) {
	root := t.TempDir()
	if err := SafeWrite(root, "missing/all.css", []byte("x"), 0644); err == nil {
		t.Fatal("expected error when parent directory was not materialized")
	}
}
