package cmd

import (
	"path/filepath"
	"testing"
)

func TestHumanSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{-1, "0 B"},
		{0, "0 B"},
		{1, "1 B"},
		{512, "512 B"},
		{1000, "1.0 kB"},
		{1500, "1.5 kB"},
		{12345, "12 kB"},
		{1500000, "1.5 MB"},
		{2500000000, "2.5 GB"},
	}

	for _, tt := range tests {
		got := humanSize(tt.bytes)
		if got != tt.want {
			t.Errorf("humanSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestRelTo(t *testing.T) {
	root := filepath.FromSlash("/srv/app")
	path := filepath.Join(root, "public", "stylesheets", "bundled", "all.css")
	if got := relTo(root, path); got != "public/stylesheets/bundled/all.css" {
		t.Errorf("relTo = %q", got)
	}
}
