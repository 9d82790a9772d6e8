package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultDataDirHonoursXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	if got := DefaultDataDir(); got != filepath.Join("/custom/data", "toyo") {
		t.Fatalf("DefaultDataDir() = %q", got)
	}
}

func TestDefaultDataDirUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", home)
	got := DefaultDataDir()
	if filepath.Base(got) != "toyo" {
		t.Fatalf("DefaultDataDir() = %q, want a toyo directory", got)
	}
	if !filepath.IsAbs(got) {
		t.Fatalf("DefaultDataDir() = %q, want absolute", got)
	}
}

func TestResolvePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	tests := []struct {
		name, dir, p, want string
	}{
		{"no dir", "", "queue.json", "queue.json"},
		{"relative", "/srv/toyo", "queue.json", "/srv/toyo/queue.json"},
		{"absolute wins", "/srv/toyo", "/tmp/q.json", "/tmp/q.json"},
		{"empty path", "/srv/toyo", "", ""},
		{"home path", "/srv/toyo", "~/q.json", filepath.Join(home, "q.json")},
		{"home dir", "~/runs", "done.json", filepath.Join(home, "runs", "done.json")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolvePath(tt.dir, tt.p); got != tt.want {
				t.Fatalf("ResolvePath(%q, %q) = %q, want %q", tt.dir, tt.p, got, tt.want)
			}
		})
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir twice: %v", err)
	}
	if err := EnsureDir(""); err != nil {
		t.Fatalf("EnsureDir empty: %v", err)
	}
}
