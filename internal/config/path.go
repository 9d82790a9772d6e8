package config

import (
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
)

// DefaultDataDir returns the per-user directory used by `toyo broker start
// --system`: $XDG_DATA_HOME/toyo when set, ~/.local/share/toyo on Linux and
// the platform config directory elsewhere.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "toyo")
	}
	home, err := os.UserHomeDir()
	if goruntime.GOOS == "linux" && err == nil && home != "" {
		return filepath.Join(home, ".local", "share", "toyo")
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "toyo")
	}
	return "toyo-data"
}

// EnsureDir creates dir (and parents) with owner-only write access.
func EnsureDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.MkdirAll(ResolvePath("", dir), 0o755)
}

// ResolvePath expands a leading ~/ in p and joins a relative result onto dir.
// Absolute paths and an empty dir leave p as is.
func ResolvePath(dir, p string) string {
	if p == "" {
		return p
	}
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	if dir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(ResolvePath("", dir), p)
}
