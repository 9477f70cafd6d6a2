package overrides

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultBaseDir returns the directory relative override paths are resolved
// against when none is configured: "homophoner" below the user config
// directory.
func DefaultBaseDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("overrides: default base dir: %w", err)
	}
	return filepath.Join(dir, "homophoner"), nil
}

// ResolvePath computes the canonical override file location. An empty
// setting selects [DefaultFilename]; relative settings are joined to baseDir
// (or [DefaultBaseDir] when baseDir is empty). The result is absolute, and
// symlinks are resolved for every component that already exists, so the file
// itself does not need to exist yet.
func ResolvePath(setting, baseDir string) (string, error) {
	if setting == "" {
		setting = DefaultFilename
	}
	p := setting
	if !filepath.IsAbs(p) {
		if baseDir == "" {
			var err error
			if baseDir, err = DefaultBaseDir(); err != nil {
				return "", err
			}
		}
		p = filepath.Join(baseDir, p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("overrides: resolve %q: %w", setting, err)
	}
	return canonical(abs)
}

// canonical resolves symlinks on the longest existing prefix of an absolute,
// cleaned path and re-appends the missing tail.
func canonical(p string) (string, error) {
	var tail []string
	cur := p
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			parts := append([]string{resolved}, tail...)
			return filepath.Join(parts...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("overrides: resolve %s: %w", p, err)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		tail = append([]string{filepath.Base(cur)}, tail...)
		cur = parent
	}
}
