package overrides

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolvePath(t *testing.T) {
	t.Parallel()

	base, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		setting string
		want    string
	}{
		{"empty selects default", "", filepath.Join(base, DefaultFilename)},
		{"relative joined to base", "custom.csv", filepath.Join(base, "custom.csv")},
		{"relative segments removed", "sub/../other.csv", filepath.Join(base, "other.csv")},
		{"absolute kept", filepath.Join(base, "abs", "o.csv"), filepath.Join(base, "abs", "o.csv")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ResolvePath(tc.setting, base)
			if err != nil {
				t.Fatalf("ResolvePath: %v", err)
			}
			if got != tc.want {
				t.Errorf("ResolvePath(%q) = %q, want %q", tc.setting, got, tc.want)
			}
		})
	}
}

func TestResolvePath_ResolvesSymlinkedBase(t *testing.T) {
	t.Parallel()

	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(root, "real")
	if err := os.Mkdir(target, 0o755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(root, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	got, err := ResolvePath("missing/dir/o.csv", link)
	if err != nil {
		t.Fatalf("ResolvePath: %v", err)
	}
	if want := filepath.Join(target, "missing", "dir", "o.csv"); got != want {
		t.Errorf("ResolvePath = %q, want %q", got, want)
	}
}

func TestResolvePath_DefaultBaseDir(t *testing.T) {
	t.Parallel()
	base, err := DefaultBaseDir()
	if err != nil {
		t.Skipf("no user config dir: %v", err)
	}
	got, err := ResolvePath("", "")
	if err != nil {
		t.Fatalf("ResolvePath: %v", err)
	}
	if filepath.Base(got) != DefaultFilename || filepath.Base(filepath.Dir(got)) != filepath.Base(base) {
		t.Errorf("ResolvePath(\"\", \"\") = %q, want %s/%s", got, base, DefaultFilename)
	}
}
