package pathutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Ning0612/sympack/internal/domain"
	"github.com/Ning0612/sympack/internal/testutil"
)

// TestDecompose tests basename, stem, ext and parent extraction
func TestDecompose(t *testing.T) {
	tests := []struct {
		path     string
		basename string
		stem     string
		ext      string
		parent   string
	}{
		{"/a/b/c.txt", "c.txt", "c", ".txt", "/a/b"},
		{"/a/.gitignore", ".gitignore", ".gitignore", "", "/a"},
		{`C:\dir\file.tar.gz`, "file.tar.gz", "file.tar", ".gz", `C:\dir`},
		{"noext", "noext", "noext", "", ""},
		{"dir/trailing.", "trailing.", "trailing.", "", "dir"},
		{"a/b..", "b..", "b..", "", "a"},
		{"/top", "top", "top", "", ""},
		{"mixed\\sep/名前.md", "名前.md", "名前", ".md", "mixed\\sep"},
		{"", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := Basename(tt.path); got != tt.basename {
				t.Errorf("Basename = %q, want %q", got, tt.basename)
			}
			if got := Stem(tt.path); got != tt.stem {
				t.Errorf("Stem = %q, want %q", got, tt.stem)
			}
			if got := Ext(tt.path); got != tt.ext {
				t.Errorf("Ext = %q, want %q", got, tt.ext)
			}
			if got := ParentDir(tt.path, false); got != tt.parent {
				t.Errorf("ParentDir = %q, want %q", got, tt.parent)
			}
		})
	}
}

// TestSlashIdempotence tests AppendSlash and RemoveSlash normalization
func TestSlashIdempotence(t *testing.T) {
	paths := []string{"", "a", "a/", "a//", `a\b\`, "/", "/x/y"}

	for _, p := range paths {
		if got, want := RemoveSlash(AppendSlash(p)), RemoveSlash(p); got != want {
			t.Errorf("RemoveSlash(AppendSlash(%q)) = %q, want %q", p, got, want)
		}
		if got, want := AppendSlash(AppendSlash(p)), AppendSlash(p); got != want {
			t.Errorf("AppendSlash twice on %q = %q, want %q", p, got, want)
		}
		if got, want := RemoveSlash(RemoveSlash(p)), RemoveSlash(p); got != want {
			t.Errorf("RemoveSlash twice on %q = %q, want %q", p, got, want)
		}
	}

	if got := AppendSlash("dir"); got != "dir"+Separator {
		t.Errorf("AppendSlash(dir) = %q", got)
	}
}

// TestJoin tests separator handling when joining
func TestJoin(t *testing.T) {
	if got := Join("a/", "/b"); got != "a/b" {
		t.Errorf("Join = %q, want a/b", got)
	}
	if got := Join("", "b"); got != "b" {
		t.Errorf("Join with empty dir = %q, want b", got)
	}
	if got := ToSlash(`a\b\c`); got != "a/b/c" {
		t.Errorf("ToSlash = %q", got)
	}
}

// TestKindChecks tests IsFile and IsDir against real paths
func TestKindChecks(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	file := testutil.CreateTestFile(t, dir, "ファイル.txt", []byte("x"))
	missing := filepath.Join(dir, "missing")

	if !IsFile(file) || IsDir(file) {
		t.Errorf("file misclassified")
	}
	if !IsDir(dir) || IsFile(dir) {
		t.Errorf("directory misclassified")
	}
	if IsFile(missing) || IsDir(missing) || Exists(missing) {
		t.Errorf("missing path reported as existing")
	}
}

// TestStat tests metadata population and the not-found case
func TestStat(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	content := []byte("hello stat")
	file := testutil.CreateTestFile(t, dir, "s.bin", content)

	st, err := Stat(file)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if st.Size != int64(len(content)) {
		t.Errorf("Size = %d, want %d", st.Size, len(content))
	}
	if !st.IsFile() || st.Type() != domain.FileTypeRegular {
		t.Errorf("expected regular file, mode %v", st.Mode)
	}
	if st.ModTime.IsZero() {
		t.Errorf("ModTime not populated")
	}
	if st.Links < 1 {
		t.Errorf("Links = %d, want >= 1", st.Links)
	}

	dst, err := Stat(dir)
	if err != nil {
		t.Fatalf("Stat dir failed: %v", err)
	}
	if !dst.IsDir() {
		t.Errorf("expected directory, mode %v", dst.Mode)
	}

	if _, err := Stat(filepath.Join(dir, "nope")); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestComplete tests absolute resolution and parent resolution
func TestComplete(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	resolvedDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("EvalSymlinks failed: %v", err)
	}
	testutil.CreateTestFile(t, dir, "c.txt", nil)

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	defer os.Chdir(wd)

	if got := Complete("c.txt"); got != filepath.Join(resolvedDir, "c.txt") {
		t.Errorf("Complete = %q, want %q", got, filepath.Join(resolvedDir, "c.txt"))
	}
	if got := ParentDir("c.txt", true); got != resolvedDir {
		t.Errorf("ParentDir(resolve) = %q, want %q", got, resolvedDir)
	}
	if got := Complete("does-not-exist"); got != filepath.Join(resolvedDir, "does-not-exist") {
		t.Errorf("Complete of missing path = %q", got)
	}
}
