package catalog

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	dir := t.TempDir()
	c, err := Open(filepath.Join(dir, "catalog.db"), filepath.Join(dir, "library"))
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func importClip(t *testing.T, c *Catalog, name string, size int) string {
	t.Helper()
	f, err := c.ImportFile(bytes.NewReader(make([]byte, size)), name)
	if err != nil {
		t.Fatalf("ImportFile(%s) failed: %v", name, err)
	}
	return f.ID
}

func TestImportFile(t *testing.T) {
	c := openTestCatalog(t)

	f, err := c.ImportFile(bytes.NewReader(make([]byte, 32000)), "hello song.mp3")
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}

	if f.DisplayName != "hello song" {
		t.Errorf("display name should drop extension, got %q", f.DisplayName)
	}
	if f.Gain != 1.0 {
		t.Errorf("imported gain should default to 1.0, got %v", f.Gain)
	}
	if f.SizeBytes != 32000 {
		t.Errorf("expected 32000 bytes, got %d", f.SizeBytes)
	}
	if filepath.Dir(f.Path) != c.LibraryDir() {
		t.Errorf("file should live under the library dir, got %s", f.Path)
	}
	if _, err := os.Stat(f.Path); err != nil {
		t.Errorf("imported file missing on disk: %v", err)
	}

	// mp3 约 128kbps：32000 字节 ≈ 2 秒
	if math.Abs(f.Duration-2.0) > 0.01 {
		t.Errorf("expected ~2s duration estimate, got %v", f.Duration)
	}
}

func TestImportFromPath(t *testing.T) {
	c := openTestCatalog(t)

	src := filepath.Join(t.TempDir(), "intro.mp3")
	if err := os.WriteFile(src, make([]byte, 16000), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := c.ImportFromPath(src)
	if err != nil {
		t.Fatalf("ImportFromPath failed: %v", err)
	}
	if f.DisplayName != "intro" {
		t.Errorf("unexpected display name %q", f.DisplayName)
	}
	// 拷贝导入，源文件保持不动
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source file should be untouched: %v", err)
	}
	if f.Path == src {
		t.Error("imported file should live under the library dir, not the source path")
	}
	if _, err := os.Stat(f.Path); err != nil {
		t.Errorf("imported copy missing: %v", err)
	}
}

func TestImportRejectsUnknownExtension(t *testing.T) {
	c := openTestCatalog(t)
	if _, err := c.ImportFile(bytes.NewReader([]byte("x")), "notes.txt"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestListAndGet(t *testing.T) {
	c := openTestCatalog(t)

	id1 := importClip(t, c, "a.mp3", 1000)
	importClip(t, c, "b.wav", 2000)

	list, err := c.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list))
	}

	got, err := c.Get(id1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.DisplayName != "a" {
		t.Errorf("unexpected entry: %+v", got)
	}

	if _, err := c.Get("no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRenameAndGain(t *testing.T) {
	c := openTestCatalog(t)
	id := importClip(t, c, "a.mp3", 1000)

	if err := c.Rename(id, "fanfare"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if err := c.SetGain(id, 2.5); err != nil {
		t.Fatalf("SetGain failed: %v", err)
	}

	got, _ := c.Get(id)
	if got.DisplayName != "fanfare" {
		t.Errorf("expected renamed entry, got %q", got.DisplayName)
	}
	if got.Gain != 1.0 {
		t.Errorf("gain above 1 should clamp to 1, got %v", got.Gain)
	}

	if err := c.Rename("no-such-id", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := c.SetGain("no-such-id", 0.5); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRemovesFile(t *testing.T) {
	c := openTestCatalog(t)
	id := importClip(t, c, "a.mp3", 1000)

	entry, _ := c.Get(id)
	removed, err := c.Delete(id)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if removed.Path != entry.Path {
		t.Errorf("Delete should return the removed entry, got %+v", removed)
	}
	if _, err := os.Stat(entry.Path); !os.IsNotExist(err) {
		t.Errorf("file should be gone from disk, stat err=%v", err)
	}
	if _, err := c.Get(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("entry should be gone from catalog, got %v", err)
	}
}

func TestDeleteByPathKeepsDisk(t *testing.T) {
	c := openTestCatalog(t)
	id := importClip(t, c, "a.mp3", 1000)
	entry, _ := c.Get(id)

	if _, err := c.DeleteByPath(entry.Path); err != nil {
		t.Fatalf("DeleteByPath failed: %v", err)
	}
	if _, err := c.GetByPath(entry.Path); !errors.Is(err, ErrNotFound) {
		t.Errorf("row should be gone, got %v", err)
	}
	// 外部删除场景：不触碰文件系统
	if _, err := os.Stat(entry.Path); err != nil {
		t.Errorf("DeleteByPath must not remove the file: %v", err)
	}
}

func TestEstimateDuration(t *testing.T) {
	cases := []struct {
		path string
		size int64
		want float64
	}{
		{"a.mp3", 32000, 2.0},
		{"a.wav", 176400, 1.0},
		{"a.flac", 88200, 1.0},
		{"a.txt", 1000, 0},
		{"a.mp3", 0, 0},
	}
	for _, c := range cases {
		if got := EstimateDuration(c.path, c.size); math.Abs(got-c.want) > 0.01 {
			t.Errorf("EstimateDuration(%s, %d) = %v, want %v", c.path, c.size, got, c.want)
		}
	}
}

func TestContentTypeFor(t *testing.T) {
	if ct := ContentTypeFor("clip.MP3"); ct != "audio/mpeg" {
		t.Errorf("extension match should be case-insensitive, got %q", ct)
	}
	if ct := ContentTypeFor("clip.exe"); ct != "" {
		t.Errorf("unknown extension should yield empty type, got %q", ct)
	}
}
