package catalog

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"
)

func TestWatcherPrunesExternalDelete(t *testing.T) {
	c := openTestCatalog(t)

	f, err := c.ImportFile(bytes.NewReader(make([]byte, 1000)), "a.mp3")
	if err != nil {
		t.Fatal(err)
	}

	pruned := make(chan string, 1)
	w, err := NewWatcher(c, func(path string) { pruned <- path })
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Stop()

	// 绕过目录层，直接从磁盘删除
	if err := os.Remove(f.Path); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-pruned:
		if path != f.Path {
			t.Errorf("expected prune for %s, got %s", f.Path, path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the external delete")
	}

	if _, err := c.Get(f.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("catalog row should be pruned, got %v", err)
	}
}

func TestWatcherIgnoresUnknownFiles(t *testing.T) {
	c := openTestCatalog(t)

	pruned := make(chan string, 1)
	w, err := NewWatcher(c, func(path string) { pruned <- path })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	// 库目录里出现又消失一个未登记的文件
	stray := c.LibraryDir() + "/stray.tmp"
	if err := os.WriteFile(stray, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	os.Remove(stray)

	select {
	case path := <-pruned:
		t.Errorf("unregistered file should not trigger prune: %s", path)
	case <-time.After(300 * time.Millisecond):
	}
}
