package catalog

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"GiftFM/model"

	"github.com/google/uuid"
)

// ImportFile copies src into the library directory under a fresh uuid name
// (keeping the original extension) and registers it in the catalog. The
// display name defaults to the original file name without its extension.
func (c *Catalog) ImportFile(src io.Reader, originalName string) (*model.AudioFile, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !IsAudioPath(originalName) {
		return nil, fmt.Errorf("unsupported audio type: %s", ext)
	}

	dest := filepath.Join(c.libraryDir, uuid.NewString()+ext)
	out, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("创建文件失败: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dest)
		return nil, fmt.Errorf("保存文件失败: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return nil, err
	}

	display := strings.TrimSuffix(filepath.Base(originalName), ext)
	f, err := c.register(dest, display)
	if err != nil {
		os.Remove(dest)
		return nil, err
	}
	return f, nil
}

// ImportFromPath imports an existing local file by copying it into the
// library.
func (c *Catalog) ImportFromPath(path string) (*model.AudioFile, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return c.ImportFile(src, filepath.Base(path))
}

// ImportFromURL downloads a clip and imports it.
func (c *Catalog) ImportFromURL(url string) (*model.AudioFile, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("下载文件失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("下载文件失败，状态码: %d", resp.StatusCode)
	}

	name := filepath.Base(resp.Request.URL.Path)
	return c.ImportFile(resp.Body, name)
}
