package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
)

// LibraryHandler serves the configured library directory read-only: exact
// file names only (no directory listing), dotfiles denied.
type LibraryHandler struct {
	dir string
}

// NewLibraryHandler 创建音频库静态文件处理器
func NewLibraryHandler(dir string) *LibraryHandler {
	return &LibraryHandler{dir: dir}
}

// ServeHTTP 实现 http.Handler 接口
func (h *LibraryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]

	// 只允许一层文件名，拒绝隐藏文件和路径穿越
	if name == "" || strings.HasPrefix(name, ".") || name != filepath.Base(name) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	path := filepath.Join(h.dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	http.ServeFile(w, r, path)
}
