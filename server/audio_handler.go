package server

import (
	"net/http"
	"os"
	"path/filepath"

	"GiftFM/catalog"
	"GiftFM/core/overlay"
	"GiftFM/logger"

	"github.com/gorilla/mux"
)

// AudioHandler serves registered audio files by opaque token with range
// support. Token misses and disallowed extensions never reveal paths, and
// serving errors never affect queue accounting (the item was counted at
// dispatch time).
type AudioHandler struct {
	svc *overlay.Service
}

// NewAudioHandler 创建音频拉取处理器
func NewAudioHandler(svc *overlay.Service) *AudioHandler {
	return &AudioHandler{svc: svc}
}

// ServeHTTP 按 token 返回音频字节，支持 Range 请求
func (h *AudioHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	path, ok := h.svc.ResolveToken(token)
	if !ok {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	contentType := catalog.ContentTypeFor(path)
	if contentType == "" {
		// token 解析出的不是允许的音频类型
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to open audio file",
			logger.String("path", path), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	// ServeContent 负责 Accept-Ranges / Range / If-Modified-Since
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}
