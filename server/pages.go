package server

import (
	_ "embed"
	"net/http"
)

//go:embed web/overlay.html
var overlayPage []byte

//go:embed web/debug.html
var debugPage []byte

// OverlayPageHandler 返回自包含的播放页（内嵌播放端运行时）
func OverlayPageHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(overlayPage)
}

// DebugPageHandler 返回独立的诊断页
func DebugPageHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(debugPage)
}
