package server

import (
	"context"
	"net/http"

	"GiftFM/core/overlay"
	"GiftFM/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// OverlayHandler upgrades overlay clients onto the push channel.
type OverlayHandler struct {
	hub      *overlay.Hub
	upgrader websocket.Upgrader
}

// NewOverlayHandler 创建播放端接入处理器
func NewOverlayHandler(hub *overlay.Hub) *OverlayHandler {
	return &OverlayHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS 处理 WebSocket 升级并启动读写循环
func (h *OverlayHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	client := &overlay.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 64),
		ID:   uuid.NewString(),
	}

	h.hub.Register(client)

	// 升级后的连接生命周期独立于本次请求
	go client.WritePump()
	go client.ReadPump(context.Background())
}
