package overlay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"GiftFM/logger"

	"github.com/gorilla/websocket"
)

// MessageType 消息类型
type MessageType string

const (
	// 服务端 -> 播放端
	MsgTypeConnected  MessageType = "connected"   // 连接成功，入会时发送一次
	MsgTypePlayAudio  MessageType = "play-audio"  // 播放一条音频
	MsgTypeClearQueue MessageType = "clear-queue" // 清空本地队列并停止当前播放

	// 播放端 -> 服务端
	MsgTypeAudioEnded MessageType = "audio-ended" // 一条音频播放结束（或失败）
)

// WSMessage WebSocket 消息结构
type WSMessage struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// PlayAudioData 播放指令数据
type PlayAudioData struct {
	AudioURL string  `json:"audioUrl"`
	Volume   float64 `json:"volume"`
	GiftName string  `json:"giftName"`
	Username string  `json:"username"`
	GiftID   string  `json:"giftId"`
}

// AudioEndedData 播放端完成回报；Duration 为空表示播放出错
type AudioEndedData struct {
	Duration *float64 `json:"duration,omitempty"`
}

// Client 一个已连接的播放端
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
	ID   string
}

// EndedFunc receives client playback completions. ok is false when the
// client reported a playback error (no measured duration).
type EndedFunc func(duration float64, ok bool)

// Hub 播放端连接管理中心。广播是尽力而为的：没有客户端时广播为空操作，
// 发送缓冲写满的客户端会被直接移除。
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu   sync.RWMutex
	done chan struct{}

	onEnded EndedFunc
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// OnEnded sets the completion callback. Must be called before Run.
func (h *Hub) OnEnded(fn EndedFunc) {
	h.onEnded = fn
}

// Run 启动 Hub 主循环
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastToClients(message)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop 停止 Hub
func (h *Hub) Stop() {
	close(h.done)
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	logger.Info("overlay client connected",
		logger.String("client", client.ID),
		logger.Int("total", h.ClientCount()))

	// 入会只发一次 connected，不重放历史广播
	client.SendMessage(&WSMessage{Type: MsgTypeConnected})
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
		logger.Info("overlay client disconnected", logger.String("client", client.ID))
	}
}

// broadcastToClients 向所有客户端广播消息
func (h *Hub) broadcastToClients(message []byte) {
	h.mu.RLock()
	clientList := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clientList = append(clientList, client)
	}
	h.mu.RUnlock()

	for _, client := range clientList {
		select {
		case client.Send <- message:
		default:
			// 发送缓冲区满视为死连接，就地移除。unregister 通道由本循环
			// 消费，在这里投递会把主循环锁死
			h.dropClient(client)
		}
	}
}

// dropClient 同步移除一个客户端，供 Run 循环内部调用
func (h *Hub) dropClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
		logger.Warn("overlay client send buffer full, dropped",
			logger.String("client", client.ID))
	}
}

// cleanup 清理所有连接
func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.Send)
	}
	h.clients = make(map[*Client]bool)
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast 向所有播放端广播一条消息
func (h *Hub) Broadcast(msg *WSMessage) error {
	msg.Timestamp = time.Now().UnixMilli()
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.broadcast <- data
	return nil
}

// ClientCount 当前连接的播放端数量
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ========== Client 方法 ==========

// ReadPump 读取消息循环
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(4096) // 4KB
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, message, err := c.Conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Warn("websocket read error",
						logger.ErrorField(err),
						logger.String("client", c.ID))
				}
				return
			}

			var msg WSMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				logger.Warn("invalid message format",
					logger.ErrorField(err),
					logger.String("client", c.ID))
				continue
			}

			if msg.Type != MsgTypeAudioEnded {
				logger.Debug("unexpected client message",
					logger.String("type", string(msg.Type)),
					logger.String("client", c.ID))
				continue
			}

			var ended AudioEndedData
			if len(msg.Data) > 0 {
				if err := json.Unmarshal(msg.Data, &ended); err != nil {
					logger.Warn("invalid audio-ended payload", logger.ErrorField(err))
					continue
				}
			}
			if c.Hub.onEnded != nil {
				if ended.Duration != nil {
					c.Hub.onEnded(*ended.Duration, true)
				} else {
					c.Hub.onEnded(0, false)
				}
			}
		}
	}
}

// WritePump 写入消息循环
func (c *Client) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub 关闭了通道
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// 合并发送队列中的消息
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage 发送消息给客户端
func (c *Client) SendMessage(msg *WSMessage) error {
	msg.Timestamp = time.Now().UnixMilli()
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case c.Send <- data:
		return nil
	default:
		return nil // 缓冲区满，丢弃消息
	}
}
