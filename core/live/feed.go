package live

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"GiftFM/logger"
	"GiftFM/model"

	"github.com/gorilla/websocket"
)

// Source is an upstream live-event publisher. Connect is user-initiated;
// the core never reconnects on its own.
type Source interface {
	Connect(ctx context.Context) error
	Disconnect()
	State() model.FeedState
}

// relayFrame is one raw frame from the relay endpoint.
type relayFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// relayGift mirrors the relay's gift frame payload.
type relayGift struct {
	UserID         string `json:"userId"`
	Username       string `json:"uniqueId"`
	Nickname       string `json:"nickname"`
	GiftID         int64  `json:"giftId"`
	GiftName       string `json:"giftName"`
	RepeatCount    int    `json:"repeatCount"`
	DiamondCount   int    `json:"diamondCount"`
	RepeatEnd      bool   `json:"repeatEnd"`
	GiftPictureURL string `json:"giftPictureUrl"`
}

type relayChat struct {
	UserID   string `json:"userId"`
	Username string `json:"uniqueId"`
	Nickname string `json:"nickname"`
	Comment  string `json:"comment"`
}

type relayMember struct {
	UserID   string `json:"userId"`
	Username string `json:"uniqueId"`
	Nickname string `json:"nickname"`
}

type relayRoomStats struct {
	ViewerCount int `json:"viewerCount"`
}

// RelayFeed subscribes to a WebSocket relay that re-emits typed live
// events for one room and republishes them on the bus. Only combo-final
// gift events are forwarded downstream.
type RelayFeed struct {
	relayURL string
	roomID   string
	bus      *Bus

	mu     sync.Mutex
	conn   *websocket.Conn
	state  model.FeedState
	cancel context.CancelFunc
}

// NewRelayFeed creates a feed for one relay endpoint and room.
func NewRelayFeed(relayURL, roomID string, bus *Bus) *RelayFeed {
	return &RelayFeed{
		relayURL: relayURL,
		roomID:   roomID,
		bus:      bus,
		state:    model.FeedIdle,
	}
}

// State returns the current connection state.
func (f *RelayFeed) State() model.FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *RelayFeed) setState(state model.FeedState, message string) {
	f.mu.Lock()
	f.state = state
	f.mu.Unlock()
	f.bus.Publish(EventStatus, &model.StatusEvent{
		State:     state,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// Connect dials the relay and starts the read loop. A connection drop is
// surfaced as a status transition; reconnecting is the caller's decision.
func (f *RelayFeed) Connect(ctx context.Context) error {
	f.mu.Lock()
	if f.conn != nil {
		f.mu.Unlock()
		return fmt.Errorf("feed already connected")
	}
	f.mu.Unlock()

	if f.relayURL == "" {
		return fmt.Errorf("no relay URL configured")
	}

	u, err := url.Parse(f.relayURL)
	if err != nil {
		return fmt.Errorf("invalid relay URL: %w", err)
	}
	q := u.Query()
	q.Set("room", f.roomID)
	u.RawQuery = q.Encode()

	f.setState(model.FeedConnecting, "connecting to relay")

	dialCtx, cancelDial := context.WithTimeout(ctx, 15*time.Second)
	defer cancelDial()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, u.String(), nil)
	if err != nil {
		f.setState(model.FeedError, fmt.Sprintf("relay dial failed: %v", err))
		return fmt.Errorf("failed to connect to relay: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	f.conn = conn
	f.cancel = cancel
	f.mu.Unlock()

	f.setState(model.FeedConnected, "connected to room "+f.roomID)
	f.bus.Publish(EventConnected, f.roomID)

	go f.readLoop(loopCtx, conn)
	return nil
}

// Disconnect closes the relay connection.
func (f *RelayFeed) Disconnect() {
	f.mu.Lock()
	conn := f.conn
	cancel := f.cancel
	f.conn = nil
	f.cancel = nil
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
		f.setState(model.FeedDisconnected, "disconnected")
		f.bus.Publish(EventDisconnected, f.roomID)
	}
}

func (f *RelayFeed) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer func() {
		f.mu.Lock()
		stillCurrent := f.conn == conn
		if stillCurrent {
			f.conn = nil
			f.cancel = nil
		}
		f.mu.Unlock()
		conn.Close()
		if stillCurrent {
			f.setState(model.FeedDisconnected, "relay connection closed")
			f.bus.Publish(EventDisconnected, f.roomID)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("relay read error", logger.ErrorField(err))
				f.bus.Publish(EventError, err)
			}
			return
		}

		var frame relayFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			logger.Warn("invalid relay frame", logger.ErrorField(err))
			continue
		}
		f.dispatch(&frame)
	}
}

// dispatch converts one relay frame into a typed bus event.
func (f *RelayFeed) dispatch(frame *relayFrame) {
	now := time.Now()
	switch frame.Type {
	case "gift":
		var g relayGift
		if err := json.Unmarshal(frame.Data, &g); err != nil {
			logger.Warn("invalid gift frame", logger.ErrorField(err))
			return
		}
		// 连击中间帧直接丢弃，只转发最终帧
		if !g.RepeatEnd {
			return
		}
		count := g.RepeatCount
		if count < 1 {
			count = 1
		}
		f.bus.Publish(EventGiftFinal, &model.GiftEvent{
			UserID:         g.UserID,
			Username:       g.Username,
			Nickname:       g.Nickname,
			GiftID:         fmt.Sprintf("%d", g.GiftID),
			GiftName:       g.GiftName,
			GiftCount:      count,
			DiamondCount:   g.DiamondCount,
			IsComboEnd:     true,
			GiftPictureURL: g.GiftPictureURL,
			Timestamp:      now,
		})
	case "chat":
		var c relayChat
		if err := json.Unmarshal(frame.Data, &c); err != nil {
			return
		}
		f.bus.Publish(EventChat, &model.ChatEvent{
			UserID:    c.UserID,
			Username:  c.Username,
			Nickname:  c.Nickname,
			Comment:   c.Comment,
			Timestamp: now,
		})
	case "member":
		var m relayMember
		if err := json.Unmarshal(frame.Data, &m); err != nil {
			return
		}
		f.bus.Publish(EventMember, &model.MemberEvent{
			UserID:    m.UserID,
			Username:  m.Username,
			Nickname:  m.Nickname,
			Timestamp: now,
		})
	case "roomStats":
		var s relayRoomStats
		if err := json.Unmarshal(frame.Data, &s); err != nil {
			return
		}
		f.bus.Publish(EventRoomStats, &model.RoomStatsEvent{
			ViewerCount: s.ViewerCount,
			Timestamp:   now,
		})
	default:
		logger.Debug("ignoring relay frame", logger.String("type", frame.Type))
	}
}
