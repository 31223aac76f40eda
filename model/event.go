package model

import "time"

// GiftEvent represents one raw gift frame from the upstream live feed.
// A single combo (repeated taps of the same gift by one user) arrives as
// multiple events sharing (UserID, GiftID) with an increasing GiftCount;
// only the final one carries IsComboEnd.
type GiftEvent struct {
	UserID         string    `json:"userId"`
	Username       string    `json:"username"`
	Nickname       string    `json:"nickname"`
	GiftID         string    `json:"giftId"`
	GiftName       string    `json:"giftName"`
	GiftCount      int       `json:"giftCount"`
	DiamondCount   int       `json:"diamondCount"`
	IsComboEnd     bool      `json:"isComboEnd"`
	GiftPictureURL string    `json:"giftPictureUrl,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// 聊天消息
type ChatEvent struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Nickname  string    `json:"nickname"`
	Comment   string    `json:"comment"`
	Timestamp time.Time `json:"timestamp"`
}

// 进房消息
type MemberEvent struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Nickname  string    `json:"nickname"`
	Timestamp time.Time `json:"timestamp"`
}

// 直播间统计
type RoomStatsEvent struct {
	ViewerCount int       `json:"viewerCount"`
	Timestamp   time.Time `json:"timestamp"`
}

// FeedState describes the upstream feed connection lifecycle.
type FeedState string

const (
	FeedIdle         FeedState = "idle"
	FeedConnecting   FeedState = "connecting"
	FeedConnected    FeedState = "connected"
	FeedDisconnected FeedState = "disconnected"
	FeedError        FeedState = "error"
)

// StatusEvent surfaces feed state transitions with a human-readable message.
type StatusEvent struct {
	State     FeedState `json:"state"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
