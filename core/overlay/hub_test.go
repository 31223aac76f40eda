package overlay

import (
	"testing"
	"time"
)

func waitClientCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", want, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubDropsStalledClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	// 单槽缓冲、不起 WritePump：入会的 connected 消息即占满缓冲
	stalled := &Client{Hub: hub, Send: make(chan []byte, 1), ID: "stalled"}
	hub.Register(stalled)
	waitClientCount(t, hub, 1)

	// 广播溢出缓冲，卡死的客户端应被移除
	if err := hub.Broadcast(&WSMessage{Type: MsgTypePlayAudio}); err != nil {
		t.Fatal(err)
	}
	waitClientCount(t, hub, 0)

	// 通道已被 Hub 关闭（先取出占位的 connected 消息）
	<-stalled.Send
	if _, ok := <-stalled.Send; ok {
		t.Error("stalled client send channel should be closed")
	}
}

func TestHubSurvivesStalledClientDuringBroadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	stalled := &Client{Hub: hub, Send: make(chan []byte, 1), ID: "stalled"}
	hub.Register(stalled)
	waitClientCount(t, hub, 1)

	hub.Broadcast(&WSMessage{Type: MsgTypePlayAudio})

	// 移除卡死客户端后，主循环必须继续处理注册
	healthy := &Client{Hub: hub, Send: make(chan []byte, 64), ID: "healthy"}
	registered := make(chan struct{})
	go func() {
		hub.Register(healthy)
		close(registered)
	}()
	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("register blocked after broadcasting to a stalled client")
	}
	waitClientCount(t, hub, 1)

	// 后续广播照常送达健康客户端
	hub.Broadcast(&WSMessage{Type: MsgTypeClearQueue})

	got := 0
	deadline := time.After(2 * time.Second)
	for got < 2 { // connected + clear-queue
		select {
		case <-healthy.Send:
			got++
		case <-deadline:
			t.Fatalf("healthy client received %d messages, expected 2", got)
		}
	}
}
