package overlay

import (
	"encoding/json"

	"GiftFM/core/pipeline"
	"GiftFM/logger"
	"GiftFM/model"
)

// Service is the playback-side facade: it broadcasts play and clear
// commands to all connected overlay clients and keeps the queue tracker
// consistent with what was dispatched. It implements pipeline.Sink.
type Service struct {
	hub     *Hub
	tokens  *TokenRegistry
	tracker *pipeline.Tracker
	baseURL string
}

// NewService wires the hub, token registry and tracker together. Client
// completion reports are routed into the tracker's FIFO.
func NewService(hub *Hub, tracker *pipeline.Tracker, baseURL string) *Service {
	s := &Service{
		hub:     hub,
		tokens:  NewTokenRegistry(),
		tracker: tracker,
		baseURL: baseURL,
	}
	hub.OnEnded(tracker.OnItemEnded)
	return s
}

// PlayAudio broadcasts one play command and counts it as enqueued. The
// queue advances optimistically even with zero connected clients; delivery
// is at-least-once per connected client with no confirmation beyond
// transport connectivity.
func (s *Service) PlayAudio(req pipeline.PlayRequest) {
	token := s.tokens.Register(req.Path)
	data, err := json.Marshal(&PlayAudioData{
		AudioURL: s.baseURL + "/audio/" + token,
		Volume:   req.Volume,
		GiftName: req.GiftName,
		Username: req.Username,
		GiftID:   req.GiftID,
	})
	if err != nil {
		logger.Error("failed to encode play command", logger.ErrorField(err))
		return
	}

	if err := s.hub.Broadcast(&WSMessage{Type: MsgTypePlayAudio, Data: data}); err != nil {
		logger.Error("failed to broadcast play command", logger.ErrorField(err))
		return
	}
	s.tracker.Enqueue(req.Duration)
}

// ClearQueue broadcasts a clear command and forces the local queue state
// to empty. Best effort: clients are trusted to stop locally, no
// acknowledgment is awaited.
func (s *Service) ClearQueue() {
	if err := s.hub.Broadcast(&WSMessage{Type: MsgTypeClearQueue}); err != nil {
		logger.Error("failed to broadcast clear command", logger.ErrorField(err))
	}
	s.tracker.Reset()
	logger.Info("queue cleared")
}

// Progress returns the current batch snapshot.
func (s *Service) Progress() model.QueueProgress {
	return s.tracker.Progress()
}

// ClientCount returns the number of connected overlay clients.
func (s *Service) ClientCount() int {
	return s.hub.ClientCount()
}

// BaseURL returns the externally reachable base URL for overlay clients.
func (s *Service) BaseURL() string {
	return s.baseURL
}

// ResolveToken resolves an audio token back to its registered path.
func (s *Service) ResolveToken(token string) (string, bool) {
	return s.tokens.Resolve(token)
}

// TokenFor returns the opaque token for path, registering it if needed.
// Tokens are deterministic, so this matches what play commands carry.
func (s *Service) TokenFor(path string) string {
	return s.tokens.Register(path)
}
