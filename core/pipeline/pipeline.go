package pipeline

import (
	"GiftFM/core/live"
	"GiftFM/logger"
	"GiftFM/model"
)

// PlayRequest is one play dispatch handed to the transport sink.
type PlayRequest struct {
	Path     string
	Volume   float64
	Duration float64
	GiftID   string
	GiftName string
	Username string
}

// Sink receives play dispatches; implemented by the overlay service.
type Sink interface {
	PlayAudio(req PlayRequest)
}

// Pipeline wires the feed bus to the playback side: combo-final gift
// events are deduplicated, resolved to audio, and fanned out per combo
// size. Resolution misses are silent; the gift event itself stays visible
// to other bus subscribers regardless.
type Pipeline struct {
	dedup     *Dedup
	scheduler *Scheduler
	sink      Sink

	unsubscribe func()
}

// New assembles a pipeline from its stages.
func New(dedup *Dedup, scheduler *Scheduler, sink Sink) *Pipeline {
	return &Pipeline{dedup: dedup, scheduler: scheduler, sink: sink}
}

// Attach subscribes the pipeline to combo-final gift events on bus.
func (p *Pipeline) Attach(bus *live.Bus) {
	p.unsubscribe = bus.Subscribe(live.EventGiftFinal, func(payload interface{}) {
		ev, ok := payload.(*model.GiftEvent)
		if !ok {
			return
		}
		p.HandleGift(ev)
	})
}

// Detach unsubscribes from the bus and cancels outstanding repeat timers.
func (p *Pipeline) Detach() {
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
	p.scheduler.Stop()
}

// HandleGift processes one terminal gift event.
func (p *Pipeline) HandleGift(ev *model.GiftEvent) {
	if !ev.IsComboEnd {
		return
	}
	if !p.dedup.ShouldForward(ev.UserID, ev.GiftID, ev.GiftCount) {
		return
	}

	scheduled := p.scheduler.Schedule(ev, func(res *Resolution, ev *model.GiftEvent) {
		p.sink.PlayAudio(PlayRequest{
			Path:     res.Path,
			Volume:   res.Volume,
			Duration: res.Duration,
			GiftID:   ev.GiftID,
			GiftName: ev.GiftName,
			Username: ev.Username,
		})
	})

	if scheduled > 0 {
		logger.Info("gift scheduled",
			logger.String("giftId", ev.GiftID),
			logger.String("gift", ev.GiftName),
			logger.String("user", ev.Username),
			logger.Int("count", ev.GiftCount),
			logger.Int("plays", scheduled))
	}
}
