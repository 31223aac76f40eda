package pipeline

import (
	"sync"
	"time"

	"GiftFM/logger"
	"GiftFM/model"
)

// PlayFunc dispatches one resolved play for a gift event.
type PlayFunc func(res *Resolution, ev *model.GiftEvent)

// Scheduler fans a combo of N gifts out into at most `cap` play dispatches
// at a fixed cadence. Every repetition re-resolves the gift independently,
// so a playlist yields varied clips and a mapping disabled mid-burst
// silences the remaining repetitions.
type Scheduler struct {
	cadence time.Duration
	cap     int
	resolve func(giftID string) *Resolution

	mu      sync.Mutex
	timers  map[*time.Timer]struct{}
	stopped bool
}

// NewScheduler creates a scheduler. cap bounds pathological combos; excess
// repeat count is silently truncated.
func NewScheduler(cadence time.Duration, cap int, resolve func(giftID string) *Resolution) *Scheduler {
	if cap < 1 {
		cap = 1
	}
	return &Scheduler{
		cadence: cadence,
		cap:     cap,
		resolve: resolve,
		timers:  make(map[*time.Timer]struct{}),
	}
}

// Schedule plays ev immediately (when resolvable) and schedules the
// remaining repetitions. Returns the number of repetitions scheduled,
// including the immediate one; 0 means the gift resolved to no audio.
func (s *Scheduler) Schedule(ev *model.GiftEvent, play PlayFunc) int {
	first := s.resolve(ev.GiftID)
	if first == nil {
		return 0
	}

	count := ev.GiftCount
	if count < 1 {
		count = 1
	}
	if count > s.cap {
		logger.Debug("combo truncated",
			logger.String("giftId", ev.GiftID),
			logger.Int("giftCount", ev.GiftCount),
			logger.Int("cap", s.cap))
		count = s.cap
	}

	play(first, ev)

	for i := 1; i < count; i++ {
		s.after(time.Duration(i)*s.cadence, func() {
			// 每次重复独立抽取；映射已被禁用或删除时跳过本次播放
			if res := s.resolve(ev.GiftID); res != nil {
				play(res, ev)
			}
		})
	}
	return count
}

// after runs fn once after d, tracking the timer so Stop can cancel it.
func (s *Scheduler) after(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, timer)
		stopped := s.stopped
		s.mu.Unlock()
		if !stopped {
			fn()
		}
	})
	s.timers[timer] = struct{}{}
}

// Stop cancels all outstanding repeat timers.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for t := range s.timers {
		t.Stop()
	}
	s.timers = make(map[*time.Timer]struct{})
}
