package pipeline

import (
	"math"
	"sync"
	"time"

	"GiftFM/logger"
	"GiftFM/model"
)

// Tracker is the authoritative server-side counter for one playback batch:
// a burst of plays that starts from an empty queue and drains back to
// empty. Completion is driven by client-reported "ended" acknowledgments,
// not by dispatch, so the estimate reflects client-observed reality.
//
// Invariant while a batch is active: currentPlaying + queueSize ==
// totalInBatch. All counters reset the instant queueSize returns to 0.
type Tracker struct {
	mu             sync.Mutex
	queueSize      int
	totalInBatch   int
	currentPlaying int
	pending        []float64 // FIFO of estimated durations, seconds

	// Optional stuck-batch watchdog: a batch with no activity for
	// watchdog fires onStuck. Zero disables it (a client that never
	// acknowledges then requires a manual clear).
	watchdog  time.Duration
	onStuck   func()
	watchTick *time.Timer
}

// NewTracker creates an empty tracker. watchdog of 0 disables the
// stuck-batch timeout.
func NewTracker(watchdog time.Duration, onStuck func()) *Tracker {
	return &Tracker{watchdog: watchdog, onStuck: onStuck}
}

// Enqueue records one dispatched play with its estimated duration. The
// first enqueue on an idle queue opens a new batch.
func (t *Tracker) Enqueue(seconds float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.queueSize == 0 {
		t.totalInBatch = 1
		t.currentPlaying = 0
	} else {
		t.totalInBatch++
	}
	t.queueSize++
	t.pending = append(t.pending, seconds)
	t.resetWatchdogLocked()
}

// OnItemEnded records one client-reported completion. ok is false when the
// client signalled a playback error; that still advances the batch, it
// just contributes no duration data.
func (t *Tracker) OnItemEnded(measured float64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// 尽力而为地弹出队首，空队列的 ended 直接忽略
	if len(t.pending) > 0 {
		t.pending = t.pending[1:]
	}
	if t.queueSize > 0 {
		t.queueSize--
	}
	t.currentPlaying++

	if ok {
		logger.Debug("audio ended", logger.Float64("duration", measured))
	} else {
		logger.Warn("overlay reported playback error")
	}

	if t.queueSize == 0 {
		t.resetBatchLocked()
	} else {
		t.resetWatchdogLocked()
	}
}

// Progress returns a snapshot of the active batch.
func (t *Tracker) Progress() model.QueueProgress {
	t.mu.Lock()
	defer t.mu.Unlock()

	sum := 0.0
	for _, d := range t.pending {
		sum += d
	}
	return model.QueueProgress{
		Current:          t.currentPlaying,
		Total:            t.totalInBatch,
		Remaining:        t.queueSize,
		EstimatedSeconds: int(math.Round(sum)),
	}
}

// Reset forces the queue back to empty. Best effort: it does not wait for
// any client acknowledgment.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queueSize = 0
	t.resetBatchLocked()
}

// resetBatchLocked clears batch state for the next unrelated burst.
func (t *Tracker) resetBatchLocked() {
	t.currentPlaying = 0
	t.totalInBatch = 0
	t.pending = nil
	if t.watchTick != nil {
		t.watchTick.Stop()
		t.watchTick = nil
	}
}

func (t *Tracker) resetWatchdogLocked() {
	if t.watchdog <= 0 {
		return
	}
	if t.watchTick != nil {
		t.watchTick.Stop()
	}
	t.watchTick = time.AfterFunc(t.watchdog, t.fireWatchdog)
}

func (t *Tracker) fireWatchdog() {
	t.mu.Lock()
	stuck := t.queueSize > 0
	t.mu.Unlock()
	if !stuck {
		return
	}
	logger.Warn("queue batch stuck, forcing clear", logger.Duration("idle", t.watchdog))
	if t.onStuck != nil {
		t.onStuck()
	}
}
