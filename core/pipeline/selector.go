package pipeline

import (
	"math/rand"
	"os"

	"GiftFM/catalog"
	"GiftFM/logger"
	"GiftFM/store"
)

// Resolution is one playable selection for a gift.
type Resolution struct {
	Path     string
	Volume   float64 // effective volume: entry gain × global gain, clamped
	Duration float64 // estimated seconds, for time-remaining accounting
}

// Selector resolves a gift to one audio clip. Each call draws
// independently, so repeated resolutions of the same gift can pick
// different playlist entries.
type Selector struct {
	settings *store.SettingsStore
	catalog  *catalog.Catalog // may be nil; durations fall back to size estimates
}

// NewSelector creates a selector over the settings store and catalog.
func NewSelector(settings *store.SettingsStore, cat *catalog.Catalog) *Selector {
	return &Selector{settings: settings, catalog: cat}
}

// Resolve returns a selection for giftID, or nil when no audio should play
// (no mapping, mapping disabled, empty playlist, or every referenced file
// missing). A nil result is a normal branch, not an error.
func (s *Selector) Resolve(giftID string) *Resolution {
	m, err := s.settings.GetMapping(giftID)
	if err != nil {
		logger.Warn("mapping lookup failed", logger.String("giftId", giftID), logger.ErrorField(err))
		return nil
	}
	if m == nil || !m.Enabled || len(m.AudioFiles) == 0 {
		return nil
	}

	// 映射写入时不校验文件，这里按需防御：只在还存在的文件里抽取
	type candidate struct {
		path   string
		volume float64
		size   int64
	}
	candidates := make([]candidate, 0, len(m.AudioFiles))
	for _, e := range m.AudioFiles {
		info, err := os.Stat(e.Path)
		if err != nil || info.IsDir() {
			continue
		}
		candidates = append(candidates, candidate{path: e.Path, volume: e.Volume, size: info.Size()})
	}
	if len(candidates) == 0 {
		logger.Debug("mapping has no playable files", logger.String("giftId", giftID))
		return nil
	}

	pick := candidates[rand.Intn(len(candidates))]
	volume := clamp01(pick.volume) * clamp01(s.settings.GlobalVolume())

	duration := 0.0
	if s.catalog != nil {
		if f, err := s.catalog.GetByPath(pick.path); err == nil {
			duration = f.Duration
		}
	}
	if duration == 0 {
		duration = catalog.EstimateDuration(pick.path, pick.size)
	}

	return &Resolution{Path: pick.path, Volume: volume, Duration: duration}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
