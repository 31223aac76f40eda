package model

// AudioEntry is one playlist entry of a gift mapping. Path references a
// library file that may have been deleted since the mapping was written;
// existence is only checked at resolution time.
type AudioEntry struct {
	Path   string  `json:"path"`
	Volume float64 `json:"volume"` // per-entry gain, clamped to [0,1] on resolve
}

// GiftAudioMapping binds one gift to a playlist of audio entries.
//
// AudioPath/Volume are the legacy single-clip shape from before the
// playlist model existed; Normalize folds them into AudioFiles on load.
type GiftAudioMapping struct {
	GiftID     string       `json:"giftId"`
	GiftName   string       `json:"giftName"`
	AudioFiles []AudioEntry `json:"audioFiles"`
	Enabled    bool         `json:"enabled"`

	// Legacy fields, only populated by pre-playlist settings data.
	AudioPath string   `json:"audioPath,omitempty"`
	Volume    *float64 `json:"volume,omitempty"`
}

// Normalize converts a legacy single-path mapping into a one-element
// playlist, preserving the former scalar volume. Returns true if the
// mapping was rewritten.
func (m *GiftAudioMapping) Normalize() bool {
	if len(m.AudioFiles) > 0 || m.AudioPath == "" {
		return false
	}
	vol := 1.0
	if m.Volume != nil {
		vol = *m.Volume
	}
	m.AudioFiles = []AudioEntry{{Path: m.AudioPath, Volume: vol}}
	m.AudioPath = ""
	m.Volume = nil
	return true
}
