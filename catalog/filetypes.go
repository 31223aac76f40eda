package catalog

import (
	"path/filepath"
	"strings"
)

// audioTypes maps allowed audio extensions to their MIME type and a nominal
// byte rate used for size-derived duration estimates.
var audioTypes = map[string]struct {
	contentType string
	bytesPerSec float64
}{
	".mp3":  {"audio/mpeg", 16000},   // ~128 kbps
	".wav":  {"audio/wav", 176400},   // 16-bit 44.1 kHz stereo
	".ogg":  {"audio/ogg", 16000},
	".m4a":  {"audio/mp4", 16000},
	".mp4":  {"audio/mp4", 16000},
	".flac": {"audio/flac", 88200},
}

// IsAudioPath reports whether path carries an allowed audio extension.
func IsAudioPath(path string) bool {
	_, ok := audioTypes[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ContentTypeFor returns the MIME type for path, or empty when the
// extension is not an allowed audio type.
func ContentTypeFor(path string) string {
	if t, ok := audioTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return t.contentType
	}
	return ""
}

// EstimateDuration guesses a clip duration in seconds from its byte size.
// Used only for time-remaining estimates; playback reports real durations.
func EstimateDuration(path string, sizeBytes int64) float64 {
	t, ok := audioTypes[strings.ToLower(filepath.Ext(path))]
	if !ok || sizeBytes <= 0 {
		return 0
	}
	return float64(sizeBytes) / t.bytesPerSec
}
