package model

import "time"

// AudioFile represents an imported clip in the audio library catalog.
type AudioFile struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	Path        string    `json:"path" gorm:"uniqueIndex;size:512"` // absolute path under the library dir
	DisplayName string    `json:"displayName" gorm:"size:255"`
	Gain        float64   `json:"gain" gorm:"default:1"` // per-file gain, [0,1]
	SizeBytes   int64     `json:"sizeBytes"`
	Duration    float64   `json:"duration"` // seconds; size-derived estimate when unknown
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName overrides the table name
func (AudioFile) TableName() string {
	return "audio_files"
}
