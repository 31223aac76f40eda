package model

// QueueProgress is a snapshot of the current playback batch.
// Invariant while a batch is active: Current + Remaining == Total.
type QueueProgress struct {
	Current          int `json:"current"`          // items already finished in this batch
	Total            int `json:"total"`            // items dispatched in this batch
	Remaining        int `json:"remaining"`        // items still queued or playing
	EstimatedSeconds int `json:"estimatedSeconds"` // rounded sum of pending durations
}
