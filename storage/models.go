package storage

import "time"

// HistoryEntry records one clip becoming current in a session.
type HistoryEntry struct {
	ID              string    `json:"id"` // Internal UUID
	ClipID          string    `json:"clip_id"`
	Title           string    `json:"title"`
	BroadcasterName string    `json:"broadcaster_name"`
	CreatorName     string    `json:"creator_name,omitempty"`
	Duration        float64   `json:"duration"` // Seconds
	ViewCount       uint64    `json:"view_count"`
	WatchedAt       time.Time `json:"watched_at"`
	// Cause is what made the clip current: "start", "auto",
	// "player-ended", "manual-next" or "manual-prev".
	Cause string `json:"cause"`
}
