package twitch

import "time"

// Clip is one clip record as returned by the Helix clips endpoint.
// Clips are immutable once fetched; nothing in this module mutates them.
type Clip struct {
	ID              string    `json:"id"`
	URL             string    `json:"url"`
	EmbedURL        string    `json:"embed_url"`
	BroadcasterID   string    `json:"broadcaster_id"`
	BroadcasterName string    `json:"broadcaster_name"`
	CreatorName     string    `json:"creator_name"`
	Title           string    `json:"title"`
	ThumbnailURL    string    `json:"thumbnail_url"`
	ViewCount       uint64    `json:"view_count"`
	CreatedAt       time.Time `json:"created_at"`
	// Duration is the clip length in seconds. The catalog occasionally
	// reports 0 for malformed records; callers must tolerate that.
	Duration float64 `json:"duration"`
}

// Broadcaster identifies a resolved channel.
type Broadcaster struct {
	ID          string `json:"id"`
	Login       string `json:"broadcaster_login"`
	DisplayName string `json:"display_name"`
}

// ClipsParams are the query parameters for one page of clips.
type ClipsParams struct {
	BroadcasterID string
	// StartedAt/EndedAt bound the clip creation window. Zero values omit
	// the bound entirely (the catalog then returns all-time clips).
	StartedAt time.Time
	EndedAt   time.Time
	// After is the opaque pagination cursor from a previous page.
	After string
}

// ClipsPage is one page of results. Cursor is empty when the catalog has
// no further pages for this broadcaster and window.
type ClipsPage struct {
	Clips  []Clip
	Cursor string
}

// HasMore reports whether another page can be requested.
func (p ClipsPage) HasMore() bool {
	return p.Cursor != ""
}

// Wire shapes for the Helix API.

type clipsResponse struct {
	Data       []Clip `json:"data"`
	Pagination struct {
		Cursor string `json:"cursor"`
	} `json:"pagination"`
}

type channelSearchResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Login       string `json:"broadcaster_login"`
		DisplayName string `json:"display_name"`
	} `json:"data"`
}

type apiErrorBody struct {
	Error   string `json:"error"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}
