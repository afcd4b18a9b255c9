package domain

import "time"

// Streamer represents a streamers row. Login is the natural key.
type Streamer struct {
	ID              int64     `json:"id"`
	Login           string    `json:"login"`
	TwitchID        string    `json:"twitch_id,omitempty"`
	DisplayName     string    `json:"display_name"`
	ProfileImageURL string    `json:"profile_image_url,omitempty"`
	CreatedAtSite   time.Time `json:"created_at_site"`
	IsAdmin         int       `json:"is_admin"`
	Clicks          int64     `json:"clicks"`
	Salves          int64     `json:"salves"`
}

// Counters holds the engagement counters owned by the ledger.
type Counters struct {
	Clicks int64 `json:"clicks"`
	Salves int64 `json:"salves"`
}

// StreamerSummary is the public directory view of a streamer.
type StreamerSummary struct {
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url"`
	Clicks          int64  `json:"clicks"`
	Salves          int64  `json:"salves"`
	Clips           int64  `json:"clips"`
	LiveCount       int64  `json:"liveCount"`
}

// ApplyStats copies aggregate stats onto the summary.
func (s *StreamerSummary) ApplyStats(st ProfileStats) {
	s.Clicks = st.Clicks
	s.Salves = st.Salves
	s.Clips = st.Clips
	s.LiveCount = st.LiveCount
}

// ProfileStats is the aggregate returned for a login. Missing rows count as zero.
type ProfileStats struct {
	LiveCount int64 `json:"liveCount"`
	Clicks    int64 `json:"clicks"`
	Clips     int64 `json:"clips"`
	Salves    int64 `json:"salves"`
}
