package domain

import "time"

// TwitchUser is the subset of a Helix user used by the platform.
type TwitchUser struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url"`
	Description     string `json:"description,omitempty"`
}

// TwitchStream is a live stream returned by Helix.
type TwitchStream struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	UserLogin   string    `json:"user_login"`
	UserName    string    `json:"user_name"`
	GameName    string    `json:"game_name"`
	Title       string    `json:"title"`
	ViewerCount int       `json:"viewer_count"`
	StartedAt   time.Time `json:"started_at"`
	Thumbnail   string    `json:"thumbnail_url"`
}

// TwitchClip is a clip returned by Helix and cached in twitch_clips.
type TwitchClip struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	ThumbnailURL string    `json:"thumbnail_url"`
	ViewCount    int       `json:"view_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// StreamerProfile merges upstream data with local counters.
type StreamerProfile struct {
	User   TwitchUser   `json:"userData"`
	IsLive bool         `json:"is_live"`
	Stats  ProfileStats `json:"userStats"`
	Clips  []TwitchClip `json:"clips"`
}
