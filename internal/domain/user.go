package domain

import (
	"time"
)

// User represents a registered account. The password hash and the stored
// refresh token hash are never marshaled into responses.
type User struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	FullName         string    `json:"full_name"`
	AvatarURL        string    `json:"avatar"`
	CoverImageURL    string    `json:"cover_image,omitempty"`
	PasswordHash     string    `json:"-"`
	RefreshTokenHash *string   `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TokenPair holds an access and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ChannelProfile is a user's public channel page: identity fields plus
// subscription aggregates. IsSubscribed is relative to the viewing user.
type ChannelProfile struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	AvatarURL       string `json:"avatar"`
	CoverImageURL   string `json:"cover_image,omitempty"`
	SubscriberCount int64  `json:"subscribers_count"`
	SubscribedTo    int64  `json:"channels_subscribed_to_count"`
	IsSubscribed    bool   `json:"is_subscribed"`
}

// Video is the metadata joined into watch history entries.
type Video struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"-"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ThumbnailURL string    `json:"thumbnail"`
	Duration     int       `json:"duration"`
	Views        int64     `json:"views"`
	CreatedAt    time.Time `json:"created_at"`
}

// OwnerSummary is the slice of the video owner's profile exposed in
// watch history listings.
type OwnerSummary struct {
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar"`
}

// WatchEntry is one watch event joined with the video and its owner.
// The same video may appear multiple times; entries are ordered by
// when they were watched.
type WatchEntry struct {
	Video     Video        `json:"video"`
	Owner     OwnerSummary `json:"owner"`
	WatchedAt time.Time    `json:"watched_at"`
}
