package repository

import (
	"context"

	"github.com/burhanit11/youtubechannel-backend/internal/domain"
)

// UserRepository defines the interface for account persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByUsername retrieves a user by their username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// Update modifies an existing user in the store.
	Update(ctx context.Context, user *domain.User) error

	// UpdateRefreshToken overwrites the stored refresh token hash for the
	// user. A nil hash clears the stored token. Each account holds at most
	// one active refresh token.
	UpdateRefreshToken(ctx context.Context, userID string, tokenHash *string) error

	// GetChannelProfile returns the public channel page for the named user,
	// including subscription aggregates. viewerID may be empty for an
	// anonymous viewer; IsSubscribed is then always false.
	GetChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error)
}

// WatchHistoryRepository defines the interface for watch history persistence.
type WatchHistoryRepository interface {
	// Append records that the user watched the video. Repeat views append
	// new entries.
	Append(ctx context.Context, userID, videoID string) error

	// List returns the user's watch history, newest first, joined with
	// video metadata and the owner summary, plus the total entry count.
	List(ctx context.Context, userID string, limit, offset int) ([]domain.WatchEntry, int64, error)
}

// SubscriptionRepository defines the interface for channel subscriptions.
type SubscriptionRepository interface {
	// Subscribe adds a subscription. Subscribing twice is a no-op.
	Subscribe(ctx context.Context, subscriberID, channelID string) error

	// Unsubscribe removes a subscription if it exists.
	Unsubscribe(ctx context.Context, subscriberID, channelID string) error

	// IsSubscribed reports whether the subscriber follows the channel.
	IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error)
}
