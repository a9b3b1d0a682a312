package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/burhanit11/youtubechannel-backend/internal/domain"
	"github.com/burhanit11/youtubechannel-backend/pkg/database"
	apperrors "github.com/burhanit11/youtubechannel-backend/pkg/errors"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, full_name, avatar_url, cover_image_url, password_hash, refresh_token_hash, created_at, updated_at`

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, username, email, full_name, avatar_url, cover_image_url, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		u.ID,
		u.Username,
		u.Email,
		u.FullName,
		u.AvatarURL,
		u.CoverImageURL,
		u.PasswordHash,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "users_username_key") {
				return apperrors.AlreadyExists("user", "username", u.Username)
			}
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(ctx, query, id)
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(ctx, query, email)
}

// GetByUsername retrieves a user by their username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.scanUser(ctx, query, username)
}

// Update modifies an existing user in the database. The refresh token hash
// has its own write path and is not touched here.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET username = $1, email = $2, full_name = $3, avatar_url = $4, cover_image_url = $5,
		    password_hash = $6, updated_at = $7
		WHERE id = $8`

	ct, err := r.db.Exec(ctx, query,
		u.Username,
		u.Email,
		u.FullName,
		u.AvatarURL,
		u.CoverImageURL,
		u.PasswordHash,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "users_username_key") {
				return apperrors.AlreadyExists("user", "username", u.Username)
			}
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("update user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", u.ID)
	}

	return nil
}

// UpdateRefreshToken overwrites the stored refresh token hash for the user.
// Passing nil clears the stored token (logout, revocation).
func (r *UserRepository) UpdateRefreshToken(ctx context.Context, userID string, tokenHash *string) error {
	query := `UPDATE users SET refresh_token_hash = $1, updated_at = $2 WHERE id = $3`

	ct, err := r.db.Exec(ctx, query, tokenHash, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", userID)
	}

	return nil
}

// GetChannelProfile returns the channel page for the named user with
// subscription aggregates computed in a single query.
func (r *UserRepository) GetChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error) {
	query := `
		SELECT u.id, u.username, u.email, u.full_name, u.avatar_url, u.cover_image_url,
		       (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id) AS subscribers_count,
		       (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id) AS subscribed_to_count,
		       EXISTS (SELECT 1 FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id = $2) AS is_subscribed
		FROM users u
		WHERE u.username = $1`

	var p domain.ChannelProfile
	err := r.db.QueryRow(ctx, query, username, viewerID).Scan(
		&p.ID,
		&p.Username,
		&p.Email,
		&p.FullName,
		&p.AvatarURL,
		&p.CoverImageURL,
		&p.SubscriberCount,
		&p.SubscribedTo,
		&p.IsSubscribed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan channel profile: %w", err)
	}

	return &p, nil
}

// scanUser is a helper that executes a query expected to return a single user row.
func (r *UserRepository) scanUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var u domain.User

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FullName,
		&u.AvatarURL,
		&u.CoverImageURL,
		&u.PasswordHash,
		&u.RefreshTokenHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &u, nil
}

// --- Watch History Repository ---

// WatchHistoryRepository implements repository.WatchHistoryRepository using PostgreSQL.
type WatchHistoryRepository struct {
	db database.DBTX
}

// NewWatchHistoryRepository creates a new PostgreSQL-backed watch history repository.
func NewWatchHistoryRepository(db database.DBTX) *WatchHistoryRepository {
	return &WatchHistoryRepository{db: db}
}

// Append records a watch event. Repeat views of the same video append new rows.
func (r *WatchHistoryRepository) Append(ctx context.Context, userID, videoID string) error {
	query := `
		INSERT INTO watch_history (user_id, video_id, watched_at)
		VALUES ($1, $2, $3)`

	_, err := r.db.Exec(ctx, query, userID, videoID, time.Now().UTC())
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.NotFound("video", videoID)
		}
		return fmt.Errorf("insert watch entry: %w", err)
	}

	return nil
}

// List returns the user's watch history, newest first, with video metadata
// and the owner summary joined in, plus the total entry count.
func (r *WatchHistoryRepository) List(ctx context.Context, userID string, limit, offset int) ([]domain.WatchEntry, int64, error) {
	query := `
		SELECT v.id, v.owner_id, v.title, v.description, v.thumbnail_url, v.duration, v.views, v.created_at,
		       o.username, o.full_name, o.avatar_url,
		       h.watched_at
		FROM watch_history h
		JOIN videos v ON v.id = h.video_id
		JOIN users o ON o.id = v.owner_id
		WHERE h.user_id = $1
		ORDER BY h.id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list watch history: %w", err)
	}
	defer rows.Close()

	var entries []domain.WatchEntry
	for rows.Next() {
		var e domain.WatchEntry
		if err := rows.Scan(
			&e.Video.ID,
			&e.Video.OwnerID,
			&e.Video.Title,
			&e.Video.Description,
			&e.Video.ThumbnailURL,
			&e.Video.Duration,
			&e.Video.Views,
			&e.Video.CreatedAt,
			&e.Owner.Username,
			&e.Owner.FullName,
			&e.Owner.AvatarURL,
			&e.WatchedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan watch entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate watch entries: %w", err)
	}

	if entries == nil {
		entries = []domain.WatchEntry{}
	}

	var total int64
	err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM watch_history WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count watch history: %w", err)
	}

	return entries, total, nil
}

// --- Subscription Repository ---

// SubscriptionRepository implements repository.SubscriptionRepository using PostgreSQL.
type SubscriptionRepository struct {
	db database.DBTX
}

// NewSubscriptionRepository creates a new PostgreSQL-backed subscription repository.
func NewSubscriptionRepository(db database.DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Subscribe adds a subscription. Subscribing twice is a no-op.
func (r *SubscriptionRepository) Subscribe(ctx context.Context, subscriberID, channelID string) error {
	query := `
		INSERT INTO subscriptions (subscriber_id, channel_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (subscriber_id, channel_id) DO NOTHING`

	_, err := r.db.Exec(ctx, query, subscriberID, channelID, time.Now().UTC())
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.NotFound("channel", channelID)
		}
		return fmt.Errorf("insert subscription: %w", err)
	}

	return nil
}

// Unsubscribe removes a subscription if it exists.
func (r *SubscriptionRepository) Unsubscribe(ctx context.Context, subscriberID, channelID string) error {
	query := `DELETE FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2`

	_, err := r.db.Exec(ctx, query, subscriberID, channelID)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}

	return nil
}

// IsSubscribed reports whether the subscriber follows the channel.
func (r *SubscriptionRepository) IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2)`

	var subscribed bool
	if err := r.db.QueryRow(ctx, query, subscriberID, channelID).Scan(&subscribed); err != nil {
		return false, fmt.Errorf("check subscription: %w", err)
	}

	return subscribed, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}

// isForeignKeyViolation checks if the error is a PostgreSQL foreign key violation (SQLSTATE 23503).
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23503")
}
