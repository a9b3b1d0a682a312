package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/burhanit11/youtubechannel-backend/internal/auth"
	"github.com/burhanit11/youtubechannel-backend/internal/domain"
	"github.com/burhanit11/youtubechannel-backend/internal/event"
	"github.com/burhanit11/youtubechannel-backend/internal/media"
	"github.com/burhanit11/youtubechannel-backend/internal/repository"
	apperrors "github.com/burhanit11/youtubechannel-backend/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// channelCacheTTL bounds how stale cached channel aggregates may get.
const channelCacheTTL = 60 * time.Second

// UserService implements the business logic for accounts, sessions,
// channels, and watch history.
type UserService struct {
	userRepo    repository.UserRepository
	historyRepo repository.WatchHistoryRepository
	subRepo     repository.SubscriptionRepository
	tokens      *auth.TokenManager
	uploader    media.Uploader
	cache       *redis.Client
	producer    *event.Producer
	logger      *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(
	userRepo repository.UserRepository,
	historyRepo repository.WatchHistoryRepository,
	subRepo repository.SubscriptionRepository,
	tokens *auth.TokenManager,
	uploader media.Uploader,
	cache *redis.Client,
	producer *event.Producer,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		historyRepo: historyRepo,
		subRepo:     subRepo,
		tokens:      tokens,
		uploader:    uploader,
		cache:       cache,
		producer:    producer,
		logger:      logger,
	}
}

// --- Input types ---

// RegisterInput holds the parameters for registering a new account.
// AvatarPath and CoverImagePath are staged local files; AvatarPath is
// mandatory, CoverImagePath may be empty.
type RegisterInput struct {
	Username       string
	Email          string
	FullName       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

// LoginInput holds the parameters for login. Either Email or Username
// identifies the account.
type LoginInput struct {
	Email    string
	Username string
	Password string
}

// UpdateAccountInput holds the parameters for updating account details.
type UpdateAccountInput struct {
	FullName string
	Email    string
}

// --- Session operations ---

// Register creates a new account. The avatar is required and its upload
// must succeed; a cover image upload failure degrades to no cover image.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	email := strings.ToLower(strings.TrimSpace(input.Email))
	fullName := strings.TrimSpace(input.FullName)

	switch {
	case username == "":
		return nil, apperrors.InvalidInput("username is required")
	case email == "":
		return nil, apperrors.InvalidInput("email is required")
	case fullName == "":
		return nil, apperrors.InvalidInput("full name is required")
	case strings.TrimSpace(input.Password) == "":
		return nil, apperrors.InvalidInput("password is required")
	}

	// Pre-check both identifiers; the unique indexes backstop races.
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.Conflict("user with email or username already exists")
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check existing email: %w", err)
	}
	if _, err := s.userRepo.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.Conflict("user with email or username already exists")
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check existing username: %w", err)
	}

	if input.AvatarPath == "" {
		return nil, apperrors.InvalidInput("avatar file is required")
	}

	avatarURL, err := s.uploader.Upload(ctx, input.AvatarPath)
	if err != nil {
		s.logger.ErrorContext(ctx, "avatar upload failed",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.InvalidInput("avatar upload failed")
	}

	var coverURL string
	if input.CoverImagePath != "" {
		coverURL, err = s.uploader.Upload(ctx, input.CoverImagePath)
		if err != nil {
			// Registration proceeds without a cover image.
			s.logger.WarnContext(ctx, "cover image upload failed, continuing without it",
				slog.String("username", username),
				slog.String("error", err.Error()),
			)
			coverURL = ""
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:            uuid.New().String(),
		Username:      username,
		Email:         email,
		FullName:      fullName,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
		PasswordHash:  string(hashedPassword),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.Conflict("user with email or username already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Login authenticates by email or username, mints a token pair, and stores
// the refresh token hash on the account.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*domain.User, *domain.TokenPair, error) {
	if input.Email == "" && input.Username == "" {
		return nil, nil, apperrors.InvalidInput("username or email is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.InvalidInput("password is required")
	}

	var user *domain.User
	var err error
	if input.Email != "" {
		user, err = s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	} else {
		user, err = s.userRepo.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(input.Username)))
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.NotFound("user", "given credentials")
		}
		return nil, nil, fmt.Errorf("look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, apperrors.Unauthorized("invalid user credentials")
	}

	tokens, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, tokens, nil
}

// Logout clears the stored refresh token so the current session cannot be
// refreshed again.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if err := s.userRepo.UpdateRefreshToken(ctx, userID, nil); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged out",
		slog.String("user_id", userID),
	)

	return nil
}

// Refresh rotates the token pair. The presented token must verify against
// the refresh secret and match the single stored hash; on success a new
// pair is minted and the stored hash is overwritten. A verified token that
// no longer matches the stored hash means it was already used or revoked.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.Unauthorized("unauthorized request")
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.InvalidToken("invalid refresh token")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidToken("invalid refresh token")
		}
		return nil, fmt.Errorf("get user for token refresh: %w", err)
	}

	if user.RefreshTokenHash == nil || *user.RefreshTokenHash != hashToken(refreshToken) {
		return nil, apperrors.Unauthorized("refresh token is expired or used")
	}

	tokens, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "tokens refreshed",
		slog.String("user_id", user.ID),
	)

	return tokens, nil
}

// ChangePassword verifies the old password, stores the new hash, and clears
// the stored refresh token so existing sessions must log in again.
func (s *UserService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" {
		return apperrors.InvalidInput("old password is required")
	}
	if strings.TrimSpace(newPassword) == "" {
		return apperrors.InvalidInput("new password is required")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user for password change: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return apperrors.Unauthorized("invalid old password")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	user.PasswordHash = string(hashedPassword)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	if err := s.userRepo.UpdateRefreshToken(ctx, user.ID, nil); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear refresh token after password change",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishUserPasswordChanged(ctx, user.ID, user.Email); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_changed event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password changed",
		slog.String("user_id", user.ID),
	)

	return nil
}

// --- Account operations ---

// GetCurrentUser retrieves the account for the given ID.
func (s *UserService) GetCurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	return user, nil
}

// UpdateAccount updates the account's full name and email. Both fields are
// required on every call.
func (s *UserService) UpdateAccount(ctx context.Context, userID string, input UpdateAccountInput) (*domain.User, error) {
	fullName := strings.TrimSpace(input.FullName)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if fullName == "" || email == "" {
		return nil, apperrors.InvalidInput("full name and email are required")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for update: %w", err)
	}

	user.FullName = fullName
	user.Email = email

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.Conflict("email already in use")
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.invalidateChannelCache(ctx, user.Username)

	if err := s.producer.PublishUserUpdated(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.updated event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "account details updated",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// --- Channel operations ---

// GetChannelProfile returns the channel page for a username. Aggregates are
// served cache-aside with a short TTL; the viewer-specific subscription
// flag is always computed fresh.
func (s *UserService) GetChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, apperrors.InvalidInput("username is missing")
	}

	profile, err := s.cachedChannelProfile(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("channel", username)
		}
		return nil, fmt.Errorf("get channel profile: %w", err)
	}

	if viewerID != "" {
		subscribed, err := s.subRepo.IsSubscribed(ctx, viewerID, profile.ID)
		if err != nil {
			return nil, fmt.Errorf("check viewer subscription: %w", err)
		}
		profile.IsSubscribed = subscribed
	}

	return profile, nil
}

// Subscribe adds the caller as a subscriber of the named channel.
func (s *UserService) Subscribe(ctx context.Context, subscriberID, channelUsername string) error {
	channel, err := s.resolveChannel(ctx, subscriberID, channelUsername)
	if err != nil {
		return err
	}

	if err := s.subRepo.Subscribe(ctx, subscriberID, channel.ID); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	s.invalidateChannelCache(ctx, channel.Username)

	s.logger.InfoContext(ctx, "subscribed to channel",
		slog.String("subscriber_id", subscriberID),
		slog.String("channel_id", channel.ID),
	)

	return nil
}

// Unsubscribe removes the caller's subscription to the named channel.
func (s *UserService) Unsubscribe(ctx context.Context, subscriberID, channelUsername string) error {
	channel, err := s.resolveChannel(ctx, subscriberID, channelUsername)
	if err != nil {
		return err
	}

	if err := s.subRepo.Unsubscribe(ctx, subscriberID, channel.ID); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}

	s.invalidateChannelCache(ctx, channel.Username)

	s.logger.InfoContext(ctx, "unsubscribed from channel",
		slog.String("subscriber_id", subscriberID),
		slog.String("channel_id", channel.ID),
	)

	return nil
}

// --- Watch history operations ---

// GetWatchHistory lists the user's watch events, newest first.
func (s *UserService) GetWatchHistory(ctx context.Context, userID string, limit, offset int) ([]domain.WatchEntry, int64, error) {
	entries, total, err := s.historyRepo.List(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("get watch history: %w", err)
	}
	return entries, total, nil
}

// AddWatchEntry records that the user watched the video.
func (s *UserService) AddWatchEntry(ctx context.Context, userID, videoID string) error {
	if strings.TrimSpace(videoID) == "" {
		return apperrors.InvalidInput("video id is required")
	}

	if err := s.historyRepo.Append(ctx, userID, videoID); err != nil {
		return fmt.Errorf("add watch entry: %w", err)
	}

	return nil
}

// --- Helpers ---

// resolveChannel looks up the target channel for a subscription change and
// rejects self-subscription.
func (s *UserService) resolveChannel(ctx context.Context, subscriberID, channelUsername string) (*domain.User, error) {
	channelUsername = strings.ToLower(strings.TrimSpace(channelUsername))
	if channelUsername == "" {
		return nil, apperrors.InvalidInput("username is missing")
	}

	channel, err := s.userRepo.GetByUsername(ctx, channelUsername)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("channel", channelUsername)
		}
		return nil, fmt.Errorf("resolve channel: %w", err)
	}

	if channel.ID == subscriberID {
		return nil, apperrors.InvalidInput("cannot subscribe to your own channel")
	}

	return channel, nil
}

// cachedChannelProfile fetches the anonymous channel profile through the
// cache. The cached value never includes the viewer flag.
func (s *UserService) cachedChannelProfile(ctx context.Context, username string) (*domain.ChannelProfile, error) {
	key := channelCacheKey(username)

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var profile domain.ChannelProfile
			if err := json.Unmarshal(raw, &profile); err == nil {
				return &profile, nil
			}
			// Corrupt entry; fall through to the database.
			s.cache.Del(ctx, key)
		}
	}

	profile, err := s.userRepo.GetChannelProfile(ctx, username, "")
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(profile); err == nil {
			if err := s.cache.Set(ctx, key, raw, channelCacheTTL).Err(); err != nil {
				s.logger.WarnContext(ctx, "failed to cache channel profile",
					slog.String("username", username),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	return profile, nil
}

// invalidateChannelCache drops the cached aggregates after a write that
// changes them.
func (s *UserService) invalidateChannelCache(ctx context.Context, username string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, channelCacheKey(username)).Err(); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate channel cache",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
	}
}

func channelCacheKey(username string) string {
	return "channel:" + username
}

// generateTokenPair mints a pair and overwrites the stored refresh token
// hash, keeping exactly one active refresh token per account.
func (s *UserService) generateTokenPair(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := s.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	tokenHash := hashToken(refreshToken)
	if err := s.userRepo.UpdateRefreshToken(ctx, user.ID, &tokenHash); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// hashToken returns the SHA256 hex digest of the given token string. Only
// the digest is persisted, so a leaked row does not yield a usable token.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
