package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/burhanit11/youtubechannel-backend/internal/domain"
	pkgkafka "github.com/burhanit11/youtubechannel-backend/pkg/kafka"
)

// Kafka topics for user domain events.
var (
	TopicUserRegistered      = pkgkafka.Topic("user", "registered")
	TopicUserUpdated         = pkgkafka.Topic("user", "updated")
	TopicUserPasswordChanged = pkgkafka.Topic("user", "password_changed")
)

// Aggregate type constant.
const AggregateTypeUser = "user"

// Source identifier for events originating from this service.
const SourceUserService = "vidtube-user-service"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// UserUpdatedData is the payload for a user.updated event.
type UserUpdatedData struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// UserPasswordChangedData is the payload for a user.password_changed event.
type UserPasswordChangedData struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Producer publishes user domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, AggregateTypeUser, SourceUserService, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return nil
}

// PublishUserUpdated publishes a user.updated event.
func (p *Producer) PublishUserUpdated(ctx context.Context, user *domain.User) error {
	data := UserUpdatedData{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
	}

	event, err := pkgkafka.NewEvent(TopicUserUpdated, user.ID, AggregateTypeUser, SourceUserService, data)
	if err != nil {
		return fmt.Errorf("create user.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserUpdated, event); err != nil {
		return fmt.Errorf("publish user.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.updated event",
		slog.String("user_id", user.ID),
	)

	return nil
}

// PublishUserPasswordChanged publishes a user.password_changed event.
func (p *Producer) PublishUserPasswordChanged(ctx context.Context, userID, email string) error {
	data := UserPasswordChangedData{
		UserID: userID,
		Email:  email,
	}

	event, err := pkgkafka.NewEvent(TopicUserPasswordChanged, userID, AggregateTypeUser, SourceUserService, data)
	if err != nil {
		return fmt.Errorf("create user.password_changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserPasswordChanged, event); err != nil {
		return fmt.Errorf("publish user.password_changed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.password_changed event",
		slog.String("user_id", userID),
	)

	return nil
}
