// Package usecase implements the user business logic and orchestrates user domain operations.
package usecase

import (
	"context"
	"encoding/json"
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"

	"github.com/gateproof/authcore/internal/database"
	apperrors "github.com/gateproof/authcore/internal/errors"
	outboxDomain "github.com/gateproof/authcore/internal/outbox/domain"
	"github.com/gateproof/authcore/internal/user/domain"
	appValidation "github.com/gateproof/authcore/internal/validation"
)

// UseCase defines the interface for user business logic operations
type UseCase interface {
	// FindOrCreate resolves the user owning an OAuth identity, provisioning
	// a new account when none exists for the email.
	FindOrCreate(ctx context.Context, username, email string) (uuid.UUID, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// UserRepository interface defines user repository operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// OutboxEventRepository interface defines outbox event repository operations
type OutboxEventRepository interface {
	Create(ctx context.Context, event *outboxDomain.OutboxEvent) error
}

// UserUseCase handles user-related business logic
type UserUseCase struct {
	txManager  database.TxManager
	userRepo   UserRepository
	outboxRepo OutboxEventRepository
}

// NewUserUseCase creates a new UserUseCase
func NewUserUseCase(
	txManager database.TxManager,
	userRepo UserRepository,
	outboxRepo OutboxEventRepository,
) UseCase {
	return &UserUseCase{
		txManager:  txManager,
		userRepo:   userRepo,
		outboxRepo: outboxRepo,
	}
}

func (uc *UserUseCase) validateIdentity(username, email string) error {
	input := struct {
		Username string
		Email    string
	}{Username: username, Email: email}

	err := validation.ValidateStruct(&input,
		validation.Field(&input.Username,
			validation.Required.Error("username is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("username must be between 1 and 255 characters"),
		),
		validation.Field(&input.Email,
			validation.Required.Error("email is required"),
			appValidation.NotBlank,
			appValidation.Email,
			validation.Length(5, 255).Error("email must be between 5 and 255 characters"),
		),
	)
	return appValidation.WrapValidationError(err)
}

// FindOrCreate looks the user up by email and provisions a new account when
// none exists, emitting a user.created outbox event in the same transaction.
func (uc *UserUseCase) FindOrCreate(ctx context.Context, username, email string) (uuid.UUID, error) {
	if err := uc.validateIdentity(username, email); err != nil {
		return uuid.Nil, err
	}

	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)

	existing, err := uc.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return existing.ID, nil
	}
	if !apperrors.Is(err, domain.ErrUserNotFound) {
		return uuid.Nil, err
	}

	user := &domain.User{
		ID:       uuid.Must(uuid.NewV7()),
		Username: username,
		Email:    email,
	}

	err = uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := uc.userRepo.Create(ctx, user); err != nil {
			return err
		}

		eventPayload := map[string]interface{}{
			"user_id":  user.ID,
			"username": user.Username,
			"email":    user.Email,
		}
		payloadJSON, err := json.Marshal(eventPayload)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal event payload")
		}

		outboxEvent := &outboxDomain.OutboxEvent{
			ID:        uuid.Must(uuid.NewV7()),
			EventType: "user.created",
			Payload:   string(payloadJSON),
			Status:    outboxDomain.OutboxEventStatusPending,
			Retries:   0,
		}
		if err := uc.outboxRepo.Create(ctx, outboxEvent); err != nil {
			return apperrors.Wrap(err, "failed to create outbox event")
		}
		return nil
	})
	if err != nil {
		// a concurrent callback for the same identity may have won the insert
		if apperrors.Is(err, domain.ErrUserAlreadyExists) {
			winner, getErr := uc.userRepo.GetByEmail(ctx, email)
			if getErr != nil {
				return uuid.Nil, getErr
			}
			return winner.ID, nil
		}
		return uuid.Nil, err
	}

	return user.ID, nil
}

// GetUserByEmail retrieves a user by email
func (uc *UserUseCase) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return uc.userRepo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
}

// GetUserByID retrieves a user by ID
func (uc *UserUseCase) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return uc.userRepo.GetByID(ctx, id)
}
