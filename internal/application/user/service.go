package user

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domainUser "github.com/prakhar-shukla17/SlotSwapper/internal/domain/user"
)

// Service handles participant accounts.
type Service struct {
	userRepo domainUser.Repository
	logger   zerolog.Logger
}

// NewService creates a user service.
func NewService(userRepo domainUser.Repository, logger zerolog.Logger) *Service {
	return &Service{
		userRepo: userRepo,
		logger:   logger.With().Str("service", "user").Logger(),
	}
}

// Register creates a new participant account.
func (s *Service) Register(ctx context.Context, name, email, password string) (*domainUser.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domainUser.ErrMissingName
	}
	email = domainUser.NormalizeEmail(email)
	if err := domainUser.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := domainUser.ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := domainUser.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u := &domainUser.User{
		UserID:       uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", u.UserID.String()).Msg("participant registered")
	return u, nil
}

// Get returns a participant by id.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*domainUser.User, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domainUser.ErrNotFound
	}
	return u, nil
}
