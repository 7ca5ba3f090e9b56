package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/domain"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/repository"
	apperrors "github.com/The-Nikhil-Pandey/clinxchat-api/pkg/errors"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, name string, avatarURL *string) (*domain.User, error)
	// UpdateStatus sets the manual availability flag (available, away, dnd);
	// it is orthogonal to connection-derived presence.
	UpdateStatus(ctx context.Context, userID uuid.UUID, status string) error
	SwitchTeam(ctx context.Context, userID uuid.UUID, teamID *uuid.UUID) error

	RegisterDevice(ctx context.Context, userID uuid.UUID, platform, pushToken string) (*domain.Device, error)
	RemoveDevice(ctx context.Context, userID, deviceID uuid.UUID) error
	ListDevices(ctx context.Context, userID uuid.UUID) ([]*domain.Device, error)
}

type userService struct {
	userRepo repository.UserRepository
	teamRepo repository.TeamRepository
	log      logger.Logger
}

func NewUserService(userRepo repository.UserRepository, teamRepo repository.TeamRepository, log logger.Logger) UserService {
	return &userService{userRepo: userRepo, teamRepo: teamRepo, log: log}
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, name string, avatarURL *string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Invalid("name is required")
	}
	if len(name) > 100 {
		return nil, apperrors.Invalid("name is too long (max 100 characters)")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Name = name
	user.AvatarURL = avatarURL
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) UpdateStatus(ctx context.Context, userID uuid.UUID, status string) error {
	if !domain.ValidStatus(status) {
		return apperrors.Invalid("invalid status")
	}
	return s.userRepo.UpdateStatus(ctx, userID, status)
}

func (s *userService) SwitchTeam(ctx context.Context, userID uuid.UUID, teamID *uuid.UUID) error {
	if teamID != nil {
		if _, err := s.teamRepo.GetMember(ctx, *teamID, userID); err != nil {
			return apperrors.Forbidden("not a member of this team")
		}
	}
	return s.userRepo.UpdateCurrentTeam(ctx, userID, teamID)
}

func (s *userService) RegisterDevice(ctx context.Context, userID uuid.UUID, platform, pushToken string) (*domain.Device, error) {
	if platform != domain.PlatformIOS && platform != domain.PlatformAndroid && platform != domain.PlatformWeb {
		return nil, apperrors.Invalid("invalid platform")
	}
	if pushToken == "" {
		return nil, apperrors.Invalid("push token is required")
	}
	device := &domain.Device{
		ID:        uuid.New(),
		UserID:    userID,
		Platform:  platform,
		PushToken: pushToken,
		CreatedAt: time.Now(),
	}
	if err := s.userRepo.CreateDevice(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

func (s *userService) RemoveDevice(ctx context.Context, userID, deviceID uuid.UUID) error {
	return s.userRepo.DeleteDevice(ctx, deviceID, userID)
}

func (s *userService) ListDevices(ctx context.Context, userID uuid.UUID) ([]*domain.Device, error) {
	return s.userRepo.ListDevices(ctx, userID)
}
