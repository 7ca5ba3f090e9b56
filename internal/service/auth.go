package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/config"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/domain"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/repository"
	apperrors "github.com/The-Nikhil-Pandey/clinxchat-api/pkg/errors"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/jwt"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)
	ValidateToken(ctx context.Context, tokenString string) (*domain.User, error)
	Logout(ctx context.Context, refreshToken string) error
}

type LoginResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type authService struct {
	userRepo repository.UserRepository
	jwtCfg   config.JWTConfig
	log      logger.Logger
}

func NewAuthService(userRepo repository.UserRepository, jwtCfg config.JWTConfig, log logger.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		jwtCfg:   jwtCfg,
		log:      log,
	}
}

func (s *authService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	password = strings.TrimSpace(password)

	if email == "" {
		return nil, apperrors.Invalid("email is required")
	}
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return nil, apperrors.Invalid("invalid email format")
	}
	if len(email) > 255 {
		return nil, apperrors.Invalid("email is too long")
	}
	if name == "" {
		return nil, apperrors.Invalid("name is required")
	}
	if len(name) > 100 {
		return nil, apperrors.Invalid("name is too long (max 100 characters)")
	}
	if len(password) < 8 {
		return nil, apperrors.Invalid("password must be at least 8 characters")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error("failed to hash password", "error", err)
		return nil, apperrors.Internal("failed to hash password", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(passwordHash),
		Status:       domain.StatusAvailable,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if apperrors.KindOf(err) == apperrors.KindConflict {
			return nil, apperrors.Conflict("user with this email already exists")
		}
		s.log.Error("failed to create user", "error", err, "email", email)
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	password = strings.TrimSpace(password)

	if email == "" || password == "" {
		return nil, apperrors.Invalid("email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Whether the account exists stays hidden.
		return nil, apperrors.Unauthenticated("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthenticated("invalid credentials")
	}

	accessToken, refreshToken, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.log.Warn("failed to update last login", "error", err)
	}

	user.PasswordHash = ""
	return &LoginResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.jwtCfg.RefreshSecret)
	if err != nil {
		return nil, apperrors.Unauthenticated("invalid refresh token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperrors.Unauthenticated("invalid token subject")
	}

	session, err := s.userRepo.GetSessionByTokenHash(ctx, hashToken(refreshToken))
	if err != nil {
		return nil, apperrors.Unauthenticated("session not found or expired")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Unauthenticated("user not found")
	}

	accessToken, newRefreshToken, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	// Refresh rotates: the old session is revoked, a new one replaces it.
	if err := s.userRepo.RevokeSession(ctx, session.ID, "refreshed"); err != nil {
		s.log.Warn("failed to revoke old session", "error", err)
	}

	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*domain.User, error) {
	claims, err := jwt.ValidateAccessToken(tokenString, s.jwtCfg.AccessSecret)
	if err != nil {
		return nil, apperrors.Unauthenticated("invalid access token")
	}
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthenticated("user not found")
	}
	return user, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	session, err := s.userRepo.GetSessionByTokenHash(ctx, hashToken(refreshToken))
	if err != nil {
		return apperrors.NotFound("session not found")
	}
	return s.userRepo.RevokeSession(ctx, session.ID, "logout")
}

func (s *authService) issueTokens(ctx context.Context, user *domain.User) (access, refresh string, err error) {
	access, err = jwt.GenerateAccessToken(user.ID, user.Email, s.jwtCfg.AccessSecret, s.jwtCfg.Issuer, s.jwtCfg.AccessTTL)
	if err != nil {
		s.log.Error("failed to generate access token", "error", err)
		return "", "", apperrors.Internal("failed to generate access token", err)
	}
	refresh, err = jwt.GenerateRefreshToken(user.ID, s.jwtCfg.RefreshSecret, s.jwtCfg.Issuer, s.jwtCfg.RefreshTTL)
	if err != nil {
		s.log.Error("failed to generate refresh token", "error", err)
		return "", "", apperrors.Internal("failed to generate refresh token", err)
	}

	session := &domain.UserSession{
		ID:               uuid.New(),
		UserID:           user.ID,
		RefreshTokenHash: hashToken(refresh),
		CreatedAt:        time.Now(),
		ExpiresAt:        time.Now().Add(s.jwtCfg.RefreshTTL),
	}
	if err := s.userRepo.CreateSession(ctx, session); err != nil {
		s.log.Error("failed to create session", "error", err)
		return "", "", apperrors.Internal("failed to create session", err)
	}
	return access, refresh, nil
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
