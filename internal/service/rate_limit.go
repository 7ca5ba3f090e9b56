package service

import (
	"context"
	"time"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/repository"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

type RateLimitService interface {
	// Allow counts the request against the (scope, key) window and reports
	// whether it still fits the limit, plus the remaining allowance.
	Allow(ctx context.Context, scope, key string, limit int, window time.Duration) (allowed bool, remaining int, err error)
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	log           logger.Logger
}

func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateLimitRepo: rateLimitRepo,
		log:           log,
	}
}

func (s *rateLimitService) Allow(ctx context.Context, scope, key string, limit int, window time.Duration) (bool, int, error) {
	count, err := s.rateLimitRepo.Hit(ctx, "rate:"+scope+":"+key, window)
	if err != nil {
		return false, 0, err
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return count <= int64(limit), remaining, nil
}
