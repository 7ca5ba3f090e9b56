package repository

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/The-Nikhil-Pandey/clinxchat-api/pkg/errors"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

const (
	retryAttempts = 3
	retryBaseWait = 100 * time.Millisecond
)

// withRetry runs fn up to retryAttempts times, backing off between attempts,
// but only for transient connection-class failures. Logic faults surface on
// the first attempt; exhausting retries surfaces as Unavailable so callers
// can tell "try again shortly" apart from "your request was wrong".
func withRetry(ctx context.Context, log logger.Logger, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		err = fn()
		if err == nil || !isTransient(err) {
			return err
		}
		log.Warn("transient store error, retrying", "op", op, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return apperrors.Unavailable("store unavailable", ctx.Err())
		case <-time.After(retryBaseWait * time.Duration(attempt)):
		}
	}
	return apperrors.Unavailable("store unavailable", err)
}

func isTransient(err error) bool {
	if pgconn.SafeToRetry(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exceptions.
		return strings.HasPrefix(pgErr.Code, "08")
	}
	return false
}
