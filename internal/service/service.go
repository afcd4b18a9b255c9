package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/streamteamhq/platform/internal/domain"
)

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

// storageFailure logs the operation and raw error and returns the generic
// client-facing error.
func storageFailure(logger *slog.Logger, op string, err error) *domain.AppError {
	logger.Error("storage failure", "op", op, "error", err)
	return domain.ErrInternal(op, err)
}

// passThrough returns err unchanged when it is already an AppError.
func passThrough(err error) (*domain.AppError, bool) {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
