package service

import (
	"context"
	"errors"
	"log/slog"

	"uboard/internal/middleware"
	"uboard/internal/models"

	"gorm.io/gorm"
)

// storeErr converts a repository error into an AppError. Missing rows become
// NotFound for resource/id; anything else is logged and wrapped as a store
// failure. AppErrors pass through unchanged.
func storeErr(ctx context.Context, resource, op, id string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	middleware.Logger.ErrorContext(ctx, "store failure",
		slog.String("op", op),
		slog.String("id", id),
		slog.String("error", err.Error()),
	)
	return models.NewStoreFailure(op, id, err)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxResults {
		return MaxResults
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
