package cron

import (
	"context"
	"fmt"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/logger"
)

type placeholderCleaner interface {
	CleanupPlaceholders(ctx context.Context) (int, error)
}

// PlaceholderCleanupJobParams configure the placeholder cleanup job.
type PlaceholderCleanupJobParams struct {
	Logger *logger.Logger
	Orders placeholderCleaner
}

// NewPlaceholderCleanupJob removes temporary placeholder orders that never
// accumulated production items.
func NewPlaceholderCleanupJob(params PlaceholderCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	return &placeholderCleanupJob{
		logg:   params.Logger,
		orders: params.Orders,
	}, nil
}

type placeholderCleanupJob struct {
	logg   *logger.Logger
	orders placeholderCleaner
}

func (j *placeholderCleanupJob) Name() string { return "placeholder-cleanup" }

func (j *placeholderCleanupJob) Run(ctx context.Context) error {
	removed, err := j.orders.CleanupPlaceholders(ctx)
	if err != nil {
		return fmt.Errorf("placeholder cleanup: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "orders_removed", removed)
	j.logg.Info(logCtx, "placeholder cleanup complete")
	return nil
}
