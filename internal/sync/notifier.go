package sync

import (
	"context"
	"fmt"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/logger"
)

// Progress is one incremental observability event during a run.
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Label   string `json:"label"`
}

// Notifier receives progress and terminal events. Implementations must be
// non-fatal: a notification failure never aborts a run.
type Notifier interface {
	Progress(ctx context.Context, p Progress)
	Done(ctx context.Context, summary *RunSummary)
	Failed(ctx context.Context, message string, err error)
}

// BackupScheduler requests a persistence-store backup after a clean run.
type BackupScheduler interface {
	Schedule(ctx context.Context) error
}

// LogNotifier reports run progress through the structured log only.
type LogNotifier struct {
	logger *logger.Logger
}

// NewLogNotifier builds a log-backed notifier.
func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: logg}
}

func (n *LogNotifier) Progress(ctx context.Context, p Progress) {
	logCtx := n.logger.WithFields(ctx, map[string]any{
		"current": p.Current,
		"total":   p.Total,
		"label":   p.Label,
	})
	n.logger.Info(logCtx, "sync progress")
}

func (n *LogNotifier) Done(ctx context.Context, summary *RunSummary) {
	logCtx := n.logger.WithFields(ctx, map[string]any{
		"orders":      summary.Total,
		"failed":      summary.Failed,
		"created":     summary.ItemsCreated,
		"archived":    summary.ItemsArchived,
		"reactivated": summary.ItemsReactivated,
		"duplicates":  summary.DuplicatesArchived,
	})
	n.logger.Info(logCtx, "sync run finished")
}

func (n *LogNotifier) Failed(ctx context.Context, message string, err error) {
	n.logger.Error(ctx, fmt.Sprintf("sync run failed: %s", message), err)
}
