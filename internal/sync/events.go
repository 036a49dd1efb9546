package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/logger"
)

type jsonPublisher interface {
	PublishJSON(ctx context.Context, topic string, payload any, attrs map[string]string) (string, error)
}

// ProgressEvent is the wire shape of a sync progress message. The dashboard
// subscribes to these to render the live run view.
type ProgressEvent struct {
	Type        string `json:"type"`
	Current     int    `json:"current,omitempty"`
	Total       int    `json:"total,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`

	Period             string `json:"period,omitempty"`
	Succeeded          int    `json:"succeeded,omitempty"`
	Failed             int    `json:"failed,omitempty"`
	OrdersArchived     int    `json:"orders_archived,omitempty"`
	ItemsCreated       int    `json:"items_created,omitempty"`
	ItemsArchived      int    `json:"items_archived,omitempty"`
	ItemsReactivated   int    `json:"items_reactivated,omitempty"`
	DuplicatesArchived int    `json:"duplicates_archived,omitempty"`
	DurationMS         int64  `json:"duration_ms,omitempty"`
}

// PubSubNotifier fans sync run events out to the sync-events topic. Publish
// failures are logged and swallowed: event delivery never blocks a run.
type PubSubNotifier struct {
	pub    jsonPublisher
	topic  string
	logger *logger.Logger
}

// NewPubSubNotifier builds a notifier publishing to the named topic.
func NewPubSubNotifier(pub jsonPublisher, topic string, logg *logger.Logger) (*PubSubNotifier, error) {
	if pub == nil {
		return nil, fmt.Errorf("publisher required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &PubSubNotifier{pub: pub, topic: topic, logger: logg}, nil
}

func (n *PubSubNotifier) Progress(ctx context.Context, p Progress) {
	n.publish(ctx, ProgressEvent{
		Type:        "progress",
		Current:     p.Current,
		Total:       p.Total,
		OrderNumber: p.Label,
	})
}

func (n *PubSubNotifier) Done(ctx context.Context, summary *RunSummary) {
	event := ProgressEvent{
		Type:               "done",
		Total:              summary.Total,
		Period:             string(summary.Period),
		Succeeded:          summary.Succeeded,
		Failed:             summary.Failed,
		OrdersArchived:     summary.OrdersArchived,
		ItemsCreated:       summary.ItemsCreated,
		ItemsArchived:      summary.ItemsArchived,
		ItemsReactivated:   summary.ItemsReactivated,
		DuplicatesArchived: summary.DuplicatesArchived,
		DurationMS:         summary.Duration.Milliseconds(),
	}
	if summary.Err != nil {
		event.Error = summary.Err.Error()
	}
	n.publish(ctx, event)
}

func (n *PubSubNotifier) Failed(ctx context.Context, message string, err error) {
	event := ProgressEvent{Type: "failed", Message: message}
	if err != nil {
		event.Error = err.Error()
	}
	n.publish(ctx, event)
}

func (n *PubSubNotifier) publish(ctx context.Context, event ProgressEvent) {
	_, err := n.pub.PublishJSON(ctx, n.topic, event, map[string]string{
		"event_type": event.Type,
	})
	if err != nil {
		n.logger.Error(ctx, "publishing sync event", err)
	}
}

// BackupRequest is the wire shape of a store backup request.
type BackupRequest struct {
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// PubSubBackupScheduler requests a store backup after a clean run by
// publishing to the backup topic; the snapshot worker does the heavy lifting.
type PubSubBackupScheduler struct {
	pub   jsonPublisher
	topic string
	now   func() time.Time
}

// NewPubSubBackupScheduler builds a backup scheduler for the named topic.
func NewPubSubBackupScheduler(pub jsonPublisher, topic string) (*PubSubBackupScheduler, error) {
	if pub == nil {
		return nil, fmt.Errorf("publisher required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic required")
	}
	return &PubSubBackupScheduler{
		pub:   pub,
		topic: topic,
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *PubSubBackupScheduler) Schedule(ctx context.Context) error {
	_, err := s.pub.PublishJSON(ctx, s.topic, BackupRequest{
		Reason:      "clean sync run",
		RequestedAt: s.now(),
	}, map[string]string{"event_type": "backup"})
	if err != nil {
		return fmt.Errorf("scheduling backup: %w", err)
	}
	return nil
}
