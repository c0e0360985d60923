package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kendall-kelly/stitchwise-api/models"
	"gorm.io/gorm"
)

// publishTimeout bounds a single broker round trip
const publishTimeout = 5 * time.Second

// EventRelay moves committed outbox events to the broker in insertion order
type EventRelay struct {
	db        *gorm.DB
	publisher EventPublisher
	batch     int
	logger    *slog.Logger
	now       func() time.Time
}

// NewEventRelay creates a relay that sends at most batch events per pass
func NewEventRelay(db *gorm.DB, publisher EventPublisher, batch int, logger *slog.Logger) *EventRelay {
	if batch < 1 {
		batch = 100
	}
	return &EventRelay{
		db:        db,
		publisher: publisher,
		batch:     batch,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// DispatchPending publishes unpublished events oldest first. It stops at the
// first failure so later events never overtake an earlier one.
func (r *EventRelay) DispatchPending(ctx context.Context) (int, error) {
	db := r.db.WithContext(ctx)

	var events []models.OutboxEvent
	if err := db.Where("published_at IS NULL").Order("id ASC").Limit(r.batch).Find(&events).Error; err != nil {
		return 0, fmt.Errorf("failed to load outbox events: %w", err)
	}

	sent := 0
	for _, event := range events {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		err := r.publisher.Publish(pubCtx, event)
		cancel()

		if err != nil {
			if updateErr := db.Model(&models.OutboxEvent{}).Where("id = ?", event.ID).Updates(map[string]any{
				"attempts":   gorm.Expr("attempts + 1"),
				"last_error": err.Error(),
			}).Error; updateErr != nil {
				r.logger.Error("failed to record publish failure", "event_id", event.EventID, "error", updateErr)
			}
			return sent, fmt.Errorf("failed to publish event %s: %w", event.EventID, err)
		}

		if err := db.Model(&models.OutboxEvent{}).Where("id = ?", event.ID).Updates(map[string]any{
			"attempts":     gorm.Expr("attempts + 1"),
			"published_at": r.now(),
			"last_error":   "",
		}).Error; err != nil {
			return sent, fmt.Errorf("failed to mark event %s published: %w", event.EventID, err)
		}
		sent++
	}
	return sent, nil
}

// Run dispatches pending events every interval until ctx is cancelled
func (r *EventRelay) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("event relay started", "interval", interval, "batch", r.batch)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("event relay stopped")
			return
		case <-ticker.C:
			sent, err := r.DispatchPending(ctx)
			if err != nil && ctx.Err() == nil {
				r.logger.Warn("event relay pass failed", "sent", sent, "error", err)
				continue
			}
			if sent > 0 {
				r.logger.Debug("outbox events published", "count", sent)
			}
		}
	}
}
