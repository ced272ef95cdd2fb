package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/arklim/village-admin/internal/core/domain"
	"github.com/arklim/village-admin/internal/core/port"
)

// LoggingPublisher records entity-changed events in the structured log.
// The service is single-process; client-side caches invalidate from the RPC
// response, so no broker is involved.
type LoggingPublisher struct {
	logger *zap.Logger
}

// NewLoggingPublisher constructs a LoggingPublisher.
func NewLoggingPublisher(logger *zap.Logger) *LoggingPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingPublisher{logger: logger}
}

// PublishEntityChanged logs the event; it never fails the request path.
func (p *LoggingPublisher) PublishEntityChanged(_ context.Context, event domain.EntityChangedEvent) error {
	p.logger.Info("entity changed",
		zap.String("namespace", event.Namespace),
		zap.String("operation", event.Operation),
		zap.Int64("entity_id", event.EntityID),
		zap.Time("occurred_at", event.OccurredAt),
	)
	return nil
}

var _ port.EventPublisher = (*LoggingPublisher)(nil)
