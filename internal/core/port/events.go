package port

import (
	"context"

	"github.com/arklim/village-admin/internal/core/domain"
)

// EventPublisher delivers entity-changed notifications emitted after
// successful mutations. Implementations must not block the request path.
type EventPublisher interface {
	PublishEntityChanged(ctx context.Context, event domain.EntityChangedEvent) error
}
