package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/village-admin/internal/core/domain"
	"github.com/arklim/village-admin/internal/core/port"
	"github.com/arklim/village-admin/internal/repository"
)

var (
	// ErrVillageCodeNotFound indicates the mutation target does not exist.
	ErrVillageCodeNotFound = errors.New("village code not found")
	// ErrDuplicateCode indicates the code value is already taken.
	ErrDuplicateCode = errors.New("village code already exists")
)

const villageCodeNamespace = "villageCodes"

// VillageCodeService coordinates village code CRUD workflows.
type VillageCodeService struct {
	repo   port.VillageCodeRepository
	events port.EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewVillageCodeService constructs a VillageCodeService.
func NewVillageCodeService(repo port.VillageCodeRepository, events port.EventPublisher, logger *zap.Logger) *VillageCodeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VillageCodeService{
		repo:   repo,
		events: events,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *VillageCodeService) WithClock(clock func() time.Time) *VillageCodeService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// List returns records ordered by creation time descending, filtering out
// hidden records unless includeHidden is set.
func (s *VillageCodeService) List(ctx context.Context, includeHidden bool) ([]domain.VillageCode, error) {
	records, err := s.repo.List(ctx, port.VillageCodeFilter{IncludeHidden: includeHidden})
	if err != nil {
		return nil, fmt.Errorf("list village codes: %w", err)
	}
	return records, nil
}

// GetByID returns the matching record, or nil when none exists.
func (s *VillageCodeService) GetByID(ctx context.Context, id int64) (*domain.VillageCode, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get village code: %w", err)
	}
	return record, nil
}

// Create validates the input and inserts a new record. Validation failures
// surface before any store access.
func (s *VillageCodeService) Create(ctx context.Context, input domain.NewVillageCodeInput) (*domain.VillageCode, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	record, err := s.repo.Create(ctx, input)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrDuplicateCode
		}
		return nil, fmt.Errorf("create village code: %w", err)
	}

	s.publish(ctx, "create", record.ID)

	return record, nil
}

// Update applies a partial update. The code field is immutable. A no-op
// update is accepted and still refreshes the updated timestamp.
func (s *VillageCodeService) Update(ctx context.Context, id int64, update domain.VillageCodeUpdate) (*domain.VillageCode, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	record, err := s.repo.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVillageCodeNotFound
		}
		return nil, fmt.Errorf("update village code: %w", err)
	}

	s.publish(ctx, "update", record.ID)

	return record, nil
}

// Delete removes the record and returns the deleted row.
func (s *VillageCodeService) Delete(ctx context.Context, id int64) (*domain.VillageCode, error) {
	record, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVillageCodeNotFound
		}
		return nil, fmt.Errorf("delete village code: %w", err)
	}

	s.publish(ctx, "delete", record.ID)

	return record, nil
}

func (s *VillageCodeService) publish(ctx context.Context, operation string, id int64) {
	if s.events == nil {
		return
	}
	event := domain.EntityChangedEvent{
		Namespace:  villageCodeNamespace,
		Operation:  operation,
		EntityID:   id,
		OccurredAt: s.now(),
	}
	if err := s.events.PublishEntityChanged(ctx, event); err != nil {
		s.logger.Warn("publish entity changed event failed",
			zap.String("operation", operation),
			zap.Int64("entity_id", id),
			zap.Error(err),
		)
	}
}
