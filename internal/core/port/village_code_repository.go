package port

import (
	"context"

	"github.com/arklim/village-admin/internal/core/domain"
)

// VillageCodeFilter narrows list queries.
type VillageCodeFilter struct {
	IncludeHidden bool
}

// VillageCodeRepository exposes persistence behavior for village code records.
type VillageCodeRepository interface {
	Create(ctx context.Context, input domain.NewVillageCodeInput) (*domain.VillageCode, error)
	GetByID(ctx context.Context, id int64) (*domain.VillageCode, error)
	List(ctx context.Context, filter VillageCodeFilter) ([]domain.VillageCode, error)
	Update(ctx context.Context, id int64, update domain.VillageCodeUpdate) (*domain.VillageCode, error)
	Delete(ctx context.Context, id int64) (*domain.VillageCode, error)
}
