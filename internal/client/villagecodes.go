package client

import (
	"context"

	"github.com/arklim/village-admin/internal/core/domain"
	"github.com/arklim/village-admin/internal/rpc"
)

// VillageCodes is the typed binding for the villageCodes namespace.
type VillageCodes struct {
	client *Client
}

// VillageCodes returns the typed binding backed by this client.
func (c *Client) VillageCodes() VillageCodes {
	return VillageCodes{client: c}
}

// List fetches village codes; hidden entries are included only on request.
func (v VillageCodes) List(ctx context.Context, includeHidden bool) ([]domain.VillageCode, error) {
	var codes []domain.VillageCode
	err := v.client.Query(ctx, "villageCodes.list", rpc.ListVillageCodesInput{IncludeHidden: includeHidden}, &codes)
	return codes, err
}

// GetByID fetches one village code; a missing record decodes as nil.
func (v VillageCodes) GetByID(ctx context.Context, id int64) (*domain.VillageCode, error) {
	var code *domain.VillageCode
	err := v.client.Query(ctx, "villageCodes.getById", rpc.GetVillageCodeInput{ID: id}, &code)
	return code, err
}

// Create inserts a new village code and returns the stored record.
func (v VillageCodes) Create(ctx context.Context, input rpc.CreateVillageCodeInput, opts ...MutateOptions) (*domain.VillageCode, error) {
	var code domain.VillageCode
	if err := v.client.Mutate(ctx, "villageCodes.create", input, &code, opts...); err != nil {
		return nil, err
	}
	return &code, nil
}

// Update applies a partial update and returns the resulting record.
func (v VillageCodes) Update(ctx context.Context, input rpc.UpdateVillageCodeInput, opts ...MutateOptions) (*domain.VillageCode, error) {
	var code domain.VillageCode
	if err := v.client.Mutate(ctx, "villageCodes.update", input, &code, opts...); err != nil {
		return nil, err
	}
	return &code, nil
}

// Delete removes a village code and returns the deleted record.
func (v VillageCodes) Delete(ctx context.Context, id int64, opts ...MutateOptions) (*domain.VillageCode, error) {
	var code domain.VillageCode
	if err := v.client.Mutate(ctx, "villageCodes.delete", rpc.DeleteVillageCodeInput{ID: id}, &code, opts...); err != nil {
		return nil, err
	}
	return &code, nil
}

// Healthcheck issues the public liveness query.
func (c *Client) Healthcheck(ctx context.Context) (string, error) {
	var status string
	err := c.Query(ctx, "healthcheck", nil, &status)
	return status, err
}
