package rpc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arklim/village-admin/internal/core/domain"
	"github.com/arklim/village-admin/internal/usecase"
)

// ListVillageCodesInput filters the list query.
type ListVillageCodesInput struct {
	IncludeHidden bool `json:"includeHidden"`
}

// GetVillageCodeInput selects a record by identifier.
type GetVillageCodeInput struct {
	ID int64 `json:"id"`
}

// Validate rejects non-positive identifiers.
func (in GetVillageCodeInput) Validate() error {
	if in.ID <= 0 {
		return fmt.Errorf("id must be positive")
	}
	return nil
}

// CreateVillageCodeInput carries the fields for the create mutation.
// IsVisible defaults to true when omitted.
type CreateVillageCodeInput struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	ColorHex  string `json:"colorHex"`
	IsVisible *bool  `json:"isVisible,omitempty"`
}

// Validate enforces required fields and the hex color pattern.
func (in CreateVillageCodeInput) Validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return fmt.Errorf("code is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !domain.ValidColorHex(in.ColorHex) {
		return domain.ErrInvalidColorHex
	}
	return nil
}

// UpdateVillageCodeInput carries a partial update; omitted fields are left
// untouched. The code field is immutable and deliberately absent.
type UpdateVillageCodeInput struct {
	ID        int64   `json:"id"`
	Name      *string `json:"name,omitempty"`
	ColorHex  *string `json:"colorHex,omitempty"`
	IsVisible *bool   `json:"isVisible,omitempty"`
}

// Validate checks the identifier and any provided fields.
func (in UpdateVillageCodeInput) Validate() error {
	if in.ID <= 0 {
		return fmt.Errorf("id must be positive")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return fmt.Errorf("name must not be empty")
	}
	if in.ColorHex != nil && !domain.ValidColorHex(*in.ColorHex) {
		return domain.ErrInvalidColorHex
	}
	return nil
}

// DeleteVillageCodeInput selects the record to remove.
type DeleteVillageCodeInput struct {
	ID int64 `json:"id"`
}

// Validate rejects non-positive identifiers.
func (in DeleteVillageCodeInput) Validate() error {
	if in.ID <= 0 {
		return fmt.Errorf("id must be positive")
	}
	return nil
}

// VillageCodeGroup assembles the villageCodes namespace over the service.
// Every procedure requires an authenticated principal.
func VillageCodeGroup(svc *usecase.VillageCodeService) Group {
	return Group{
		Namespace: "villageCodes",
		Procedures: []Procedure{
			NewProtectedQuery("list", func(ctx Authed, input ListVillageCodesInput) (any, error) {
				return svc.List(ctx.Request.Context(), input.IncludeHidden)
			}),
			NewProtectedQuery("getById", func(ctx Authed, input GetVillageCodeInput) (any, error) {
				record, err := svc.GetByID(ctx.Request.Context(), input.ID)
				if err != nil {
					return nil, err
				}
				if record == nil {
					return nil, nil
				}
				return record, nil
			}),
			NewProtectedMutation("create", func(ctx Authed, input CreateVillageCodeInput) (any, error) {
				isVisible := true
				if input.IsVisible != nil {
					isVisible = *input.IsVisible
				}
				record, err := svc.Create(ctx.Request.Context(), domain.NewVillageCodeInput{
					Code:      strings.TrimSpace(input.Code),
					Name:      strings.TrimSpace(input.Name),
					ColorHex:  input.ColorHex,
					IsVisible: isVisible,
				})
				if err != nil {
					return nil, mapVillageCodeError(err)
				}
				return record, nil
			}),
			NewProtectedMutation("update", func(ctx Authed, input UpdateVillageCodeInput) (any, error) {
				record, err := svc.Update(ctx.Request.Context(), input.ID, domain.VillageCodeUpdate{
					Name:      input.Name,
					ColorHex:  input.ColorHex,
					IsVisible: input.IsVisible,
				})
				if err != nil {
					return nil, mapVillageCodeError(err)
				}
				return record, nil
			}),
			NewProtectedMutation("delete", func(ctx Authed, input DeleteVillageCodeInput) (any, error) {
				record, err := svc.Delete(ctx.Request.Context(), input.ID)
				if err != nil {
					return nil, mapVillageCodeError(err)
				}
				return record, nil
			}),
		},
	}
}

// HealthcheckGroup mounts the public root healthcheck query.
func HealthcheckGroup() Group {
	return Group{
		Procedures: []Procedure{
			NewQuery("healthcheck", func(_ *CallContext, _ struct{}) (any, error) {
				return "yay!", nil
			}),
		},
	}
}

func mapVillageCodeError(err error) error {
	switch {
	case errors.Is(err, usecase.ErrVillageCodeNotFound):
		return NewError(CodeNotFound, "village code not found")
	case errors.Is(err, usecase.ErrDuplicateCode):
		return NewError(CodeConflict, "village code already exists")
	case errors.Is(err, domain.ErrInvalidColorHex):
		return NewError(CodeBadRequest, err.Error())
	default:
		return err
	}
}
