package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidColorHex indicates a color value that is not a 3 or 6 digit hex code.
var ErrInvalidColorHex = errors.New("color must be a #RGB or #RRGGBB hex value")

var colorHexPattern = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

// ValidColorHex reports whether the value satisfies the hex color pattern.
func ValidColorHex(value string) bool {
	return colorHexPattern.MatchString(value)
}

// VillageCode mirrors the persisted representation in the village_codes table.
type VillageCode struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	ColorHex  string    `json:"colorHex"`
	IsVisible bool      `json:"isVisible"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewVillageCodeInput carries the fields required to create a record.
// Code is immutable once stored.
type NewVillageCodeInput struct {
	Code      string
	Name      string
	ColorHex  string
	IsVisible bool
}

// Validate checks required fields and the color pattern before any store access.
func (in NewVillageCodeInput) Validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return fmt.Errorf("code is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !ValidColorHex(in.ColorHex) {
		return ErrInvalidColorHex
	}
	return nil
}

// VillageCodeUpdate carries a partial update; nil fields are left untouched.
type VillageCodeUpdate struct {
	Name      *string
	ColorHex  *string
	IsVisible *bool
}

// Validate checks the provided fields against the same rules create enforces.
func (u VillageCodeUpdate) Validate() error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return fmt.Errorf("name must not be empty")
	}
	if u.ColorHex != nil && !ValidColorHex(*u.ColorHex) {
		return ErrInvalidColorHex
	}
	return nil
}
