package templates

import (
	"strings"
	"time"
)

// ColorVariant is a named color offered for a template.
type ColorVariant struct {
	Name string `json:"name" validate:"required,max=60"`
	Code string `json:"code" validate:"required,max=20"`
}

// Template governs which (category, product name) pairs may be registered.
type Template struct {
	ID          int64          `json:"id"`
	Category    string         `json:"category"`
	ProductName string         `json:"product_name"`
	IsActive    bool           `json:"is_active"`
	Colors      []ColorVariant `json:"colors"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// HasColor reports whether name is one of the template's variants, case-insensitively.
func (t Template) HasColor(name string) bool {
	name = strings.TrimSpace(name)
	for _, c := range t.Colors {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

// ColorNames lists variant names in declaration order.
func (t Template) ColorNames() []string {
	names := make([]string, 0, len(t.Colors))
	for _, c := range t.Colors {
		names = append(names, c.Name)
	}
	return names
}

// ListFilter narrows template listings.
type ListFilter struct {
	Category   string
	ActiveOnly bool
}

// Input carries fields for create and update.
type Input struct {
	Category    string         `json:"category" validate:"required,max=100"`
	ProductName string         `json:"product_name" validate:"required,max=150"`
	IsActive    *bool          `json:"is_active"`
	Colors      []ColorVariant `json:"colors" validate:"omitempty,dive"`
}
