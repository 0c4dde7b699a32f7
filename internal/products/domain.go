package products

import (
	"strings"
	"time"
)

// Status is the location or sale state of a product.
type Status string

const (
	StatusStore      Status = "TOKO"
	StatusWarehouseA Status = "GUDANG_A"
	StatusWarehouseB Status = "GUDANG_B"
	StatusSold       Status = "TERJUAL"
)

// DefaultStatus applies to registrations that do not name one.
const DefaultStatus = StatusStore

// Statuses lists the vocabulary in display order.
func Statuses() []Status {
	return []Status{StatusStore, StatusWarehouseA, StatusWarehouseB, StatusSold}
}

// ParseStatus normalises raw input into a Status.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case StatusStore, StatusWarehouseA, StatusWarehouseB, StatusSold:
		return s, true
	}
	return "", false
}

// Product is a tracked furniture item.
type Product struct {
	ID          int64     `json:"id"`
	QRCodeID    *int64    `json:"qr_code_id"`
	QRCode      string    `json:"qr_code,omitempty"`
	Category    string    `json:"category"`
	ProductName string    `json:"product_name"`
	Color       *string   `json:"color"`
	Status      *Status   `json:"status"`
	InProcess   bool      `json:"in_process"`
	CreatedBy   *int64    `json:"created_by"`
	UpdatedBy   *int64    `json:"updated_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RegisterInput binds a scanned code to a new product.
type RegisterInput struct {
	QRCode      string `json:"qr_code" validate:"required,max=32"`
	Category    string `json:"category" validate:"required,max=100"`
	ProductName string `json:"product_name" validate:"required,max=150"`
	Color       string `json:"color" validate:"max=60"`
	Status      string `json:"status"`
}

// IntakeInput creates manufacturing items without codes.
type IntakeInput struct {
	Category    string `json:"category" validate:"required,max=100"`
	ProductName string `json:"product_name" validate:"required,max=150"`
	Count       int    `json:"count"`
}

// UpdateInput carries the fields to change; nil fields are left alone.
type UpdateInput struct {
	Category    *string `json:"category"`
	ProductName *string `json:"product_name"`
	Color       *string `json:"color"`
	Status      *string `json:"status"`
	InProcess   *bool   `json:"in_process"`
}

// BulkStatusResult reports a bulk status change.
type BulkStatusResult struct {
	Requested int `json:"requested"`
	Updated   int `json:"updated"`
}

// ListFilter narrows product listings.
type ListFilter struct {
	Status    Status
	Category  string
	InProcess *bool
	Search    string
	Page      int
	PageSize  int
}

// StockView selects an aggregation partition.
type StockView string

const (
	ViewActive    StockView = "active"
	ViewSold      StockView = "sold"
	ViewInProcess StockView = "in-process"
)

// ParseStockView accepts a view name; empty means active.
func ParseStockView(raw string) (StockView, bool) {
	switch v := StockView(strings.ToLower(strings.TrimSpace(raw))); v {
	case "":
		return ViewActive, true
	case ViewActive, ViewSold, ViewInProcess:
		return v, true
	}
	return "", false
}

// StockGroup is one (category, product name) aggregate.
type StockGroup struct {
	Category    string    `json:"category"`
	ProductName string    `json:"product_name"`
	Count       int       `json:"count"`
	LastUpdated time.Time `json:"last_updated"`
	LowStock    bool      `json:"low_stock"`
}

// StockSummary is the aggregation returned for a view.
type StockSummary struct {
	View      StockView    `json:"view"`
	Threshold int          `json:"threshold"`
	Total     int          `json:"total"`
	Groups    []StockGroup `json:"groups"`
}
