package activity

import (
	"context"
	"fmt"

	"github.com/bago-furniture/bago-inventory/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Reader membaca timeline aktivitas.
type Reader interface {
	List(ctx context.Context, filter Filter, limit, offset int) ([]Record, int, error)
}

// Service menyajikan timeline aktivitas untuk admin.
type Service struct {
	reader Reader
}

// NewService membuat service timeline baru.
func NewService(reader Reader) *Service {
	return &Service{reader: reader}
}

// List mengambil timeline dengan paging.
func (s *Service) List(ctx context.Context, filter Filter) (Page, error) {
	if filter.Action != "" && !filter.Action.Valid() {
		return Page{}, shared.Validationf("unknown action %q", filter.Action)
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return Page{}, shared.Validationf("date range end precedes start")
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	rows, total, err := s.reader.List(ctx, filter, pageSize, (page-1)*pageSize)
	if err != nil {
		return Page{}, fmt.Errorf("activity: list: %w", err)
	}
	if rows == nil {
		rows = []Record{}
	}
	return Page{Rows: rows, Pagination: shared.NewPagination(page, pageSize, total)}, nil
}
