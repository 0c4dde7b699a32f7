package products

import (
	"context"
	"strings"

	"github.com/bago-furniture/bago-inventory/internal/activity"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxBulkIDs      = 1000
)

// Get returns a product by id.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, wrapErr(err, "get product")
	}
	return p, nil
}

// ListPage is one page of products.
type ListPage struct {
	Rows       []Product         `json:"rows"`
	Pagination shared.Pagination `json:"pagination"`
}

// List returns products matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (ListPage, error) {
	size := filter.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	rows, total, err := s.repo.List(ctx, filter, size, (page-1)*size)
	if err != nil {
		return ListPage{}, wrapErr(err, "list products")
	}
	if rows == nil {
		rows = []Product{}
	}
	return ListPage{Rows: rows, Pagination: shared.NewPagination(page, size, total)}, nil
}

// Update applies the provided fields. Moving an item out of in-process
// registers it into active inventory.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Product, error) {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, wrapErr(err, "get product")
	}
	next := before

	if input.Status != nil {
		st, ok := ParseStatus(*input.Status)
		if !ok {
			return Product{}, invalidStatus(*input.Status)
		}
		next.Status = &st
	}
	if input.InProcess != nil {
		next.InProcess = *input.InProcess
	}

	pairChanged := false
	if input.Category != nil {
		next.Category = *input.Category
		pairChanged = true
	}
	if input.ProductName != nil {
		next.ProductName = *input.ProductName
		pairChanged = true
	}
	colorGiven := input.Color != nil && strings.TrimSpace(*input.Color) != ""
	if input.Color != nil && !colorGiven {
		next.Color = nil
	}
	// An item entering active inventory must still match an active template.
	registering := before.InProcess && !next.InProcess
	if pairChanged || colorGiven || registering {
		tpl, err := s.templates.Match(ctx, next.Category, next.ProductName)
		if err != nil {
			return Product{}, err
		}
		next.Category = tpl.Category
		next.ProductName = tpl.ProductName
		raw := ""
		if colorGiven {
			raw = *input.Color
		} else if next.Color != nil {
			raw = *next.Color
		}
		color, err := pickColor(tpl, raw)
		if err != nil {
			return Product{}, err
		}
		next.Color = color
	}

	if registering && next.Status == nil {
		st := DefaultStatus
		next.Status = &st
	}
	next.UpdatedBy = actorPtr(shared.ActorID(ctx))

	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return Product{}, wrapErr(err, "update product")
	}
	action := activity.ActionUpdateProduct
	if registering {
		action = activity.ActionRegisterProduct
	}
	s.record(ctx, action, idString(id), before, updated)
	return updated, nil
}

// Delete removes a product. A bound code stays consumed.
func (s *Service) Delete(ctx context.Context, id int64) error {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return wrapErr(err, "get product")
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return wrapErr(err, "delete product")
	}
	if !deleted {
		return shared.NotFoundf("product %d not found", id)
	}
	s.record(ctx, activity.ActionDeleteProduct, idString(id), before, nil)
	return nil
}

// BulkUpdateStatus sets status on every existing product among ids. Unknown
// ids are skipped rather than failing the call.
func (s *Service) BulkUpdateStatus(ctx context.Context, ids []int64, rawStatus string) (BulkStatusResult, error) {
	status, ok := ParseStatus(rawStatus)
	if !ok {
		return BulkStatusResult{}, invalidStatus(rawStatus)
	}
	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return BulkStatusResult{}, shared.Validationf("ids is required")
	}
	if len(unique) > maxBulkIDs {
		return BulkStatusResult{}, shared.Validationf("at most %d ids per request", maxBulkIDs)
	}

	updated, err := s.repo.BulkUpdateStatus(ctx, unique, status, shared.ActorID(ctx))
	if err != nil {
		return BulkStatusResult{}, wrapErr(err, "bulk update status")
	}
	result := BulkStatusResult{Requested: len(unique), Updated: updated}
	s.record(ctx, activity.ActionBulkUpdateStatus, "bulk", nil, map[string]any{
		"status":    status,
		"ids":       unique,
		"requested": result.Requested,
		"updated":   result.Updated,
	})
	return result, nil
}
