package templates

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bago-furniture/bago-inventory/internal/activity"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter) ([]Template, error)
	Get(ctx context.Context, id int64) (Template, error)
	FindByPair(ctx context.Context, category, productName string) (Template, error)
	ActiveNames(ctx context.Context, category string) ([]string, error)
	Create(ctx context.Context, tpl Template) (Template, error)
	Update(ctx context.Context, tpl Template) (Template, error)
	DeleteUnreferenced(ctx context.Context, id int64) (bool, error)
	CountProducts(ctx context.Context, category, productName string) (int, error)
}

// ActivityPort records template changes.
type ActivityPort interface {
	Record(ctx context.Context, entry activity.Entry)
}

// Service manages product templates.
type Service struct {
	repo     RepositoryPort
	activity ActivityPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, activity ActivityPort) *Service {
	return &Service{repo: repo, activity: activity}
}

// Match returns the active template for the pair. Missing or inactive templates
// fail with ErrValidation naming the products available in the category.
func (s *Service) Match(ctx context.Context, category, productName string) (Template, error) {
	category = NormalizeCategory(category)
	productName = strings.TrimSpace(productName)
	if category == "" || productName == "" {
		return Template{}, shared.Validationf("category and product name are required")
	}
	tpl, err := s.repo.FindByPair(ctx, category, productName)
	if err == nil && tpl.IsActive {
		return tpl, nil
	}
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return Template{}, shared.Internal(err, "load template")
	}
	names, err := s.repo.ActiveNames(ctx, category)
	if err != nil {
		return Template{}, shared.Internal(err, "load template names")
	}
	if len(names) == 0 {
		return Template{}, shared.Validationf("product %q is not a registered template; category %q has no active products", productName, category)
	}
	return Template{}, shared.Validationf("product %q is not a registered template in category %q; available: %s",
		productName, category, strings.Join(names, ", "))
}

// List returns templates.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Template, error) {
	if filter.Category != "" {
		filter.Category = NormalizeCategory(filter.Category)
	}
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Internal(err, "list templates")
	}
	if items == nil {
		items = []Template{}
	}
	return items, nil
}

// Categories returns the distinct categories of active templates, sorted.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	items, err := s.List(ctx, ListFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	out := []string{}
	for _, tpl := range items {
		if _, ok := seen[tpl.Category]; ok {
			continue
		}
		seen[tpl.Category] = struct{}{}
		out = append(out, tpl.Category)
	}
	sort.Strings(out)
	return out, nil
}

// Get returns a template by id.
func (s *Service) Get(ctx context.Context, id int64) (Template, error) {
	tpl, err := s.repo.Get(ctx, id)
	if err != nil {
		return Template{}, wrapRepoErr(err, "get template")
	}
	return tpl, nil
}

// Create adds a template, active unless stated otherwise.
func (s *Service) Create(ctx context.Context, input Input) (Template, error) {
	tpl, err := buildTemplate(input)
	if err != nil {
		return Template{}, err
	}
	if input.IsActive == nil {
		tpl.IsActive = true
	}
	created, err := s.repo.Create(ctx, tpl)
	if err != nil {
		return Template{}, wrapRepoErr(err, "create template")
	}
	s.record(ctx, activity.ActionCreateTemplate, created.ID, nil, created)
	return created, nil
}

// Update replaces a template. Renaming a pair that products still reference is refused.
func (s *Service) Update(ctx context.Context, id int64, input Input) (Template, error) {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return Template{}, wrapRepoErr(err, "get template")
	}
	next, err := buildTemplate(input)
	if err != nil {
		return Template{}, err
	}
	next.ID = id
	next.IsActive = before.IsActive
	if input.IsActive != nil {
		next.IsActive = *input.IsActive
	}
	if next.Category != before.Category || next.ProductName != before.ProductName {
		n, err := s.repo.CountProducts(ctx, before.Category, before.ProductName)
		if err != nil {
			return Template{}, shared.Internal(err, "count template products")
		}
		if n > 0 {
			return Template{}, shared.Conflictf("template %s / %s is used by %d products and cannot be renamed", before.Category, before.ProductName, n)
		}
	}
	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return Template{}, wrapRepoErr(err, "update template")
	}
	s.record(ctx, activity.ActionUpdateTemplate, id, before, updated)
	return updated, nil
}

// Delete removes a template that no product references.
func (s *Service) Delete(ctx context.Context, id int64) error {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return wrapRepoErr(err, "get template")
	}
	deleted, err := s.repo.DeleteUnreferenced(ctx, id)
	if err != nil {
		return shared.Internal(err, "delete template")
	}
	if !deleted {
		n, err := s.repo.CountProducts(ctx, before.Category, before.ProductName)
		if err != nil {
			return shared.Internal(err, "count template products")
		}
		return shared.Conflictf("template %s / %s is used by %d products", before.Category, before.ProductName, n)
	}
	s.record(ctx, activity.ActionDeleteTemplate, id, before, nil)
	return nil
}

func (s *Service) record(ctx context.Context, action activity.Action, id int64, before, after any) {
	if s.activity == nil {
		return
	}
	entry := activity.Entry{
		Action:    action,
		TableName: activity.TableTemplates,
		RecordID:  strconv.FormatInt(id, 10),
	}
	if before != nil {
		entry.OldData = activity.Snapshot(before)
	}
	if after != nil {
		entry.NewData = activity.Snapshot(after)
	}
	s.activity.Record(ctx, entry)
}

func buildTemplate(input Input) (Template, error) {
	tpl := Template{
		Category:    NormalizeCategory(input.Category),
		ProductName: strings.TrimSpace(input.ProductName),
		Colors:      make([]ColorVariant, 0, len(input.Colors)),
	}
	if tpl.Category == "" || tpl.ProductName == "" {
		return Template{}, shared.Validationf("category and product name are required")
	}
	seen := make(map[string]struct{}, len(input.Colors))
	for _, c := range input.Colors {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return Template{}, shared.Validationf("color name is required")
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return Template{}, shared.Validationf("color %q listed twice", name)
		}
		seen[key] = struct{}{}
		tpl.Colors = append(tpl.Colors, ColorVariant{Name: name, Code: strings.TrimSpace(c.Code)})
	}
	if input.IsActive != nil {
		tpl.IsActive = *input.IsActive
	}
	return tpl, nil
}

func wrapRepoErr(err error, op string) error {
	var domainErr *shared.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return shared.Internal(fmt.Errorf("templates: %s: %w", op, err), op)
}
