package templates

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bago-furniture/bago-inventory/internal/activity"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

type memoryRepo struct {
	items    map[int64]Template
	products map[string]int
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[int64]Template), products: make(map[string]int)}
}

func pairKey(category, name string) string {
	return category + "|" + name
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Template, error) {
	var out []Template
	for _, tpl := range r.items {
		if filter.Category != "" && tpl.Category != filter.Category {
			continue
		}
		if filter.ActiveOnly && !tpl.IsActive {
			continue
		}
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Template, error) {
	tpl, ok := r.items[id]
	if !ok {
		return Template{}, shared.NotFoundf("template %d not found", id)
	}
	return tpl, nil
}

func (r *memoryRepo) FindByPair(ctx context.Context, category, productName string) (Template, error) {
	for _, tpl := range r.items {
		if tpl.Category == category && tpl.ProductName == productName {
			return tpl, nil
		}
	}
	return Template{}, shared.NotFoundf("template not found")
}

func (r *memoryRepo) ActiveNames(ctx context.Context, category string) ([]string, error) {
	var names []string
	for _, tpl := range r.items {
		if tpl.Category == category && tpl.IsActive {
			names = append(names, tpl.ProductName)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (r *memoryRepo) Create(ctx context.Context, tpl Template) (Template, error) {
	if _, err := r.FindByPair(ctx, tpl.Category, tpl.ProductName); err == nil {
		return Template{}, shared.Conflictf("template %s / %s already exists", tpl.Category, tpl.ProductName)
	}
	r.nextID++
	tpl.ID = r.nextID
	tpl.CreatedAt = time.Now()
	tpl.UpdatedAt = tpl.CreatedAt
	r.items[tpl.ID] = tpl
	return tpl, nil
}

func (r *memoryRepo) Update(ctx context.Context, tpl Template) (Template, error) {
	if _, ok := r.items[tpl.ID]; !ok {
		return Template{}, shared.NotFoundf("template %d not found", tpl.ID)
	}
	tpl.UpdatedAt = time.Now()
	r.items[tpl.ID] = tpl
	return tpl, nil
}

func (r *memoryRepo) DeleteUnreferenced(ctx context.Context, id int64) (bool, error) {
	tpl, ok := r.items[id]
	if !ok || r.products[pairKey(tpl.Category, tpl.ProductName)] > 0 {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}

func (r *memoryRepo) CountProducts(ctx context.Context, category, productName string) (int, error) {
	return r.products[pairKey(category, productName)], nil
}

type memoryActivity struct {
	entries []activity.Entry
}

func (m *memoryActivity) Record(ctx context.Context, entry activity.Entry) {
	m.entries = append(m.entries, entry)
}

func boolPtr(v bool) *bool { return &v }

func seededService(t *testing.T) (*Service, *memoryRepo, *memoryActivity) {
	t.Helper()
	repo := newMemoryRepo()
	log := &memoryActivity{}
	svc := NewService(repo, log)
	ctx := context.Background()
	_, err := svc.Create(ctx, Input{Category: "Sofa", ProductName: "Sofa Milan", Colors: []ColorVariant{{Name: "Abu", Code: "#888888"}, {Name: "Cream", Code: "#f5e6c8"}}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Input{Category: "Sofa", ProductName: "Sofa Roma"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Input{Category: "Sofa", ProductName: "Sofa Lama", IsActive: boolPtr(false)})
	require.NoError(t, err)
	log.entries = nil
	return svc, repo, log
}

func TestMatchActiveTemplate(t *testing.T) {
	svc, _, _ := seededService(t)

	tpl, err := svc.Match(context.Background(), " sofa set ", "Sofa Milan")
	require.NoError(t, err)
	require.Equal(t, "Sofa", tpl.Category)
	require.True(t, tpl.HasColor("abu"))
	require.False(t, tpl.HasColor("Merah"))
}

func TestMatchListsAvailableNames(t *testing.T) {
	svc, _, _ := seededService(t)

	_, err := svc.Match(context.Background(), "Sofa", "Sofa Paris")
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "available: Sofa Milan, Sofa Roma")

	_, err = svc.Match(context.Background(), "Sofa", "Sofa Lama")
	require.ErrorIs(t, err, shared.ErrValidation, "inactive templates do not match")
	require.NotContains(t, err.Error(), "available: Sofa Lama")

	_, err = svc.Match(context.Background(), "Lemari", "Lemari 3 Pintu")
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "no active products")
}

func TestCreateRecordsActivityAndRejectsDuplicates(t *testing.T) {
	svc, _, log := seededService(t)

	created, err := svc.Create(context.Background(), Input{Category: "kasur", ProductName: "Spring Bed Royal"})
	require.NoError(t, err)
	require.Equal(t, "Spring Bed", created.Category)
	require.True(t, created.IsActive)
	require.Len(t, log.entries, 1)
	require.Equal(t, activity.ActionCreateTemplate, log.entries[0].Action)
	require.Nil(t, log.entries[0].OldData)

	_, err = svc.Create(context.Background(), Input{Category: "Sofa", ProductName: "Sofa Milan"})
	require.ErrorIs(t, err, shared.ErrConflict)

	_, err = svc.Create(context.Background(), Input{Category: "Sofa", ProductName: "Sofa X", Colors: []ColorVariant{{Name: "Abu"}, {Name: "abu"}}})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeleteGuardedByProducts(t *testing.T) {
	svc, repo, log := seededService(t)
	repo.products[pairKey("Sofa", "Sofa Milan")] = 2

	err := svc.Delete(context.Background(), 1)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.True(t, strings.Contains(err.Error(), "used by 2 products"))
	require.Empty(t, log.entries)

	require.NoError(t, svc.Delete(context.Background(), 2))
	require.Len(t, log.entries, 1)
	require.Equal(t, activity.ActionDeleteTemplate, log.entries[0].Action)
	require.NotNil(t, log.entries[0].OldData)
	require.Nil(t, log.entries[0].NewData)

	require.ErrorIs(t, svc.Delete(context.Background(), 2), shared.ErrNotFound)
}

func TestUpdateRefusesRenameOfReferencedPair(t *testing.T) {
	svc, repo, log := seededService(t)
	repo.products[pairKey("Sofa", "Sofa Milan")] = 1

	_, err := svc.Update(context.Background(), 1, Input{Category: "Sofa", ProductName: "Sofa Milano"})
	require.ErrorIs(t, err, shared.ErrConflict)

	updated, err := svc.Update(context.Background(), 1, Input{Category: "Sofa", ProductName: "Sofa Milan", IsActive: boolPtr(false)})
	require.NoError(t, err)
	require.False(t, updated.IsActive)
	require.Len(t, log.entries, 1)
	require.Equal(t, activity.ActionUpdateTemplate, log.entries[0].Action)
}

func TestNormalizeCategory(t *testing.T) {
	require.Equal(t, "Sofa Bed", NormalizeCategory("  SOFABED "))
	require.Equal(t, "Meja Makan", NormalizeCategory("meja   makan"))
	require.Equal(t, "Custom", NormalizeCategory(" Custom "))
}
