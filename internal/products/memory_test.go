package products

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bago-furniture/bago-inventory/internal/activity"
	"github.com/bago-furniture/bago-inventory/internal/qrcode"
	"github.com/bago-furniture/bago-inventory/internal/shared"
	"github.com/bago-furniture/bago-inventory/internal/templates"
)

// memoryStore backs both the code lookup and the product repository.
type memoryStore struct {
	mu         sync.Mutex
	codes      map[string]*qrcode.Code
	products   map[int64]Product
	nextID     int64
	failInsert error
	stockCalls int
}

func newMemoryStore(codes ...string) *memoryStore {
	s := &memoryStore{codes: make(map[string]*qrcode.Code), products: make(map[int64]Product)}
	for i, c := range codes {
		s.codes[c] = &qrcode.Code{ID: int64(i + 1), Code: c}
	}
	return s
}

func (s *memoryStore) Lookup(ctx context.Context, code string) (qrcode.Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[code]
	if !ok {
		return qrcode.Code{}, shared.NotFoundf("QR code %s not found", code)
	}
	return *c, nil
}

func (s *memoryStore) codeByID(id int64) *qrcode.Code {
	for _, c := range s.codes {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes := make(map[string]qrcode.Code, len(s.codes))
	for k, v := range s.codes {
		codes[k] = *v
	}
	products := make(map[int64]Product, len(s.products))
	for k, v := range s.products {
		products[k] = v
	}
	if err := fn(ctx, &memoryTx{store: s}); err != nil {
		for k, v := range codes {
			c := v
			s.codes[k] = &c
		}
		s.products = products
		return err
	}
	return nil
}

type memoryTx struct {
	store *memoryStore
}

func (t *memoryTx) ConsumeCode(ctx context.Context, codeID, userID int64) (bool, error) {
	c := t.store.codeByID(codeID)
	if c == nil || c.IsUsed {
		return false, nil
	}
	now := time.Now()
	c.IsUsed = true
	c.UsedBy = &userID
	c.UsedAt = &now
	return true, nil
}

func (t *memoryTx) Insert(ctx context.Context, p Product) (Product, error) {
	if t.store.failInsert != nil {
		return Product{}, t.store.failInsert
	}
	if p.QRCodeID != nil {
		for _, existing := range t.store.products {
			if existing.QRCodeID != nil && *existing.QRCodeID == *p.QRCodeID {
				return Product{}, shared.Conflictf("QR code is already bound to a product")
			}
		}
	}
	return t.store.put(p), nil
}

func (t *memoryTx) InsertInProcess(ctx context.Context, category, productName string, count int, userID int64) ([]Product, error) {
	if t.store.failInsert != nil {
		return nil, t.store.failInsert
	}
	out := make([]Product, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, t.store.put(Product{Category: category, ProductName: productName, InProcess: true, CreatedBy: actorPtr(userID)}))
	}
	return out, nil
}

func (s *memoryStore) put(p Product) Product {
	s.nextID++
	p.ID = s.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	p.UpdatedBy = p.CreatedBy
	s.products[p.ID] = p
	return p
}

func (s *memoryStore) Get(ctx context.Context, id int64) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, shared.NotFoundf("product %d not found", id)
	}
	return p, nil
}

func (s *memoryStore) FindByCodeID(ctx context.Context, codeID int64) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.QRCodeID != nil && *p.QRCodeID == codeID {
			return p, nil
		}
	}
	return Product{}, shared.NotFoundf("no product bound to QR code %d", codeID)
}

func (s *memoryStore) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Product, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Product
	for _, p := range s.sorted() {
		if filter.Status != "" && (p.Status == nil || *p.Status != filter.Status) {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.InProcess != nil && p.InProcess != *filter.InProcess {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.ProductName), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, p)
	}
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (s *memoryStore) Update(ctx context.Context, p Product) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return Product{}, shared.NotFoundf("product %d not found", p.ID)
	}
	p.UpdatedAt = time.Now()
	s.products[p.ID] = p
	return p, nil
}

func (s *memoryStore) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return false, nil
	}
	delete(s.products, id)
	return true, nil
}

func (s *memoryStore) BulkUpdateStatus(ctx context.Context, ids []int64, status Status, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		p, ok := s.products[id]
		if !ok {
			continue
		}
		st := status
		p.Status = &st
		p.UpdatedBy = actorPtr(userID)
		s.products[id] = p
		n++
	}
	return n, nil
}

func (s *memoryStore) Stock(ctx context.Context, view StockView) ([]StockGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stockCalls++
	groups := make(map[string]*StockGroup)
	var keys []string
	for _, p := range s.sorted() {
		sold := p.Status != nil && *p.Status == StatusSold
		switch view {
		case ViewSold:
			if !sold {
				continue
			}
		case ViewInProcess:
			if !p.InProcess {
				continue
			}
		default:
			if sold || p.InProcess {
				continue
			}
		}
		key := p.Category + "|" + p.ProductName
		g, ok := groups[key]
		if !ok {
			g = &StockGroup{Category: p.Category, ProductName: p.ProductName}
			groups[key] = g
			keys = append(keys, key)
		}
		g.Count++
		if p.UpdatedAt.After(g.LastUpdated) {
			g.LastUpdated = p.UpdatedAt
		}
	}
	sort.Strings(keys)
	out := make([]StockGroup, 0, len(keys))
	for _, k := range keys {
		out = append(out, *groups[k])
	}
	return out, nil
}

func (s *memoryStore) sorted() []Product {
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memoryTemplates map[string]templates.Template

func (m memoryTemplates) Match(ctx context.Context, category, productName string) (templates.Template, error) {
	tpl, ok := m[templates.NormalizeCategory(category)+"|"+strings.TrimSpace(productName)]
	if !ok || !tpl.IsActive {
		return templates.Template{}, shared.Validationf("product %q is not a registered template in category %q", productName, category)
	}
	return tpl, nil
}

func defaultTemplates() memoryTemplates {
	return memoryTemplates{
		"Sofa|Sofa Bed": {ID: 1, Category: "Sofa", ProductName: "Sofa Bed", IsActive: true,
			Colors: []templates.ColorVariant{{Name: "Abu", Code: "#888888"}, {Name: "Coklat", Code: "#7b4a12"}}},
		"Meja|Meja Makan": {ID: 2, Category: "Meja", ProductName: "Meja Makan", IsActive: true},
		"Meja|Meja Lama":  {ID: 3, Category: "Meja", ProductName: "Meja Lama", IsActive: false},
	}
}

type memoryActivity struct {
	mu      sync.Mutex
	entries []activity.Entry
}

func (m *memoryActivity) Record(ctx context.Context, entry activity.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

func (m *memoryActivity) actions() []activity.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]activity.Action, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Action
	}
	return out
}

type outcomeCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *outcomeCounter) ObserveRegistration(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = make(map[string]int)
	}
	o.counts[outcome]++
}

type fixture struct {
	svc      *Service
	store    *memoryStore
	activity *memoryActivity
	metrics  *outcomeCounter
}

func newFixture(codes ...string) fixture {
	store := newMemoryStore(codes...)
	log := &memoryActivity{}
	metrics := &outcomeCounter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store, store, defaultTemplates(), log, metrics, logger, Config{LowStockThreshold: 5})
	return fixture{svc: svc, store: store, activity: log, metrics: metrics}
}

func actorContext(id int64) context.Context {
	sess := &shared.Session{}
	sess.SetUser(fmt.Sprint(id))
	return shared.ContextWithSession(context.Background(), sess)
}
