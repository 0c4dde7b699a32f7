package products

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/bago-furniture/bago-inventory/internal/activity"
	"github.com/bago-furniture/bago-inventory/internal/qrcode"
	"github.com/bago-furniture/bago-inventory/internal/shared"
	"github.com/bago-furniture/bago-inventory/internal/templates"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Product, error)
	FindByCodeID(ctx context.Context, codeID int64) (Product, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Product, int, error)
	Update(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, id int64) (bool, error)
	BulkUpdateStatus(ctx context.Context, ids []int64, status Status, userID int64) (int, error)
	Stock(ctx context.Context, view StockView) ([]StockGroup, error)
}

// CodeLookup resolves scanned identifiers.
type CodeLookup interface {
	Lookup(ctx context.Context, code string) (qrcode.Code, error)
}

// TemplateMatcher validates (category, product name) pairs.
type TemplateMatcher interface {
	Match(ctx context.Context, category, productName string) (templates.Template, error)
}

// ActivityPort records product changes.
type ActivityPort interface {
	Record(ctx context.Context, entry activity.Entry)
}

// RegistrationCounter counts registration outcomes.
type RegistrationCounter interface {
	ObserveRegistration(outcome string)
}

// Config tunes the service.
type Config struct {
	LowStockThreshold int
	MaxIntake         int
}

// Service implements registration, mutation and stock views.
type Service struct {
	repo      RepositoryPort
	codes     CodeLookup
	templates TemplateMatcher
	activity  ActivityPort
	metrics   RegistrationCounter
	logger    *slog.Logger
	cfg       Config
	stock     singleflight.Group
}

// NewService builds Service. metrics may be nil.
func NewService(repo RepositoryPort, codes CodeLookup, tpl TemplateMatcher, activity ActivityPort, metrics RegistrationCounter, logger *slog.Logger, cfg Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LowStockThreshold < 0 {
		cfg.LowStockThreshold = 0
	}
	if cfg.MaxIntake <= 0 {
		cfg.MaxIntake = 1000
	}
	return &Service{
		repo:      repo,
		codes:     codes,
		templates: tpl,
		activity:  activity,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// FindByCodeID returns the product bound to a code.
func (s *Service) FindByCodeID(ctx context.Context, codeID int64) (Product, error) {
	p, err := s.repo.FindByCodeID(ctx, codeID)
	if err != nil {
		return Product{}, wrapErr(err, "find product by code")
	}
	return p, nil
}

func (s *Service) record(ctx context.Context, action activity.Action, recordID string, before, after any) {
	if s.activity == nil {
		return
	}
	entry := activity.Entry{
		Action:    action,
		TableName: activity.TableProducts,
		RecordID:  recordID,
	}
	if before != nil {
		entry.OldData = activity.Snapshot(before)
	}
	if after != nil {
		entry.NewData = activity.Snapshot(after)
	}
	s.activity.Record(ctx, entry)
}

func (s *Service) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveRegistration(outcome)
	}
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}

func wrapErr(err error, op string) error {
	var domainErr *shared.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return shared.Internal(fmt.Errorf("products: %s: %w", op, err), op)
}
