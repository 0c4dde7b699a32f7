package qrcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/bago-furniture/bago-inventory/internal/activity"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	FindByCode(ctx context.Context, code string) (Code, error)
	Range(ctx context.Context, first, last string, limit int) ([]Code, error)
	CountAll(ctx context.Context) (int, error)
	CountUsed(ctx context.Context) (int, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Code, int, error)
	Orphaned(ctx context.Context, limit int) ([]Code, error)
}

// ActivityPort records allocations.
type ActivityPort interface {
	Record(ctx context.Context, entry activity.Entry)
}

// AllocationCounter counts generated codes.
type AllocationCounter interface {
	AddAllocated(n int)
}

// Config tunes the allocator.
type Config struct {
	Prefix   string
	MaxBatch int
}

// Service allocates and inspects QR codes.
type Service struct {
	repo     RepositoryPort
	activity ActivityPort
	metrics  AllocationCounter
	cfg      Config
}

// NewService builds Service. metrics may be nil.
func NewService(repo RepositoryPort, activity ActivityPort, metrics AllocationCounter, cfg Config) *Service {
	if cfg.Prefix == "" {
		cfg.Prefix = "BAGO"
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = 1000
	}
	return &Service{repo: repo, activity: activity, metrics: metrics, cfg: cfg}
}

// Prefix returns the identifier prefix in use.
func (s *Service) Prefix() string {
	return s.cfg.Prefix
}

// Allocate generates count contiguous codes continuing from the greatest existing one.
// Nothing is returned unless the whole batch committed.
func (s *Service) Allocate(ctx context.Context, count int, createdBy int64) ([]Code, error) {
	if count < 1 || count > s.cfg.MaxBatch {
		return nil, shared.Validationf("count must be between 1 and %d", s.cfg.MaxBatch)
	}

	var created []Code
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockPrefix(ctx, s.cfg.Prefix); err != nil {
			return fmt.Errorf("lock prefix: %w", err)
		}
		latest, err := tx.LatestCode(ctx, s.cfg.Prefix)
		if err != nil {
			return fmt.Errorf("latest code: %w", err)
		}
		codes, err := Sequence(s.cfg.Prefix, latest, count)
		if err != nil {
			return shared.Validationf("cannot generate %d more %s codes after %s", count, s.cfg.Prefix, latest)
		}
		rows, err := tx.InsertBatch(ctx, codes, createdBy)
		if err != nil {
			return err
		}
		if len(rows) != count {
			return fmt.Errorf("inserted %d of %d codes", len(rows), count)
		}
		created = rows
		return nil
	})
	if err != nil {
		return nil, wrapErr(err, "allocate qr codes")
	}

	if s.metrics != nil {
		s.metrics.AddAllocated(len(created))
	}
	first, last := created[0].Code, created[len(created)-1].Code
	if s.activity != nil {
		newData, _ := json.Marshal(map[string]any{"count": len(created), "first": first, "last": last})
		s.activity.Record(ctx, activity.Entry{
			UserID:    createdBy,
			Action:    activity.ActionGenerateQRCodes,
			TableName: activity.TableQRCodes,
			RecordID:  first + "-" + last,
			NewData:   newData,
		})
	}
	return created, nil
}

// Lookup fetches a code by identifier.
func (s *Service) Lookup(ctx context.Context, code string) (Code, error) {
	found, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return Code{}, wrapErr(err, "find qr code")
	}
	return found, nil
}

// Range returns existing codes between first and last for reprinting labels.
func (s *Service) Range(ctx context.Context, first, last string) ([]Code, error) {
	a, errA := ParseSequence(s.cfg.Prefix, first)
	b, errB := ParseSequence(s.cfg.Prefix, last)
	if errA != nil || errB != nil {
		return nil, shared.Validationf("range must use %s codes", s.cfg.Prefix)
	}
	if b < a {
		return nil, shared.Validationf("range end %s precedes start %s", last, first)
	}
	if b-a+1 > s.cfg.MaxBatch {
		return nil, shared.Validationf("range may span at most %d codes", s.cfg.MaxBatch)
	}
	codes, err := s.repo.Range(ctx, first, last, s.cfg.MaxBatch)
	if err != nil {
		return nil, wrapErr(err, "load qr range")
	}
	if len(codes) == 0 {
		return nil, shared.NotFoundf("no QR codes between %s and %s", first, last)
	}
	return codes, nil
}

// Stats counts generated, used and unused codes.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var total, used int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.repo.CountAll(gctx)
		total = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountUsed(gctx)
		used = n
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, wrapErr(err, "count qr codes")
	}
	return Stats{Total: total, Used: used, Unused: total - used}, nil
}

// ListPage is one page of codes.
type ListPage struct {
	Rows       []Code            `json:"rows"`
	Pagination shared.Pagination `json:"pagination"`
}

// List returns codes newest first.
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
		return ListPage{}, wrapErr(err, "list qr codes")
	}
	if rows == nil {
		rows = []Code{}
	}
	return ListPage{Rows: rows, Pagination: shared.NewPagination(page, size, total)}, nil
}

// Orphaned lists consumed codes that no product references.
func (s *Service) Orphaned(ctx context.Context, limit int) ([]Code, error) {
	if limit <= 0 {
		limit = 100
	}
	codes, err := s.repo.Orphaned(ctx, limit)
	if err != nil {
		return nil, wrapErr(err, "find orphaned qr codes")
	}
	return codes, nil
}

// Codes extracts the identifiers in order.
func Codes(items []Code) []string {
	out := make([]string, len(items))
	for i, c := range items {
		out[i] = c.Code
	}
	return out
}

func wrapErr(err error, op string) error {
	var domainErr *shared.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return shared.Internal(fmt.Errorf("qrcode: %s: %w", op, err), op)
}
