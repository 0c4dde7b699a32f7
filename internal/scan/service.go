// Package scan resolves a scanned QR identifier to its current state.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bago-furniture/bago-inventory/internal/activity"
	"github.com/bago-furniture/bago-inventory/internal/products"
	"github.com/bago-furniture/bago-inventory/internal/qrcode"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

// State is the resolved condition of a code.
type State string

const (
	StateUnknown    State = "unknown"
	StateAvailable  State = "available"
	StateRegistered State = "registered"
	// stateInconsistent is only reported to metrics and the audit trail.
	stateInconsistent State = "inconsistent"
)

// Result is the outcome of a scan.
type Result struct {
	State   State             `json:"state"`
	QRCode  string            `json:"qr_code"`
	Code    *qrcode.Code      `json:"code,omitempty"`
	Product *products.Product `json:"product,omitempty"`
}

// CodeLookup finds codes by identifier.
type CodeLookup interface {
	Lookup(ctx context.Context, code string) (qrcode.Code, error)
}

// ProductLookup finds the product bound to a code.
type ProductLookup interface {
	FindByCodeID(ctx context.Context, codeID int64) (products.Product, error)
}

// ActivityPort records scans.
type ActivityPort interface {
	Record(ctx context.Context, entry activity.Entry)
}

// ScanCounter counts resolution outcomes.
type ScanCounter interface {
	ObserveScan(state string)
}

// Service resolves scans. It never mutates codes or products.
type Service struct {
	codes    CodeLookup
	products ProductLookup
	activity ActivityPort
	metrics  ScanCounter
	logger   *slog.Logger
}

// NewService builds Service. metrics may be nil.
func NewService(codes CodeLookup, products ProductLookup, activity ActivityPort, metrics ScanCounter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{codes: codes, products: products, activity: activity, metrics: metrics, logger: logger}
}

// Resolve reports whether identifier is unknown, available or registered.
// A consumed code without a product is returned as ErrDataInconsistency.
func (s *Service) Resolve(ctx context.Context, identifier string) (Result, error) {
	identifier = strings.ToUpper(strings.TrimSpace(identifier))
	if identifier == "" {
		return Result{}, shared.Validationf("qr_code is required")
	}

	result, err := s.resolve(ctx, identifier)
	state := result.State
	if errors.Is(err, shared.ErrDataInconsistency) {
		state = stateInconsistent
	}
	if state != "" {
		s.observe(ctx, identifier, state)
	}
	return result, err
}

func (s *Service) resolve(ctx context.Context, identifier string) (Result, error) {
	code, err := s.codes.Lookup(ctx, identifier)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Result{State: StateUnknown, QRCode: identifier}, nil
		}
		return Result{}, wrapErr(err, "lookup qr code")
	}

	product, err := s.products.FindByCodeID(ctx, code.ID)
	switch {
	case err == nil:
		return Result{State: StateRegistered, QRCode: identifier, Code: &code, Product: &product}, nil
	case !errors.Is(err, shared.ErrNotFound):
		return Result{}, wrapErr(err, "lookup bound product")
	case code.IsUsed:
		s.logger.ErrorContext(ctx, "qr code consumed without product",
			slog.String("qr_code", identifier),
			slog.Int64("qr_code_id", code.ID),
		)
		return Result{}, shared.Inconsistencyf("QR code %s is marked used but has no product; contact an administrator", identifier)
	default:
		return Result{State: StateAvailable, QRCode: identifier, Code: &code}, nil
	}
}

func (s *Service) observe(ctx context.Context, identifier string, state State) {
	if s.metrics != nil {
		s.metrics.ObserveScan(string(state))
	}
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, activity.Entry{
		Action:    activity.ActionScanQR,
		TableName: activity.TableQRCodes,
		RecordID:  identifier,
		NewData:   activity.Snapshot(map[string]string{"state": string(state)}),
	})
}

func wrapErr(err error, op string) error {
	var domainErr *shared.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return shared.Internal(fmt.Errorf("scan: %s: %w", op, err), op)
}
