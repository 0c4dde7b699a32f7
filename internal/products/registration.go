package products

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bago-furniture/bago-inventory/internal/activity"
	"github.com/bago-furniture/bago-inventory/internal/shared"
	"github.com/bago-furniture/bago-inventory/internal/templates"
)

// Registration outcomes reported to metrics.
const (
	outcomeSuccess     = "success"
	outcomeConflict    = "conflict"
	outcomeInvalidCode = "invalid_code"
	outcomeRejected    = "rejected"
	outcomeFailed      = "error"
	outcomeIntake      = "intake"
)

var errCodeTaken = errors.New("code consumed concurrently")

// Register binds an available QR code to a new product. The code is consumed
// and the product inserted in one transaction; either both persist or neither.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Product, error) {
	identifier := strings.ToUpper(strings.TrimSpace(input.QRCode))
	if identifier == "" {
		return Product{}, shared.Validationf("qr_code is required")
	}
	status := DefaultStatus
	if strings.TrimSpace(input.Status) != "" {
		parsed, ok := ParseStatus(input.Status)
		if !ok {
			return Product{}, invalidStatus(input.Status)
		}
		status = parsed
	}

	code, err := s.codes.Lookup(ctx, identifier)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.observe(outcomeInvalidCode)
			return Product{}, shared.InvalidCodef("QR code %s is not recognised", identifier)
		}
		s.observe(outcomeFailed)
		return Product{}, wrapErr(err, "lookup qr code")
	}
	if code.IsUsed {
		s.observe(outcomeConflict)
		return Product{}, shared.Conflictf("QR code %s has already been used", identifier)
	}
	if _, err := s.repo.FindByCodeID(ctx, code.ID); err == nil {
		s.observe(outcomeConflict)
		return Product{}, shared.Conflictf("QR code %s has already been used", identifier)
	} else if !errors.Is(err, shared.ErrNotFound) {
		s.observe(outcomeFailed)
		return Product{}, wrapErr(err, "check bound product")
	}

	tpl, err := s.templates.Match(ctx, input.Category, input.ProductName)
	if err != nil {
		s.observe(outcomeRejected)
		return Product{}, err
	}
	color, err := pickColor(tpl, input.Color)
	if err != nil {
		s.observe(outcomeRejected)
		return Product{}, err
	}

	actor := shared.ActorID(ctx)
	candidate := Product{
		QRCodeID:    &code.ID,
		Category:    tpl.Category,
		ProductName: tpl.ProductName,
		Color:       color,
		Status:      &status,
		CreatedBy:   actorPtr(actor),
	}

	var created Product
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		consumed, err := tx.ConsumeCode(ctx, code.ID, actor)
		if err != nil {
			return fmt.Errorf("consume code: %w", err)
		}
		if !consumed {
			return errCodeTaken
		}
		created, err = tx.Insert(ctx, candidate)
		return err
	})
	if err != nil {
		if errors.Is(err, errCodeTaken) || errors.Is(err, shared.ErrConflict) {
			s.observe(outcomeConflict)
			s.logger.WarnContext(ctx, "registration lost race for qr code",
				slog.String("qr_code", identifier),
				slog.Int64("user_id", actor),
				slog.Any("error", err),
			)
			return Product{}, shared.Conflictf("QR code %s has already been used", identifier)
		}
		s.observe(outcomeFailed)
		return Product{}, wrapErr(err, "register product")
	}
	created.QRCode = code.Code

	s.observe(outcomeSuccess)
	s.record(ctx, activity.ActionRegisterProduct, idString(created.ID), nil, created)
	return created, nil
}

// CreateInProcess creates count manufacturing items of one template, without codes.
func (s *Service) CreateInProcess(ctx context.Context, input IntakeInput) ([]Product, error) {
	count := input.Count
	if count == 0 {
		count = 1
	}
	if count < 1 || count > s.cfg.MaxIntake {
		return nil, shared.Validationf("count must be between 1 and %d", s.cfg.MaxIntake)
	}
	tpl, err := s.templates.Match(ctx, input.Category, input.ProductName)
	if err != nil {
		return nil, err
	}

	actor := shared.ActorID(ctx)
	var created []Product
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rows, err := tx.InsertInProcess(ctx, tpl.Category, tpl.ProductName, count, actor)
		if err != nil {
			return err
		}
		if len(rows) != count {
			return fmt.Errorf("inserted %d of %d items", len(rows), count)
		}
		created = rows
		return nil
	})
	if err != nil {
		return nil, wrapErr(err, "create in-process products")
	}
	s.observe(outcomeIntake)

	ids := make([]int64, len(created))
	for i, p := range created {
		ids[i] = p.ID
	}
	recordID := idString(ids[0])
	if len(ids) > 1 {
		recordID += "-" + idString(ids[len(ids)-1])
	}
	s.record(ctx, activity.ActionRegisterProduct, recordID, nil, map[string]any{
		"count":        len(created),
		"template_id":  tpl.ID,
		"category":     tpl.Category,
		"product_name": tpl.ProductName,
		"in_process":   true,
		"ids":          ids,
	})
	return created, nil
}

// pickColor resolves a requested color against the template's variants.
// Templates without variants accept any color.
func pickColor(tpl templates.Template, raw string) (*string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return nil, nil
	}
	if len(tpl.Colors) == 0 {
		return &name, nil
	}
	for _, c := range tpl.Colors {
		if strings.EqualFold(c.Name, name) {
			v := c.Name
			return &v, nil
		}
	}
	return nil, shared.Validationf("color %q is not offered for %s; available: %s",
		name, tpl.ProductName, strings.Join(tpl.ColorNames(), ", "))
}

func invalidStatus(raw string) error {
	names := make([]string, 0, 4)
	for _, st := range Statuses() {
		names = append(names, string(st))
	}
	return shared.Validationf("status %q must be one of %s", raw, strings.Join(names, ", "))
}

func actorPtr(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
