package scan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bago-furniture/bago-inventory/internal/activity"
	"github.com/bago-furniture/bago-inventory/internal/products"
	"github.com/bago-furniture/bago-inventory/internal/qrcode"
	"github.com/bago-furniture/bago-inventory/internal/rbac"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

type memoryCodes map[string]qrcode.Code

func (m memoryCodes) Lookup(ctx context.Context, code string) (qrcode.Code, error) {
	c, ok := m[code]
	if !ok {
		return qrcode.Code{}, shared.NotFoundf("QR code %s not found", code)
	}
	return c, nil
}

type memoryProducts struct {
	byCode map[int64]products.Product
	err    error
}

func (m memoryProducts) FindByCodeID(ctx context.Context, codeID int64) (products.Product, error) {
	if m.err != nil {
		return products.Product{}, m.err
	}
	p, ok := m.byCode[codeID]
	if !ok {
		return products.Product{}, shared.NotFoundf("no product bound to QR code %d", codeID)
	}
	return p, nil
}

type memoryActivity struct {
	entries []activity.Entry
}

func (m *memoryActivity) Record(ctx context.Context, entry activity.Entry) {
	m.entries = append(m.entries, entry)
}

type scanCounter map[string]int

func (c scanCounter) ObserveScan(state string) { c[state]++ }

func fixture() (*Service, *memoryActivity, scanCounter) {
	codeID := int64(2)
	codes := memoryCodes{
		"BAGO000001": {ID: 1, Code: "BAGO000001"},
		"BAGO000002": {ID: 2, Code: "BAGO000002", IsUsed: true},
		"BAGO000003": {ID: 3, Code: "BAGO000003", IsUsed: true},
		"BAGO000004": {ID: 4, Code: "BAGO000004"},
	}
	bound := memoryProducts{byCode: map[int64]products.Product{
		2: {ID: 10, QRCodeID: &codeID, Category: "Sofa", ProductName: "Sofa Bed"},
		// product is authoritative even when the used flag lags
		4: {ID: 11, Category: "Meja", ProductName: "Meja Makan"},
	}}
	log := &memoryActivity{}
	counter := scanCounter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(codes, bound, log, counter, logger), log, counter
}

func TestResolveStates(t *testing.T) {
	svc, log, counter := fixture()
	ctx := context.Background()

	cases := []struct {
		code    string
		state   State
		product int64
	}{
		{"NOPE000001", StateUnknown, 0},
		{"bago000001", StateAvailable, 0},
		{"BAGO000002", StateRegistered, 10},
		{"BAGO000004", StateRegistered, 11},
	}
	for _, tc := range cases {
		res, err := svc.Resolve(ctx, tc.code)
		require.NoError(t, err, tc.code)
		require.Equal(t, tc.state, res.State, tc.code)
		if tc.product != 0 {
			require.Equal(t, tc.product, res.Product.ID)
		} else {
			require.Nil(t, res.Product)
		}
	}
	require.Len(t, log.entries, len(cases))
	for _, e := range log.entries {
		require.Equal(t, activity.ActionScanQR, e.Action)
	}
	require.Equal(t, 2, counter["registered"])
	require.Equal(t, 1, counter["unknown"])
}

func TestResolveConsumedWithoutProductIsInconsistent(t *testing.T) {
	svc, log, counter := fixture()

	_, err := svc.Resolve(context.Background(), "BAGO000003")
	require.ErrorIs(t, err, shared.ErrDataInconsistency)
	require.NotErrorIs(t, err, shared.ErrNotFound)
	require.Equal(t, 1, counter["inconsistent"])
	require.Len(t, log.entries, 1)
}

func TestResolveIsRepeatable(t *testing.T) {
	svc, log, _ := fixture()
	ctx := context.Background()

	first, err := svc.Resolve(ctx, "BAGO000001")
	require.NoError(t, err)
	second, err := svc.Resolve(ctx, "BAGO000001")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, log.entries, 2)
}

func TestResolvePersistenceFailureIsInternal(t *testing.T) {
	codes := memoryCodes{"BAGO000001": {ID: 1, Code: "BAGO000001"}}
	svc := NewService(codes, memoryProducts{err: errors.New("timeout")}, nil, nil, nil)

	_, err := svc.Resolve(context.Background(), "BAGO000001")
	require.ErrorIs(t, err, shared.ErrInternal)
}

func TestHandlerStatusCodes(t *testing.T) {
	svc, _, _ := fixture()
	h := NewHandler(nil, svc, rbac.Middleware{})

	cases := map[string]int{
		"NOPE000001": http.StatusNotFound,
		"BAGO000001": http.StatusOK,
		"BAGO000002": http.StatusOK,
		"BAGO000003": http.StatusInternalServerError,
	}
	for code, status := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/scan", strings.NewReader(`{"qr_code":"`+code+`"}`))
		h.scan(rec, req)
		require.Equal(t, status, rec.Code, code)
	}

	rec := httptest.NewRecorder()
	h.scan(rec, httptest.NewRequest(http.MethodPost, "/api/scan", strings.NewReader(`{"qr_code":"BAGO000003"}`)))
	require.Contains(t, rec.Body.String(), "marked used but has no product")

	rec = httptest.NewRecorder()
	h.scan(rec, httptest.NewRequest(http.MethodPost, "/api/scan", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"success":false`)
}
