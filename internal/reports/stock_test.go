package reports

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bago-furniture/bago-inventory/internal/products"
	"github.com/bago-furniture/bago-inventory/internal/rbac"
)

type stubStock struct {
	summary products.StockSummary
	err     error
	views   []products.StockView
}

func (s *stubStock) Stock(ctx context.Context, view products.StockView) (products.StockSummary, error) {
	s.views = append(s.views, view)
	if s.err != nil {
		return products.StockSummary{}, s.err
	}
	summary := s.summary
	summary.View = view
	return summary, nil
}

func sampleSummary() products.StockSummary {
	updated := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	return products.StockSummary{
		View:      products.ViewActive,
		Threshold: 5,
		Total:     12,
		Groups: []products.StockGroup{
			{Category: "Meja", ProductName: "Meja Makan", Count: 9, LastUpdated: updated},
			{Category: "Sofa", ProductName: "Sofa Bed", Count: 3, LastUpdated: updated, LowStock: true},
		},
	}
}

func TestBuildStockWorkbookLayout(t *testing.T) {
	f, err := BuildStockWorkbook(sampleSummary(), time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{StockSheet}, f.GetSheetList())

	rows, err := f.GetRows(StockSheet)
	require.NoError(t, err)
	require.Equal(t, "Stok active (batas 5) per 2026-03-05 08:00", rows[0][0])
	require.Equal(t, []string{"Kategori", "Nama Produk", "Jumlah", "Terakhir Diperbarui", "Stok Rendah"}, rows[2])
	require.Equal(t, []string{"Meja", "Meja Makan", "9", "2026-03-04 10:30", "Tidak"}, rows[3])
	require.Equal(t, []string{"Sofa", "Sofa Bed", "3", "2026-03-04 10:30", "Ya"}, rows[4])
	require.Equal(t, "Total", rows[5][1])
	require.Equal(t, "12", rows[5][2])

	plain, err := f.GetCellStyle(StockSheet, "A4")
	require.NoError(t, err)
	flagged, err := f.GetCellStyle(StockSheet, "A5")
	require.NoError(t, err)
	require.NotEqual(t, plain, flagged)
}

func TestBuildStockWorkbookEmptyView(t *testing.T) {
	f, err := BuildStockWorkbook(products.StockSummary{View: products.ViewSold}, time.Now())
	require.NoError(t, err)
	defer f.Close()

	total, err := f.GetCellValue(StockSheet, "C4")
	require.NoError(t, err)
	require.Equal(t, "0", total)
}

func TestExportStockStreamsWorkbook(t *testing.T) {
	src := &stubStock{summary: sampleSummary()}
	h := NewHandler(nil, src, rbac.Middleware{})
	h.now = func() time.Time { return time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC) }

	rec := httptest.NewRecorder()
	h.exportStock(rec, httptest.NewRequest(http.MethodGet, "/api/stock/export.xlsx?view=in-process", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="stok_in-process_20260305.xlsx"`, rec.Header().Get("Content-Disposition"))
	require.Equal(t, []products.StockView{products.ViewInProcess}, src.views)

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	name, err := f.GetCellValue(StockSheet, "B5")
	require.NoError(t, err)
	require.Equal(t, "Sofa Bed", name)
}

func TestExportStockRejectsUnknownView(t *testing.T) {
	src := &stubStock{}
	h := NewHandler(nil, src, rbac.Middleware{})

	rec := httptest.NewRecorder()
	h.exportStock(rec, httptest.NewRequest(http.MethodGet, "/api/stock/export.xlsx?view=rusak", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, src.views)
}

func TestExportStockSourceFailure(t *testing.T) {
	src := &stubStock{err: errors.New("connection reset")}
	h := NewHandler(nil, src, rbac.Middleware{})

	rec := httptest.NewRecorder()
	h.exportStock(rec, httptest.NewRequest(http.MethodGet, "/api/stock/export.xlsx", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), `"success":false`)
}
