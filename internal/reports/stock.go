// Package reports builds downloadable spreadsheets from inventory aggregates.
package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/bago-furniture/bago-inventory/internal/products"
)

// StockSheet is the worksheet holding the stock table.
const StockSheet = "Stok"

// StockSource yields the aggregate for a view.
type StockSource interface {
	Stock(ctx context.Context, view products.StockView) (products.StockSummary, error)
}

var stockHeader = []any{"Kategori", "Nama Produk", "Jumlah", "Terakhir Diperbarui", "Stok Rendah"}

// BuildStockWorkbook lays out summary on a single sheet: a title row, the header,
// one row per group and a closing total. Low-stock rows are filled red.
func BuildStockWorkbook(summary products.StockSummary, generatedAt time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", StockSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("reports: rename sheet: %w", err)
	}
	if err := writeStock(f, summary, generatedAt); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func writeStock(f *excelize.File, summary products.StockSummary, generatedAt time.Time) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("reports: header style: %w", err)
	}
	low, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F8CBAD"}},
	})
	if err != nil {
		return fmt.Errorf("reports: low stock style: %w", err)
	}

	title := fmt.Sprintf("Stok %s (batas %d) per %s", summary.View, summary.Threshold, generatedAt.Format("2006-01-02 15:04"))
	if err := f.SetCellValue(StockSheet, "A1", title); err != nil {
		return fmt.Errorf("reports: title: %w", err)
	}
	if err := f.SetSheetRow(StockSheet, "A3", &stockHeader); err != nil {
		return fmt.Errorf("reports: header: %w", err)
	}
	if err := f.SetCellStyle(StockSheet, "A3", "E3", bold); err != nil {
		return fmt.Errorf("reports: header style: %w", err)
	}

	row := 4
	for _, g := range summary.Groups {
		lowStock := "Tidak"
		if g.LowStock {
			lowStock = "Ya"
		}
		values := []any{g.Category, g.ProductName, g.Count, g.LastUpdated.Format("2006-01-02 15:04"), lowStock}
		cell := fmt.Sprintf("A%d", row)
		if err := f.SetSheetRow(StockSheet, cell, &values); err != nil {
			return fmt.Errorf("reports: row %d: %w", row, err)
		}
		if g.LowStock {
			if err := f.SetCellStyle(StockSheet, cell, fmt.Sprintf("E%d", row), low); err != nil {
				return fmt.Errorf("reports: row %d style: %w", row, err)
			}
		}
		row++
	}

	if err := f.SetCellValue(StockSheet, fmt.Sprintf("B%d", row), "Total"); err != nil {
		return fmt.Errorf("reports: total label: %w", err)
	}
	if err := f.SetCellValue(StockSheet, fmt.Sprintf("C%d", row), summary.Total); err != nil {
		return fmt.Errorf("reports: total: %w", err)
	}
	if err := f.SetCellStyle(StockSheet, fmt.Sprintf("B%d", row), fmt.Sprintf("C%d", row), bold); err != nil {
		return fmt.Errorf("reports: total style: %w", err)
	}
	if err := f.SetColWidth(StockSheet, "A", "B", 24); err != nil {
		return fmt.Errorf("reports: column width: %w", err)
	}
	return f.SetColWidth(StockSheet, "D", "D", 20)
}
