package reports

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bago-furniture/bago-inventory/internal/platform/httpx"
	"github.com/bago-furniture/bago-inventory/internal/products"
	"github.com/bago-furniture/bago-inventory/internal/rbac"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves spreadsheet exports.
type Handler struct {
	logger *slog.Logger
	stock  StockSource
	rbac   rbac.Middleware
	now    func() time.Time
}

// NewHandler constructs a reports handler.
func NewHandler(logger *slog.Logger, stock StockSource, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, stock: stock, rbac: rbac, now: time.Now}
}

// MountRoutes registers export routes under the stock prefix.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermProductsView)).Get("/export.xlsx", h.exportStock)
}

func (h *Handler) exportStock(w http.ResponseWriter, r *http.Request) {
	view, ok := products.ParseStockView(r.URL.Query().Get("view"))
	if !ok {
		httpx.RespondError(w, shared.Validationf("view must be active, sold or in-process"))
		return
	}
	summary, err := h.stock.Stock(r.Context(), view)
	if err != nil {
		if httpx.StatusFor(err) >= http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "export stock", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}

	now := h.now()
	f, err := BuildStockWorkbook(summary, now)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "build stock workbook", slog.Any("error", err))
		httpx.RespondError(w, shared.Internal(err, "export stock"))
		return
	}
	defer func() {
		_ = f.Close()
	}()

	filename := fmt.Sprintf("stok_%s_%s.xlsx", view, now.Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	if err := f.Write(w); err != nil {
		h.logger.ErrorContext(r.Context(), "write stock workbook", slog.Any("error", err))
	}
}
