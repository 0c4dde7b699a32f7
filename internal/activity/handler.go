package activity

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bago-furniture/bago-inventory/internal/platform/httpx"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	List(ctx context.Context, filter Filter) (Page, error)
}

// Handler menangani permintaan timeline aktivitas.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
}

// NewHandler membuat handler activity baru.
func NewHandler(logger *slog.Logger, service TimelineService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes mendaftarkan endpoint timeline. Permission diperiksa oleh router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list activity", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Success(w, "", page)
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	filter := Filter{
		Action:    Action(strings.ToUpper(strings.TrimSpace(q.Get("action")))),
		TableName: strings.TrimSpace(q.Get("table")),
	}
	var err error
	if filter.UserID, err = parseInt64(q.Get("user_id")); err != nil {
		return Filter{}, shared.Validationf("user_id must be numeric")
	}
	if filter.From, err = parseDate(q.Get("from")); err != nil {
		return Filter{}, shared.Validationf("from must be YYYY-MM-DD")
	}
	if filter.To, err = parseDate(q.Get("to")); err != nil {
		return Filter{}, shared.Validationf("to must be YYYY-MM-DD")
	}
	if !filter.To.IsZero() {
		// inclusive end date
		filter.To = filter.To.AddDate(0, 0, 1)
	}
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	filter.Page = page
	filter.PageSize = size
	return filter, nil
}

func parseInt64(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", raw)
}
