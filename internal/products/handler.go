package products

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bago-furniture/bago-inventory/internal/platform/httpx"
	"github.com/bago-furniture/bago-inventory/internal/rbac"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

// POST /api/products actions.
const (
	ActionRegister = "register"
	ActionIntake   = "create-dalam-proses"
)

// Handler wires HTTP endpoints for products and stock views.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

type createRequest struct {
	Action      string `json:"action"`
	QRCode      string `json:"qr_code"`
	Category    string `json:"category"`
	ProductName string `json:"product_name"`
	Color       string `json:"color"`
	Status      string `json:"status"`
	Count       int    `json:"count"`
}

type updateRequest struct {
	ID int64 `json:"id"`
	UpdateInput
}

type bulkStatusRequest struct {
	IDs    []int64 `json:"ids" validate:"required,min=1"`
	Status string  `json:"status" validate:"required"`
}

// MountRoutes registers product routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermProductsView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermProductsEdit))
		r.Post("/", h.create)
		r.Put("/", h.update)
		r.Post("/bulk-status", h.bulkStatus)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermProductsDelete))
		r.Delete("/{id}", h.delete)
	})
}

// MountStockRoutes registers the stock aggregation endpoint.
func (h *Handler) MountStockRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermProductsView)).Get("/", h.stock)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case ActionRegister:
		input := RegisterInput{
			QRCode:      req.QRCode,
			Category:    req.Category,
			ProductName: req.ProductName,
			Color:       req.Color,
			Status:      req.Status,
		}
		if err := httpx.Validate(input); err != nil {
			httpx.RespondError(w, err)
			return
		}
		p, err := h.service.Register(r.Context(), input)
		if err != nil {
			h.fail(w, r, "register product", err)
			return
		}
		httpx.Created(w, fmt.Sprintf("Product registered with QR code %s", p.QRCode), p)
	case ActionIntake:
		input := IntakeInput{Category: req.Category, ProductName: req.ProductName, Count: req.Count}
		if err := httpx.Validate(input); err != nil {
			httpx.RespondError(w, err)
			return
		}
		items, err := h.service.CreateInProcess(r.Context(), input)
		if err != nil {
			h.fail(w, r, "create in-process products", err)
			return
		}
		httpx.Created(w, fmt.Sprintf("%d in-process products created", len(items)), items)
	default:
		httpx.RespondError(w, shared.Validationf("action must be %s or %s", ActionRegister, ActionIntake))
	}
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if req.ID <= 0 {
		httpx.RespondError(w, shared.Validationf("id is required"))
		return
	}
	p, err := h.service.Update(r.Context(), req.ID, req.UpdateInput)
	if err != nil {
		h.fail(w, r, "update product", err)
		return
	}
	httpx.Success(w, "Product updated", p)
}

func (h *Handler) bulkStatus(w http.ResponseWriter, r *http.Request) {
	var req bulkStatusRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.BulkUpdateStatus(r.Context(), req.IDs, req.Status)
	if err != nil {
		h.fail(w, r, "bulk update status", err)
		return
	}
	httpx.Success(w, fmt.Sprintf("%d of %d products updated", result.Updated, result.Requested), result)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "delete product", err)
		return
	}
	httpx.Success(w, "Product deleted", nil)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get product", err)
		return
	}
	httpx.Success(w, "", p)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Category: strings.TrimSpace(q.Get("category")),
		Search:   q.Get("search"),
	}
	if raw := q.Get("status"); raw != "" {
		st, ok := ParseStatus(raw)
		if !ok {
			httpx.RespondError(w, invalidStatus(raw))
			return
		}
		filter.Status = st
	}
	if raw := q.Get("in_process"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.RespondError(w, shared.Validationf("in_process must be true or false"))
			return
		}
		filter.InProcess = &v
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	page, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "list products", err)
		return
	}
	httpx.Success(w, "", page)
}

func (h *Handler) stock(w http.ResponseWriter, r *http.Request) {
	view, ok := ParseStockView(r.URL.Query().Get("view"))
	if !ok {
		httpx.RespondError(w, shared.Validationf("view must be active, sold or in-process"))
		return
	}
	summary, err := h.service.Stock(r.Context(), view)
	if err != nil {
		h.fail(w, r, "load stock", err)
		return
	}
	httpx.Success(w, "", summary)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validationf("invalid id")
	}
	return id, nil
}
