package templates

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bago-furniture/bago-inventory/internal/platform/httpx"
	"github.com/bago-furniture/bago-inventory/internal/rbac"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

// Handler wires HTTP endpoints for product templates.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers template routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermTemplatesView))
		r.Get("/", h.list)
		r.Get("/categories", h.categories)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermTemplatesEdit))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Category:   r.URL.Query().Get("category"),
		ActiveOnly: r.URL.Query().Get("active") == "true",
	}
	items, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "list templates", err)
		return
	}
	httpx.Success(w, "", items)
}

func (h *Handler) categories(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Categories(r.Context())
	if err != nil {
		h.fail(w, r, "list categories", err)
		return
	}
	httpx.Success(w, "", items)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	tpl, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get template", err)
		return
	}
	httpx.Success(w, "", tpl)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input Input
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	tpl, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.fail(w, r, "create template", err)
		return
	}
	httpx.Created(w, "Template created", tpl)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input Input
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	tpl, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.fail(w, r, "update template", err)
		return
	}
	httpx.Success(w, "Template updated", tpl)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "delete template", err)
		return
	}
	httpx.Success(w, "Template deleted", nil)
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
