package qrcode

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bago-furniture/bago-inventory/internal/labels"
	"github.com/bago-furniture/bago-inventory/internal/platform/httpx"
	"github.com/bago-furniture/bago-inventory/internal/rbac"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

// LabelRenderer turns identifiers into a downloadable artifact.
type LabelRenderer interface {
	Render(ctx context.Context, w io.Writer, codes []string, format labels.Format) error
}

// Handler wires HTTP endpoints for QR codes.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	renderer LabelRenderer
	rbac     rbac.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, renderer LabelRenderer, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, renderer: renderer, rbac: rbac}
}

type generateRequest struct {
	Count  int    `json:"count"`
	Format string `json:"format"`
}

// MountRoutes registers QR routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermProductsView, shared.PermQRGenerate))
		r.Get("/stats", h.stats)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermQRGenerate))
		r.Get("/", h.list)
		r.Post("/", h.generate)
		r.Get("/labels", h.reprint)
	})
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	format, err := labels.ParseFormat(req.Format)
	if err != nil {
		httpx.RespondError(w, shared.Validationf("format must be zip or pdf"))
		return
	}
	created, err := h.service.Allocate(r.Context(), req.Count, shared.ActorID(r.Context()))
	if err != nil {
		h.fail(w, r, "allocate qr codes", err)
		return
	}
	h.logger.InfoContext(r.Context(), "qr codes generated",
		slog.Int("count", len(created)),
		slog.String("first", created[0].Code),
		slog.String("last", created[len(created)-1].Code),
	)
	h.stream(w, r, Codes(created), format)
}

func (h *Handler) reprint(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := labels.ParseFormat(q.Get("format"))
	if err != nil {
		httpx.RespondError(w, shared.Validationf("format must be zip or pdf"))
		return
	}
	codes, err := h.service.Range(r.Context(), strings.ToUpper(q.Get("first")), strings.ToUpper(q.Get("last")))
	if err != nil {
		h.fail(w, r, "load qr range", err)
		return
	}
	h.stream(w, r, Codes(codes), format)
}

// stream writes the artifact directly to the response. Once the first byte is
// out the status is committed, so later failures can only be logged.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request, codes []string, format labels.Format) {
	filename := labels.Filename(codes, format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-QR-First", codes[0])
	w.Header().Set("X-QR-Last", codes[len(codes)-1])
	w.WriteHeader(http.StatusOK)
	if err := h.renderer.Render(r.Context(), w, codes, format); err != nil {
		h.logger.ErrorContext(r.Context(), "render qr labels",
			slog.String("file", filename),
			slog.Any("error", err),
		)
	}
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(w, r, "qr stats", err)
		return
	}
	httpx.Success(w, "", stats)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Search: q.Get("search")}
	switch q.Get("used") {
	case "true":
		v := true
		filter.Used = &v
	case "false":
		v := false
		filter.Used = &v
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PageSize, _ = strconv.Atoi(q.Get("page_size"))
	page, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "list qr codes", err)
		return
	}
	httpx.Success(w, "", page)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
