package scan

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bago-furniture/bago-inventory/internal/platform/httpx"
	"github.com/bago-furniture/bago-inventory/internal/rbac"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

// Handler exposes the scan endpoint.
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

type scanRequest struct {
	QRCode string `json:"qr_code" validate:"required"`
}

// MountRoutes registers scan routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermProductsView)).Post("/", h.scan)
}

func (h *Handler) scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Resolve(r.Context(), req.QRCode)
	if err != nil {
		if httpx.StatusFor(err) >= http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "resolve scan", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	switch result.State {
	case StateUnknown:
		httpx.JSON(w, http.StatusNotFound, httpx.Envelope{
			Success: false,
			Message: "QR code " + result.QRCode + " was not generated by this system",
			Data:    result,
		})
	case StateAvailable:
		httpx.Success(w, "QR code is available for registration", result)
	default:
		httpx.Success(w, "QR code is registered", result)
	}
}
