package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bago-furniture/bago-inventory/internal/platform/httpx"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

// PermissionsHandler exposes the role and permission catalogue.
type PermissionsHandler struct {
	logger  *slog.Logger
	service *Service
	rbac    Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, service *Service, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermUsersEdit))
		r.Get("/", h.listRoles)
	})
}

func (h *PermissionsHandler) listRoles(w http.ResponseWriter, r *http.Request) {
	roleList, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Success(w, "", map[string]any{"roles": roleList, "permissions": perms})
}
