package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bago-furniture/bago-inventory/internal/platform/httpx"
	"github.com/bago-furniture/bago-inventory/internal/rbac"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers user administration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermUsersEdit))
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.getUser)
		r.Post("/", h.createUser)
		r.Put("/{id}", h.updateUser)
		r.Delete("/{id}", h.deleteUser)
	})
}

// MountProfileRoutes registers self-service routes for any signed-in user.
func (h *Handler) MountProfileRoutes(r chi.Router) {
	r.With(h.rbac.RequireSession).Put("/", h.updateProfile)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.fail(w, r, "list users failed", err)
		return
	}
	httpx.Success(w, "", users)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get user failed", err)
		return
	}
	httpx.Success(w, "", u)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	u, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.fail(w, r, "create user failed", err)
		return
	}
	httpx.Created(w, "User created", u)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input UpdateInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	u, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.fail(w, r, "update user failed", err)
		return
	}
	httpx.Success(w, "User updated", u)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "delete user failed", err)
		return
	}
	httpx.Success(w, "User deleted", nil)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var input ProfileInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	u, err := h.service.UpdateProfile(r.Context(), input)
	if err != nil {
		h.fail(w, r, "update profile failed", err)
		return
	}
	httpx.Success(w, "Profile updated", u)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), msg, slog.Any("error", err))
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
