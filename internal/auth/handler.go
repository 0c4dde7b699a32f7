package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bago-furniture/bago-inventory/internal/activity"
	"github.com/bago-furniture/bago-inventory/internal/platform/httpx"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

// PermissionResolver returns the permissions of a user.
type PermissionResolver interface {
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

// ActivityPort records logins and logouts.
type ActivityPort interface {
	Record(ctx context.Context, entry activity.Entry)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	permissions    PermissionResolver
	activity       ActivityPort
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, perms PermissionResolver, activity ActivityPort) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		permissions:    perms,
		activity:       activity,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=72"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.ErrorContext(r.Context(), "session missing during login")
		httpx.RespondError(w, shared.ErrInternal)
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if httpx.StatusFor(err) >= http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "authenticate", slog.Any("error", err))
		} else {
			h.logger.WarnContext(r.Context(), "login rejected", slog.String("username", req.Username))
		}
		httpx.RespondError(w, err)
		return
	}

	h.sessionManager.Renew(sess)
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	token, err := h.csrfManager.RotateToken(r.Context(), sess)
	if err != nil {
		httpx.RespondError(w, shared.Internal(err, "issue csrf token"))
		return
	}
	identity, err := h.identity(r.Context(), user, token)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "resolve permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if h.activity != nil {
		h.activity.Record(r.Context(), activity.Entry{
			UserID:    user.ID,
			Action:    activity.ActionLogin,
			TableName: activity.TableUsers,
			RecordID:  strconv.FormatInt(user.ID, 10),
		})
	}
	httpx.Success(w, "Login successful", identity)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if id := shared.ActorID(r.Context()); id != 0 && h.activity != nil {
		h.activity.Record(r.Context(), activity.Entry{
			UserID:    id,
			Action:    activity.ActionLogout,
			TableName: activity.TableUsers,
			RecordID:  strconv.FormatInt(id, 10),
		})
	}
	h.sessionManager.Destroy(sess)
	httpx.Success(w, "Logged out", nil)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Current(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	token, err := h.csrfManager.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, shared.Internal(err, "issue csrf token"))
		return
	}
	identity, err := h.identity(r.Context(), user, token)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Success(w, "", identity)
}

func (h *Handler) identity(ctx context.Context, user *User, token string) (Identity, error) {
	perms := []string{}
	if h.permissions != nil {
		granted, err := h.permissions.EffectivePermissions(ctx, user.ID)
		if err != nil {
			return Identity{}, err
		}
		perms = granted
	}
	return Identity{User: *user, Permissions: perms, CSRFToken: token}, nil
}
