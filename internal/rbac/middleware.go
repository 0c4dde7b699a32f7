package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bago-furniture/bago-inventory/internal/platform/httpx"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

// PermissionResolver returns the permissions granted to a user.
type PermissionResolver interface {
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service PermissionResolver
	Logger  *slog.Logger
}

// RequireSession rejects requests without an authenticated session.
func (m Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.ActorID(r.Context()) == 0 {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.require(perms, hasAnyPermission)
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.require(perms, hasAllPermissions)
}

func (m Middleware) require(perms []string, check func(granted, required []string) bool) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := shared.ActorID(r.Context())
			if userID == 0 {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			granted, err := m.Service.EffectivePermissions(r.Context(), userID)
			if err != nil {
				if errors.Is(err, shared.ErrUnauthorized) {
					httpx.RespondError(w, err)
					return
				}
				if m.Logger != nil {
					m.Logger.ErrorContext(r.Context(), "rbac resolve permissions", slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			if check(granted, normalized) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.RespondError(w, shared.ErrForbidden)
		})
	}
}

// Can reports whether the current user holds perm. Handlers use it for in-body checks.
func (m Middleware) Can(ctx context.Context, perm string) bool {
	userID := shared.ActorID(ctx)
	if userID == 0 {
		return false
	}
	granted, err := m.Service.EffectivePermissions(ctx, userID)
	if err != nil {
		return false
	}
	return hasAnyPermission(granted, normalizePermissions([]string{perm}))
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
