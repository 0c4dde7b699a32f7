package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bago-furniture/bago-inventory/internal/activity"
	"github.com/bago-furniture/bago-inventory/internal/auth"
	"github.com/bago-furniture/bago-inventory/internal/observability"
	"github.com/bago-furniture/bago-inventory/internal/platform/httpx"
	"github.com/bago-furniture/bago-inventory/internal/products"
	"github.com/bago-furniture/bago-inventory/internal/qrcode"
	"github.com/bago-furniture/bago-inventory/internal/rbac"
	"github.com/bago-furniture/bago-inventory/internal/reports"
	"github.com/bago-furniture/bago-inventory/internal/scan"
	"github.com/bago-furniture/bago-inventory/internal/shared"
	"github.com/bago-furniture/bago-inventory/internal/templates"
	"github.com/bago-furniture/bago-inventory/internal/users"
	"github.com/bago-furniture/bago-inventory/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics
	// Ready reports dependency health for /healthz; nil means always ready.
	Ready func(r *http.Request) error

	AuthHandler        *auth.Handler
	ScanHandler        *scan.Handler
	ProductsHandler    *products.Handler
	ReportsHandler     *reports.Handler
	QRHandler          *qrcode.Handler
	TemplatesHandler   *templates.Handler
	UsersHandler       *users.Handler
	ActivityHandler    *activity.Handler
	PermissionsHandler *rbac.PermissionsHandler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with the API routes.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Ready != nil {
			if err := params.Ready(r); err != nil {
				params.Logger.WarnContext(r.Context(), "health check failed", slog.Any("error", err))
				httpx.Fail(w, http.StatusServiceUnavailable, "unavailable")
				return
			}
		}
		httpx.Success(w, "ok", map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	loginLimit, qrLimit := 10, 10
	if params.Config != nil {
		loginLimit, qrLimit = params.Config.LoginRateLimit, params.Config.QRRateLimit
	}

	r.Route("/api", func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:         params.Logger,
			Config:         params.Config,
			SessionManager: params.SessionManager,
			CSRFManager:    params.CSRFManager,
			Metrics:        params.Metrics,
		}) {
			r.Use(mw)
		}
		r.Use(LoginLimiter(loginLimit), QRLimiter(qrLimit))

		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Route("/profile", params.UsersHandler.MountProfileRoutes)
		r.Route("/scan", params.ScanHandler.MountRoutes)
		r.Route("/products", params.ProductsHandler.MountRoutes)
		r.Route("/stock", func(r chi.Router) {
			params.ProductsHandler.MountStockRoutes(r)
			if params.ReportsHandler != nil {
				params.ReportsHandler.MountRoutes(r)
			}
		})
		r.Route("/qr", params.QRHandler.MountRoutes)
		r.Route("/templates", params.TemplatesHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/activity", func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireAny(shared.PermActivityView))
			params.ActivityHandler.MountRoutes(r)
		})
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			httpx.Fail(w, http.StatusNotFound, "route not found")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			httpx.Fail(w, http.StatusMethodNotAllowed, "method not allowed")
		})
	})

	return r
}
