package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vantage-erp/vantage-erp/internal/auth"
	"github.com/vantage-erp/vantage-erp/internal/inbound"
	"github.com/vantage-erp/vantage-erp/internal/masterdata/products"
	"github.com/vantage-erp/vantage-erp/internal/observability"
	"github.com/vantage-erp/vantage-erp/internal/procurement"
	"github.com/vantage-erp/vantage-erp/internal/rbac"
	"github.com/vantage-erp/vantage-erp/internal/sales/customers"
	"github.com/vantage-erp/vantage-erp/internal/sales/quotations"
	"github.com/vantage-erp/vantage-erp/internal/shared"
	"github.com/vantage-erp/vantage-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	RBACMiddleware rbac.Middleware

	AuthHandler        *auth.Handler
	QuotationHandler   *quotations.Handler
	CustomerHandler    *customers.Handler
	ProductHandler     *products.Handler
	InboundHandler     *inbound.Handler
	RequisitionHandler *procurement.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Vantage defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/sales", func(r chi.Router) {
		r.Mount("/quotations", quotations.Routes(params.QuotationHandler, params.RBACMiddleware))
		r.Mount("/customers", customers.Routes(params.CustomerHandler, params.RBACMiddleware))
	})

	r.Route("/masterdata", func(r chi.Router) {
		r.Mount("/products", products.Routes(params.ProductHandler, params.RBACMiddleware))
	})

	r.Route("/inbound", func(r chi.Router) {
		r.Mount("/deliveries", inbound.Routes(params.InboundHandler, params.RBACMiddleware))
	})

	r.Route("/procurement", func(r chi.Router) {
		r.Mount("/requisitions", procurement.Routes(params.RequisitionHandler, params.RBACMiddleware))
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
