package quotations

import (
	"github.com/go-chi/chi/v5"

	"github.com/vantage-erp/vantage-erp/internal/rbac"
	"github.com/vantage-erp/vantage-erp/internal/shared"
)

// Routes mounts the quotation endpoints guarded by RBAC permissions.
func Routes(h *Handler, authz rbac.Middleware) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(authz.RequireAny(shared.PermQuotationView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})

	r.Group(func(r chi.Router) {
		r.Use(authz.RequireAny(shared.PermQuotationCreate))
		r.Post("/", h.create)
		r.Post("/{id}/clone", h.clone)
	})

	r.Group(func(r chi.Router) {
		r.Use(authz.RequireAny(shared.PermQuotationEdit))
		r.Put("/{id}", h.update)
	})

	r.Group(func(r chi.Router) {
		r.Use(authz.RequireAny(shared.PermQuotationSend))
		r.Post("/{id}/send", h.send)
		r.Patch("/{id}/status", h.changeStatus)
	})

	r.Group(func(r chi.Router) {
		r.Use(authz.RequireAny(shared.PermQuotationDelete))
		r.Delete("/{id}", h.delete)
	})

	return r
}
