package customers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vantage-erp/vantage-erp/internal/platform/httpx"
	"github.com/vantage-erp/vantage-erp/internal/rbac"
	"github.com/vantage-erp/vantage-erp/internal/shared"
)

// Handler serves the customer lookup API used by the quotation form.
type Handler struct {
	repo Repository
}

// NewHandler constructs the customer Handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// Routes mounts the customer endpoints.
func Routes(h *Handler, authz rbac.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(authz.RequireAny(shared.PermCustomerView))
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	return r
}

type listResponse struct {
	Customers []Customer `json:"customers"`
	Total     int        `json:"total"`
	Page      int        `json:"page"`
	Size      int        `json:"size"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, size := shared.PageParams(r, 20, 100)
	keyword := r.URL.Query().Get("keyword")

	rows, total, err := h.repo.List(r.Context(), keyword, page, size)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if rows == nil {
		rows = []Customer{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Customers: rows, Total: total, Page: page, Size: size})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	c, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}
