package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zayana/storefront/pkg/httputil"
	"github.com/zayana/storefront/pkg/middleware"
	"github.com/zayana/storefront/pkg/pagination"
	"github.com/zayana/storefront/services/storefront/internal/domain"
	"github.com/zayana/storefront/services/storefront/internal/repository"
)

// AdminHandler serves the dashboard's order table, product management and
// news updates. Routes are mounted behind JWTAuth and RequireRole(admin).
type AdminHandler struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	updates  repository.UpdateRepository
	logger   *slog.Logger
}

func NewAdminHandler(orders repository.OrderRepository, products repository.ProductRepository, updates repository.UpdateRepository, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{orders: orders, products: products, updates: updates, logger: logger}
}

func actor(r *http.Request) slog.Attr {
	if c := middleware.ClaimsFromContext(r.Context()); c != nil {
		return slog.String("actor", c.Subject)
	}
	return slog.String("actor", "")
}

// AdminOrder is one row of the order table with its computed total.
type AdminOrder struct {
	domain.OrderWithProduct
	Total string `json:"total"`
}

// ListOrders handles GET /api/v1/admin/orders, newest first.
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	orders, total, err := h.orders.List(r.Context(), params.Page, params.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	rows := make([]AdminOrder, len(orders))
	for i, o := range orders {
		rows[i] = AdminOrder{OrderWithProduct: o, Total: o.Total().StringFixed(2)}
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: pagination.NewResult(rows, total, params)})
}

// DeleteOrder handles DELETE /api/v1/admin/orders/{id}
func (h *AdminHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.orders.Delete(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.logger.InfoContext(r.Context(), "order deleted", slog.String("order_id", id.String()), actor(r))
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) decodeProduct(w http.ResponseWriter, r *http.Request) (domain.ProductInput, bool) {
	var in domain.ProductInput
	if !decodeBody(w, r, &in) {
		return in, false
	}
	if in.Price.IsNegative() {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "request validation failed",
				Fields:  map[string]string{"price": "must be greater than or equal to 0"},
			},
		})
		return in, false
	}
	return in, true
}

// CreateProduct handles POST /api/v1/admin/products
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	product, err := h.products.Create(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.logger.InfoContext(r.Context(), "product created", slog.String("product_id", product.ID), actor(r))
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}

// UpdateProduct handles PUT /api/v1/admin/products/{id}
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	in, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	product, err := h.products.Update(r.Context(), id.String(), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.logger.InfoContext(r.Context(), "product updated", slog.String("product_id", product.ID), actor(r))
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// DeleteProduct handles DELETE /api/v1/admin/products/{id}. Orders of the
// product are kept.
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.products.Delete(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.logger.InfoContext(r.Context(), "product deleted", slog.String("product_id", id.String()), actor(r))
	w.WriteHeader(http.StatusNoContent)
}

// ListUpdates handles GET /api/v1/admin/updates, newest first.
func (h *AdminHandler) ListUpdates(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	updates, total, err := h.updates.List(r.Context(), params.Page, params.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: pagination.NewResult(updates, total, params)})
}

// CreateUpdate handles POST /api/v1/admin/updates
func (h *AdminHandler) CreateUpdate(w http.ResponseWriter, r *http.Request) {
	var in domain.UpdateInput
	if !decodeBody(w, r, &in) {
		return
	}
	update, err := h.updates.Create(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.logger.InfoContext(r.Context(), "update created", slog.String("update_id", update.ID), actor(r))
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: update})
}

// DeleteUpdate handles DELETE /api/v1/admin/updates/{id}
func (h *AdminHandler) DeleteUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.updates.Delete(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.logger.InfoContext(r.Context(), "update deleted", slog.String("update_id", id.String()), actor(r))
	w.WriteHeader(http.StatusNoContent)
}
