package http

import (
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/zayana/storefront/pkg/errors"
	"github.com/zayana/storefront/pkg/httputil"
	"github.com/zayana/storefront/pkg/i18n"
	"github.com/zayana/storefront/pkg/validator"
	"github.com/zayana/storefront/services/storefront/internal/repository"
	"github.com/zayana/storefront/services/storefront/internal/service"
)

// CheckoutHandler submits the session cart as orders.
type CheckoutHandler struct {
	storage  repository.CartRepository
	checkout *service.CheckoutService
	logger   *slog.Logger
}

func NewCheckoutHandler(storage repository.CartRepository, checkout *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{storage: storage, checkout: checkout, logger: logger}
}

// CheckoutResponse is the 201 body of a successful checkout.
type CheckoutResponse struct {
	OrderID    string   `json:"order_id"`
	OrderIDs   []string `json:"order_ids"`
	CheckoutID string   `json:"checkout_id"`
	Message    string   `json:"message"`
}

// Submit handles POST /api/v1/checkout
//
// 409 CART_EMPTY tells the client to send the shopper back to the cart.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var form service.CheckoutForm
	if err := decodeJSON(r, &form); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.logger)
		return
	}

	store, ok := openCart(w, r, h.storage, sid, h.logger)
	if !ok {
		return
	}
	res, err := h.checkout.Submit(r.Context(), store, form)
	if err != nil {
		var verr *validator.ValidationError
		switch {
		case errors.Is(err, apperrors.ErrCartEmpty):
			writeLocalized(w, r, http.StatusConflict, "CART_EMPTY", i18n.KeyCartEmpty)
		case errors.As(err, &verr):
			writeFormError(w, r, err)
		case errors.Is(err, apperrors.ErrSubmissionFailed):
			writeLocalized(w, r, http.StatusBadGateway, "ORDER_SUBMISSION_FAILED", i18n.KeySubmissionFailed)
		default:
			httputil.WriteError(w, r, err, h.logger)
		}
		return
	}

	loc := locale(r)
	w.Header().Set("Content-Language", string(loc))
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: CheckoutResponse{
		OrderID:    res.OrderID,
		OrderIDs:   res.OrderIDs,
		CheckoutID: res.CheckoutID,
		Message:    i18n.T(loc, i18n.KeyOrderPlaced),
	}})
}
