package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/vessia-direct/api/internal/domain"
	"github.com/vessia-direct/api/internal/platform/auth"
	"github.com/vessia-direct/api/internal/platform/httpx"
	"github.com/vessia-direct/api/internal/services"
)

// cartTokenHeader carries the opaque cart session token. Without it the cart falls back
// to one deterministic cart per consultant.
const cartTokenHeader = "X-Cart-Token"

// CartHandlers exposes the consultant-facing cart endpoints.
type CartHandlers struct {
	carts       services.CartService
	maxBodySize int64
}

// CartOption customises CartHandlers construction.
type CartOption func(*CartHandlers)

// WithCartMaxBodySize overrides the request body size limit.
func WithCartMaxBodySize(limit int64) CartOption {
	return func(h *CartHandlers) {
		if limit > 0 {
			h.maxBodySize = limit
		}
	}
}

// NewCartHandlers constructs the cart handler set.
func NewCartHandlers(carts services.CartService, opts ...CartOption) (*CartHandlers, error) {
	if carts == nil {
		return nil, errors.New("cart handlers: cart service is required")
	}
	h := &CartHandlers{
		carts:       carts,
		maxBodySize: defaultMaxBodySize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Routes registers the cart endpoints on the supplied router.
func (h *CartHandlers) Routes(r chi.Router) {
	r.Get("/", h.getCart)
	r.Get("/summary", h.getSummary)
	r.Post("/items", h.addItem)
	r.Patch("/items/{productID}", h.updateItem)
	r.Delete("/items/{productID}", h.removeItem)
	r.Delete("/items", h.clearCart)
}

type addCartItemRequest struct {
	ProductID       string                 `json:"productId"`
	Quantity        int                    `json:"quantity"`
	SelectedVariant *productVariantPayload `json:"selectedVariant"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	cart, err := h.carts.GetOrCreateCart(ctx, services.GetOrCreateCartCommand{
		CartID:       cartIDFromRequest(r, identity),
		ConsultantID: identity.ConsultantID,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newCartPayload(cart))
}

func (h *CartHandlers) getSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	summary, err := h.carts.Summarize(ctx, cartIDFromRequest(r, identity))
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newCartSummaryPayload(summary))
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req addCartItemRequest
	if err := decodeJSONBody(r, h.maxBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var variant *domain.ProductVariant
	if req.SelectedVariant != nil {
		variant = &domain.ProductVariant{
			Name:  strings.TrimSpace(req.SelectedVariant.Name),
			SKU:   strings.TrimSpace(req.SelectedVariant.SKU),
			Color: strings.TrimSpace(req.SelectedVariant.Color),
		}
	}

	cart, err := h.carts.AddItem(ctx, services.AddCartItemCommand{
		CartID:          cartIDFromRequest(r, identity),
		ConsultantID:    identity.ConsultantID,
		ProductID:       strings.TrimSpace(req.ProductID),
		Quantity:        req.Quantity,
		SelectedVariant: variant,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newCartPayload(cart))
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req updateCartItemRequest
	if err := decodeJSONBody(r, h.maxBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", "quantity is required", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.UpdateItemQuantity(ctx, services.UpdateCartItemQuantityCommand{
		CartID:    cartIDFromRequest(r, identity),
		ProductID: chi.URLParam(r, "productID"),
		Quantity:  *req.Quantity,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newCartPayload(cart))
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	cart, err := h.carts.RemoveItem(ctx, services.RemoveCartItemCommand{
		CartID:    cartIDFromRequest(r, identity),
		ProductID: chi.URLParam(r, "productID"),
	})
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newCartPayload(cart))
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	cart, err := h.carts.ClearCart(ctx, cartIDFromRequest(r, identity))
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newCartPayload(cart))
}

func (h *CartHandlers) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "cart or item not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", "cart was modified concurrently", http.StatusConflict))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("unavailable", "cart service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal", "unexpected cart error", http.StatusInternalServerError))
	}
}

// cartIDFromRequest resolves the cart session token from the request, falling back to a
// deterministic per-consultant cart when the header is absent.
func cartIDFromRequest(r *http.Request, identity *auth.Identity) string {
	if token := strings.TrimSpace(r.Header.Get(cartTokenHeader)); token != "" {
		return token
	}
	return "cart_" + identity.ConsultantID
}

func requireIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body too large", http.StatusRequestEntityTooLarge))
	case errors.Is(err, errEmptyBody):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", "request body is required", http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", err.Error(), http.StatusBadRequest))
	}
}
