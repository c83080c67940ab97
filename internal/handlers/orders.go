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
	"github.com/vessia-direct/api/internal/platform/pagination"
	"github.com/vessia-direct/api/internal/services"
)

// OrderHandlers exposes order materialization and lifecycle endpoints.
type OrderHandlers struct {
	orders      services.OrderService
	maxBodySize int64
}

// OrderOption customises OrderHandlers construction.
type OrderOption func(*OrderHandlers)

// WithOrderMaxBodySize overrides the request body size limit.
func WithOrderMaxBodySize(limit int64) OrderOption {
	return func(h *OrderHandlers) {
		if limit > 0 {
			h.maxBodySize = limit
		}
	}
}

// NewOrderHandlers constructs the order handler set.
func NewOrderHandlers(orders services.OrderService, opts ...OrderOption) (*OrderHandlers, error) {
	if orders == nil {
		return nil, errors.New("order handlers: order service is required")
	}
	h := &OrderHandlers{
		orders:      orders,
		maxBodySize: defaultMaxBodySize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Routes registers the order endpoints on the supplied router.
func (h *OrderHandlers) Routes(r chi.Router) {
	r.Post("/", h.createOrder)
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}/status", h.transitionStatus)
	r.Post("/{orderID}/cancel", h.cancelOrder)
}

type createOrderRequest struct {
	CustomerID  *string `json:"customerId"`
	ClientName  string  `json:"clientName"`
	ClientPhone string  `json:"clientPhone"`
}

type transitionStatusRequest struct {
	Status         string  `json:"status"`
	ExpectedStatus *string `json:"expectedStatus"`
	Reason         string  `json:"reason"`
}

type cancelOrderRequest struct {
	ExpectedStatus *string `json:"expectedStatus"`
	Reason         string  `json:"reason"`
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := decodeJSONBody(r, h.maxBodySize, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeBodyError(ctx, w, err)
		return
	}

	order, err := h.orders.CreateFromCart(ctx, services.CreateOrderFromCartCommand{
		CartID:       cartIDFromRequest(r, identity),
		ConsultantID: identity.ConsultantID,
		CustomerID:   req.CustomerID,
		ClientName:   strings.TrimSpace(req.ClientName),
		ClientPhone:  strings.TrimSpace(req.ClientPhone),
	})
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, newOrderPayload(order))
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	pager, err := pageFromRequest(r, pagination.Options{DefaultPageSize: 20, MaxPageSize: 100})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.OrderListFilter{
		CycleID:    strings.TrimSpace(r.URL.Query().Get("cycleId")),
		Pagination: pager,
	}
	if rawStatus := strings.TrimSpace(r.URL.Query().Get("status")); rawStatus != "" {
		status, ok := parseOrderStatus(rawStatus)
		if !ok {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", "unknown order status", http.StatusBadRequest))
			return
		}
		filter.Status = []domain.OrderStatus{status}
	}

	// Consultants only see their own orders; back office may scope freely.
	if isBackOffice(identity) {
		filter.ConsultantID = strings.TrimSpace(r.URL.Query().Get("consultantId"))
	} else {
		filter.ConsultantID = identity.ConsultantID
	}

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newListResponse(page, newOrderPayload))
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	if !canAccessOrder(identity, order) {
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "order not found", http.StatusNotFound))
		return
	}
	writeJSONResponse(w, http.StatusOK, newOrderPayload(order))
}

func (h *OrderHandlers) transitionStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req transitionStatusRequest
	if err := decodeJSONBody(r, h.maxBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	target, ok := parseOrderStatus(req.Status)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", "unknown order status", http.StatusBadRequest))
		return
	}

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	if !canTransition(identity, order, target) {
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "not allowed to change this order's status", http.StatusForbidden))
		return
	}

	cmd := services.OrderStatusTransitionCommand{
		OrderID:      order.ID,
		TargetStatus: target,
		Reason:       strings.TrimSpace(req.Reason),
	}
	if req.ExpectedStatus != nil {
		expected, ok := parseOrderStatus(*req.ExpectedStatus)
		if !ok {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", "unknown expected status", http.StatusBadRequest))
			return
		}
		cmd.ExpectedStatus = &expected
	}

	updated, err := h.orders.TransitionStatus(ctx, cmd)
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newOrderPayload(updated))
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req cancelOrderRequest
	if err := decodeJSONBody(r, h.maxBodySize, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeBodyError(ctx, w, err)
		return
	}

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	if !canAccessOrder(identity, order) {
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "order not found", http.StatusNotFound))
		return
	}

	cmd := services.CancelOrderCommand{
		OrderID: order.ID,
		Reason:  strings.TrimSpace(req.Reason),
	}
	if req.ExpectedStatus != nil {
		expected, ok := parseOrderStatus(*req.ExpectedStatus)
		if !ok {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", "unknown expected status", http.StatusBadRequest))
			return
		}
		cmd.ExpectedStatus = &expected
	}

	canceled, err := h.orders.Cancel(ctx, cmd)
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newOrderPayload(canceled))
}

func (h *OrderHandlers) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_state", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", "order was modified concurrently", http.StatusConflict))
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "cart not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal", "unexpected order error", http.StatusInternalServerError))
	}
}

func parseOrderStatus(raw string) (domain.OrderStatus, bool) {
	status := domain.OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case domain.OrderStatusPending,
		domain.OrderStatusConfirmed,
		domain.OrderStatusOrderedToBrand,
		domain.OrderStatusInTransit,
		domain.OrderStatusDelivered,
		domain.OrderStatusCanceled:
		return status, true
	}
	return "", false
}

func isBackOffice(identity *auth.Identity) bool {
	return identity.HasAnyRole(auth.RoleStaff, auth.RoleAdmin)
}

func canAccessOrder(identity *auth.Identity, order domain.Order) bool {
	if isBackOffice(identity) {
		return true
	}
	return identity.ConsultantID != "" && identity.ConsultantID == order.ConsultantID
}

// canTransition gates who may push an order forward. Consultants confirm their own
// orders; fulfilment statuses belong to the back office.
func canTransition(identity *auth.Identity, order domain.Order, target domain.OrderStatus) bool {
	if isBackOffice(identity) {
		return true
	}
	if !canAccessOrder(identity, order) {
		return false
	}
	return target == domain.OrderStatusConfirmed || target == domain.OrderStatusCanceled
}
