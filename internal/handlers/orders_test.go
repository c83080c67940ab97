package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/vessia-direct/api/internal/domain"
	"github.com/vessia-direct/api/internal/services"
)

func newOrderRouter(t *testing.T, orders services.OrderService) chi.Router {
	t.Helper()
	handlers, err := NewOrderHandlers(orders)
	if err != nil {
		t.Fatalf("NewOrderHandlers: %v", err)
	}
	r := chi.NewRouter()
	handlers.Routes(r)
	return r
}

func TestCreateOrderUsesCartAndIdentity(t *testing.T) {
	var gotCmd services.CreateOrderFromCartCommand
	orders := &stubOrderService{
		createFn: func(_ context.Context, cmd services.CreateOrderFromCartCommand) (domain.Order, error) {
			gotCmd = cmd
			return domain.Order{ID: "ord-1", ConsultantID: cmd.ConsultantID, Status: domain.OrderStatusPending}, nil
		},
	}

	router := newOrderRouter(t, orders)
	body := strings.NewReader(`{"clientName":"Rosa Quispe","clientPhone":"+51 999 888 777"}`)
	req := authedRequest(t, http.MethodPost, "/", body, consultantIdentity("con-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotCmd.CartID != "cart_con-1" || gotCmd.ConsultantID != "con-1" {
		t.Fatalf("unexpected command %+v", gotCmd)
	}
	if gotCmd.ClientName != "Rosa Quispe" {
		t.Fatalf("unexpected client name %q", gotCmd.ClientName)
	}
}

func TestCreateOrderAllowsEmptyBody(t *testing.T) {
	orders := &stubOrderService{
		createFn: func(_ context.Context, cmd services.CreateOrderFromCartCommand) (domain.Order, error) {
			return domain.Order{ID: "ord-1", Status: domain.OrderStatusPending}, nil
		},
	}

	router := newOrderRouter(t, orders)
	req := authedRequest(t, http.MethodPost, "/", nil, consultantIdentity("con-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListOrdersScopesConsultant(t *testing.T) {
	var gotFilter services.OrderListFilter
	orders := &stubOrderService{
		listFn: func(_ context.Context, filter services.OrderListFilter) (domain.CursorPage[domain.Order], error) {
			gotFilter = filter
			return domain.CursorPage[domain.Order]{}, nil
		},
	}

	router := newOrderRouter(t, orders)
	req := authedRequest(t, http.MethodGet, "/?consultantId=con-other", nil, consultantIdentity("con-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotFilter.ConsultantID != "con-1" {
		t.Fatalf("consultant must not list other consultants' orders, got filter %+v", gotFilter)
	}
}

func TestListOrdersStaffMayScopeFreely(t *testing.T) {
	var gotFilter services.OrderListFilter
	orders := &stubOrderService{
		listFn: func(_ context.Context, filter services.OrderListFilter) (domain.CursorPage[domain.Order], error) {
			gotFilter = filter
			return domain.CursorPage[domain.Order]{}, nil
		},
	}

	router := newOrderRouter(t, orders)
	req := authedRequest(t, http.MethodGet, "/?consultantId=con-9&status=confirmed", nil, staffIdentity())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if gotFilter.ConsultantID != "con-9" {
		t.Fatalf("expected staff scoping, got %+v", gotFilter)
	}
	if len(gotFilter.Status) != 1 || gotFilter.Status[0] != domain.OrderStatusConfirmed {
		t.Fatalf("expected status filter, got %+v", gotFilter.Status)
	}
}

func TestGetOrderHidesForeignOrders(t *testing.T) {
	orders := &stubOrderService{
		getFn: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, ConsultantID: "con-other"}, nil
		},
	}

	router := newOrderRouter(t, orders)
	req := authedRequest(t, http.MethodGet, "/ord-1", nil, consultantIdentity("con-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign order, got %d", rec.Code)
	}
}

func TestTransitionStatusConsultantMayConfirmOwnOrder(t *testing.T) {
	var gotCmd services.OrderStatusTransitionCommand
	orders := &stubOrderService{
		getFn: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, ConsultantID: "con-1", Status: domain.OrderStatusPending}, nil
		},
		transitionFn: func(_ context.Context, cmd services.OrderStatusTransitionCommand) (domain.Order, error) {
			gotCmd = cmd
			return domain.Order{ID: cmd.OrderID, Status: cmd.TargetStatus}, nil
		},
	}

	router := newOrderRouter(t, orders)
	body := strings.NewReader(`{"status":"confirmed"}`)
	req := authedRequest(t, http.MethodPost, "/ord-1/status", body, consultantIdentity("con-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotCmd.TargetStatus != domain.OrderStatusConfirmed {
		t.Fatalf("unexpected command %+v", gotCmd)
	}
}

func TestTransitionStatusConsultantCannotShip(t *testing.T) {
	orders := &stubOrderService{
		getFn: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, ConsultantID: "con-1", Status: domain.OrderStatusConfirmed}, nil
		},
		transitionFn: func(context.Context, services.OrderStatusTransitionCommand) (domain.Order, error) {
			t.Fatal("transition should not run")
			return domain.Order{}, nil
		},
	}

	router := newOrderRouter(t, orders)
	body := strings.NewReader(`{"status":"in_transit"}`)
	req := authedRequest(t, http.MethodPost, "/ord-1/status", body, consultantIdentity("con-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestTransitionStatusRejectsUnknownStatus(t *testing.T) {
	router := newOrderRouter(t, &stubOrderService{})
	body := strings.NewReader(`{"status":"shipped"}`)
	req := authedRequest(t, http.MethodPost, "/ord-1/status", body, staffIdentity())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTransitionStatusInvalidStateMapsTo422(t *testing.T) {
	orders := &stubOrderService{
		getFn: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, Status: domain.OrderStatusDelivered}, nil
		},
		transitionFn: func(context.Context, services.OrderStatusTransitionCommand) (domain.Order, error) {
			return domain.Order{}, services.ErrOrderInvalidState
		},
	}

	router := newOrderRouter(t, orders)
	body := strings.NewReader(`{"status":"confirmed"}`)
	req := authedRequest(t, http.MethodPost, "/ord-1/status", body, staffIdentity())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestCancelOrderPassesExpectedStatus(t *testing.T) {
	var gotCmd services.CancelOrderCommand
	orders := &stubOrderService{
		getFn: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, ConsultantID: "con-1", Status: domain.OrderStatusPending}, nil
		},
		cancelFn: func(_ context.Context, cmd services.CancelOrderCommand) (domain.Order, error) {
			gotCmd = cmd
			return domain.Order{ID: cmd.OrderID, Status: domain.OrderStatusCanceled}, nil
		},
	}

	router := newOrderRouter(t, orders)
	body := strings.NewReader(`{"expectedStatus":"pending","reason":"cliente desistió"}`)
	req := authedRequest(t, http.MethodPost, "/ord-1/cancel", body, consultantIdentity("con-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotCmd.ExpectedStatus == nil || *gotCmd.ExpectedStatus != domain.OrderStatusPending {
		t.Fatalf("expected expectedStatus pending, got %+v", gotCmd)
	}
	if gotCmd.Reason != "cliente desistió" {
		t.Fatalf("unexpected reason %q", gotCmd.Reason)
	}
}
