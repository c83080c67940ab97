package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	domain "github.com/vessia-direct/api/internal/domain"
	"github.com/vessia-direct/api/internal/platform/auth"
	"github.com/vessia-direct/api/internal/services"
)

type stubCartService struct {
	getOrCreateFn func(ctx context.Context, cmd services.GetOrCreateCartCommand) (domain.Cart, error)
	addItemFn     func(ctx context.Context, cmd services.AddCartItemCommand) (domain.Cart, error)
	updateFn      func(ctx context.Context, cmd services.UpdateCartItemQuantityCommand) (domain.Cart, error)
	removeFn      func(ctx context.Context, cmd services.RemoveCartItemCommand) (domain.Cart, error)
	clearFn       func(ctx context.Context, cartID string) (domain.Cart, error)
	summarizeFn   func(ctx context.Context, cartID string) (domain.CartSummary, error)
}

func (s *stubCartService) GetOrCreateCart(ctx context.Context, cmd services.GetOrCreateCartCommand) (domain.Cart, error) {
	return s.getOrCreateFn(ctx, cmd)
}

func (s *stubCartService) AddItem(ctx context.Context, cmd services.AddCartItemCommand) (domain.Cart, error) {
	return s.addItemFn(ctx, cmd)
}

func (s *stubCartService) UpdateItemQuantity(ctx context.Context, cmd services.UpdateCartItemQuantityCommand) (domain.Cart, error) {
	return s.updateFn(ctx, cmd)
}

func (s *stubCartService) RemoveItem(ctx context.Context, cmd services.RemoveCartItemCommand) (domain.Cart, error) {
	return s.removeFn(ctx, cmd)
}

func (s *stubCartService) ClearCart(ctx context.Context, cartID string) (domain.Cart, error) {
	return s.clearFn(ctx, cartID)
}

func (s *stubCartService) Summarize(ctx context.Context, cartID string) (domain.CartSummary, error) {
	return s.summarizeFn(ctx, cartID)
}

type stubOrderService struct {
	createFn     func(ctx context.Context, cmd services.CreateOrderFromCartCommand) (domain.Order, error)
	getFn        func(ctx context.Context, orderID string) (domain.Order, error)
	listFn       func(ctx context.Context, filter services.OrderListFilter) (domain.CursorPage[domain.Order], error)
	transitionFn func(ctx context.Context, cmd services.OrderStatusTransitionCommand) (domain.Order, error)
	cancelFn     func(ctx context.Context, cmd services.CancelOrderCommand) (domain.Order, error)
}

func (s *stubOrderService) CreateFromCart(ctx context.Context, cmd services.CreateOrderFromCartCommand) (domain.Order, error) {
	return s.createFn(ctx, cmd)
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	return s.getFn(ctx, orderID)
}

func (s *stubOrderService) ListOrders(ctx context.Context, filter services.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	return s.listFn(ctx, filter)
}

func (s *stubOrderService) TransitionStatus(ctx context.Context, cmd services.OrderStatusTransitionCommand) (domain.Order, error) {
	return s.transitionFn(ctx, cmd)
}

func (s *stubOrderService) Cancel(ctx context.Context, cmd services.CancelOrderCommand) (domain.Order, error) {
	return s.cancelFn(ctx, cmd)
}

type stubPayoutService struct {
	generateFn func(ctx context.Context, cmd services.GeneratePayoutCommand) (services.PayoutResult, error)
	markPaidFn func(ctx context.Context, payoutID string) (domain.Payout, error)
	getFn      func(ctx context.Context, payoutID string) (domain.Payout, error)
	listFn     func(ctx context.Context, filter services.PayoutListFilter) (domain.CursorPage[domain.Payout], error)
}

func (s *stubPayoutService) GeneratePayout(ctx context.Context, cmd services.GeneratePayoutCommand) (services.PayoutResult, error) {
	return s.generateFn(ctx, cmd)
}

func (s *stubPayoutService) MarkPayoutAsPaid(ctx context.Context, payoutID string) (domain.Payout, error) {
	return s.markPaidFn(ctx, payoutID)
}

func (s *stubPayoutService) GetPayout(ctx context.Context, payoutID string) (domain.Payout, error) {
	return s.getFn(ctx, payoutID)
}

func (s *stubPayoutService) ListPayouts(ctx context.Context, filter services.PayoutListFilter) (domain.CursorPage[domain.Payout], error) {
	return s.listFn(ctx, filter)
}

type stubSystemService struct {
	reportFn func(ctx context.Context) (domain.SystemHealthReport, error)
}

func (s *stubSystemService) HealthReport(ctx context.Context) (domain.SystemHealthReport, error) {
	return s.reportFn(ctx)
}

func consultantIdentity(consultantID string) *auth.Identity {
	return &auth.Identity{
		Subject:      "usr-" + consultantID,
		ConsultantID: consultantID,
		Roles:        []string{auth.RoleConsultant},
	}
}

func staffIdentity() *auth.Identity {
	return &auth.Identity{
		Subject: "usr-staff",
		Roles:   []string{auth.RoleStaff},
	}
}

func authedRequest(t *testing.T, method, target string, body io.Reader, identity *auth.Identity) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(auth.WithIdentity(req.Context(), identity))
}
