package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/vessia-direct/api/internal/domain"
)

func TestOrderServiceCreateFromCart(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

	var inserted []domain.Order
	var clearedItems []domain.CartItem
	clearCalled := false

	orderRepo := &stubOrderRepo{
		insertFn: func(_ context.Context, order domain.Order) error {
			inserted = append(inserted, order)
			return nil
		},
	}
	cartRepo := &stubCartRepo{
		getFn: func(context.Context, string) (domain.Cart, error) {
			return domain.Cart{
				ID:           "cart-1",
				ConsultantID: "con-1",
				CycleID:      "cyc-1",
				Items:        []domain.CartItem{{ID: "itm-1", ProductID: "prd-1", Quantity: 2}},
			}, nil
		},
		replaceFn: func(_ context.Context, cartID string, items []domain.CartItem, updatedAt time.Time) (domain.Cart, error) {
			clearCalled = true
			clearedItems = items
			return domain.Cart{ID: cartID, Items: items}, nil
		},
	}
	cycleRepo := &stubCycleRepo{
		findFn: func(_ context.Context, cycleID string) (domain.Cycle, error) {
			return domain.Cycle{ID: cycleID, Active: true}, nil
		},
	}
	promoID := "promo-1"
	pricer := &stubPricer{
		quoteFn: func(_ context.Context, cart Cart) (CartSummary, error) {
			return CartSummary{
				CartID:  cart.ID,
				CycleID: cart.CycleID,
				Lines: []CartLine{
					{
						Item:      cart.Items[0],
						Name:      "Serum",
						SKU:       "SER-01",
						BrandID:   "brd-1",
						Points:    10,
						Quote:     PriceQuote{UnitPrice: 10000, FinalPrice: 9000, Discounted: true, PromotionID: &promoID},
						LineTotal: 18000,
					},
				},
				Subtotal:      20000,
				DiscountTotal: 2000,
				Total:         18000,
			}, nil
		},
	}
	counters, err := NewCounterService(CounterServiceDeps{
		Repository: &stubCounterRepo{
			nextFn: func(_ context.Context, counterID string, step int64) (int64, error) {
				if counterID != "orders:2026" {
					t.Fatalf("unexpected counter id %s", counterID)
				}
				return 42, nil
			},
		},
		Clock: func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new counter service: %v", err)
	}
	notifier := &captureNotifier{}
	unit := &stubUnitOfWork{}

	svc, err := NewOrderService(OrderServiceDeps{
		Orders:      orderRepo,
		Carts:       cartRepo,
		Cycles:      cycleRepo,
		Pricer:      pricer,
		Counters:    counters,
		Notifier:    notifier,
		UnitOfWork:  unit,
		Clock:       func() time.Time { return now },
		IDGenerator: func() string { return "ord_000TEST" },
	})
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}

	order, err := svc.CreateFromCart(ctx, CreateOrderFromCartCommand{
		CartID:       "cart-1",
		ConsultantID: "con-1",
		ClientName:   "Lucía",
		ClientPhone:  "+51 999 111 222",
	})
	if err != nil {
		t.Fatalf("create from cart: %v", err)
	}

	if order.ID != "ord_000TEST" {
		t.Fatalf("unexpected order id %s", order.ID)
	}
	if order.Number != "VD-2026-000042" {
		t.Fatalf("unexpected order number %s", order.Number)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending status got %s", order.Status)
	}
	if order.Totals.Subtotal != 20000 || order.Totals.Discount != 2000 || order.Totals.Total != 18000 {
		t.Fatalf("unexpected totals %+v", order.Totals)
	}
	if !order.StatusUpdatedAt.Equal(now) {
		t.Fatalf("expected statusUpdatedAt stamped got %v", order.StatusUpdatedAt)
	}

	if len(order.Items) != 1 {
		t.Fatalf("expected 1 item got %d", len(order.Items))
	}
	item := order.Items[0]
	if item.UnitPrice != 10000 || item.FinalPrice != 9000 {
		t.Fatalf("expected dual price snapshot 10000/9000 got %d/%d", item.UnitPrice, item.FinalPrice)
	}
	if item.NameSnapshot != "Serum" || item.SKUSnapshot != "SER-01" || item.PointsSnapshot != 10 {
		t.Fatalf("unexpected snapshot %+v", item)
	}
	if item.PromotionID == nil || *item.PromotionID != "promo-1" {
		t.Fatalf("expected promotion provenance got %v", item.PromotionID)
	}

	if len(inserted) != 1 {
		t.Fatalf("expected 1 inserted order got %d", len(inserted))
	}
	if !clearCalled || len(clearedItems) != 0 {
		t.Fatalf("expected cart emptied in the same transaction")
	}
	if unit.calls != 1 {
		t.Fatalf("expected one transaction got %d", unit.calls)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Type != domain.NotificationOrderCreated {
		t.Fatalf("expected ORDER_CREATED notification got %+v", notifier.sent)
	}
	if notifier.sent[0].RecipientID != "con-1" {
		t.Fatalf("expected consultant recipient got %s", notifier.sent[0].RecipientID)
	}
}

func TestOrderServiceCreateFromCartClearFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

	inserts := 0
	orderRepo := &stubOrderRepo{
		insertFn: func(context.Context, domain.Order) error {
			inserts++
			return nil
		},
	}
	cartRepo := &stubCartRepo{
		getFn: func(context.Context, string) (domain.Cart, error) {
			return domain.Cart{
				ID:           "cart-1",
				ConsultantID: "con-1",
				CycleID:      "cyc-1",
				Items:        []domain.CartItem{{ID: "itm-1", ProductID: "prd-1", Quantity: 1}},
			}, nil
		},
		replaceFn: func(context.Context, string, []domain.CartItem, time.Time) (domain.Cart, error) {
			return domain.Cart{}, repoError{message: "firestore unavailable", unavailable: true}
		},
	}
	cycleRepo := &stubCycleRepo{
		findFn: func(_ context.Context, cycleID string) (domain.Cycle, error) {
			return domain.Cycle{ID: cycleID, Active: true}, nil
		},
	}
	pricer := &stubPricer{
		quoteFn: func(_ context.Context, cart Cart) (CartSummary, error) {
			return CartSummary{
				CartID:  cart.ID,
				CycleID: cart.CycleID,
				Lines: []CartLine{
					{Item: cart.Items[0], Quote: PriceQuote{UnitPrice: 10000, FinalPrice: 10000}, LineTotal: 10000},
				},
				Subtotal: 10000,
				Total:    10000,
			}, nil
		},
	}
	notifier := &captureNotifier{}

	svc, err := NewOrderService(OrderServiceDeps{
		Orders:   orderRepo,
		Carts:    cartRepo,
		Cycles:   cycleRepo,
		Pricer:   pricer,
		Notifier: notifier,
		Clock:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}

	// The cart clear runs in the same transaction as the order insert; when it
	// fails, the whole creation fails and no follow-up effects may fire.
	order, err := svc.CreateFromCart(ctx, CreateOrderFromCartCommand{CartID: "cart-1", ConsultantID: "con-1"})
	if err == nil {
		t.Fatalf("expected creation to fail when the cart clear fails")
	}
	if order.ID != "" {
		t.Fatalf("expected zero order on failure got %+v", order)
	}
	if inserts != 1 {
		t.Fatalf("expected the insert to have been attempted got %d", inserts)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("expected no notification after a failed creation got %+v", notifier.sent)
	}
}

func TestOrderServiceCreateFromCartRejectsEmptyCart(t *testing.T) {
	ctx := context.Background()

	cartRepo := &stubCartRepo{
		getFn: func(context.Context, string) (domain.Cart, error) {
			return domain.Cart{ID: "cart-1", ConsultantID: "con-1", CycleID: "cyc-1"}, nil
		},
	}

	svc, err := NewOrderService(OrderServiceDeps{
		Orders: &stubOrderRepo{},
		Carts:  cartRepo,
		Cycles: &stubCycleRepo{},
		Pricer: &stubPricer{},
	})
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}

	_, err = svc.CreateFromCart(ctx, CreateOrderFromCartCommand{CartID: "cart-1", ConsultantID: "con-1"})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected invalid input got %v", err)
	}
}

func TestOrderServiceCreateFromCartRejectsInactiveCycle(t *testing.T) {
	ctx := context.Background()

	cartRepo := &stubCartRepo{
		getFn: func(context.Context, string) (domain.Cart, error) {
			return domain.Cart{
				ID:           "cart-1",
				ConsultantID: "con-1",
				CycleID:      "cyc-old",
				Items:        []domain.CartItem{{ProductID: "prd-1", Quantity: 1}},
			}, nil
		},
	}
	cycleRepo := &stubCycleRepo{
		findFn: func(_ context.Context, cycleID string) (domain.Cycle, error) {
			return domain.Cycle{ID: cycleID, Active: false}, nil
		},
	}

	svc, err := NewOrderService(OrderServiceDeps{
		Orders: &stubOrderRepo{},
		Carts:  cartRepo,
		Cycles: cycleRepo,
		Pricer: &stubPricer{},
	})
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}

	_, err = svc.CreateFromCart(ctx, CreateOrderFromCartCommand{CartID: "cart-1", ConsultantID: "con-1"})
	if !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected invalid state got %v", err)
	}
}

func newTransitionTestService(t *testing.T, orderRepo *stubOrderRepo, commissions *stubCommissionService, notifier *captureNotifier, now time.Time) OrderService {
	t.Helper()

	deps := OrderServiceDeps{
		Orders: orderRepo,
		Carts:  &stubCartRepo{},
		Cycles: &stubCycleRepo{},
		Pricer: &stubPricer{},
		Clock:  func() time.Time { return now },
	}
	if commissions != nil {
		deps.Commissions = commissions
	}
	if notifier != nil {
		deps.Notifier = notifier
	}
	svc, err := NewOrderService(deps)
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}
	return svc
}

func TestOrderServiceTransitionStatusHappyPath(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC)

	var updated domain.Order
	orderRepo := &stubOrderRepo{
		findFn: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, ConsultantID: "con-1", Status: domain.OrderStatusPending}, nil
		},
		updateFn: func(_ context.Context, order domain.Order) error {
			updated = order
			return nil
		},
	}
	calculated := 0
	commissions := &stubCommissionService{
		calculateFn: func(_ context.Context, orderID string) ([]Commission, error) {
			calculated++
			return nil, nil
		},
	}
	notifier := &captureNotifier{}

	svc := newTransitionTestService(t, orderRepo, commissions, notifier, now)

	order, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{OrderID: "ord-1", TargetStatus: domain.OrderStatusConfirmed})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if order.Status != domain.OrderStatusConfirmed {
		t.Fatalf("expected confirmed got %s", order.Status)
	}
	if order.ConfirmedAt == nil || !order.ConfirmedAt.Equal(now) {
		t.Fatalf("expected confirmedAt stamped got %v", order.ConfirmedAt)
	}
	if !order.StatusUpdatedAt.Equal(now) {
		t.Fatalf("expected statusUpdatedAt stamped got %v", order.StatusUpdatedAt)
	}
	if updated.Status != domain.OrderStatusConfirmed {
		t.Fatalf("expected persisted status confirmed got %s", updated.Status)
	}
	if calculated != 1 {
		t.Fatalf("expected commission calculation once got %d", calculated)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Type != domain.NotificationOrderConfirmed {
		t.Fatalf("expected ORDER_CONFIRMED notification got %+v", notifier.sent)
	}
}

func TestOrderServiceTransitionStatusRejectsIllegalEdge(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC)

	orderRepo := &stubOrderRepo{
		findFn: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, Status: domain.OrderStatusPending}, nil
		},
	}

	svc := newTransitionTestService(t, orderRepo, nil, nil, now)

	_, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{OrderID: "ord-1", TargetStatus: domain.OrderStatusDelivered})
	if !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected invalid state got %v", err)
	}
}

func TestOrderServiceTransitionStatusRejectsTerminal(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC)

	for _, terminal := range []domain.OrderStatus{domain.OrderStatusDelivered, domain.OrderStatusCanceled} {
		orderRepo := &stubOrderRepo{
			findFn: func(_ context.Context, orderID string) (domain.Order, error) {
				return domain.Order{ID: orderID, Status: terminal}, nil
			},
		}
		svc := newTransitionTestService(t, orderRepo, nil, nil, now)

		_, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{OrderID: "ord-1", TargetStatus: domain.OrderStatusConfirmed})
		if !errors.Is(err, ErrOrderInvalidState) {
			t.Fatalf("expected terminal %s to reject transitions got %v", terminal, err)
		}
	}
}

func TestOrderServiceReconfirmationDoesNotRecalculate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC)
	confirmedEarlier := now.Add(-24 * time.Hour)

	// An order that was confirmed before carries ConfirmedAt; a later legal entry into
	// confirmed must not trigger a second calculation.
	orderRepo := &stubOrderRepo{
		findFn: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, Status: domain.OrderStatusPending, ConfirmedAt: &confirmedEarlier}, nil
		},
	}
	calculated := 0
	commissions := &stubCommissionService{
		calculateFn: func(context.Context, string) ([]Commission, error) {
			calculated++
			return nil, nil
		},
	}

	svc := newTransitionTestService(t, orderRepo, commissions, nil, now)

	order, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{OrderID: "ord-1", TargetStatus: domain.OrderStatusConfirmed})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if calculated != 0 {
		t.Fatalf("expected no recalculation got %d", calculated)
	}
	if !order.ConfirmedAt.Equal(confirmedEarlier) {
		t.Fatalf("expected original confirmedAt preserved got %v", order.ConfirmedAt)
	}
}

func TestOrderServiceCommissionFailureDoesNotFailTransition(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC)

	orderRepo := &stubOrderRepo{
		findFn: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, Status: domain.OrderStatusPending}, nil
		},
	}
	commissions := &stubCommissionService{
		calculateFn: func(context.Context, string) ([]Commission, error) {
			return nil, errors.New("commission backend down")
		},
	}

	svc := newTransitionTestService(t, orderRepo, commissions, nil, now)

	order, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{OrderID: "ord-1", TargetStatus: domain.OrderStatusConfirmed})
	if err != nil {
		t.Fatalf("expected transition to survive commission failure got %v", err)
	}
	if order.Status != domain.OrderStatusConfirmed {
		t.Fatalf("expected confirmed got %s", order.Status)
	}
}

func TestOrderServiceCancelVoidsCommissions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC)

	for _, from := range []domain.OrderStatus{
		domain.OrderStatusPending,
		domain.OrderStatusConfirmed,
		domain.OrderStatusOrderedToBrand,
		domain.OrderStatusInTransit,
	} {
		orderRepo := &stubOrderRepo{
			findFn: func(_ context.Context, orderID string) (domain.Order, error) {
				return domain.Order{ID: orderID, ConsultantID: "con-1", Status: from}, nil
			},
		}
		voided := ""
		commissions := &stubCommissionService{
			voidFn: func(_ context.Context, orderID string) error {
				voided = orderID
				return nil
			},
		}
		notifier := &captureNotifier{}

		svc := newTransitionTestService(t, orderRepo, commissions, notifier, now)

		order, err := svc.Cancel(ctx, CancelOrderCommand{OrderID: "ord-1", Reason: "customer backed out"})
		if err != nil {
			t.Fatalf("cancel from %s: %v", from, err)
		}
		if order.Status != domain.OrderStatusCanceled {
			t.Fatalf("expected canceled got %s", order.Status)
		}
		if order.CanceledAt == nil || !order.CanceledAt.Equal(now) {
			t.Fatalf("expected canceledAt stamped got %v", order.CanceledAt)
		}
		if voided != "ord-1" {
			t.Fatalf("expected commissions voided for ord-1 got %q", voided)
		}
		if len(notifier.sent) != 1 || notifier.sent[0].Type != domain.NotificationOrderCanceled {
			t.Fatalf("expected ORDER_CANCELED notification got %+v", notifier.sent)
		}
		if reason := notifier.sent[0].Context["reason"]; reason != "customer backed out" {
			t.Fatalf("expected reason in notification context got %v", reason)
		}
	}
}

func TestOrderServiceTransitionExpectedStatusConflict(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC)

	orderRepo := &stubOrderRepo{
		findFn: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, Status: domain.OrderStatusConfirmed}, nil
		},
	}

	svc := newTransitionTestService(t, orderRepo, nil, nil, now)

	expected := domain.OrderStatusPending
	_, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{
		OrderID:        "ord-1",
		TargetStatus:   domain.OrderStatusOrderedToBrand,
		ExpectedStatus: &expected,
	})
	if !errors.Is(err, ErrOrderConflict) {
		t.Fatalf("expected conflict got %v", err)
	}
}

func TestOrderServiceTransitionNotifiesCustomer(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC)
	customerID := "cus-1"

	orderRepo := &stubOrderRepo{
		findFn: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{
				ID:           orderID,
				ConsultantID: "con-1",
				CustomerID:   &customerID,
				Status:       domain.OrderStatusInTransit,
			}, nil
		},
	}
	notifier := &captureNotifier{}

	svc := newTransitionTestService(t, orderRepo, nil, notifier, now)

	_, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{OrderID: "ord-1", TargetStatus: domain.OrderStatusDelivered})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}

	if len(notifier.sent) != 2 {
		t.Fatalf("expected consultant and customer notifications got %+v", notifier.sent)
	}
	consultant, customer := notifier.sent[0], notifier.sent[1]
	if consultant.RecipientType != domain.RecipientConsultant || consultant.RecipientID != "con-1" {
		t.Fatalf("expected consultant recipient got %+v", consultant)
	}
	if customer.RecipientType != domain.RecipientCustomer || customer.RecipientID != "cus-1" {
		t.Fatalf("expected customer recipient got %+v", customer)
	}
	if customer.Type != domain.NotificationOrderDelivered {
		t.Fatalf("expected ORDER_DELIVERED for the customer got %s", customer.Type)
	}
}

func TestOrderServiceNotificationFailureDoesNotFailTransition(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC)

	orderRepo := &stubOrderRepo{
		findFn: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, ConsultantID: "con-1", Status: domain.OrderStatusOrderedToBrand}, nil
		},
	}
	notifier := &captureNotifier{err: errors.New("notification channel down")}

	svc := newTransitionTestService(t, orderRepo, nil, notifier, now)

	order, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{OrderID: "ord-1", TargetStatus: domain.OrderStatusInTransit})
	if err != nil {
		t.Fatalf("expected transition to survive notifier failure got %v", err)
	}
	if order.Status != domain.OrderStatusInTransit {
		t.Fatalf("expected in_transit got %s", order.Status)
	}
}
