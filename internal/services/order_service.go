package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/vessia-direct/api/internal/domain"
	"github.com/vessia-direct/api/internal/repositories"
)

const orderIDPrefix = "ord_"

var (
	// ErrOrderInvalidInput indicates the caller supplied invalid order parameters.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the requested order does not exist.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates the requested status transition is not allowed.
	ErrOrderInvalidState = errors.New("order: invalid state")
	// ErrOrderConflict indicates a concurrent modification or duplicate write.
	ErrOrderConflict = errors.New("order: conflict")
)

// orderStateTransitions encodes the legal status edges. Delivered and canceled are
// terminal; cancellation is reachable from every non-terminal status.
var orderStateTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:        {domain.OrderStatusConfirmed, domain.OrderStatusCanceled},
	domain.OrderStatusConfirmed:      {domain.OrderStatusOrderedToBrand, domain.OrderStatusCanceled},
	domain.OrderStatusOrderedToBrand: {domain.OrderStatusInTransit, domain.OrderStatusCanceled},
	domain.OrderStatusInTransit:      {domain.OrderStatusDelivered, domain.OrderStatusCanceled},
	domain.OrderStatusDelivered:      {},
	domain.OrderStatusCanceled:       {},
}

func canTransition(from, to domain.OrderStatus) bool {
	for _, allowed := range orderStateTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// OrderServiceDeps wires repositories and collaborating services for order flows.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Carts       repositories.CartRepository
	Cycles      repositories.CycleRepository
	Pricer      PricingResolver
	Counters    CounterService
	Commissions CommissionService
	Notifier    Notifier
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type orderService struct {
	orders      repositories.OrderRepository
	carts       repositories.CartRepository
	cycles      repositories.CycleRepository
	pricer      PricingResolver
	counters    CounterService
	commissions CommissionService
	notifier    Notifier
	unitOfWork  repositories.UnitOfWork
	now         func() time.Time
	newID       func() string
	logger      func(context.Context, string, map[string]any)
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// NewOrderService constructs an OrderService enforcing dependency validation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Carts == nil {
		return nil, errors.New("order service: cart repository is required")
	}
	if deps.Cycles == nil {
		return nil, errors.New("order service: cycle repository is required")
	}
	if deps.Pricer == nil {
		return nil, errors.New("order service: pricing resolver is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return orderIDPrefix + ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:      deps.Orders,
		carts:       deps.Carts,
		cycles:      deps.Cycles,
		pricer:      deps.Pricer,
		counters:    deps.Counters,
		commissions: deps.Commissions,
		notifier:    deps.Notifier,
		unitOfWork:  unit,
		now:         func() time.Time { return clock().UTC() },
		newID:       idGen,
		logger:      logger,
	}, nil
}

// CreateFromCart materializes the cart into an immutable order. The cart is re-priced
// through the resolver, each line snapshotted with both the pre-discount and effective
// unit price, and the cart emptied in the same transaction as the order insert.
func (s *orderService) CreateFromCart(ctx context.Context, cmd CreateOrderFromCartCommand) (Order, error) {
	cartID := strings.TrimSpace(cmd.CartID)
	consultantID := strings.TrimSpace(cmd.ConsultantID)
	if cartID == "" {
		return Order{}, fmt.Errorf("%w: cart id is required", ErrOrderInvalidInput)
	}
	if consultantID == "" {
		return Order{}, fmt.Errorf("%w: consultant id is required", ErrOrderInvalidInput)
	}

	cart, err := s.carts.GetCart(ctx, cartID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	if cart.ConsultantID != consultantID {
		return Order{}, fmt.Errorf("%w: cart does not belong to consultant %q", ErrOrderInvalidInput, consultantID)
	}
	if len(cart.Items) == 0 {
		return Order{}, fmt.Errorf("%w: cart must contain at least one item", ErrOrderInvalidInput)
	}

	// The cycle is re-validated at materialization time; a cart left over from a closed
	// cycle must not turn into an order.
	cycle, err := s.cycles.FindByID(ctx, cart.CycleID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	if !cycle.Active {
		return Order{}, fmt.Errorf("%w: cycle %q is no longer active", ErrOrderInvalidState, cycle.ID)
	}

	summary, err := s.pricer.QuoteCart(ctx, cart)
	if err != nil {
		return Order{}, translatePricingError(err)
	}
	if len(summary.Lines) == 0 {
		return Order{}, fmt.Errorf("%w: cart has no purchasable lines", ErrOrderInvalidInput)
	}

	now := s.now()
	order := Order{
		ID:           s.newID(),
		ConsultantID: consultantID,
		CycleID:      cart.CycleID,
		CustomerID:   cloneStringPointer(cmd.CustomerID),
		Status:       domain.OrderStatusPending,
		Totals: domain.OrderTotals{
			Subtotal: summary.Subtotal,
			Discount: summary.DiscountTotal,
			Total:    summary.Total,
		},
		ClientName:      strings.TrimSpace(cmd.ClientName),
		ClientPhone:     strings.TrimSpace(cmd.ClientPhone),
		Items:           buildOrderItems(summary.Lines),
		CreatedAt:       now,
		UpdatedAt:       now,
		StatusUpdatedAt: now,
	}

	number, err := s.generateOrderNumber(ctx)
	if err != nil {
		return Order{}, err
	}
	order.Number = number

	err = s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Insert(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		if _, err := s.carts.ReplaceItems(txCtx, cart.ID, nil, now); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.notify(ctx, domain.Notification{
		Type:          domain.NotificationOrderCreated,
		RecipientType: domain.RecipientConsultant,
		RecipientID:   order.ConsultantID,
		Context:       orderNotificationContext(order),
	})
	if order.CustomerID != nil {
		s.notify(ctx, domain.Notification{
			Type:          domain.NotificationOrderCreated,
			RecipientType: domain.RecipientCustomer,
			RecipientID:   *order.CustomerID,
			Context:       orderNotificationContext(order),
		})
	}

	return order, nil
}

// GetOrder fetches one order by ID.
func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

// ListOrders returns orders matching the filter with cursor paging.
func (s *orderService) ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error) {
	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

// TransitionStatus moves the order along the status machine. Entering confirmed for the
// first time triggers commission calculation; entering canceled voids commissions. Both
// side effects run after the status write and never roll it back.
func (s *orderService) TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	target := cmd.TargetStatus
	if target == "" {
		return Order{}, fmt.Errorf("%w: target status is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if cmd.ExpectedStatus != nil && order.Status != *cmd.ExpectedStatus {
		return Order{}, fmt.Errorf("%w: expected status %q but was %q", ErrOrderConflict, *cmd.ExpectedStatus, order.Status)
	}
	if order.Status == target {
		return order, nil
	}
	if !canTransition(order.Status, target) {
		return Order{}, fmt.Errorf("%w: %s to %s", ErrOrderInvalidState, order.Status, target)
	}

	now := s.now()
	firstConfirmation := target == domain.OrderStatusConfirmed && order.ConfirmedAt == nil

	order.Status = target
	order.UpdatedAt = now
	order.StatusUpdatedAt = now
	switch target {
	case domain.OrderStatusConfirmed:
		if order.ConfirmedAt == nil {
			order.ConfirmedAt = &now
		}
	case domain.OrderStatusDelivered:
		order.DeliveredAt = &now
	case domain.OrderStatusCanceled:
		if order.CanceledAt == nil {
			order.CanceledAt = &now
		}
	}

	err = s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.runTransitionEffects(ctx, order, firstConfirmation, cmd.Reason)

	return order, nil
}

// Cancel transitions the order to canceled from any non-terminal status.
func (s *orderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	return s.TransitionStatus(ctx, OrderStatusTransitionCommand{
		OrderID:        cmd.OrderID,
		TargetStatus:   domain.OrderStatusCanceled,
		ExpectedStatus: cmd.ExpectedStatus,
		Reason:         cmd.Reason,
	})
}

// runTransitionEffects drives the non-transactional follow-ups of a committed status
// change. Failures are logged and swallowed; the status write is already durable.
func (s *orderService) runTransitionEffects(ctx context.Context, order Order, firstConfirmation bool, reason string) {
	if firstConfirmation && s.commissions != nil {
		if _, err := s.commissions.CalculateForOrder(ctx, order.ID); err != nil {
			s.logger(ctx, "order.commission_calculation_failed", map[string]any{
				"orderId": order.ID,
				"error":   err.Error(),
			})
		}
	}

	if order.Status == domain.OrderStatusCanceled && s.commissions != nil {
		if err := s.commissions.VoidForOrder(ctx, order.ID); err != nil {
			s.logger(ctx, "order.commission_void_failed", map[string]any{
				"orderId": order.ID,
				"error":   err.Error(),
			})
		}
	}

	if notificationType, ok := transitionNotificationTypes[order.Status]; ok {
		notificationContext := orderNotificationContext(order)
		if reason = strings.TrimSpace(reason); reason != "" {
			notificationContext["reason"] = reason
		}
		s.notify(ctx, domain.Notification{
			Type:          notificationType,
			RecipientType: domain.RecipientConsultant,
			RecipientID:   order.ConsultantID,
			Context:       notificationContext,
		})
		if order.CustomerID != nil {
			s.notify(ctx, domain.Notification{
				Type:          notificationType,
				RecipientType: domain.RecipientCustomer,
				RecipientID:   *order.CustomerID,
				Context:       notificationContext,
			})
		}
	}
}

var transitionNotificationTypes = map[domain.OrderStatus]domain.NotificationType{
	domain.OrderStatusConfirmed: domain.NotificationOrderConfirmed,
	domain.OrderStatusInTransit: domain.NotificationOrderInTransit,
	domain.OrderStatusDelivered: domain.NotificationOrderDelivered,
	domain.OrderStatusCanceled:  domain.NotificationOrderCanceled,
}

func (s *orderService) notify(ctx context.Context, notification domain.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, notification); err != nil {
		s.logger(ctx, "order.notification_failed", map[string]any{
			"type":        string(notification.Type),
			"recipientId": notification.RecipientID,
			"error":       err.Error(),
		})
	}
}

func (s *orderService) generateOrderNumber(ctx context.Context) (string, error) {
	if s.counters == nil {
		return strings.ToUpper(ulid.Make().String()), nil
	}
	number, err := s.counters.NextOrderNumber(ctx)
	if err != nil {
		return "", fmt.Errorf("order: generating order number: %w", err)
	}
	return number, nil
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}
	return err
}

func buildOrderItems(lines []CartLine) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, domain.OrderItem{
			ProductID:        line.Item.ProductID,
			Quantity:         line.Item.Quantity,
			NameSnapshot:     line.Name,
			SKUSnapshot:      line.SKU,
			PointsSnapshot:   line.Points,
			IsRefillSnapshot: line.IsRefill,
			UnitPrice:        line.Quote.UnitPrice,
			FinalPrice:       line.Quote.FinalPrice,
			PromotionID:      cloneStringPointer(line.Quote.PromotionID),
			SelectedVariant:  cloneVariant(line.Item.SelectedVariant),
		})
	}
	return items
}

func orderNotificationContext(order Order) map[string]any {
	return map[string]any{
		"orderId":     order.ID,
		"orderNumber": order.Number,
		"status":      string(order.Status),
		"total":       order.Totals.Total,
	}
}

func cloneStringPointer(value *string) *string {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
