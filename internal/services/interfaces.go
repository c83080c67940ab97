package services

import (
	"context"
	"time"

	domain "github.com/vessia-direct/api/internal/domain"
	"github.com/vessia-direct/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	SortOrder          = domain.SortOrder
	Brand              = domain.Brand
	Product            = domain.Product
	ProductVariant     = domain.ProductVariant
	Cycle              = domain.Cycle
	CyclePrice         = domain.CyclePrice
	Promotion          = domain.Promotion
	Consultant         = domain.Consultant
	Cart               = domain.Cart
	CartItem           = domain.CartItem
	CartLine           = domain.CartLine
	CartSummary        = domain.CartSummary
	PriceQuote         = domain.PriceQuote
	Order              = domain.Order
	OrderItem          = domain.OrderItem
	OrderTotals        = domain.OrderTotals
	OrderStatus        = domain.OrderStatus
	Commission         = domain.Commission
	Payout             = domain.Payout
	Notification       = domain.Notification
	SystemHealthReport = domain.SystemHealthReport
)

// Filter aliases shared with the repositories package.
type (
	BrandFilter          = repositories.BrandFilter
	ProductFilter        = repositories.ProductFilter
	OrderListFilter      = repositories.OrderListFilter
	CommissionListFilter = repositories.CommissionListFilter
	PayoutListFilter     = repositories.PayoutListFilter
)

// PricingResolver resolves effective prices for products within a cycle. Resolution
// precedence is promotion, then promotional cycle price, then base price.
type PricingResolver interface {
	ResolvePrice(ctx context.Context, cycleID string, productID string) (PriceQuote, error)
	QuoteCart(ctx context.Context, cart Cart) (CartSummary, error)
}

// CartService manages the mutable pre-order container. Carts never store prices; every
// summary pass re-prices lines through the pricing resolver.
type CartService interface {
	GetOrCreateCart(ctx context.Context, cmd GetOrCreateCartCommand) (Cart, error)
	AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error)
	UpdateItemQuantity(ctx context.Context, cmd UpdateCartItemQuantityCommand) (Cart, error)
	RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) (Cart, error)
	ClearCart(ctx context.Context, cartID string) (Cart, error)
	Summarize(ctx context.Context, cartID string) (CartSummary, error)
}

// OrderService materializes carts into immutable orders and drives the status machine.
type OrderService interface {
	CreateFromCart(ctx context.Context, cmd CreateOrderFromCartCommand) (Order, error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
	TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error)
	Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error)
}

// CommissionService computes and voids per (order, brand) commission rows.
type CommissionService interface {
	CalculateForOrder(ctx context.Context, orderID string) ([]Commission, error)
	VoidForOrder(ctx context.Context, orderID string) error
	ListCommissions(ctx context.Context, filter CommissionListFilter) (domain.CursorPage[Commission], error)
}

// PayoutService batches delivered-order commissions into per (consultant, cycle) payouts.
type PayoutService interface {
	GeneratePayout(ctx context.Context, cmd GeneratePayoutCommand) (PayoutResult, error)
	MarkPayoutAsPaid(ctx context.Context, payoutID string) (Payout, error)
	GetPayout(ctx context.Context, payoutID string) (Payout, error)
	ListPayouts(ctx context.Context, filter PayoutListFilter) (domain.CursorPage[Payout], error)
}

// CycleService manages sales cycles, their price overrides, and promotions.
type CycleService interface {
	ActiveCycle(ctx context.Context) (Cycle, error)
	GetCycle(ctx context.Context, cycleID string) (Cycle, error)
	ListCycles(ctx context.Context, pager Pagination) (domain.CursorPage[Cycle], error)
	UpsertCycle(ctx context.Context, cmd UpsertCycleCommand) (Cycle, error)
	SetCyclePrice(ctx context.Context, cmd SetCyclePriceCommand) (CyclePrice, error)
	ListCyclePrices(ctx context.Context, cycleID string) ([]CyclePrice, error)
	UpsertPromotion(ctx context.Context, cmd UpsertPromotionCommand) (Promotion, error)
	ListPromotions(ctx context.Context, cycleID string) ([]Promotion, error)
}

// CatalogService exposes brand and product reference data.
type CatalogService interface {
	GetProduct(ctx context.Context, productID string) (Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) (domain.CursorPage[Product], error)
	UpsertProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error)
	GetBrand(ctx context.Context, brandID string) (Brand, error)
	ListBrands(ctx context.Context, filter BrandFilter) (domain.CursorPage[Brand], error)
	UpsertBrand(ctx context.Context, cmd UpsertBrandCommand) (Brand, error)
}

// ConsultantService resolves consultant profiles for storefront and notification routing.
type ConsultantService interface {
	GetConsultant(ctx context.Context, consultantID string) (Consultant, error)
	GetConsultantBySlug(ctx context.Context, slug string) (Consultant, error)
	UpsertConsultant(ctx context.Context, cmd UpsertConsultantCommand) (Consultant, error)
}

// SystemService exposes operational utilities such as health reporting.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// CounterService issues formatted sequence values such as order numbers.
type CounterService interface {
	Next(ctx context.Context, scope, name string, opts CounterGenerationOptions) (CounterValue, error)
	NextOrderNumber(ctx context.Context) (string, error)
}

// CounterGenerationOptions controls how counter values are incremented and formatted.
type CounterGenerationOptions struct {
	Step         int64
	Prefix       string
	Suffix       string
	PadLength    int
	MaxValue     *int64
	InitialValue *int64
	Formatter    func(now time.Time, value int64) string
}

// CounterValue carries both the raw sequence value and its formatted representation.
type CounterValue struct {
	Value     int64
	Formatted string
}

// Notifier hands notifications to the external notification channel. Delivery is
// fire-and-forget; failures are logged and never affect the calling operation.
type Notifier interface {
	Send(ctx context.Context, notification Notification) error
}

// Command DTOs ---------------------------------------------------------------

// GetOrCreateCartCommand identifies the cart session and its owning consultant.
type GetOrCreateCartCommand struct {
	CartID       string
	ConsultantID string
	CycleID      string
}

// AddCartItemCommand adds quantity of a product to the cart, merging with an existing
// line for the same product.
type AddCartItemCommand struct {
	CartID          string
	ConsultantID    string
	ProductID       string
	Quantity        int
	SelectedVariant *ProductVariant
}

// UpdateCartItemQuantityCommand sets the absolute quantity of a cart line. Zero or
// negative removes the line.
type UpdateCartItemQuantityCommand struct {
	CartID    string
	ProductID string
	Quantity  int
}

// RemoveCartItemCommand deletes one cart line.
type RemoveCartItemCommand struct {
	CartID    string
	ProductID string
}

// CreateOrderFromCartCommand materializes the cart into an order.
type CreateOrderFromCartCommand struct {
	CartID       string
	ConsultantID string
	CustomerID   *string
	ClientName   string
	ClientPhone  string
}

// OrderStatusTransitionCommand moves an order along the status machine.
type OrderStatusTransitionCommand struct {
	OrderID        string
	TargetStatus   OrderStatus
	ExpectedStatus *OrderStatus
	Reason         string
}

// CancelOrderCommand cancels an order from any non-terminal status.
type CancelOrderCommand struct {
	OrderID        string
	ExpectedStatus *OrderStatus
	Reason         string
}

// GeneratePayoutCommand requests payout generation for one consultant and cycle.
type GeneratePayoutCommand struct {
	ConsultantID string
	CycleID      string
}

// PayoutResult reports the outcome of a generation request. NothingToPay is set when no
// eligible commissions exist; AlreadyExists is set when the pair was generated before
// and Payout carries that earlier payout.
type PayoutResult struct {
	Payout        Payout
	NothingToPay  bool
	AlreadyExists bool
}

// UpsertCycleCommand creates or updates a sales cycle.
type UpsertCycleCommand struct {
	ID       string
	Name     string
	StartsAt time.Time
	EndsAt   time.Time
	Active   bool
}

// SetCyclePriceCommand sets the price override for one (cycle, product) pair.
type SetCyclePriceCommand struct {
	CycleID     string
	ProductID   string
	Price       int64
	Promotional bool
}

// UpsertPromotionCommand creates or updates a cycle-scoped promotion.
type UpsertPromotionCommand struct {
	ID            string
	Name          string
	CycleID       string
	DiscountType  domain.DiscountType
	DiscountValue int64
	StartsAt      time.Time
	EndsAt        time.Time
	Active        bool
	ProductIDs    []string
}

// UpsertProductCommand creates or updates a catalog product.
type UpsertProductCommand struct {
	ID              string
	SKU             string
	Name            string
	Description     string
	BasePrice       int64
	Points          int
	BrandID         string
	IsRefill        bool
	ParentProductID *string
	Variants        []ProductVariant
	Active          bool
}

// UpsertBrandCommand creates or updates a brand.
type UpsertBrandCommand struct {
	ID                       string
	Name                     string
	Slug                     string
	DefaultCommissionRateBps int64
	Active                   bool
}

// UpsertConsultantCommand creates or updates a consultant profile.
type UpsertConsultantCommand struct {
	ID     string
	Slug   string
	Name   string
	Email  string
	Phone  string
	Active bool
}
