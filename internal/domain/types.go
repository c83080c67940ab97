package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// Brand is the catalog owner a product belongs to. Commission rates are copied off the
// brand at calculation time, never referenced live.
type Brand struct {
	ID                       string
	Name                     string
	Slug                     string
	DefaultCommissionRateBps int64
	Active                   bool
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// ProductVariant is a selectable variation of a product (shade, size, color).
type ProductVariant struct {
	Name  string
	SKU   string
	Color string
}

// Product is a catalog item. Once referenced by an order it is treated as immutable
// history; catalog edits only affect future carts.
type Product struct {
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
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Cycle is a time-boxed sales campaign. At most one cycle is active system-wide at any
// moment; this engine consumes that invariant, it does not enforce it.
type Cycle struct {
	ID        string
	Name      string
	StartsAt  time.Time
	EndsAt    time.Time
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CyclePrice overrides a product's base price for one cycle. At most one row exists per
// (cycle, product) pair; the store enforces this through the composite document key.
type CyclePrice struct {
	CycleID     string
	ProductID   string
	Price       int64
	Promotional bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DiscountType enumerates how a promotion derives the discounted price.
type DiscountType string

const (
	// DiscountPercentage subtracts a percentage of the base price.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixedPrice replaces the base price with an absolute value.
	DiscountFixedPrice DiscountType = "fixed_price"
)

// Promotion is a campaign scoped to a single cycle targeting a set of products.
// DiscountValue is basis points for percentage promotions and céntimos for fixed-price
// promotions.
type Promotion struct {
	ID            string
	Name          string
	CycleID       string
	DiscountType  DiscountType
	DiscountValue int64
	StartsAt      time.Time
	EndsAt        time.Time
	Active        bool
	ProductIDs    []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Consultant is the selling principal. Identity resolution happens upstream; the engine
// always receives consultant IDs explicitly.
type Consultant struct {
	ID        string
	Slug      string
	Name      string
	Email     string
	Phone     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem is one product line inside a mutable cart. Quantity is always >= 1; updates
// that would drop it to zero or below remove the line instead.
type CartItem struct {
	ID              string
	ProductID       string
	Quantity        int
	SelectedVariant *ProductVariant
	AddedAt         time.Time
	UpdatedAt       time.Time
}

// Cart is the mutable pre-order container, keyed by an opaque session token. Carts are
// emptied, not deleted, when materialized into an order. Carts never store prices; every
// display pass re-prices through the pricing engine.
type Cart struct {
	ID           string
	ConsultantID string
	CycleID      string
	Items        []CartItem
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PriceQuote is the pricing engine's resolution for one product in one cycle.
// UnitPrice is the pre-discount price, FinalPrice the effective one; both are snapshotted
// onto order items so discount provenance survives later catalog changes.
type PriceQuote struct {
	UnitPrice   int64
	FinalPrice  int64
	Discounted  bool
	PromotionID *string
}

// CartLine is a priced view of a cart item, computed live for display.
type CartLine struct {
	Item      CartItem
	Name      string
	SKU       string
	BrandID   string
	Points    int
	IsRefill  bool
	Quote     PriceQuote
	LineTotal int64
}

// CartSummary aggregates the live-priced cart for UI display. It is never persisted as
// order truth.
type CartSummary struct {
	CartID        string
	CycleID       string
	Lines         []CartLine
	Subtotal      int64
	DiscountTotal int64
	Total         int64
	TotalPoints   int
	ItemCount     int
}

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPending indicates the order is materialized but not yet confirmed.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed indicates the consultant confirmed the order; commissions are
	// calculated on the first entry into this state.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusOrderedToBrand indicates the order was forwarded to the brand.
	OrderStatusOrderedToBrand OrderStatus = "ordered_to_brand"
	// OrderStatusInTransit indicates the brand shipped the order.
	OrderStatusInTransit OrderStatus = "in_transit"
	// OrderStatusDelivered indicates terminal successful delivery; commissions become
	// payout-eligible only here.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCanceled indicates terminal cancellation; commissions are voided.
	OrderStatusCanceled OrderStatus = "canceled"
)

// OrderItem is an immutable snapshot row. UnitPrice (pre-discount) and FinalPrice
// (post-discount) are both preserved as the audit trail for discount provenance. None of
// these fields change after the order is written.
type OrderItem struct {
	ProductID        string
	Quantity         int
	NameSnapshot     string
	SKUSnapshot      string
	PointsSnapshot   int
	IsRefillSnapshot bool
	UnitPrice        int64
	FinalPrice       int64
	PromotionID      *string
	SelectedVariant  *ProductVariant
}

// OrderTotals holds rolled-up monetary fields in céntimos.
type OrderTotals struct {
	Subtotal int64
	Discount int64
	Total    int64
}

// Order is the immutable business record produced by materializing a cart. Only the
// status and its timestamps ever change after creation, and only through the status
// state machine.
type Order struct {
	ID              string
	Number          string
	ConsultantID    string
	CycleID         string
	CustomerID      *string
	Status          OrderStatus
	Totals          OrderTotals
	ClientName      string
	ClientPhone     string
	Items           []OrderItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ConfirmedAt     *time.Time
	DeliveredAt     *time.Time
	CanceledAt      *time.Time
	StatusUpdatedAt time.Time
}

// CommissionStatus enumerates lifecycle states for commissions.
type CommissionStatus string

const (
	// CommissionStatusValid indicates the commission counts toward payouts.
	CommissionStatusValid CommissionStatus = "valid"
	// CommissionStatusCancelled indicates the originating order was canceled.
	CommissionStatusCancelled CommissionStatus = "cancelled"
)

// Commission is the per-(order, brand) settlement row. GrossAmount and the copied rate
// are write-once; only Status and PayoutID flip afterwards.
type Commission struct {
	ID                string
	OrderID           string
	BrandID           string
	ConsultantID      string
	CycleID           string
	GrossAmount       int64
	CommissionRateBps int64
	CommissionAmount  int64
	Status            CommissionStatus
	PayoutID          *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PayoutStatus enumerates lifecycle states for payouts.
type PayoutStatus string

const (
	// PayoutStatusPending indicates the payout batch awaits payment.
	PayoutStatusPending PayoutStatus = "pending"
	// PayoutStatusPaid indicates the payout was settled; there is no reversal.
	PayoutStatusPaid PayoutStatus = "paid"
)

// Payout batches eligible commissions for one (consultant, cycle) pair. The pairing is a
// uniqueness constraint enforced by the composite document key.
type Payout struct {
	ID              string
	ConsultantID    string
	CycleID         string
	TotalAmount     int64
	CommissionCount int
	Status          PayoutStatus
	GeneratedAt     time.Time
	PaidAt          *time.Time
}

// NotificationType enumerates the notification kinds emitted by this engine.
type NotificationType string

const (
	// NotificationOrderCreated is sent when a cart is materialized into an order.
	NotificationOrderCreated NotificationType = "ORDER_CREATED"
	// NotificationOrderConfirmed is sent on transition to confirmed.
	NotificationOrderConfirmed NotificationType = "ORDER_CONFIRMED"
	// NotificationOrderInTransit is sent on transition to in_transit.
	NotificationOrderInTransit NotificationType = "ORDER_IN_TRANSIT"
	// NotificationOrderDelivered is sent on transition to delivered.
	NotificationOrderDelivered NotificationType = "ORDER_DELIVERED"
	// NotificationOrderCanceled is sent on transition to canceled.
	NotificationOrderCanceled NotificationType = "ORDER_CANCELED"
	// NotificationPayoutAvailable is sent when a payout batch is generated.
	NotificationPayoutAvailable NotificationType = "PAYOUT_AVAILABLE"
)

// RecipientType distinguishes notification audiences.
type RecipientType string

const (
	// RecipientConsultant targets the selling consultant.
	RecipientConsultant RecipientType = "CONSULTANT"
	// RecipientCustomer targets the end customer.
	RecipientCustomer RecipientType = "CUSTOMER"
)

// Notification is the payload handed to the external notification service. The engine
// treats delivery as fire-and-forget and never inspects the outcome for control flow.
type Notification struct {
	Type          NotificationType
	RecipientType RecipientType
	RecipientID   string
	Context       map[string]any
}

// Health status values reported by the system health endpoint.
const (
	// HealthStatusOK indicates the dependency responded normally.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates the dependency responded with an error.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the dependency timed out or was cancelled.
	HealthStatusError = "error"
)

// SystemHealthCheck captures the outcome of one dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}
