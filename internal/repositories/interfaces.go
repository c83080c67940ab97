package repositories

import (
	"context"
	"time"

	domain "github.com/vessia-direct/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Brands() BrandRepository
	Products() ProductRepository
	Cycles() CycleRepository
	CyclePrices() CyclePriceRepository
	Promotions() PromotionRepository
	Consultants() ConsultantRepository
	Carts() CartRepository
	Orders() OrderRepository
	Commissions() CommissionRepository
	Payouts() PayoutRepository
	Counters() CounterRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// BrandRepository stores brand reference data including default commission rates.
type BrandRepository interface {
	Upsert(ctx context.Context, brand domain.Brand) (domain.Brand, error)
	FindByID(ctx context.Context, brandID string) (domain.Brand, error)
	List(ctx context.Context, filter BrandFilter) (domain.CursorPage[domain.Brand], error)
}

// ProductRepository stores catalog products. Order items hold snapshots, so product
// mutations never rewrite history.
type ProductRepository interface {
	Upsert(ctx context.Context, product domain.Product) (domain.Product, error)
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	FindBySKU(ctx context.Context, sku string) (domain.Product, error)
	List(ctx context.Context, filter ProductFilter) (domain.CursorPage[domain.Product], error)
}

// CycleRepository stores sales cycles and resolves the single active one.
type CycleRepository interface {
	Upsert(ctx context.Context, cycle domain.Cycle) (domain.Cycle, error)
	FindByID(ctx context.Context, cycleID string) (domain.Cycle, error)
	FindActive(ctx context.Context) (domain.Cycle, error)
	List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Cycle], error)
}

// CyclePriceRepository stores per (cycle, product) price overrides. Implementations key
// rows by the pair so at most one override can exist per pair.
type CyclePriceRepository interface {
	Upsert(ctx context.Context, price domain.CyclePrice) (domain.CyclePrice, error)
	Find(ctx context.Context, cycleID string, productID string) (domain.CyclePrice, error)
	ListByCycle(ctx context.Context, cycleID string) ([]domain.CyclePrice, error)
}

// PromotionRepository stores cycle-scoped promotion campaigns. ListByCycle returns
// promotions in creation order so tie-breaks between overlapping campaigns stay
// deterministic.
type PromotionRepository interface {
	Upsert(ctx context.Context, promotion domain.Promotion) (domain.Promotion, error)
	FindByID(ctx context.Context, promotionID string) (domain.Promotion, error)
	ListByCycle(ctx context.Context, cycleID string) ([]domain.Promotion, error)
}

// ConsultantRepository stores consultant profiles used for notification routing.
type ConsultantRepository interface {
	Upsert(ctx context.Context, consultant domain.Consultant) (domain.Consultant, error)
	FindByID(ctx context.Context, consultantID string) (domain.Consultant, error)
	FindBySlug(ctx context.Context, slug string) (domain.Consultant, error)
}

// CartRepository owns cart header + item persistence keyed by the cart token.
type CartRepository interface {
	UpsertCart(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	GetCart(ctx context.Context, cartID string) (domain.Cart, error)
	ReplaceItems(ctx context.Context, cartID string, items []domain.CartItem, updatedAt time.Time) (domain.Cart, error)
}

// OrderRepository persists order snapshots and provides query helpers.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
}

// CommissionRepository persists per (order, brand) commission rows. Insert must fail
// with a conflict when a row for the same pair already exists; that constraint is what
// turns calculator idempotency from advisory into structural.
type CommissionRepository interface {
	Insert(ctx context.Context, commission domain.Commission) error
	Update(ctx context.Context, commission domain.Commission) error
	FindByID(ctx context.Context, commissionID string) (domain.Commission, error)
	ListByOrder(ctx context.Context, orderID string) ([]domain.Commission, error)
	List(ctx context.Context, filter CommissionListFilter) (domain.CursorPage[domain.Commission], error)
}

// PayoutRepository persists payout batches. Insert must fail with a conflict when a
// payout for the same (consultant, cycle) pair already exists, and returns the payout
// with its assigned ID so callers can attach commissions in the same transaction.
type PayoutRepository interface {
	Insert(ctx context.Context, payout domain.Payout) (domain.Payout, error)
	Update(ctx context.Context, payout domain.Payout) error
	FindByID(ctx context.Context, payoutID string) (domain.Payout, error)
	FindByConsultantCycle(ctx context.Context, consultantID string, cycleID string) (domain.Payout, error)
	List(ctx context.Context, filter PayoutListFilter) (domain.CursorPage[domain.Payout], error)
}

// CounterRepository issues monotonically increasing sequence values, used for
// human-readable order numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
	Configure(ctx context.Context, counterID string, cfg CounterConfig) error
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// CounterConfig tunes sequence behaviour for a counter document.
type CounterConfig struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
}

// Filter DTOs shared across repositories ------------------------------------

type BrandFilter struct {
	OnlyActive bool
	Pagination domain.Pagination
}

type ProductFilter struct {
	BrandID    *string
	IsRefill   *bool
	OnlyActive bool
	Pagination domain.Pagination
}

type OrderListFilter struct {
	ConsultantID string
	CycleID      string
	CustomerID   string
	Status       []domain.OrderStatus
	DateRange    domain.RangeQuery[time.Time]
	Pagination   domain.Pagination
}

type CommissionListFilter struct {
	ConsultantID string
	CycleID      string
	OrderID      string
	Status       []domain.CommissionStatus
	// Unattached restricts results to commissions with no payout assigned yet.
	Unattached bool
	Pagination domain.Pagination
}

type PayoutListFilter struct {
	ConsultantID string
	CycleID      string
	Status       []domain.PayoutStatus
	Pagination   domain.Pagination
}
