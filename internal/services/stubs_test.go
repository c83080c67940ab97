package services

import (
	"context"
	"errors"
	"time"

	domain "github.com/vessia-direct/api/internal/domain"
	"github.com/vessia-direct/api/internal/repositories"
)

type repoError struct {
	message     string
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e repoError) Error() string       { return e.message }
func (e repoError) IsNotFound() bool    { return e.notFound }
func (e repoError) IsConflict() bool    { return e.conflict }
func (e repoError) IsUnavailable() bool { return e.unavailable }

var _ repositories.RepositoryError = repoError{}

type stubBrandRepo struct {
	upsertFn func(context.Context, domain.Brand) (domain.Brand, error)
	findFn   func(context.Context, string) (domain.Brand, error)
	listFn   func(context.Context, repositories.BrandFilter) (domain.CursorPage[domain.Brand], error)
}

func (s *stubBrandRepo) Upsert(ctx context.Context, brand domain.Brand) (domain.Brand, error) {
	if s.upsertFn != nil {
		return s.upsertFn(ctx, brand)
	}
	return brand, nil
}

func (s *stubBrandRepo) FindByID(ctx context.Context, brandID string) (domain.Brand, error) {
	if s.findFn != nil {
		return s.findFn(ctx, brandID)
	}
	return domain.Brand{}, repoError{message: "brand not found", notFound: true}
}

func (s *stubBrandRepo) List(ctx context.Context, filter repositories.BrandFilter) (domain.CursorPage[domain.Brand], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Brand]{}, nil
}

type stubProductRepo struct {
	upsertFn  func(context.Context, domain.Product) (domain.Product, error)
	findFn    func(context.Context, string) (domain.Product, error)
	findSKUFn func(context.Context, string) (domain.Product, error)
	listFn    func(context.Context, repositories.ProductFilter) (domain.CursorPage[domain.Product], error)
}

func (s *stubProductRepo) Upsert(ctx context.Context, product domain.Product) (domain.Product, error) {
	if s.upsertFn != nil {
		return s.upsertFn(ctx, product)
	}
	return product, nil
}

func (s *stubProductRepo) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if s.findFn != nil {
		return s.findFn(ctx, productID)
	}
	return domain.Product{}, repoError{message: "product not found", notFound: true}
}

func (s *stubProductRepo) FindBySKU(ctx context.Context, sku string) (domain.Product, error) {
	if s.findSKUFn != nil {
		return s.findSKUFn(ctx, sku)
	}
	return domain.Product{}, repoError{message: "product not found", notFound: true}
}

func (s *stubProductRepo) List(ctx context.Context, filter repositories.ProductFilter) (domain.CursorPage[domain.Product], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Product]{}, nil
}

type stubCycleRepo struct {
	upsertFn     func(context.Context, domain.Cycle) (domain.Cycle, error)
	findFn       func(context.Context, string) (domain.Cycle, error)
	findActiveFn func(context.Context) (domain.Cycle, error)
	listFn       func(context.Context, domain.Pagination) (domain.CursorPage[domain.Cycle], error)
}

func (s *stubCycleRepo) Upsert(ctx context.Context, cycle domain.Cycle) (domain.Cycle, error) {
	if s.upsertFn != nil {
		return s.upsertFn(ctx, cycle)
	}
	return cycle, nil
}

func (s *stubCycleRepo) FindByID(ctx context.Context, cycleID string) (domain.Cycle, error) {
	if s.findFn != nil {
		return s.findFn(ctx, cycleID)
	}
	return domain.Cycle{}, repoError{message: "cycle not found", notFound: true}
}

func (s *stubCycleRepo) FindActive(ctx context.Context) (domain.Cycle, error) {
	if s.findActiveFn != nil {
		return s.findActiveFn(ctx)
	}
	return domain.Cycle{}, repoError{message: "no active cycle", notFound: true}
}

func (s *stubCycleRepo) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Cycle], error) {
	if s.listFn != nil {
		return s.listFn(ctx, pager)
	}
	return domain.CursorPage[domain.Cycle]{}, nil
}

type stubCyclePriceRepo struct {
	upsertFn func(context.Context, domain.CyclePrice) (domain.CyclePrice, error)
	findFn   func(context.Context, string, string) (domain.CyclePrice, error)
	listFn   func(context.Context, string) ([]domain.CyclePrice, error)
}

func (s *stubCyclePriceRepo) Upsert(ctx context.Context, price domain.CyclePrice) (domain.CyclePrice, error) {
	if s.upsertFn != nil {
		return s.upsertFn(ctx, price)
	}
	return price, nil
}

func (s *stubCyclePriceRepo) Find(ctx context.Context, cycleID string, productID string) (domain.CyclePrice, error) {
	if s.findFn != nil {
		return s.findFn(ctx, cycleID, productID)
	}
	return domain.CyclePrice{}, repoError{message: "cycle price not found", notFound: true}
}

func (s *stubCyclePriceRepo) ListByCycle(ctx context.Context, cycleID string) ([]domain.CyclePrice, error) {
	if s.listFn != nil {
		return s.listFn(ctx, cycleID)
	}
	return nil, nil
}

type stubPromotionRepo struct {
	upsertFn func(context.Context, domain.Promotion) (domain.Promotion, error)
	findFn   func(context.Context, string) (domain.Promotion, error)
	listFn   func(context.Context, string) ([]domain.Promotion, error)
}

func (s *stubPromotionRepo) Upsert(ctx context.Context, promotion domain.Promotion) (domain.Promotion, error) {
	if s.upsertFn != nil {
		return s.upsertFn(ctx, promotion)
	}
	return promotion, nil
}

func (s *stubPromotionRepo) FindByID(ctx context.Context, promotionID string) (domain.Promotion, error) {
	if s.findFn != nil {
		return s.findFn(ctx, promotionID)
	}
	return domain.Promotion{}, repoError{message: "promotion not found", notFound: true}
}

func (s *stubPromotionRepo) ListByCycle(ctx context.Context, cycleID string) ([]domain.Promotion, error) {
	if s.listFn != nil {
		return s.listFn(ctx, cycleID)
	}
	return nil, nil
}

type stubConsultantRepo struct {
	upsertFn func(context.Context, domain.Consultant) (domain.Consultant, error)
	findFn   func(context.Context, string) (domain.Consultant, error)
	slugFn   func(context.Context, string) (domain.Consultant, error)
}

func (s *stubConsultantRepo) Upsert(ctx context.Context, consultant domain.Consultant) (domain.Consultant, error) {
	if s.upsertFn != nil {
		return s.upsertFn(ctx, consultant)
	}
	return consultant, nil
}

func (s *stubConsultantRepo) FindByID(ctx context.Context, consultantID string) (domain.Consultant, error) {
	if s.findFn != nil {
		return s.findFn(ctx, consultantID)
	}
	return domain.Consultant{}, repoError{message: "consultant not found", notFound: true}
}

func (s *stubConsultantRepo) FindBySlug(ctx context.Context, slug string) (domain.Consultant, error) {
	if s.slugFn != nil {
		return s.slugFn(ctx, slug)
	}
	return domain.Consultant{}, repoError{message: "consultant not found", notFound: true}
}

type stubCartRepo struct {
	upsertFn  func(context.Context, domain.Cart) (domain.Cart, error)
	getFn     func(context.Context, string) (domain.Cart, error)
	replaceFn func(context.Context, string, []domain.CartItem, time.Time) (domain.Cart, error)
}

func (s *stubCartRepo) UpsertCart(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if s.upsertFn != nil {
		return s.upsertFn(ctx, cart)
	}
	return cart, nil
}

func (s *stubCartRepo) GetCart(ctx context.Context, cartID string) (domain.Cart, error) {
	if s.getFn != nil {
		return s.getFn(ctx, cartID)
	}
	return domain.Cart{}, repoError{message: "cart not found", notFound: true}
}

func (s *stubCartRepo) ReplaceItems(ctx context.Context, cartID string, items []domain.CartItem, updatedAt time.Time) (domain.Cart, error) {
	if s.replaceFn != nil {
		return s.replaceFn(ctx, cartID, items, updatedAt)
	}
	return domain.Cart{ID: cartID, Items: items, UpdatedAt: updatedAt}, nil
}

type stubOrderRepo struct {
	insertFn func(context.Context, domain.Order) error
	updateFn func(context.Context, domain.Order) error
	findFn   func(context.Context, string) (domain.Order, error)
	listFn   func(context.Context, repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)
}

func (s *stubOrderRepo) Insert(ctx context.Context, order domain.Order) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) Update(ctx context.Context, order domain.Order) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepo) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Order]{}, nil
}

type stubCommissionRepo struct {
	insertFn      func(context.Context, domain.Commission) error
	updateFn      func(context.Context, domain.Commission) error
	findFn        func(context.Context, string) (domain.Commission, error)
	listByOrderFn func(context.Context, string) ([]domain.Commission, error)
	listFn        func(context.Context, repositories.CommissionListFilter) (domain.CursorPage[domain.Commission], error)
}

func (s *stubCommissionRepo) Insert(ctx context.Context, commission domain.Commission) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, commission)
	}
	return nil
}

func (s *stubCommissionRepo) Update(ctx context.Context, commission domain.Commission) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, commission)
	}
	return nil
}

func (s *stubCommissionRepo) FindByID(ctx context.Context, commissionID string) (domain.Commission, error) {
	if s.findFn != nil {
		return s.findFn(ctx, commissionID)
	}
	return domain.Commission{}, repoError{message: "commission not found", notFound: true}
}

func (s *stubCommissionRepo) ListByOrder(ctx context.Context, orderID string) ([]domain.Commission, error) {
	if s.listByOrderFn != nil {
		return s.listByOrderFn(ctx, orderID)
	}
	return nil, nil
}

func (s *stubCommissionRepo) List(ctx context.Context, filter repositories.CommissionListFilter) (domain.CursorPage[domain.Commission], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Commission]{}, nil
}

type stubPayoutRepo struct {
	insertFn   func(context.Context, domain.Payout) (domain.Payout, error)
	updateFn   func(context.Context, domain.Payout) error
	findFn     func(context.Context, string) (domain.Payout, error)
	findPairFn func(context.Context, string, string) (domain.Payout, error)
	listFn     func(context.Context, repositories.PayoutListFilter) (domain.CursorPage[domain.Payout], error)
}

func (s *stubPayoutRepo) Insert(ctx context.Context, payout domain.Payout) (domain.Payout, error) {
	if s.insertFn != nil {
		return s.insertFn(ctx, payout)
	}
	payout.ID = payout.ConsultantID + "_" + payout.CycleID
	return payout, nil
}

func (s *stubPayoutRepo) Update(ctx context.Context, payout domain.Payout) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, payout)
	}
	return nil
}

func (s *stubPayoutRepo) FindByID(ctx context.Context, payoutID string) (domain.Payout, error) {
	if s.findFn != nil {
		return s.findFn(ctx, payoutID)
	}
	return domain.Payout{}, repoError{message: "payout not found", notFound: true}
}

func (s *stubPayoutRepo) FindByConsultantCycle(ctx context.Context, consultantID string, cycleID string) (domain.Payout, error) {
	if s.findPairFn != nil {
		return s.findPairFn(ctx, consultantID, cycleID)
	}
	return domain.Payout{}, repoError{message: "payout not found", notFound: true}
}

func (s *stubPayoutRepo) List(ctx context.Context, filter repositories.PayoutListFilter) (domain.CursorPage[domain.Payout], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Payout]{}, nil
}

type stubCounterRepo struct {
	nextFn func(context.Context, string, int64) (int64, error)
}

func (s *stubCounterRepo) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if s.nextFn != nil {
		return s.nextFn(ctx, counterID, step)
	}
	return 1, nil
}

func (s *stubCounterRepo) Configure(context.Context, string, repositories.CounterConfig) error {
	return nil
}

type stubUnitOfWork struct {
	runFn func(context.Context, func(context.Context) error) error
	calls int
}

func (s *stubUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	s.calls++
	if s.runFn != nil {
		return s.runFn(ctx, fn)
	}
	return fn(ctx)
}

type captureNotifier struct {
	sent []domain.Notification
	err  error
}

func (c *captureNotifier) Send(_ context.Context, notification domain.Notification) error {
	c.sent = append(c.sent, notification)
	return c.err
}

type stubCommissionService struct {
	calculateFn func(context.Context, string) ([]Commission, error)
	voidFn      func(context.Context, string) error
}

func (s *stubCommissionService) CalculateForOrder(ctx context.Context, orderID string) ([]Commission, error) {
	if s.calculateFn != nil {
		return s.calculateFn(ctx, orderID)
	}
	return nil, nil
}

func (s *stubCommissionService) VoidForOrder(ctx context.Context, orderID string) error {
	if s.voidFn != nil {
		return s.voidFn(ctx, orderID)
	}
	return nil
}

func (s *stubCommissionService) ListCommissions(context.Context, CommissionListFilter) (domain.CursorPage[Commission], error) {
	return domain.CursorPage[Commission]{}, errors.New("not implemented")
}

type stubPricer struct {
	resolveFn func(context.Context, string, string) (PriceQuote, error)
	quoteFn   func(context.Context, Cart) (CartSummary, error)
}

func (s *stubPricer) ResolvePrice(ctx context.Context, cycleID string, productID string) (PriceQuote, error) {
	if s.resolveFn != nil {
		return s.resolveFn(ctx, cycleID, productID)
	}
	return PriceQuote{}, errors.New("not implemented")
}

func (s *stubPricer) QuoteCart(ctx context.Context, cart Cart) (CartSummary, error) {
	if s.quoteFn != nil {
		return s.quoteFn(ctx, cart)
	}
	return CartSummary{}, errors.New("not implemented")
}
