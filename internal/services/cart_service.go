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

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartNotFound indicates the requested cart does not exist.
var ErrCartNotFound = errors.New("cart service: not found")

// ErrCartConflict indicates the cart could not be updated due to concurrent modifications.
var ErrCartConflict = errors.New("cart service: conflict")

// ErrCartUnavailable indicates the cart service cannot fulfil the request due to missing
// dependencies or backend issues.
var ErrCartUnavailable = errors.New("cart service: unavailable")

const maxCartLineQuantity = 999

// CartServiceDeps wires the repository and pricing dependencies for cart operations.
type CartServiceDeps struct {
	Carts       repositories.CartRepository
	Cycles      repositories.CycleRepository
	Products    repositories.ProductRepository
	Pricer      PricingResolver
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type cartService struct {
	carts    repositories.CartRepository
	cycles   repositories.CycleRepository
	products repositories.ProductRepository
	pricer   PricingResolver
	newID    func() string
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, errors.New("cart service: cart repository is required")
	}
	if deps.Cycles == nil {
		return nil, errors.New("cart service: cycle repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("cart service: product repository is required")
	}
	if deps.Pricer == nil {
		return nil, errors.New("cart service: pricing resolver is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &cartService{
		carts:    deps.Carts,
		cycles:   deps.Cycles,
		products: deps.Products,
		pricer:   deps.Pricer,
		newID:    idGen,
		now:      func() time.Time { return clock().UTC() },
		logger:   logger,
	}, nil
}

// GetOrCreateCart loads the cart for the session token, creating an empty cart bound to
// the active cycle when absent.
func (s *cartService) GetOrCreateCart(ctx context.Context, cmd GetOrCreateCartCommand) (Cart, error) {
	cartID := strings.TrimSpace(cmd.CartID)
	consultantID := strings.TrimSpace(cmd.ConsultantID)
	if cartID == "" {
		return Cart{}, fmt.Errorf("%w: cart id is required", ErrCartInvalidInput)
	}
	if consultantID == "" {
		return Cart{}, fmt.Errorf("%w: consultant id is required", ErrCartInvalidInput)
	}

	cart, err := s.carts.GetCart(ctx, cartID)
	if err == nil {
		return cart, nil
	}
	if !isRepoNotFound(err) {
		return Cart{}, s.translateRepoError(err)
	}

	cycleID := strings.TrimSpace(cmd.CycleID)
	if cycleID == "" {
		cycle, err := s.cycles.FindActive(ctx)
		if err != nil {
			return Cart{}, s.translateRepoError(err)
		}
		cycleID = cycle.ID
	}

	now := s.now()
	created := domain.Cart{
		ID:           cartID,
		ConsultantID: consultantID,
		CycleID:      cycleID,
		Items:        nil,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	saved, err := s.carts.UpsertCart(ctx, created)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	return saved, nil
}

// AddItem adds quantity of a product, merging with an existing line for the same
// product. Prices are not stored; summaries re-price on demand.
func (s *cartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error) {
	cartID := strings.TrimSpace(cmd.CartID)
	productID := strings.TrimSpace(cmd.ProductID)
	if cartID == "" {
		return Cart{}, fmt.Errorf("%w: cart id is required", ErrCartInvalidInput)
	}
	if productID == "" {
		return Cart{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	if cmd.Quantity <= 0 {
		return Cart{}, fmt.Errorf("%w: quantity must be positive", ErrCartInvalidInput)
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	if !product.Active {
		return Cart{}, fmt.Errorf("%w: product %q is not purchasable", ErrCartInvalidInput, productID)
	}

	cart, err := s.loadOrCreate(ctx, cartID, strings.TrimSpace(cmd.ConsultantID))
	if err != nil {
		return Cart{}, err
	}

	now := s.now()
	items := cloneCartItems(cart.Items)
	idx := indexOfCartItem(items, productID)
	if idx >= 0 {
		merged := items[idx].Quantity + cmd.Quantity
		if merged > maxCartLineQuantity {
			merged = maxCartLineQuantity
		}
		items[idx].Quantity = merged
		items[idx].UpdatedAt = now
		if cmd.SelectedVariant != nil {
			items[idx].SelectedVariant = cloneVariant(cmd.SelectedVariant)
		}
	} else {
		items = append(items, domain.CartItem{
			ID:              s.newID(),
			ProductID:       productID,
			Quantity:        cmd.Quantity,
			SelectedVariant: cloneVariant(cmd.SelectedVariant),
			AddedAt:         now,
			UpdatedAt:       now,
		})
	}

	saved, err := s.carts.ReplaceItems(ctx, cart.ID, items, now)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	return saved, nil
}

// UpdateItemQuantity sets the absolute quantity of a line. Zero or negative removes the
// line rather than leaving an empty row behind.
func (s *cartService) UpdateItemQuantity(ctx context.Context, cmd UpdateCartItemQuantityCommand) (Cart, error) {
	cartID := strings.TrimSpace(cmd.CartID)
	productID := strings.TrimSpace(cmd.ProductID)
	if cartID == "" {
		return Cart{}, fmt.Errorf("%w: cart id is required", ErrCartInvalidInput)
	}
	if productID == "" {
		return Cart{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}

	cart, err := s.carts.GetCart(ctx, cartID)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}

	items := cloneCartItems(cart.Items)
	idx := indexOfCartItem(items, productID)
	if idx < 0 {
		return Cart{}, fmt.Errorf("%w: product %q is not in the cart", ErrCartNotFound, productID)
	}

	now := s.now()
	if cmd.Quantity <= 0 {
		items = append(items[:idx], items[idx+1:]...)
	} else {
		quantity := cmd.Quantity
		if quantity > maxCartLineQuantity {
			quantity = maxCartLineQuantity
		}
		items[idx].Quantity = quantity
		items[idx].UpdatedAt = now
	}

	saved, err := s.carts.ReplaceItems(ctx, cart.ID, items, now)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	return saved, nil
}

// RemoveItem deletes one line from the cart.
func (s *cartService) RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) (Cart, error) {
	return s.UpdateItemQuantity(ctx, UpdateCartItemQuantityCommand{
		CartID:    cmd.CartID,
		ProductID: cmd.ProductID,
		Quantity:  0,
	})
}

// ClearCart empties the cart, keeping the cart document itself alive.
func (s *cartService) ClearCart(ctx context.Context, cartID string) (Cart, error) {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return Cart{}, fmt.Errorf("%w: cart id is required", ErrCartInvalidInput)
	}

	cart, err := s.carts.GetCart(ctx, cartID)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}

	saved, err := s.carts.ReplaceItems(ctx, cart.ID, nil, s.now())
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	return saved, nil
}

// Summarize re-prices the cart through the pricing resolver and returns the live view.
func (s *cartService) Summarize(ctx context.Context, cartID string) (CartSummary, error) {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return CartSummary{}, fmt.Errorf("%w: cart id is required", ErrCartInvalidInput)
	}

	cart, err := s.carts.GetCart(ctx, cartID)
	if err != nil {
		return CartSummary{}, s.translateRepoError(err)
	}

	summary, err := s.pricer.QuoteCart(ctx, cart)
	if err != nil {
		return CartSummary{}, translatePricingError(err)
	}
	return summary, nil
}

func (s *cartService) loadOrCreate(ctx context.Context, cartID string, consultantID string) (Cart, error) {
	cart, err := s.carts.GetCart(ctx, cartID)
	if err == nil {
		return cart, nil
	}
	if !isRepoNotFound(err) {
		return Cart{}, s.translateRepoError(err)
	}
	if consultantID == "" {
		return Cart{}, fmt.Errorf("%w: consultant id is required to create a cart", ErrCartInvalidInput)
	}
	return s.GetOrCreateCart(ctx, GetOrCreateCartCommand{CartID: cartID, ConsultantID: consultantID})
}

func (s *cartService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCartNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrCartConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrCartUnavailable, err)
		}
		return fmt.Errorf("%w: %v", ErrCartUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrCartUnavailable, err)
}

func translatePricingError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPricingInvalidInput) {
		return fmt.Errorf("%w: %v", ErrCartInvalidInput, err)
	}
	if errors.Is(err, ErrPricingNotFound) {
		return fmt.Errorf("%w: %v", ErrCartNotFound, err)
	}
	return fmt.Errorf("%w: %v", ErrCartUnavailable, err)
}

func indexOfCartItem(items []domain.CartItem, productID string) int {
	for i, item := range items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func cloneCartItems(items []domain.CartItem) []domain.CartItem {
	if len(items) == 0 {
		return nil
	}
	cloned := make([]domain.CartItem, len(items))
	copy(cloned, items)
	for i := range cloned {
		cloned[i].SelectedVariant = cloneVariant(cloned[i].SelectedVariant)
	}
	return cloned
}

func cloneVariant(variant *domain.ProductVariant) *domain.ProductVariant {
	if variant == nil {
		return nil
	}
	cloned := *variant
	return &cloned
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}

func isRepoConflict(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsConflict()
	}
	return false
}
