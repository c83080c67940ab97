package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/vessia-direct/api/internal/domain"
	"github.com/vessia-direct/api/internal/repositories"
)

var (
	// ErrPricingInvalidInput indicates the caller supplied invalid pricing parameters.
	ErrPricingInvalidInput = errors.New("pricing: invalid input")
	// ErrPricingNotFound indicates a referenced product or cycle does not exist.
	ErrPricingNotFound = errors.New("pricing: not found")
	// ErrPricingUnavailable indicates the backing store could not be reached.
	ErrPricingUnavailable = errors.New("pricing: unavailable")
)

// PricingEngineDeps wires the catalog and cycle repositories for price resolution.
type PricingEngineDeps struct {
	Products    repositories.ProductRepository
	CyclePrices repositories.CyclePriceRepository
	Promotions  repositories.PromotionRepository
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
}

type pricingEngine struct {
	products    repositories.ProductRepository
	cyclePrices repositories.CyclePriceRepository
	promotions  repositories.PromotionRepository
	now         func() time.Time
	logger      func(context.Context, string, map[string]any)
}

// NewPricingEngine constructs the pricing resolver enforcing dependency validation.
func NewPricingEngine(deps PricingEngineDeps) (PricingResolver, error) {
	if deps.Products == nil {
		return nil, errors.New("pricing engine: product repository is required")
	}
	if deps.CyclePrices == nil {
		return nil, errors.New("pricing engine: cycle price repository is required")
	}
	if deps.Promotions == nil {
		return nil, errors.New("pricing engine: promotion repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &pricingEngine{
		products:    deps.Products,
		cyclePrices: deps.CyclePrices,
		promotions:  deps.Promotions,
		now:         func() time.Time { return clock().UTC() },
		logger:      logger,
	}, nil
}

// ResolvePrice returns the effective price for one product in one cycle. Precedence is
// promotion, then promotional cycle price, then the product's base price. A cycle price
// without the promotional flag does not participate in resolution.
func (e *pricingEngine) ResolvePrice(ctx context.Context, cycleID string, productID string) (PriceQuote, error) {
	cycleID = strings.TrimSpace(cycleID)
	productID = strings.TrimSpace(productID)
	if cycleID == "" {
		return PriceQuote{}, fmt.Errorf("%w: cycle id is required", ErrPricingInvalidInput)
	}
	if productID == "" {
		return PriceQuote{}, fmt.Errorf("%w: product id is required", ErrPricingInvalidInput)
	}

	product, err := e.products.FindByID(ctx, productID)
	if err != nil {
		return PriceQuote{}, e.mapRepositoryError(err)
	}

	var override *domain.CyclePrice
	price, err := e.cyclePrices.Find(ctx, cycleID, productID)
	switch {
	case err == nil:
		override = &price
	case isRepoNotFound(err):
	default:
		return PriceQuote{}, e.mapRepositoryError(err)
	}

	promotions, err := e.promotions.ListByCycle(ctx, cycleID)
	if err != nil {
		return PriceQuote{}, e.mapRepositoryError(err)
	}

	return e.resolve(product, override, promotions), nil
}

// QuoteCart prices every line of the cart in one pass, loading the cycle's overrides and
// promotions once. The summary is computed live and never persisted as order truth.
func (e *pricingEngine) QuoteCart(ctx context.Context, cart Cart) (CartSummary, error) {
	cycleID := strings.TrimSpace(cart.CycleID)
	if cycleID == "" {
		return CartSummary{}, fmt.Errorf("%w: cart cycle id is required", ErrPricingInvalidInput)
	}

	overrides := map[string]domain.CyclePrice{}
	var promotions []domain.Promotion
	if len(cart.Items) > 0 {
		prices, err := e.cyclePrices.ListByCycle(ctx, cycleID)
		if err != nil {
			return CartSummary{}, e.mapRepositoryError(err)
		}
		for _, price := range prices {
			overrides[price.ProductID] = price
		}

		promotions, err = e.promotions.ListByCycle(ctx, cycleID)
		if err != nil {
			return CartSummary{}, e.mapRepositoryError(err)
		}
	}

	summary := CartSummary{
		CartID:  cart.ID,
		CycleID: cycleID,
		Lines:   make([]CartLine, 0, len(cart.Items)),
	}

	for _, item := range cart.Items {
		if item.Quantity <= 0 {
			continue
		}

		product, err := e.products.FindByID(ctx, item.ProductID)
		if err != nil {
			return CartSummary{}, e.mapRepositoryError(err)
		}

		var override *domain.CyclePrice
		if price, ok := overrides[product.ID]; ok {
			override = &price
		}

		quote := e.resolve(product, override, promotions)
		line := CartLine{
			Item:      item,
			Name:      product.Name,
			SKU:       product.SKU,
			BrandID:   product.BrandID,
			Points:    product.Points,
			IsRefill:  product.IsRefill,
			Quote:     quote,
			LineTotal: quote.LineTotal(item.Quantity),
		}

		summary.Lines = append(summary.Lines, line)
		summary.Subtotal += quote.LineSubtotal(item.Quantity)
		summary.DiscountTotal += quote.LineDiscount(item.Quantity)
		summary.Total += line.LineTotal
		summary.TotalPoints += product.Points * item.Quantity
		summary.ItemCount += item.Quantity
	}

	return summary, nil
}

func (e *pricingEngine) resolve(product domain.Product, override *domain.CyclePrice, promotions []domain.Promotion) PriceQuote {
	unit := product.BasePrice
	quote := PriceQuote{UnitPrice: unit, FinalPrice: unit}

	now := e.now()
	for _, promotion := range promotions {
		if !promotionApplies(promotion, product.ID, now) {
			continue
		}
		// Promotions arrive in creation order; the first applicable one wins.
		final := applyPromotion(promotion, unit)
		if final < 0 {
			final = 0
		}
		quote.FinalPrice = final
		quote.Discounted = final != unit
		if quote.Discounted {
			promotionID := promotion.ID
			quote.PromotionID = &promotionID
		}
		return quote
	}

	if override != nil && override.Promotional {
		quote.FinalPrice = override.Price
		quote.Discounted = override.Price != unit
	}

	return quote
}

func promotionApplies(promotion domain.Promotion, productID string, now time.Time) bool {
	if !promotion.Active {
		return false
	}
	if !promotion.StartsAt.IsZero() && now.Before(promotion.StartsAt) {
		return false
	}
	if !promotion.EndsAt.IsZero() && now.After(promotion.EndsAt) {
		return false
	}
	for _, target := range promotion.ProductIDs {
		if target == productID {
			return true
		}
	}
	return false
}

func applyPromotion(promotion domain.Promotion, unit int64) int64 {
	switch promotion.DiscountType {
	case domain.DiscountPercentage:
		return domain.SubtractRateBps(unit, promotion.DiscountValue)
	case domain.DiscountFixedPrice:
		return promotion.DiscountValue
	}
	return unit
}

func (e *pricingEngine) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrPricingNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrPricingUnavailable, err)
		}
	}
	return err
}
