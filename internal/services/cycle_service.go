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

const (
	cycleIDPrefix     = "cyc_"
	promotionIDPrefix = "promo_"
)

var (
	// ErrCycleInvalidInput indicates the caller supplied invalid cycle parameters.
	ErrCycleInvalidInput = errors.New("cycle: invalid input")
	// ErrCycleNotFound indicates the requested cycle does not exist or none is active.
	ErrCycleNotFound = errors.New("cycle: not found")
	// ErrCycleUnavailable indicates the backing store could not be reached.
	ErrCycleUnavailable = errors.New("cycle: unavailable")
)

// CycleServiceDeps wires repositories for cycle administration.
type CycleServiceDeps struct {
	Cycles      repositories.CycleRepository
	CyclePrices repositories.CyclePriceRepository
	Promotions  repositories.PromotionRepository
	Products    repositories.ProductRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type cycleService struct {
	cycles      repositories.CycleRepository
	cyclePrices repositories.CyclePriceRepository
	promotions  repositories.PromotionRepository
	products    repositories.ProductRepository
	now         func() time.Time
	newID       func() string
	logger      func(context.Context, string, map[string]any)
}

// NewCycleService constructs a CycleService enforcing dependency validation.
func NewCycleService(deps CycleServiceDeps) (CycleService, error) {
	if deps.Cycles == nil {
		return nil, errors.New("cycle service: cycle repository is required")
	}
	if deps.CyclePrices == nil {
		return nil, errors.New("cycle service: cycle price repository is required")
	}
	if deps.Promotions == nil {
		return nil, errors.New("cycle service: promotion repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("cycle service: product repository is required")
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

	return &cycleService{
		cycles:      deps.Cycles,
		cyclePrices: deps.CyclePrices,
		promotions:  deps.Promotions,
		products:    deps.Products,
		now:         func() time.Time { return clock().UTC() },
		newID:       idGen,
		logger:      logger,
	}, nil
}

// ActiveCycle returns the currently active cycle.
func (s *cycleService) ActiveCycle(ctx context.Context) (Cycle, error) {
	cycle, err := s.cycles.FindActive(ctx)
	if err != nil {
		return Cycle{}, s.mapRepositoryError(err)
	}
	return cycle, nil
}

// GetCycle fetches one cycle by ID.
func (s *cycleService) GetCycle(ctx context.Context, cycleID string) (Cycle, error) {
	cycleID = strings.TrimSpace(cycleID)
	if cycleID == "" {
		return Cycle{}, fmt.Errorf("%w: cycle id is required", ErrCycleInvalidInput)
	}
	cycle, err := s.cycles.FindByID(ctx, cycleID)
	if err != nil {
		return Cycle{}, s.mapRepositoryError(err)
	}
	return cycle, nil
}

// ListCycles returns cycles newest first with cursor paging.
func (s *cycleService) ListCycles(ctx context.Context, pager Pagination) (domain.CursorPage[Cycle], error) {
	page, err := s.cycles.List(ctx, pager)
	if err != nil {
		return domain.CursorPage[Cycle]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

// UpsertCycle creates or updates a sales cycle.
func (s *cycleService) UpsertCycle(ctx context.Context, cmd UpsertCycleCommand) (Cycle, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return Cycle{}, fmt.Errorf("%w: cycle name is required", ErrCycleInvalidInput)
	}
	if !cmd.EndsAt.IsZero() && !cmd.StartsAt.IsZero() && cmd.EndsAt.Before(cmd.StartsAt) {
		return Cycle{}, fmt.Errorf("%w: cycle cannot end before it starts", ErrCycleInvalidInput)
	}

	cycleID := strings.TrimSpace(cmd.ID)
	if cycleID == "" {
		cycleID = cycleIDPrefix + s.newID()
	}

	saved, err := s.cycles.Upsert(ctx, domain.Cycle{
		ID:       cycleID,
		Name:     name,
		StartsAt: cmd.StartsAt,
		EndsAt:   cmd.EndsAt,
		Active:   cmd.Active,
	})
	if err != nil {
		return Cycle{}, s.mapRepositoryError(err)
	}
	return saved, nil
}

// SetCyclePrice sets the price override for one (cycle, product) pair. Setting the same
// pair twice replaces the previous override.
func (s *cycleService) SetCyclePrice(ctx context.Context, cmd SetCyclePriceCommand) (CyclePrice, error) {
	cycleID := strings.TrimSpace(cmd.CycleID)
	productID := strings.TrimSpace(cmd.ProductID)
	if cycleID == "" || productID == "" {
		return CyclePrice{}, fmt.Errorf("%w: cycle id and product id are required", ErrCycleInvalidInput)
	}
	if cmd.Price < 0 {
		return CyclePrice{}, fmt.Errorf("%w: price must not be negative", ErrCycleInvalidInput)
	}

	if _, err := s.cycles.FindByID(ctx, cycleID); err != nil {
		return CyclePrice{}, s.mapRepositoryError(err)
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return CyclePrice{}, s.mapRepositoryError(err)
	}

	saved, err := s.cyclePrices.Upsert(ctx, domain.CyclePrice{
		CycleID:     cycleID,
		ProductID:   productID,
		Price:       cmd.Price,
		Promotional: cmd.Promotional,
	})
	if err != nil {
		return CyclePrice{}, s.mapRepositoryError(err)
	}
	return saved, nil
}

// ListCyclePrices returns every price override defined for the cycle.
func (s *cycleService) ListCyclePrices(ctx context.Context, cycleID string) ([]CyclePrice, error) {
	cycleID = strings.TrimSpace(cycleID)
	if cycleID == "" {
		return nil, fmt.Errorf("%w: cycle id is required", ErrCycleInvalidInput)
	}
	prices, err := s.cyclePrices.ListByCycle(ctx, cycleID)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return prices, nil
}

// UpsertPromotion creates or updates a cycle-scoped promotion.
func (s *cycleService) UpsertPromotion(ctx context.Context, cmd UpsertPromotionCommand) (Promotion, error) {
	name := strings.TrimSpace(cmd.Name)
	cycleID := strings.TrimSpace(cmd.CycleID)
	if name == "" {
		return Promotion{}, fmt.Errorf("%w: promotion name is required", ErrCycleInvalidInput)
	}
	if cycleID == "" {
		return Promotion{}, fmt.Errorf("%w: cycle id is required", ErrCycleInvalidInput)
	}
	switch cmd.DiscountType {
	case domain.DiscountPercentage:
		if cmd.DiscountValue < 0 || cmd.DiscountValue > 10_000 {
			return Promotion{}, fmt.Errorf("%w: percentage discount must be between 0 and 10000 basis points", ErrCycleInvalidInput)
		}
	case domain.DiscountFixedPrice:
		if cmd.DiscountValue < 0 {
			return Promotion{}, fmt.Errorf("%w: fixed price must not be negative", ErrCycleInvalidInput)
		}
	default:
		return Promotion{}, fmt.Errorf("%w: unknown discount type %q", ErrCycleInvalidInput, cmd.DiscountType)
	}
	if len(cmd.ProductIDs) == 0 {
		return Promotion{}, fmt.Errorf("%w: promotion must target at least one product", ErrCycleInvalidInput)
	}

	if _, err := s.cycles.FindByID(ctx, cycleID); err != nil {
		return Promotion{}, s.mapRepositoryError(err)
	}

	promotionID := strings.TrimSpace(cmd.ID)
	if promotionID == "" {
		promotionID = promotionIDPrefix + s.newID()
	}

	saved, err := s.promotions.Upsert(ctx, domain.Promotion{
		ID:            promotionID,
		Name:          name,
		CycleID:       cycleID,
		DiscountType:  cmd.DiscountType,
		DiscountValue: cmd.DiscountValue,
		StartsAt:      cmd.StartsAt,
		EndsAt:        cmd.EndsAt,
		Active:        cmd.Active,
		ProductIDs:    cmd.ProductIDs,
	})
	if err != nil {
		return Promotion{}, s.mapRepositoryError(err)
	}
	return saved, nil
}

// ListPromotions returns the cycle's promotions in creation order.
func (s *cycleService) ListPromotions(ctx context.Context, cycleID string) ([]Promotion, error) {
	cycleID = strings.TrimSpace(cycleID)
	if cycleID == "" {
		return nil, fmt.Errorf("%w: cycle id is required", ErrCycleInvalidInput)
	}
	promotions, err := s.promotions.ListByCycle(ctx, cycleID)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return promotions, nil
}

func (s *cycleService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCycleNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrCycleUnavailable, err)
		}
	}
	return err
}
