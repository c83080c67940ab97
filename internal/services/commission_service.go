package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	domain "github.com/vessia-direct/api/internal/domain"
	"github.com/vessia-direct/api/internal/repositories"
)

var (
	// ErrCommissionInvalidInput indicates the caller supplied invalid commission parameters.
	ErrCommissionInvalidInput = errors.New("commission: invalid input")
	// ErrCommissionNotFound indicates the referenced order or commission does not exist.
	ErrCommissionNotFound = errors.New("commission: not found")
	// ErrCommissionUnavailable indicates the backing store could not be reached.
	ErrCommissionUnavailable = errors.New("commission: unavailable")
)

// CommissionServiceDeps wires the repositories needed for commission settlement.
type CommissionServiceDeps struct {
	Orders      repositories.OrderRepository
	Products    repositories.ProductRepository
	Brands      repositories.BrandRepository
	Commissions repositories.CommissionRepository
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
}

type commissionService struct {
	orders      repositories.OrderRepository
	products    repositories.ProductRepository
	brands      repositories.BrandRepository
	commissions repositories.CommissionRepository
	now         func() time.Time
	logger      func(context.Context, string, map[string]any)
}

// NewCommissionService constructs a CommissionService enforcing dependency validation.
func NewCommissionService(deps CommissionServiceDeps) (CommissionService, error) {
	if deps.Orders == nil {
		return nil, errors.New("commission service: order repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("commission service: product repository is required")
	}
	if deps.Brands == nil {
		return nil, errors.New("commission service: brand repository is required")
	}
	if deps.Commissions == nil {
		return nil, errors.New("commission service: commission repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &commissionService{
		orders:      deps.Orders,
		products:    deps.Products,
		brands:      deps.Brands,
		commissions: deps.Commissions,
		now:         func() time.Time { return clock().UTC() },
		logger:      logger,
	}, nil
}

// CalculateForOrder computes one commission row per brand represented in the order.
// Gross amounts sum the effective line totals per brand, the brand's rate is copied at
// calculation time, and rows whose (order, brand) pair already exists are left
// untouched. Items whose product can no longer be resolved are skipped with a log line.
func (s *commissionService) CalculateForOrder(ctx context.Context, orderID string) ([]Commission, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrCommissionInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}

	grossByBrand := map[string]int64{}
	for _, item := range order.Items {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			if isRepoNotFound(err) {
				s.logger(ctx, "commission.product_skipped", map[string]any{
					"orderId":   order.ID,
					"productId": item.ProductID,
				})
				continue
			}
			return nil, s.mapRepositoryError(err)
		}
		grossByBrand[product.BrandID] += item.FinalPrice * int64(item.Quantity)
	}

	if len(grossByBrand) == 0 {
		s.logger(ctx, "commission.nothing_to_calculate", map[string]any{"orderId": order.ID})
		return nil, nil
	}

	brandIDs := make([]string, 0, len(grossByBrand))
	for brandID := range grossByBrand {
		brandIDs = append(brandIDs, brandID)
	}
	sort.Strings(brandIDs)

	now := s.now()
	for _, brandID := range brandIDs {
		brand, err := s.brands.FindByID(ctx, brandID)
		if err != nil {
			if isRepoNotFound(err) {
				s.logger(ctx, "commission.brand_skipped", map[string]any{
					"orderId": order.ID,
					"brandId": brandID,
				})
				continue
			}
			return nil, s.mapRepositoryError(err)
		}

		gross := grossByBrand[brandID]
		commission := domain.Commission{
			OrderID:           order.ID,
			BrandID:           brandID,
			ConsultantID:      order.ConsultantID,
			CycleID:           order.CycleID,
			GrossAmount:       gross,
			CommissionRateBps: brand.DefaultCommissionRateBps,
			CommissionAmount:  domain.ApplyRateBps(gross, brand.DefaultCommissionRateBps),
			Status:            domain.CommissionStatusValid,
			CreatedAt:         now,
			UpdatedAt:         now,
		}

		if err := s.commissions.Insert(ctx, commission); err != nil {
			if isRepoConflict(err) {
				// The pair was already calculated; a repeated trigger is a no-op.
				continue
			}
			return nil, s.mapRepositoryError(err)
		}
	}

	rows, err := s.commissions.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return rows, nil
}

// VoidForOrder flips every commission derived from the order to cancelled. Rows already
// cancelled are left alone, so repeated voiding is harmless.
func (s *commissionService) VoidForOrder(ctx context.Context, orderID string) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return fmt.Errorf("%w: order id is required", ErrCommissionInvalidInput)
	}

	rows, err := s.commissions.ListByOrder(ctx, orderID)
	if err != nil {
		return s.mapRepositoryError(err)
	}

	now := s.now()
	for _, row := range rows {
		if row.Status == domain.CommissionStatusCancelled {
			continue
		}
		row.Status = domain.CommissionStatusCancelled
		row.UpdatedAt = now
		if err := s.commissions.Update(ctx, row); err != nil {
			return s.mapRepositoryError(err)
		}
	}
	return nil
}

// ListCommissions returns commissions matching the filter with cursor paging.
func (s *commissionService) ListCommissions(ctx context.Context, filter CommissionListFilter) (domain.CursorPage[Commission], error) {
	page, err := s.commissions.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Commission]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *commissionService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCommissionNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrCommissionUnavailable, err)
		}
	}
	return err
}
