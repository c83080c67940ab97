package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/vessia-direct/api/internal/platform/firestore"
	"github.com/vessia-direct/api/internal/repositories"
)

// Registry bundles the Firestore repository implementations behind the repositories
// contract. RunInTx stores the transaction on the context so repository mutations made
// through the registry participate in it.
type Registry struct {
	provider *pfirestore.Provider

	brands      *BrandRepository
	products    *ProductRepository
	cycles      *CycleRepository
	cyclePrices *CyclePriceRepository
	promotions  *PromotionRepository
	consultants *ConsultantRepository
	carts       *CartRepository
	orders      *OrderRepository
	commissions *CommissionRepository
	payouts     *PayoutRepository
	counters    *CounterRepository
	health      repositories.HealthRepository
}

// NewRegistry constructs every repository against the shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry: firestore provider is required")
	}

	reg := &Registry{provider: provider}

	var err error
	if reg.brands, err = NewBrandRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.products, err = NewProductRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.cycles, err = NewCycleRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.cyclePrices, err = NewCyclePriceRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.promotions, err = NewPromotionRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.consultants, err = NewConsultantRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.carts, err = NewCartRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.orders, err = NewOrderRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.commissions, err = NewCommissionRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.payouts, err = NewPayoutRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.counters, err = NewCounterRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}

	reg.health, err = repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{
			Name: "firestore",
			Check: func(ctx context.Context) error {
				_, err := provider.Client(ctx)
				return err
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}

	return reg, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// RunInTx executes fn inside a single Firestore transaction. Repository calls made with
// the callback's context are applied atomically on commit.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.provider == nil {
		return errors.New("registry: provider is required")
	}
	if fn == nil {
		return errors.New("registry: transaction function is required")
	}
	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(pfirestore.WithTx(ctx, tx))
	})
}

func (r *Registry) Brands() repositories.BrandRepository           { return r.brands }
func (r *Registry) Products() repositories.ProductRepository       { return r.products }
func (r *Registry) Cycles() repositories.CycleRepository           { return r.cycles }
func (r *Registry) CyclePrices() repositories.CyclePriceRepository { return r.cyclePrices }
func (r *Registry) Promotions() repositories.PromotionRepository   { return r.promotions }
func (r *Registry) Consultants() repositories.ConsultantRepository { return r.consultants }
func (r *Registry) Carts() repositories.CartRepository             { return r.carts }
func (r *Registry) Orders() repositories.OrderRepository           { return r.orders }
func (r *Registry) Commissions() repositories.CommissionRepository { return r.commissions }
func (r *Registry) Payouts() repositories.PayoutRepository         { return r.payouts }
func (r *Registry) Counters() repositories.CounterRepository       { return r.counters }
func (r *Registry) Health() repositories.HealthRepository          { return r.health }

var _ repositories.Registry = (*Registry)(nil)
