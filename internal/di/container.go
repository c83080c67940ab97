package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vessia-direct/api/internal/notifications"
	"github.com/vessia-direct/api/internal/platform/config"
	"github.com/vessia-direct/api/internal/repositories"
	"github.com/vessia-direct/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete
// implementations are assembled via dependency injection in NewContainer.
type Services struct {
	Pricing     services.PricingResolver
	Cart        services.CartService
	Orders      services.OrderService
	Commissions services.CommissionService
	Payouts     services.PayoutService
	Cycles      services.CycleService
	Catalog     services.CatalogService
	Consultants services.ConsultantService
	Counters    services.CounterService
	System      services.SystemService
	Notifier    services.Notifier
}

// ContainerDeps carries the externally constructed collaborators.
type ContainerDeps struct {
	Config   config.Config
	Registry repositories.Registry
	// Notifier is optional; without one notifications fall back to log-only delivery.
	Notifier services.Notifier
	Logger   func(context.Context, string, map[string]any)
	Build    services.BuildInfo
	Clock    func() time.Time
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides the
// Firestore-backed registry; tests can supply in-memory registries.
func NewContainer(_ context.Context, deps ContainerDeps) (*Container, error) {
	if deps.Registry == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       deps.Config,
		Repositories: deps.Registry,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(deps ContainerDeps) (Services, error) {
	reg := deps.Registry
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger

	var svc Services

	svc.Notifier = deps.Notifier
	if svc.Notifier == nil {
		svc.Notifier = notifications.NewLogNotifier(logger)
	}

	pricer, err := services.NewPricingEngine(services.PricingEngineDeps{
		Products:    reg.Products(),
		CyclePrices: reg.CyclePrices(),
		Promotions:  reg.Promotions(),
		Clock:       clock,
		Logger:      logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build pricing engine: %w", err)
	}
	svc.Pricing = pricer

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Carts:    reg.Carts(),
		Cycles:   reg.Cycles(),
		Products: reg.Products(),
		Pricer:   pricer,
		Clock:    clock,
		Logger:   logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	counterSvc, err := services.NewCounterService(services.CounterServiceDeps{
		Repository: reg.Counters(),
		Clock:      clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build counter service: %w", err)
	}
	svc.Counters = counterSvc

	commissionSvc, err := services.NewCommissionService(services.CommissionServiceDeps{
		Orders:      reg.Orders(),
		Products:    reg.Products(),
		Brands:      reg.Brands(),
		Commissions: reg.Commissions(),
		Clock:       clock,
		Logger:      logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build commission service: %w", err)
	}
	svc.Commissions = commissionSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:      reg.Orders(),
		Carts:       reg.Carts(),
		Cycles:      reg.Cycles(),
		Pricer:      pricer,
		Counters:    counterSvc,
		Commissions: commissionSvc,
		Notifier:    svc.Notifier,
		UnitOfWork:  reg,
		Clock:       clock,
		Logger:      logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	payoutSvc, err := services.NewPayoutService(services.PayoutServiceDeps{
		Payouts:     reg.Payouts(),
		Commissions: reg.Commissions(),
		Orders:      reg.Orders(),
		Notifier:    svc.Notifier,
		UnitOfWork:  reg,
		Clock:       clock,
		Logger:      logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build payout service: %w", err)
	}
	svc.Payouts = payoutSvc

	cycleSvc, err := services.NewCycleService(services.CycleServiceDeps{
		Cycles:      reg.Cycles(),
		CyclePrices: reg.CyclePrices(),
		Promotions:  reg.Promotions(),
		Products:    reg.Products(),
		Clock:       clock,
		Logger:      logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cycle service: %w", err)
	}
	svc.Cycles = cycleSvc

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products: reg.Products(),
		Brands:   reg.Brands(),
		Logger:   logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	consultantSvc, err := services.NewConsultantService(services.ConsultantServiceDeps{
		Consultants: reg.Consultants(),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build consultant service: %w", err)
	}
	svc.Consultants = consultantSvc

	build := deps.Build
	if build.Environment == "" {
		build.Environment = deps.Config.Security.Environment
	}
	if build.StartedAt.IsZero() {
		build.StartedAt = clock().UTC()
	}
	systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: reg.Health(),
		Clock:            clock,
		Build:            build,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}
	svc.System = systemSvc

	return svc, nil
}
