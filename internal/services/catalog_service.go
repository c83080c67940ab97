package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"

	domain "github.com/vessia-direct/api/internal/domain"
	"github.com/vessia-direct/api/internal/repositories"
)

const (
	productIDPrefix = "prd_"
	brandIDPrefix   = "brd_"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var (
	// ErrCatalogInvalidInput indicates the caller supplied invalid catalog parameters.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogNotFound indicates the requested product or brand does not exist.
	ErrCatalogNotFound = errors.New("catalog: not found")
	// ErrCatalogUnavailable indicates the backing store could not be reached.
	ErrCatalogUnavailable = errors.New("catalog: unavailable")
)

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Products    repositories.ProductRepository
	Brands      repositories.BrandRepository
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type catalogService struct {
	products repositories.ProductRepository
	brands   repositories.BrandRepository
	newID    func() string
	logger   func(context.Context, string, map[string]any)
}

// NewCatalogService constructs a CatalogService enforcing dependency validation.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	if deps.Brands == nil {
		return nil, errors.New("catalog service: brand repository is required")
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &catalogService{
		products: deps.Products,
		brands:   deps.Brands,
		newID:    idGen,
		logger:   logger,
	}, nil
}

// GetProduct fetches one product by ID.
func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return Product{}, s.mapRepositoryError(err)
	}
	return product, nil
}

// ListProducts returns catalog products matching the filter with cursor paging.
func (s *catalogService) ListProducts(ctx context.Context, filter ProductFilter) (domain.CursorPage[Product], error) {
	page, err := s.products.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Product]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

// UpsertProduct creates or updates a catalog product. Edits never rewrite order
// history; orders carry their own snapshots.
func (s *catalogService) UpsertProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error) {
	name := strings.TrimSpace(cmd.Name)
	sku := strings.TrimSpace(cmd.SKU)
	brandID := strings.TrimSpace(cmd.BrandID)
	if name == "" {
		return Product{}, fmt.Errorf("%w: product name is required", ErrCatalogInvalidInput)
	}
	if sku == "" {
		return Product{}, fmt.Errorf("%w: product sku is required", ErrCatalogInvalidInput)
	}
	if brandID == "" {
		return Product{}, fmt.Errorf("%w: brand id is required", ErrCatalogInvalidInput)
	}
	if cmd.BasePrice < 0 {
		return Product{}, fmt.Errorf("%w: base price must not be negative", ErrCatalogInvalidInput)
	}
	if cmd.Points < 0 {
		return Product{}, fmt.Errorf("%w: points must not be negative", ErrCatalogInvalidInput)
	}

	if _, err := s.brands.FindByID(ctx, brandID); err != nil {
		return Product{}, s.mapRepositoryError(err)
	}
	if cmd.ParentProductID != nil {
		if _, err := s.products.FindByID(ctx, *cmd.ParentProductID); err != nil {
			return Product{}, s.mapRepositoryError(err)
		}
	}

	productID := strings.TrimSpace(cmd.ID)
	if productID == "" {
		productID = productIDPrefix + s.newID()
	}

	saved, err := s.products.Upsert(ctx, domain.Product{
		ID:              productID,
		SKU:             sku,
		Name:            name,
		Description:     strings.TrimSpace(cmd.Description),
		BasePrice:       cmd.BasePrice,
		Points:          cmd.Points,
		BrandID:         brandID,
		IsRefill:        cmd.IsRefill,
		ParentProductID: cloneStringPointer(cmd.ParentProductID),
		Variants:        cmd.Variants,
		Active:          cmd.Active,
	})
	if err != nil {
		return Product{}, s.mapRepositoryError(err)
	}
	return saved, nil
}

// GetBrand fetches one brand by ID.
func (s *catalogService) GetBrand(ctx context.Context, brandID string) (Brand, error) {
	brandID = strings.TrimSpace(brandID)
	if brandID == "" {
		return Brand{}, fmt.Errorf("%w: brand id is required", ErrCatalogInvalidInput)
	}
	brand, err := s.brands.FindByID(ctx, brandID)
	if err != nil {
		return Brand{}, s.mapRepositoryError(err)
	}
	return brand, nil
}

// ListBrands returns brands matching the filter with cursor paging.
func (s *catalogService) ListBrands(ctx context.Context, filter BrandFilter) (domain.CursorPage[Brand], error) {
	page, err := s.brands.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Brand]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

// UpsertBrand creates or updates a brand. Rate edits only affect commissions calculated
// afterwards; existing rows keep the rate copied at calculation time.
func (s *catalogService) UpsertBrand(ctx context.Context, cmd UpsertBrandCommand) (Brand, error) {
	name := strings.TrimSpace(cmd.Name)
	slug := strings.TrimSpace(cmd.Slug)
	if name == "" {
		return Brand{}, fmt.Errorf("%w: brand name is required", ErrCatalogInvalidInput)
	}
	if slug != "" && !slugPattern.MatchString(slug) {
		return Brand{}, fmt.Errorf("%w: brand slug %q is not url safe", ErrCatalogInvalidInput, slug)
	}
	if cmd.DefaultCommissionRateBps < 0 || cmd.DefaultCommissionRateBps > 10_000 {
		return Brand{}, fmt.Errorf("%w: commission rate must be between 0 and 10000 basis points", ErrCatalogInvalidInput)
	}

	brandID := strings.TrimSpace(cmd.ID)
	if brandID == "" {
		brandID = brandIDPrefix + s.newID()
	}

	saved, err := s.brands.Upsert(ctx, domain.Brand{
		ID:                       brandID,
		Name:                     name,
		Slug:                     slug,
		DefaultCommissionRateBps: cmd.DefaultCommissionRateBps,
		Active:                   cmd.Active,
	})
	if err != nil {
		return Brand{}, s.mapRepositoryError(err)
	}
	return saved, nil
}

func (s *catalogService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCatalogNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
	}
	return err
}
