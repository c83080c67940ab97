package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/vessia-direct/api/internal/domain"
	pfirestore "github.com/vessia-direct/api/internal/platform/firestore"
	"github.com/vessia-direct/api/internal/repositories"
)

const productCollection = "products"

// ProductRepository stores catalog products.
type ProductRepository struct {
	base *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[productDocument](provider, productCollection, nil, nil)
	return &ProductRepository{base: base}, nil
}

// Upsert persists the product under its ID.
func (r *ProductRepository) Upsert(ctx context.Context, product domain.Product) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	productID := strings.TrimSpace(product.ID)
	if productID == "" {
		return domain.Product{}, errors.New("product repository: product id is required")
	}
	if strings.TrimSpace(product.SKU) == "" {
		return domain.Product{}, errors.New("product repository: sku is required")
	}

	now := time.Now().UTC()
	createdAt := product.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	variants := make([]variantDocument, 0, len(product.Variants))
	for _, variant := range product.Variants {
		variants = append(variants, variantDocument{
			Name:  variant.Name,
			SKU:   variant.SKU,
			Color: variant.Color,
		})
	}

	doc := productDocument{
		SKU:             strings.TrimSpace(product.SKU),
		Name:            strings.TrimSpace(product.Name),
		Description:     strings.TrimSpace(product.Description),
		BasePrice:       product.BasePrice,
		Points:          product.Points,
		BrandID:         strings.TrimSpace(product.BrandID),
		IsRefill:        product.IsRefill,
		ParentProductID: stringValue(product.ParentProductID),
		Variants:        variants,
		Active:          product.Active,
		CreatedAt:       createdAt,
		UpdatedAt:       now,
	}
	if _, err := r.base.Set(ctx, productID, doc); err != nil {
		return domain.Product{}, err
	}

	saved := product
	saved.ID = productID
	saved.CreatedAt = createdAt
	saved.UpdatedAt = now
	return saved, nil
}

// FindByID fetches a single product.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, errors.New("product repository: product id is required")
	}
	doc, err := r.base.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProductDocument(doc.ID, doc.Data), nil
}

// FindBySKU resolves a product by its unique SKU.
func (r *ProductRepository) FindBySKU(ctx context.Context, sku string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return domain.Product{}, errors.New("product repository: sku is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("sku", "==", sku).Limit(1)
	})
	if err != nil {
		return domain.Product{}, err
	}
	if len(docs) == 0 {
		return domain.Product{}, pfirestore.WrapError("products.find_by_sku", status.Error(codes.NotFound, "product not found"))
	}
	return decodeProductDocument(docs[0].ID, docs[0].Data), nil
}

// List returns products matching the filter with cursor paging.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductFilter) (domain.CursorPage[domain.Product], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Product]{}, errors.New("product repository not initialised")
	}

	limit, fetchLimit := pageWindow(filter.Pagination)

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Product]{}, fmt.Errorf("product repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.BrandID != nil {
			q = q.Where("brandId", "==", strings.TrimSpace(*filter.BrandID))
		}
		if filter.IsRefill != nil {
			q = q.Where("isRefill", "==", *filter.IsRefill)
		}
		if filter.OnlyActive {
			q = q.Where("active", "==", true)
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Product]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		nextToken = encodeListToken(last.Data.CreatedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeProductDocument(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.Product]{Items: items, NextPageToken: nextToken}, nil
}

func decodeProductDocument(id string, doc productDocument) domain.Product {
	variants := make([]domain.ProductVariant, 0, len(doc.Variants))
	for _, variant := range doc.Variants {
		variants = append(variants, domain.ProductVariant{
			Name:  variant.Name,
			SKU:   variant.SKU,
			Color: variant.Color,
		})
	}
	return domain.Product{
		ID:              id,
		SKU:             doc.SKU,
		Name:            doc.Name,
		Description:     doc.Description,
		BasePrice:       doc.BasePrice,
		Points:          doc.Points,
		BrandID:         doc.BrandID,
		IsRefill:        doc.IsRefill,
		ParentProductID: optionalString(doc.ParentProductID),
		Variants:        variants,
		Active:          doc.Active,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
}

type productDocument struct {
	SKU             string            `firestore:"sku"`
	Name            string            `firestore:"name"`
	Description     string            `firestore:"description,omitempty"`
	BasePrice       int64             `firestore:"basePrice"`
	Points          int               `firestore:"points"`
	BrandID         string            `firestore:"brandId"`
	IsRefill        bool              `firestore:"isRefill"`
	ParentProductID string            `firestore:"parentProductId,omitempty"`
	Variants        []variantDocument `firestore:"variants,omitempty"`
	Active          bool              `firestore:"active"`
	CreatedAt       time.Time         `firestore:"createdAt"`
	UpdatedAt       time.Time         `firestore:"updatedAt"`
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)
