package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/vessia-direct/api/internal/domain"
	pfirestore "github.com/vessia-direct/api/internal/platform/firestore"
	"github.com/vessia-direct/api/internal/repositories"
)

const cyclePriceCollection = "cycle_prices"

// CyclePriceID derives the document key for a cycle price override. The (cycle,
// product) pair is the key, so at most one override can exist per pair.
func CyclePriceID(cycleID, productID string) string {
	return compositeID(cycleID, productID)
}

// CyclePriceRepository stores per (cycle, product) price overrides.
type CyclePriceRepository struct {
	base *pfirestore.BaseRepository[cyclePriceDocument]
}

// NewCyclePriceRepository constructs a Firestore-backed cycle price repository.
func NewCyclePriceRepository(provider *pfirestore.Provider) (*CyclePriceRepository, error) {
	if provider == nil {
		return nil, errors.New("cycle price repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[cyclePriceDocument](provider, cyclePriceCollection, nil, nil)
	return &CyclePriceRepository{base: base}, nil
}

// Upsert persists the override under its composite key. Re-upserting the same pair
// replaces the previous override instead of accumulating rows.
func (r *CyclePriceRepository) Upsert(ctx context.Context, price domain.CyclePrice) (domain.CyclePrice, error) {
	if r == nil || r.base == nil {
		return domain.CyclePrice{}, errors.New("cycle price repository not initialised")
	}
	if strings.TrimSpace(price.CycleID) == "" || strings.TrimSpace(price.ProductID) == "" {
		return domain.CyclePrice{}, errors.New("cycle price repository: cycle id and product id are required")
	}

	now := time.Now().UTC()
	createdAt := price.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	doc := cyclePriceDocument{
		CycleID:     strings.TrimSpace(price.CycleID),
		ProductID:   strings.TrimSpace(price.ProductID),
		Price:       price.Price,
		Promotional: price.Promotional,
		CreatedAt:   createdAt,
		UpdatedAt:   now,
	}
	if _, err := r.base.Set(ctx, CyclePriceID(price.CycleID, price.ProductID), doc); err != nil {
		return domain.CyclePrice{}, err
	}

	saved := price
	saved.CreatedAt = createdAt
	saved.UpdatedAt = now
	return saved, nil
}

// Find fetches the override for a (cycle, product) pair.
func (r *CyclePriceRepository) Find(ctx context.Context, cycleID string, productID string) (domain.CyclePrice, error) {
	if r == nil || r.base == nil {
		return domain.CyclePrice{}, errors.New("cycle price repository not initialised")
	}
	doc, err := r.base.Get(ctx, CyclePriceID(cycleID, productID))
	if err != nil {
		return domain.CyclePrice{}, err
	}
	return decodeCyclePriceDocument(doc.Data), nil
}

// ListByCycle returns every override defined for the cycle.
func (r *CyclePriceRepository) ListByCycle(ctx context.Context, cycleID string) ([]domain.CyclePrice, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("cycle price repository not initialised")
	}
	cycleID = strings.TrimSpace(cycleID)
	if cycleID == "" {
		return nil, errors.New("cycle price repository: cycle id is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("cycleId", "==", cycleID)
	})
	if err != nil {
		return nil, err
	}

	prices := make([]domain.CyclePrice, 0, len(docs))
	for _, doc := range docs {
		prices = append(prices, decodeCyclePriceDocument(doc.Data))
	}
	return prices, nil
}

func decodeCyclePriceDocument(doc cyclePriceDocument) domain.CyclePrice {
	return domain.CyclePrice{
		CycleID:     doc.CycleID,
		ProductID:   doc.ProductID,
		Price:       doc.Price,
		Promotional: doc.Promotional,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

type cyclePriceDocument struct {
	CycleID     string    `firestore:"cycleId"`
	ProductID   string    `firestore:"productId"`
	Price       int64     `firestore:"price"`
	Promotional bool      `firestore:"promotional"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

var _ repositories.CyclePriceRepository = (*CyclePriceRepository)(nil)
