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

const promotionCollection = "promotions"

// PromotionRepository stores cycle-scoped promotion campaigns.
type PromotionRepository struct {
	base *pfirestore.BaseRepository[promotionDocument]
}

// NewPromotionRepository constructs a Firestore-backed promotion repository.
func NewPromotionRepository(provider *pfirestore.Provider) (*PromotionRepository, error) {
	if provider == nil {
		return nil, errors.New("promotion repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[promotionDocument](provider, promotionCollection, nil, nil)
	return &PromotionRepository{base: base}, nil
}

// Upsert persists the promotion under its ID.
func (r *PromotionRepository) Upsert(ctx context.Context, promotion domain.Promotion) (domain.Promotion, error) {
	if r == nil || r.base == nil {
		return domain.Promotion{}, errors.New("promotion repository not initialised")
	}
	promotionID := strings.TrimSpace(promotion.ID)
	if promotionID == "" {
		return domain.Promotion{}, errors.New("promotion repository: promotion id is required")
	}
	if strings.TrimSpace(promotion.CycleID) == "" {
		return domain.Promotion{}, errors.New("promotion repository: cycle id is required")
	}

	now := time.Now().UTC()
	createdAt := promotion.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	productIDs := make([]string, 0, len(promotion.ProductIDs))
	for _, productID := range promotion.ProductIDs {
		if trimmed := strings.TrimSpace(productID); trimmed != "" {
			productIDs = append(productIDs, trimmed)
		}
	}

	doc := promotionDocument{
		Name:          strings.TrimSpace(promotion.Name),
		CycleID:       strings.TrimSpace(promotion.CycleID),
		DiscountType:  string(promotion.DiscountType),
		DiscountValue: promotion.DiscountValue,
		StartsAt:      promotion.StartsAt.UTC(),
		EndsAt:        promotion.EndsAt.UTC(),
		Active:        promotion.Active,
		ProductIDs:    productIDs,
		CreatedAt:     createdAt,
		UpdatedAt:     now,
	}
	if _, err := r.base.Set(ctx, promotionID, doc); err != nil {
		return domain.Promotion{}, err
	}

	saved := promotion
	saved.ID = promotionID
	saved.ProductIDs = productIDs
	saved.CreatedAt = createdAt
	saved.UpdatedAt = now
	return saved, nil
}

// FindByID fetches a single promotion.
func (r *PromotionRepository) FindByID(ctx context.Context, promotionID string) (domain.Promotion, error) {
	if r == nil || r.base == nil {
		return domain.Promotion{}, errors.New("promotion repository not initialised")
	}
	promotionID = strings.TrimSpace(promotionID)
	if promotionID == "" {
		return domain.Promotion{}, errors.New("promotion repository: promotion id is required")
	}
	doc, err := r.base.Get(ctx, promotionID)
	if err != nil {
		return domain.Promotion{}, err
	}
	return decodePromotionDocument(doc.ID, doc.Data), nil
}

// ListByCycle returns the cycle's promotions in creation order. That ordering is the
// deterministic tie-break when several campaigns target the same product.
func (r *PromotionRepository) ListByCycle(ctx context.Context, cycleID string) ([]domain.Promotion, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("promotion repository not initialised")
	}
	cycleID = strings.TrimSpace(cycleID)
	if cycleID == "" {
		return nil, errors.New("promotion repository: cycle id is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("cycleId", "==", cycleID).
			OrderBy("createdAt", firestore.Asc).
			OrderBy(firestore.DocumentID, firestore.Asc)
	})
	if err != nil {
		return nil, err
	}

	promotions := make([]domain.Promotion, 0, len(docs))
	for _, doc := range docs {
		promotions = append(promotions, decodePromotionDocument(doc.ID, doc.Data))
	}
	return promotions, nil
}

func decodePromotionDocument(id string, doc promotionDocument) domain.Promotion {
	return domain.Promotion{
		ID:            id,
		Name:          doc.Name,
		CycleID:       doc.CycleID,
		DiscountType:  domain.DiscountType(doc.DiscountType),
		DiscountValue: doc.DiscountValue,
		StartsAt:      doc.StartsAt,
		EndsAt:        doc.EndsAt,
		Active:        doc.Active,
		ProductIDs:    append([]string(nil), doc.ProductIDs...),
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}

type promotionDocument struct {
	Name          string    `firestore:"name"`
	CycleID       string    `firestore:"cycleId"`
	DiscountType  string    `firestore:"discountType"`
	DiscountValue int64     `firestore:"discountValue"`
	StartsAt      time.Time `firestore:"startsAt"`
	EndsAt        time.Time `firestore:"endsAt"`
	Active        bool      `firestore:"active"`
	ProductIDs    []string  `firestore:"productIds"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

var _ repositories.PromotionRepository = (*PromotionRepository)(nil)
