package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/vessia-direct/api/internal/domain"
	pfirestore "github.com/vessia-direct/api/internal/platform/firestore"
	"github.com/vessia-direct/api/internal/repositories"
)

const brandCollection = "brands"

// BrandRepository stores brand reference data.
type BrandRepository struct {
	base *pfirestore.BaseRepository[brandDocument]
}

// NewBrandRepository constructs a Firestore-backed brand repository.
func NewBrandRepository(provider *pfirestore.Provider) (*BrandRepository, error) {
	if provider == nil {
		return nil, errors.New("brand repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[brandDocument](provider, brandCollection, nil, nil)
	return &BrandRepository{base: base}, nil
}

// Upsert persists the brand under its ID.
func (r *BrandRepository) Upsert(ctx context.Context, brand domain.Brand) (domain.Brand, error) {
	if r == nil || r.base == nil {
		return domain.Brand{}, errors.New("brand repository not initialised")
	}
	brandID := strings.TrimSpace(brand.ID)
	if brandID == "" {
		return domain.Brand{}, errors.New("brand repository: brand id is required")
	}

	now := time.Now().UTC()
	createdAt := brand.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	doc := brandDocument{
		Name:                     strings.TrimSpace(brand.Name),
		Slug:                     strings.TrimSpace(brand.Slug),
		DefaultCommissionRateBps: brand.DefaultCommissionRateBps,
		Active:                   brand.Active,
		CreatedAt:                createdAt,
		UpdatedAt:                now,
	}
	if _, err := r.base.Set(ctx, brandID, doc); err != nil {
		return domain.Brand{}, err
	}

	saved := brand
	saved.ID = brandID
	saved.CreatedAt = createdAt
	saved.UpdatedAt = now
	return saved, nil
}

// FindByID fetches a single brand.
func (r *BrandRepository) FindByID(ctx context.Context, brandID string) (domain.Brand, error) {
	if r == nil || r.base == nil {
		return domain.Brand{}, errors.New("brand repository not initialised")
	}
	brandID = strings.TrimSpace(brandID)
	if brandID == "" {
		return domain.Brand{}, errors.New("brand repository: brand id is required")
	}
	doc, err := r.base.Get(ctx, brandID)
	if err != nil {
		return domain.Brand{}, err
	}
	return decodeBrandDocument(doc.ID, doc.Data), nil
}

// List returns brands ordered by name with cursor paging.
func (r *BrandRepository) List(ctx context.Context, filter repositories.BrandFilter) (domain.CursorPage[domain.Brand], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Brand]{}, errors.New("brand repository not initialised")
	}

	limit, fetchLimit := pageWindow(filter.Pagination)

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Brand]{}, fmt.Errorf("brand repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
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
		return domain.CursorPage[domain.Brand]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		nextToken = encodeListToken(last.Data.CreatedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Brand, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeBrandDocument(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.Brand]{Items: items, NextPageToken: nextToken}, nil
}

func decodeBrandDocument(id string, doc brandDocument) domain.Brand {
	return domain.Brand{
		ID:                       id,
		Name:                     doc.Name,
		Slug:                     doc.Slug,
		DefaultCommissionRateBps: doc.DefaultCommissionRateBps,
		Active:                   doc.Active,
		CreatedAt:                doc.CreatedAt,
		UpdatedAt:                doc.UpdatedAt,
	}
}

type brandDocument struct {
	Name                     string    `firestore:"name"`
	Slug                     string    `firestore:"slug"`
	DefaultCommissionRateBps int64     `firestore:"defaultCommissionRateBps"`
	Active                   bool      `firestore:"active"`
	CreatedAt                time.Time `firestore:"createdAt"`
	UpdatedAt                time.Time `firestore:"updatedAt"`
}

var _ repositories.BrandRepository = (*BrandRepository)(nil)
