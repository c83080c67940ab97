package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/vessia-direct/api/internal/domain"
	pfirestore "github.com/vessia-direct/api/internal/platform/firestore"
	"github.com/vessia-direct/api/internal/repositories"
)

const consultantCollection = "consultants"

// ConsultantRepository stores consultant profiles.
type ConsultantRepository struct {
	base *pfirestore.BaseRepository[consultantDocument]
}

// NewConsultantRepository constructs a Firestore-backed consultant repository.
func NewConsultantRepository(provider *pfirestore.Provider) (*ConsultantRepository, error) {
	if provider == nil {
		return nil, errors.New("consultant repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[consultantDocument](provider, consultantCollection, nil, nil)
	return &ConsultantRepository{base: base}, nil
}

// Upsert persists the consultant under their ID.
func (r *ConsultantRepository) Upsert(ctx context.Context, consultant domain.Consultant) (domain.Consultant, error) {
	if r == nil || r.base == nil {
		return domain.Consultant{}, errors.New("consultant repository not initialised")
	}
	consultantID := strings.TrimSpace(consultant.ID)
	if consultantID == "" {
		return domain.Consultant{}, errors.New("consultant repository: consultant id is required")
	}

	now := time.Now().UTC()
	createdAt := consultant.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	doc := consultantDocument{
		Slug:      strings.TrimSpace(consultant.Slug),
		Name:      strings.TrimSpace(consultant.Name),
		Email:     strings.TrimSpace(consultant.Email),
		Phone:     strings.TrimSpace(consultant.Phone),
		Active:    consultant.Active,
		CreatedAt: createdAt,
		UpdatedAt: now,
	}
	if _, err := r.base.Set(ctx, consultantID, doc); err != nil {
		return domain.Consultant{}, err
	}

	saved := consultant
	saved.ID = consultantID
	saved.CreatedAt = createdAt
	saved.UpdatedAt = now
	return saved, nil
}

// FindByID fetches a single consultant.
func (r *ConsultantRepository) FindByID(ctx context.Context, consultantID string) (domain.Consultant, error) {
	if r == nil || r.base == nil {
		return domain.Consultant{}, errors.New("consultant repository not initialised")
	}
	consultantID = strings.TrimSpace(consultantID)
	if consultantID == "" {
		return domain.Consultant{}, errors.New("consultant repository: consultant id is required")
	}
	doc, err := r.base.Get(ctx, consultantID)
	if err != nil {
		return domain.Consultant{}, err
	}
	return decodeConsultantDocument(doc.ID, doc.Data), nil
}

// FindBySlug resolves a consultant by their storefront slug.
func (r *ConsultantRepository) FindBySlug(ctx context.Context, slug string) (domain.Consultant, error) {
	if r == nil || r.base == nil {
		return domain.Consultant{}, errors.New("consultant repository not initialised")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Consultant{}, errors.New("consultant repository: slug is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("slug", "==", slug).Limit(1)
	})
	if err != nil {
		return domain.Consultant{}, err
	}
	if len(docs) == 0 {
		return domain.Consultant{}, pfirestore.WrapError("consultants.find_by_slug", status.Error(codes.NotFound, "consultant not found"))
	}
	return decodeConsultantDocument(docs[0].ID, docs[0].Data), nil
}

func decodeConsultantDocument(id string, doc consultantDocument) domain.Consultant {
	return domain.Consultant{
		ID:        id,
		Slug:      doc.Slug,
		Name:      doc.Name,
		Email:     doc.Email,
		Phone:     doc.Phone,
		Active:    doc.Active,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

type consultantDocument struct {
	Slug      string    `firestore:"slug"`
	Name      string    `firestore:"name"`
	Email     string    `firestore:"email,omitempty"`
	Phone     string    `firestore:"phone,omitempty"`
	Active    bool      `firestore:"active"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

var _ repositories.ConsultantRepository = (*ConsultantRepository)(nil)
