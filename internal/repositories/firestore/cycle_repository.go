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

const cycleCollection = "cycles"

// CycleRepository stores sales cycles. Keeping at most one cycle active is an admin
// responsibility; FindActive simply returns whichever document carries the flag.
type CycleRepository struct {
	base *pfirestore.BaseRepository[cycleDocument]
}

// NewCycleRepository constructs a Firestore-backed cycle repository.
func NewCycleRepository(provider *pfirestore.Provider) (*CycleRepository, error) {
	if provider == nil {
		return nil, errors.New("cycle repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[cycleDocument](provider, cycleCollection, nil, nil)
	return &CycleRepository{base: base}, nil
}

// Upsert persists the cycle under its ID.
func (r *CycleRepository) Upsert(ctx context.Context, cycle domain.Cycle) (domain.Cycle, error) {
	if r == nil || r.base == nil {
		return domain.Cycle{}, errors.New("cycle repository not initialised")
	}
	cycleID := strings.TrimSpace(cycle.ID)
	if cycleID == "" {
		return domain.Cycle{}, errors.New("cycle repository: cycle id is required")
	}

	now := time.Now().UTC()
	createdAt := cycle.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	doc := cycleDocument{
		Name:      strings.TrimSpace(cycle.Name),
		StartsAt:  cycle.StartsAt.UTC(),
		EndsAt:    cycle.EndsAt.UTC(),
		Active:    cycle.Active,
		CreatedAt: createdAt,
		UpdatedAt: now,
	}
	if _, err := r.base.Set(ctx, cycleID, doc); err != nil {
		return domain.Cycle{}, err
	}

	saved := cycle
	saved.ID = cycleID
	saved.CreatedAt = createdAt
	saved.UpdatedAt = now
	return saved, nil
}

// FindByID fetches a single cycle.
func (r *CycleRepository) FindByID(ctx context.Context, cycleID string) (domain.Cycle, error) {
	if r == nil || r.base == nil {
		return domain.Cycle{}, errors.New("cycle repository not initialised")
	}
	cycleID = strings.TrimSpace(cycleID)
	if cycleID == "" {
		return domain.Cycle{}, errors.New("cycle repository: cycle id is required")
	}
	doc, err := r.base.Get(ctx, cycleID)
	if err != nil {
		return domain.Cycle{}, err
	}
	return decodeCycleDocument(doc.ID, doc.Data), nil
}

// FindActive returns the currently active cycle, or a not-found error when none is.
func (r *CycleRepository) FindActive(ctx context.Context) (domain.Cycle, error) {
	if r == nil || r.base == nil {
		return domain.Cycle{}, errors.New("cycle repository not initialised")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("active", "==", true).Limit(1)
	})
	if err != nil {
		return domain.Cycle{}, err
	}
	if len(docs) == 0 {
		return domain.Cycle{}, pfirestore.WrapError("cycles.find_active", status.Error(codes.NotFound, "no active cycle"))
	}
	return decodeCycleDocument(docs[0].ID, docs[0].Data), nil
}

// List returns cycles newest first with cursor paging.
func (r *CycleRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Cycle], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Cycle]{}, errors.New("cycle repository not initialised")
	}

	limit, fetchLimit := pageWindow(pager)

	var startAfter []any
	if token := strings.TrimSpace(pager.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Cycle]{}, fmt.Errorf("cycle repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.OrderBy("startsAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Cycle]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		nextToken = encodeListToken(last.Data.StartsAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Cycle, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeCycleDocument(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.Cycle]{Items: items, NextPageToken: nextToken}, nil
}

func decodeCycleDocument(id string, doc cycleDocument) domain.Cycle {
	return domain.Cycle{
		ID:        id,
		Name:      doc.Name,
		StartsAt:  doc.StartsAt,
		EndsAt:    doc.EndsAt,
		Active:    doc.Active,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

type cycleDocument struct {
	Name      string    `firestore:"name"`
	StartsAt  time.Time `firestore:"startsAt"`
	EndsAt    time.Time `firestore:"endsAt"`
	Active    bool      `firestore:"active"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

var _ repositories.CycleRepository = (*CycleRepository)(nil)
