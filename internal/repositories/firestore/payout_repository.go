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

const payoutCollection = "payouts"

// PayoutID derives the document key for a payout. Keying by the (consultant, cycle)
// pair makes the one-payout-per-pair invariant a property of the store.
func PayoutID(consultantID, cycleID string) string {
	return compositeID(consultantID, cycleID)
}

// PayoutRepository persists payout batches.
type PayoutRepository struct {
	base *pfirestore.BaseRepository[payoutDocument]
}

// NewPayoutRepository constructs a Firestore-backed payout repository.
func NewPayoutRepository(provider *pfirestore.Provider) (*PayoutRepository, error) {
	if provider == nil {
		return nil, errors.New("payout repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[payoutDocument](provider, payoutCollection, nil, nil)
	return &PayoutRepository{base: base}, nil
}

// Insert creates the payout batch. A second insert for the same (consultant, cycle)
// pair fails with a conflict. The returned payout carries the assigned document ID.
func (r *PayoutRepository) Insert(ctx context.Context, payout domain.Payout) (domain.Payout, error) {
	if r == nil || r.base == nil {
		return domain.Payout{}, errors.New("payout repository not initialised")
	}
	if strings.TrimSpace(payout.ConsultantID) == "" || strings.TrimSpace(payout.CycleID) == "" {
		return domain.Payout{}, errors.New("payout repository: consultant id and cycle id are required")
	}
	payoutID := PayoutID(payout.ConsultantID, payout.CycleID)
	if _, err := r.base.Create(ctx, payoutID, encodePayoutDocument(payout)); err != nil {
		return domain.Payout{}, err
	}
	saved := payout
	saved.ID = payoutID
	return saved, nil
}

// Update replaces the persisted payout state (the pending-to-paid flip).
func (r *PayoutRepository) Update(ctx context.Context, payout domain.Payout) error {
	if r == nil || r.base == nil {
		return errors.New("payout repository not initialised")
	}
	payoutID := strings.TrimSpace(payout.ID)
	if payoutID == "" {
		payoutID = PayoutID(payout.ConsultantID, payout.CycleID)
	}
	if payoutID == "" {
		return errors.New("payout repository: payout id is required")
	}
	_, err := r.base.Set(ctx, payoutID, encodePayoutDocument(payout))
	return err
}

// FindByID fetches a single payout.
func (r *PayoutRepository) FindByID(ctx context.Context, payoutID string) (domain.Payout, error) {
	if r == nil || r.base == nil {
		return domain.Payout{}, errors.New("payout repository not initialised")
	}
	payoutID = strings.TrimSpace(payoutID)
	if payoutID == "" {
		return domain.Payout{}, errors.New("payout repository: payout id is required")
	}
	doc, err := r.base.Get(ctx, payoutID)
	if err != nil {
		return domain.Payout{}, err
	}
	return decodePayoutDocument(doc.ID, doc.Data), nil
}

// FindByConsultantCycle fetches the payout for the pair, if one was ever generated.
func (r *PayoutRepository) FindByConsultantCycle(ctx context.Context, consultantID string, cycleID string) (domain.Payout, error) {
	return r.FindByID(ctx, PayoutID(consultantID, cycleID))
}

// List returns payouts matching the filter, newest first, with cursor paging.
func (r *PayoutRepository) List(ctx context.Context, filter repositories.PayoutListFilter) (domain.CursorPage[domain.Payout], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Payout]{}, errors.New("payout repository not initialised")
	}

	limit, fetchLimit := pageWindow(filter.Pagination)

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Payout]{}, fmt.Errorf("payout repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	statuses := make([]string, 0, len(filter.Status))
	for _, status := range filter.Status {
		statuses = append(statuses, string(status))
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if consultantID := strings.TrimSpace(filter.ConsultantID); consultantID != "" {
			q = q.Where("consultantId", "==", consultantID)
		}
		if cycleID := strings.TrimSpace(filter.CycleID); cycleID != "" {
			q = q.Where("cycleId", "==", cycleID)
		}
		if len(statuses) == 1 {
			q = q.Where("status", "==", statuses[0])
		} else if len(statuses) > 1 {
			q = q.Where("status", "in", statuses)
		}

		q = q.OrderBy("generatedAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Payout]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		nextToken = encodeListToken(last.Data.GeneratedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Payout, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodePayoutDocument(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.Payout]{Items: items, NextPageToken: nextToken}, nil
}

func encodePayoutDocument(payout domain.Payout) payoutDocument {
	return payoutDocument{
		ConsultantID:    strings.TrimSpace(payout.ConsultantID),
		CycleID:         strings.TrimSpace(payout.CycleID),
		TotalAmount:     payout.TotalAmount,
		CommissionCount: payout.CommissionCount,
		Status:          string(payout.Status),
		GeneratedAt:     payout.GeneratedAt.UTC(),
		PaidAt:          payout.PaidAt,
	}
}

func decodePayoutDocument(id string, doc payoutDocument) domain.Payout {
	return domain.Payout{
		ID:              id,
		ConsultantID:    doc.ConsultantID,
		CycleID:         doc.CycleID,
		TotalAmount:     doc.TotalAmount,
		CommissionCount: doc.CommissionCount,
		Status:          domain.PayoutStatus(doc.Status),
		GeneratedAt:     doc.GeneratedAt,
		PaidAt:          doc.PaidAt,
	}
}

type payoutDocument struct {
	ConsultantID    string     `firestore:"consultantId"`
	CycleID         string     `firestore:"cycleId"`
	TotalAmount     int64      `firestore:"totalAmount"`
	CommissionCount int        `firestore:"commissionCount"`
	Status          string     `firestore:"status"`
	GeneratedAt     time.Time  `firestore:"generatedAt"`
	PaidAt          *time.Time `firestore:"paidAt,omitempty"`
}

var _ repositories.PayoutRepository = (*PayoutRepository)(nil)
