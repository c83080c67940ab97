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

const commissionCollection = "commissions"

// CommissionID derives the document key for a commission. The (order, brand) pair IS
// the key, so a second insert for the same pair fails with AlreadyExists instead of
// silently duplicating the row.
func CommissionID(orderID, brandID string) string {
	return compositeID(orderID, brandID)
}

// CommissionRepository persists per (order, brand) commission rows.
type CommissionRepository struct {
	base *pfirestore.BaseRepository[commissionDocument]
}

// NewCommissionRepository constructs a Firestore-backed commission repository.
func NewCommissionRepository(provider *pfirestore.Provider) (*CommissionRepository, error) {
	if provider == nil {
		return nil, errors.New("commission repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[commissionDocument](provider, commissionCollection, nil, nil)
	return &CommissionRepository{base: base}, nil
}

// Insert creates the commission row. Inserting an existing (order, brand) pair returns
// a conflict error, which callers treat as "already calculated".
func (r *CommissionRepository) Insert(ctx context.Context, commission domain.Commission) error {
	if r == nil || r.base == nil {
		return errors.New("commission repository not initialised")
	}
	if strings.TrimSpace(commission.OrderID) == "" || strings.TrimSpace(commission.BrandID) == "" {
		return errors.New("commission repository: order id and brand id are required")
	}
	_, err := r.base.Create(ctx, CommissionID(commission.OrderID, commission.BrandID), encodeCommissionDocument(commission))
	return err
}

// Update replaces the persisted commission state (status / payout attachment flips).
func (r *CommissionRepository) Update(ctx context.Context, commission domain.Commission) error {
	if r == nil || r.base == nil {
		return errors.New("commission repository not initialised")
	}
	commissionID := strings.TrimSpace(commission.ID)
	if commissionID == "" {
		commissionID = CommissionID(commission.OrderID, commission.BrandID)
	}
	if commissionID == "" {
		return errors.New("commission repository: commission id is required")
	}
	_, err := r.base.Set(ctx, commissionID, encodeCommissionDocument(commission))
	return err
}

// FindByID fetches a single commission row.
func (r *CommissionRepository) FindByID(ctx context.Context, commissionID string) (domain.Commission, error) {
	if r == nil || r.base == nil {
		return domain.Commission{}, errors.New("commission repository not initialised")
	}
	commissionID = strings.TrimSpace(commissionID)
	if commissionID == "" {
		return domain.Commission{}, errors.New("commission repository: commission id is required")
	}
	doc, err := r.base.Get(ctx, commissionID)
	if err != nil {
		return domain.Commission{}, err
	}
	return decodeCommissionDocument(doc.ID, doc.Data), nil
}

// ListByOrder returns every commission row derived from the given order.
func (r *CommissionRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.Commission, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("commission repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, errors.New("commission repository: order id is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("orderId", "==", orderID)
	})
	if err != nil {
		return nil, err
	}

	commissions := make([]domain.Commission, 0, len(docs))
	for _, doc := range docs {
		commissions = append(commissions, decodeCommissionDocument(doc.ID, doc.Data))
	}
	return commissions, nil
}

// List returns commissions matching the filter, newest first, with cursor paging.
// Unattached filtering relies on payoutId being stored as an empty string rather than
// an absent field so equality queries can match it.
func (r *CommissionRepository) List(ctx context.Context, filter repositories.CommissionListFilter) (domain.CursorPage[domain.Commission], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Commission]{}, errors.New("commission repository not initialised")
	}

	limit, fetchLimit := pageWindow(filter.Pagination)

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Commission]{}, fmt.Errorf("commission repository: invalid page token: %w", err)
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
		if orderID := strings.TrimSpace(filter.OrderID); orderID != "" {
			q = q.Where("orderId", "==", orderID)
		}
		if len(statuses) == 1 {
			q = q.Where("status", "==", statuses[0])
		} else if len(statuses) > 1 {
			q = q.Where("status", "in", statuses)
		}
		if filter.Unattached {
			q = q.Where("payoutId", "==", "")
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
		return domain.CursorPage[domain.Commission]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		nextToken = encodeListToken(last.Data.CreatedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Commission, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeCommissionDocument(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.Commission]{Items: items, NextPageToken: nextToken}, nil
}

func encodeCommissionDocument(commission domain.Commission) commissionDocument {
	return commissionDocument{
		OrderID:           strings.TrimSpace(commission.OrderID),
		BrandID:           strings.TrimSpace(commission.BrandID),
		ConsultantID:      strings.TrimSpace(commission.ConsultantID),
		CycleID:           strings.TrimSpace(commission.CycleID),
		GrossAmount:       commission.GrossAmount,
		CommissionRateBps: commission.CommissionRateBps,
		CommissionAmount:  commission.CommissionAmount,
		Status:            string(commission.Status),
		PayoutID:          stringValue(commission.PayoutID),
		CreatedAt:         commission.CreatedAt.UTC(),
		UpdatedAt:         commission.UpdatedAt.UTC(),
	}
}

func decodeCommissionDocument(id string, doc commissionDocument) domain.Commission {
	return domain.Commission{
		ID:                id,
		OrderID:           doc.OrderID,
		BrandID:           doc.BrandID,
		ConsultantID:      doc.ConsultantID,
		CycleID:           doc.CycleID,
		GrossAmount:       doc.GrossAmount,
		CommissionRateBps: doc.CommissionRateBps,
		CommissionAmount:  doc.CommissionAmount,
		Status:            domain.CommissionStatus(doc.Status),
		PayoutID:          optionalString(doc.PayoutID),
		CreatedAt:         doc.CreatedAt,
		UpdatedAt:         doc.UpdatedAt,
	}
}

type commissionDocument struct {
	OrderID           string    `firestore:"orderId"`
	BrandID           string    `firestore:"brandId"`
	ConsultantID      string    `firestore:"consultantId"`
	CycleID           string    `firestore:"cycleId"`
	GrossAmount       int64     `firestore:"grossAmount"`
	CommissionRateBps int64     `firestore:"commissionRateBps"`
	CommissionAmount  int64     `firestore:"commissionAmount"`
	Status            string    `firestore:"status"`
	PayoutID          string    `firestore:"payoutId"`
	CreatedAt         time.Time `firestore:"createdAt"`
	UpdatedAt         time.Time `firestore:"updatedAt"`
}

var _ repositories.CommissionRepository = (*CommissionRepository)(nil)
