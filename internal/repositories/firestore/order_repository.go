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

const ordersCollection = "orders"

// OrderRepository persists immutable order snapshots with embedded item lines.
type OrderRepository struct {
	base *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil)
	return &OrderRepository{base: base}, nil
}

// Insert stores a new order document. The ID must be unique; a pre-existing document
// surfaces as a conflict.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return errors.New("order repository: order id is required")
	}
	_, err := r.base.Create(ctx, orderID, encodeOrderDocument(order))
	return err
}

// Update replaces the persisted order state. Only the status machine should reach this.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return errors.New("order repository: order id is required")
	}
	_, err := r.base.Set(ctx, orderID, encodeOrderDocument(order))
	return err
}

// FindByID fetches a single order with its item snapshot.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrderDocument(doc.ID, doc.Data), nil
}

// List returns orders matching the filter, newest first, with cursor paging.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	limit, fetchLimit := pageWindow(filter.Pagination)

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("order repository: invalid page token: %w", err)
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
		if customerID := strings.TrimSpace(filter.CustomerID); customerID != "" {
			q = q.Where("customerId", "==", customerID)
		}
		if len(statuses) == 1 {
			q = q.Where("status", "==", statuses[0])
		} else if len(statuses) > 1 {
			q = q.Where("status", "in", statuses)
		}
		if filter.DateRange.From != nil {
			q = q.Where("createdAt", ">=", filter.DateRange.From.UTC())
		}
		if filter.DateRange.To != nil {
			q = q.Where("createdAt", "<=", filter.DateRange.To.UTC())
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
		return domain.CursorPage[domain.Order]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		nextToken = encodeListToken(last.Data.CreatedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeOrderDocument(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.Order]{Items: items, NextPageToken: nextToken}, nil
}

func encodeOrderDocument(order domain.Order) orderDocument {
	items := make([]orderItemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemDocument{
			ProductID:        item.ProductID,
			Quantity:         item.Quantity,
			NameSnapshot:     item.NameSnapshot,
			SKUSnapshot:      item.SKUSnapshot,
			PointsSnapshot:   item.PointsSnapshot,
			IsRefillSnapshot: item.IsRefillSnapshot,
			UnitPrice:        item.UnitPrice,
			FinalPrice:       item.FinalPrice,
			PromotionID:      stringValue(item.PromotionID),
			SelectedVariant:  encodeVariant(item.SelectedVariant),
		})
	}
	return orderDocument{
		Number:          strings.TrimSpace(order.Number),
		ConsultantID:    strings.TrimSpace(order.ConsultantID),
		CycleID:         strings.TrimSpace(order.CycleID),
		CustomerID:      stringValue(order.CustomerID),
		Status:          string(order.Status),
		Subtotal:        order.Totals.Subtotal,
		DiscountTotal:   order.Totals.Discount,
		Total:           order.Totals.Total,
		ClientName:      strings.TrimSpace(order.ClientName),
		ClientPhone:     strings.TrimSpace(order.ClientPhone),
		Items:           items,
		CreatedAt:       order.CreatedAt.UTC(),
		UpdatedAt:       order.UpdatedAt.UTC(),
		ConfirmedAt:     order.ConfirmedAt,
		DeliveredAt:     order.DeliveredAt,
		CanceledAt:      order.CanceledAt,
		StatusUpdatedAt: order.StatusUpdatedAt.UTC(),
	}
}

func decodeOrderDocument(id string, doc orderDocument) domain.Order {
	items := make([]domain.OrderItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		items = append(items, domain.OrderItem{
			ProductID:        item.ProductID,
			Quantity:         item.Quantity,
			NameSnapshot:     item.NameSnapshot,
			SKUSnapshot:      item.SKUSnapshot,
			PointsSnapshot:   item.PointsSnapshot,
			IsRefillSnapshot: item.IsRefillSnapshot,
			UnitPrice:        item.UnitPrice,
			FinalPrice:       item.FinalPrice,
			PromotionID:      optionalString(item.PromotionID),
			SelectedVariant:  decodeVariant(item.SelectedVariant),
		})
	}
	return domain.Order{
		ID:           id,
		Number:       doc.Number,
		ConsultantID: doc.ConsultantID,
		CycleID:      doc.CycleID,
		CustomerID:   optionalString(doc.CustomerID),
		Status:       domain.OrderStatus(doc.Status),
		Totals: domain.OrderTotals{
			Subtotal: doc.Subtotal,
			Discount: doc.DiscountTotal,
			Total:    doc.Total,
		},
		ClientName:      doc.ClientName,
		ClientPhone:     doc.ClientPhone,
		Items:           items,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
		ConfirmedAt:     doc.ConfirmedAt,
		DeliveredAt:     doc.DeliveredAt,
		CanceledAt:      doc.CanceledAt,
		StatusUpdatedAt: doc.StatusUpdatedAt,
	}
}

type orderDocument struct {
	Number          string              `firestore:"number,omitempty"`
	ConsultantID    string              `firestore:"consultantId"`
	CycleID         string              `firestore:"cycleId"`
	CustomerID      string              `firestore:"customerId,omitempty"`
	Status          string              `firestore:"status"`
	Subtotal        int64               `firestore:"subtotal"`
	DiscountTotal   int64               `firestore:"discountTotal"`
	Total           int64               `firestore:"total"`
	ClientName      string              `firestore:"clientName"`
	ClientPhone     string              `firestore:"clientPhone,omitempty"`
	Items           []orderItemDocument `firestore:"items"`
	CreatedAt       time.Time           `firestore:"createdAt"`
	UpdatedAt       time.Time           `firestore:"updatedAt"`
	ConfirmedAt     *time.Time          `firestore:"confirmedAt,omitempty"`
	DeliveredAt     *time.Time          `firestore:"deliveredAt,omitempty"`
	CanceledAt      *time.Time          `firestore:"canceledAt,omitempty"`
	StatusUpdatedAt time.Time           `firestore:"statusUpdatedAt"`
}

type orderItemDocument struct {
	ProductID        string           `firestore:"productId"`
	Quantity         int              `firestore:"quantity"`
	NameSnapshot     string           `firestore:"nameSnapshot"`
	SKUSnapshot      string           `firestore:"skuSnapshot,omitempty"`
	PointsSnapshot   int              `firestore:"pointsSnapshot"`
	IsRefillSnapshot bool             `firestore:"isRefillSnapshot"`
	UnitPrice        int64            `firestore:"unitPrice"`
	FinalPrice       int64            `firestore:"finalPrice"`
	PromotionID      string           `firestore:"promotionId,omitempty"`
	SelectedVariant  *variantDocument `firestore:"selectedVariant,omitempty"`
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)
