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

const cartCollection = "carts"

// CartRepository persists cart headers with embedded item lines, keyed by the opaque
// cart token. Embedding keeps "empty the cart" a single-document write, which is what
// lets order materialization clear the cart inside the same transaction.
type CartRepository struct {
	base *pfirestore.BaseRepository[cartDocument]
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[cartDocument](provider, cartCollection, nil, nil)
	return &CartRepository{base: base}, nil
}

// UpsertCart persists the full cart state under its token.
func (r *CartRepository) UpsertCart(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	cartID := strings.TrimSpace(cart.ID)
	if cartID == "" {
		return domain.Cart{}, errors.New("cart repository: cart id is required")
	}

	now := time.Now().UTC()
	if !cart.UpdatedAt.IsZero() {
		now = cart.UpdatedAt.UTC()
	}
	createdAt := cart.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	doc := encodeCartDocument(cart, createdAt, now)
	if _, err := r.base.Set(ctx, cartID, doc); err != nil {
		return domain.Cart{}, err
	}

	saved := cart
	saved.ID = cartID
	saved.CreatedAt = createdAt
	saved.UpdatedAt = now
	return saved, nil
}

// GetCart loads the cart stored under the given token.
func (r *CartRepository) GetCart(ctx context.Context, cartID string) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return domain.Cart{}, errors.New("cart repository: cart id is required")
	}

	doc, err := r.base.Get(ctx, cartID)
	if err != nil {
		return domain.Cart{}, err
	}
	return decodeCartDocument(doc.ID, doc.Data), nil
}

// ReplaceItems swaps the cart's item lines wholesale. An empty slice empties the cart
// without deleting it.
func (r *CartRepository) ReplaceItems(ctx context.Context, cartID string, items []domain.CartItem, updatedAt time.Time) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return domain.Cart{}, errors.New("cart repository: cart id is required")
	}
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	updatedAt = updatedAt.UTC()

	itemDocs := make([]cartItemDocument, 0, len(items))
	for _, item := range items {
		itemDocs = append(itemDocs, encodeCartItem(item))
	}

	updates := []firestore.Update{
		{Path: "items", Value: itemDocs},
		{Path: "itemsCount", Value: len(itemDocs)},
		{Path: "updatedAt", Value: updatedAt},
	}
	if _, err := r.base.Update(ctx, cartID, updates); err != nil {
		return domain.Cart{}, err
	}

	// Mutations issued inside a transaction are not readable until commit, so the
	// caller's view is assembled locally.
	cart := domain.Cart{
		ID:        cartID,
		Items:     append([]domain.CartItem(nil), items...),
		UpdatedAt: updatedAt,
	}
	return cart, nil
}

func encodeCartDocument(cart domain.Cart, createdAt, updatedAt time.Time) cartDocument {
	items := make([]cartItemDocument, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, encodeCartItem(item))
	}
	return cartDocument{
		ConsultantID: strings.TrimSpace(cart.ConsultantID),
		CycleID:      strings.TrimSpace(cart.CycleID),
		Items:        items,
		ItemsCount:   len(items),
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
}

func decodeCartDocument(id string, doc cartDocument) domain.Cart {
	items := make([]domain.CartItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		items = append(items, decodeCartItem(item))
	}
	return domain.Cart{
		ID:           id,
		ConsultantID: doc.ConsultantID,
		CycleID:      doc.CycleID,
		Items:        items,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

func encodeCartItem(item domain.CartItem) cartItemDocument {
	return cartItemDocument{
		ID:              item.ID,
		ProductID:       item.ProductID,
		Quantity:        item.Quantity,
		SelectedVariant: encodeVariant(item.SelectedVariant),
		AddedAt:         item.AddedAt.UTC(),
		UpdatedAt:       item.UpdatedAt.UTC(),
	}
}

func decodeCartItem(doc cartItemDocument) domain.CartItem {
	return domain.CartItem{
		ID:              doc.ID,
		ProductID:       doc.ProductID,
		Quantity:        doc.Quantity,
		SelectedVariant: decodeVariant(doc.SelectedVariant),
		AddedAt:         doc.AddedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
}

type cartDocument struct {
	ConsultantID string             `firestore:"consultantId"`
	CycleID      string             `firestore:"cycleId"`
	Items        []cartItemDocument `firestore:"items"`
	ItemsCount   int                `firestore:"itemsCount"`
	CreatedAt    time.Time          `firestore:"createdAt"`
	UpdatedAt    time.Time          `firestore:"updatedAt"`
}

type cartItemDocument struct {
	ID              string           `firestore:"id"`
	ProductID       string           `firestore:"productId"`
	Quantity        int              `firestore:"quantity"`
	SelectedVariant *variantDocument `firestore:"selectedVariant,omitempty"`
	AddedAt         time.Time        `firestore:"addedAt"`
	UpdatedAt       time.Time        `firestore:"updatedAt"`
}

var _ repositories.CartRepository = (*CartRepository)(nil)
