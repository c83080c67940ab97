package handlers

import (
	domain "github.com/vessia-direct/api/internal/domain"
)

// Response payload shapes shared across handler files. Monetary fields are int64 céntimos
// end to end; no float conversion happens at the HTTP boundary.

type brandPayload struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	Slug                     string `json:"slug"`
	DefaultCommissionRateBps int64  `json:"defaultCommissionRateBps"`
	Active                   bool   `json:"active"`
	CreatedAt                string `json:"createdAt,omitempty"`
	UpdatedAt                string `json:"updatedAt,omitempty"`
}

func newBrandPayload(brand domain.Brand) brandPayload {
	return brandPayload{
		ID:                       brand.ID,
		Name:                     brand.Name,
		Slug:                     brand.Slug,
		DefaultCommissionRateBps: brand.DefaultCommissionRateBps,
		Active:                   brand.Active,
		CreatedAt:                formatTime(brand.CreatedAt),
		UpdatedAt:                formatTime(brand.UpdatedAt),
	}
}

type productVariantPayload struct {
	Name  string `json:"name"`
	SKU   string `json:"sku,omitempty"`
	Color string `json:"color,omitempty"`
}

func newVariantPayloads(variants []domain.ProductVariant) []productVariantPayload {
	if len(variants) == 0 {
		return nil
	}
	out := make([]productVariantPayload, 0, len(variants))
	for _, v := range variants {
		out = append(out, productVariantPayload{Name: v.Name, SKU: v.SKU, Color: v.Color})
	}
	return out
}

func newVariantPointerPayload(variant *domain.ProductVariant) *productVariantPayload {
	if variant == nil {
		return nil
	}
	return &productVariantPayload{Name: variant.Name, SKU: variant.SKU, Color: variant.Color}
}

type productPayload struct {
	ID              string                  `json:"id"`
	SKU             string                  `json:"sku"`
	Name            string                  `json:"name"`
	Description     string                  `json:"description,omitempty"`
	BasePrice       int64                   `json:"basePrice"`
	Points          int                     `json:"points"`
	BrandID         string                  `json:"brandId"`
	IsRefill        bool                    `json:"isRefill"`
	ParentProductID *string                 `json:"parentProductId,omitempty"`
	Variants        []productVariantPayload `json:"variants,omitempty"`
	Active          bool                    `json:"active"`
	CreatedAt       string                  `json:"createdAt,omitempty"`
	UpdatedAt       string                  `json:"updatedAt,omitempty"`
}

func newProductPayload(product domain.Product) productPayload {
	return productPayload{
		ID:              product.ID,
		SKU:             product.SKU,
		Name:            product.Name,
		Description:     product.Description,
		BasePrice:       product.BasePrice,
		Points:          product.Points,
		BrandID:         product.BrandID,
		IsRefill:        product.IsRefill,
		ParentProductID: product.ParentProductID,
		Variants:        newVariantPayloads(product.Variants),
		Active:          product.Active,
		CreatedAt:       formatTime(product.CreatedAt),
		UpdatedAt:       formatTime(product.UpdatedAt),
	}
}

type cyclePayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartsAt  string `json:"startsAt"`
	EndsAt    string `json:"endsAt"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

func newCyclePayload(cycle domain.Cycle) cyclePayload {
	return cyclePayload{
		ID:        cycle.ID,
		Name:      cycle.Name,
		StartsAt:  formatTime(cycle.StartsAt),
		EndsAt:    formatTime(cycle.EndsAt),
		Active:    cycle.Active,
		CreatedAt: formatTime(cycle.CreatedAt),
		UpdatedAt: formatTime(cycle.UpdatedAt),
	}
}

type cyclePricePayload struct {
	CycleID     string `json:"cycleId"`
	ProductID   string `json:"productId"`
	Price       int64  `json:"price"`
	Promotional bool   `json:"promotional"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

func newCyclePricePayload(price domain.CyclePrice) cyclePricePayload {
	return cyclePricePayload{
		CycleID:     price.CycleID,
		ProductID:   price.ProductID,
		Price:       price.Price,
		Promotional: price.Promotional,
		UpdatedAt:   formatTime(price.UpdatedAt),
	}
}

type promotionPayload struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	CycleID       string   `json:"cycleId"`
	DiscountType  string   `json:"discountType"`
	DiscountValue int64    `json:"discountValue"`
	StartsAt      string   `json:"startsAt"`
	EndsAt        string   `json:"endsAt"`
	Active        bool     `json:"active"`
	ProductIDs    []string `json:"productIds"`
}

func newPromotionPayload(promotion domain.Promotion) promotionPayload {
	return promotionPayload{
		ID:            promotion.ID,
		Name:          promotion.Name,
		CycleID:       promotion.CycleID,
		DiscountType:  string(promotion.DiscountType),
		DiscountValue: promotion.DiscountValue,
		StartsAt:      formatTime(promotion.StartsAt),
		EndsAt:        formatTime(promotion.EndsAt),
		Active:        promotion.Active,
		ProductIDs:    promotion.ProductIDs,
	}
}

type consultantPayload struct {
	ID     string `json:"id"`
	Slug   string `json:"slug"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Active bool   `json:"active"`
}

func newConsultantPayload(consultant domain.Consultant) consultantPayload {
	return consultantPayload{
		ID:     consultant.ID,
		Slug:   consultant.Slug,
		Name:   consultant.Name,
		Email:  consultant.Email,
		Phone:  consultant.Phone,
		Active: consultant.Active,
	}
}

type priceQuotePayload struct {
	UnitPrice   int64   `json:"unitPrice"`
	FinalPrice  int64   `json:"finalPrice"`
	Discounted  bool    `json:"discounted"`
	PromotionID *string `json:"promotionId,omitempty"`
}

func newPriceQuotePayload(quote domain.PriceQuote) priceQuotePayload {
	return priceQuotePayload{
		UnitPrice:   quote.UnitPrice,
		FinalPrice:  quote.FinalPrice,
		Discounted:  quote.Discounted,
		PromotionID: quote.PromotionID,
	}
}

type cartItemPayload struct {
	ID              string                 `json:"id"`
	ProductID       string                 `json:"productId"`
	Quantity        int                    `json:"quantity"`
	SelectedVariant *productVariantPayload `json:"selectedVariant,omitempty"`
	AddedAt         string                 `json:"addedAt,omitempty"`
	UpdatedAt       string                 `json:"updatedAt,omitempty"`
}

type cartPayload struct {
	ID           string            `json:"id"`
	ConsultantID string            `json:"consultantId"`
	CycleID      string            `json:"cycleId"`
	Items        []cartItemPayload `json:"items"`
	CreatedAt    string            `json:"createdAt,omitempty"`
	UpdatedAt    string            `json:"updatedAt,omitempty"`
}

func newCartPayload(cart domain.Cart) cartPayload {
	items := make([]cartItemPayload, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemPayload{
			ID:              item.ID,
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			SelectedVariant: newVariantPointerPayload(item.SelectedVariant),
			AddedAt:         formatTime(item.AddedAt),
			UpdatedAt:       formatTime(item.UpdatedAt),
		})
	}
	return cartPayload{
		ID:           cart.ID,
		ConsultantID: cart.ConsultantID,
		CycleID:      cart.CycleID,
		Items:        items,
		CreatedAt:    formatTime(cart.CreatedAt),
		UpdatedAt:    formatTime(cart.UpdatedAt),
	}
}

type cartLinePayload struct {
	Item      cartItemPayload   `json:"item"`
	Name      string            `json:"name"`
	SKU       string            `json:"sku"`
	BrandID   string            `json:"brandId"`
	Points    int               `json:"points"`
	IsRefill  bool              `json:"isRefill"`
	Quote     priceQuotePayload `json:"quote"`
	LineTotal int64             `json:"lineTotal"`
}

type cartSummaryPayload struct {
	CartID        string            `json:"cartId"`
	CycleID       string            `json:"cycleId"`
	Lines         []cartLinePayload `json:"lines"`
	Subtotal      int64             `json:"subtotal"`
	DiscountTotal int64             `json:"discountTotal"`
	Total         int64             `json:"total"`
	TotalPoints   int               `json:"totalPoints"`
	ItemCount     int               `json:"itemCount"`
}

func newCartSummaryPayload(summary domain.CartSummary) cartSummaryPayload {
	lines := make([]cartLinePayload, 0, len(summary.Lines))
	for _, line := range summary.Lines {
		lines = append(lines, cartLinePayload{
			Item: cartItemPayload{
				ID:              line.Item.ID,
				ProductID:       line.Item.ProductID,
				Quantity:        line.Item.Quantity,
				SelectedVariant: newVariantPointerPayload(line.Item.SelectedVariant),
				AddedAt:         formatTime(line.Item.AddedAt),
				UpdatedAt:       formatTime(line.Item.UpdatedAt),
			},
			Name:      line.Name,
			SKU:       line.SKU,
			BrandID:   line.BrandID,
			Points:    line.Points,
			IsRefill:  line.IsRefill,
			Quote:     newPriceQuotePayload(line.Quote),
			LineTotal: line.LineTotal,
		})
	}
	return cartSummaryPayload{
		CartID:        summary.CartID,
		CycleID:       summary.CycleID,
		Lines:         lines,
		Subtotal:      summary.Subtotal,
		DiscountTotal: summary.DiscountTotal,
		Total:         summary.Total,
		TotalPoints:   summary.TotalPoints,
		ItemCount:     summary.ItemCount,
	}
}

type orderItemPayload struct {
	ProductID       string                 `json:"productId"`
	Quantity        int                    `json:"quantity"`
	Name            string                 `json:"name"`
	SKU             string                 `json:"sku"`
	Points          int                    `json:"points"`
	IsRefill        bool                   `json:"isRefill"`
	UnitPrice       int64                  `json:"unitPrice"`
	FinalPrice      int64                  `json:"finalPrice"`
	PromotionID     *string                `json:"promotionId,omitempty"`
	SelectedVariant *productVariantPayload `json:"selectedVariant,omitempty"`
}

type orderTotalsPayload struct {
	Subtotal int64 `json:"subtotal"`
	Discount int64 `json:"discount"`
	Total    int64 `json:"total"`
}

type orderPayload struct {
	ID              string             `json:"id"`
	Number          string             `json:"number"`
	ConsultantID    string             `json:"consultantId"`
	CycleID         string             `json:"cycleId"`
	CustomerID      *string            `json:"customerId,omitempty"`
	Status          string             `json:"status"`
	Totals          orderTotalsPayload `json:"totals"`
	ClientName      string             `json:"clientName,omitempty"`
	ClientPhone     string             `json:"clientPhone,omitempty"`
	Items           []orderItemPayload `json:"items"`
	CreatedAt       string             `json:"createdAt,omitempty"`
	UpdatedAt       string             `json:"updatedAt,omitempty"`
	ConfirmedAt     string             `json:"confirmedAt,omitempty"`
	DeliveredAt     string             `json:"deliveredAt,omitempty"`
	CanceledAt      string             `json:"canceledAt,omitempty"`
	StatusUpdatedAt string             `json:"statusUpdatedAt,omitempty"`
}

func newOrderPayload(order domain.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemPayload{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			Name:            item.NameSnapshot,
			SKU:             item.SKUSnapshot,
			Points:          item.PointsSnapshot,
			IsRefill:        item.IsRefillSnapshot,
			UnitPrice:       item.UnitPrice,
			FinalPrice:      item.FinalPrice,
			PromotionID:     item.PromotionID,
			SelectedVariant: newVariantPointerPayload(item.SelectedVariant),
		})
	}
	return orderPayload{
		ID:           order.ID,
		Number:       order.Number,
		ConsultantID: order.ConsultantID,
		CycleID:      order.CycleID,
		CustomerID:   order.CustomerID,
		Status:       string(order.Status),
		Totals: orderTotalsPayload{
			Subtotal: order.Totals.Subtotal,
			Discount: order.Totals.Discount,
			Total:    order.Totals.Total,
		},
		ClientName:      order.ClientName,
		ClientPhone:     order.ClientPhone,
		Items:           items,
		CreatedAt:       formatTime(order.CreatedAt),
		UpdatedAt:       formatTime(order.UpdatedAt),
		ConfirmedAt:     formatTimePointer(order.ConfirmedAt),
		DeliveredAt:     formatTimePointer(order.DeliveredAt),
		CanceledAt:      formatTimePointer(order.CanceledAt),
		StatusUpdatedAt: formatTime(order.StatusUpdatedAt),
	}
}

type commissionPayload struct {
	ID                string  `json:"id"`
	OrderID           string  `json:"orderId"`
	BrandID           string  `json:"brandId"`
	ConsultantID      string  `json:"consultantId"`
	CycleID           string  `json:"cycleId"`
	GrossAmount       int64   `json:"grossAmount"`
	CommissionRateBps int64   `json:"commissionRateBps"`
	CommissionAmount  int64   `json:"commissionAmount"`
	Status            string  `json:"status"`
	PayoutID          *string `json:"payoutId,omitempty"`
	CreatedAt         string  `json:"createdAt,omitempty"`
}

func newCommissionPayload(commission domain.Commission) commissionPayload {
	return commissionPayload{
		ID:                commission.ID,
		OrderID:           commission.OrderID,
		BrandID:           commission.BrandID,
		ConsultantID:      commission.ConsultantID,
		CycleID:           commission.CycleID,
		GrossAmount:       commission.GrossAmount,
		CommissionRateBps: commission.CommissionRateBps,
		CommissionAmount:  commission.CommissionAmount,
		Status:            string(commission.Status),
		CreatedAt:         formatTime(commission.CreatedAt),
		PayoutID:          commission.PayoutID,
	}
}

type payoutPayload struct {
	ID              string `json:"id"`
	ConsultantID    string `json:"consultantId"`
	CycleID         string `json:"cycleId"`
	TotalAmount     int64  `json:"totalAmount"`
	CommissionCount int    `json:"commissionCount"`
	Status          string `json:"status"`
	GeneratedAt     string `json:"generatedAt,omitempty"`
	PaidAt          string `json:"paidAt,omitempty"`
}

func newPayoutPayload(payout domain.Payout) payoutPayload {
	return payoutPayload{
		ID:              payout.ID,
		ConsultantID:    payout.ConsultantID,
		CycleID:         payout.CycleID,
		TotalAmount:     payout.TotalAmount,
		CommissionCount: payout.CommissionCount,
		Status:          string(payout.Status),
		GeneratedAt:     formatTime(payout.GeneratedAt),
		PaidAt:          formatTimePointer(payout.PaidAt),
	}
}

type listResponse[T any] struct {
	Items         []T    `json:"items"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

func newListResponse[T any, S any](page domain.CursorPage[S], render func(S) T) listResponse[T] {
	items := make([]T, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, render(item))
	}
	return listResponse[T]{Items: items, NextPageToken: page.NextPageToken}
}
