package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/vessia-direct/api/internal/domain"
	"github.com/vessia-direct/api/internal/platform/httpx"
	"github.com/vessia-direct/api/internal/platform/pagination"
	"github.com/vessia-direct/api/internal/services"
)

// AdminHandlers exposes the back-office write surface for catalog, cycle, and consultant
// reference data. The router places every route here behind the staff and admin roles.
type AdminHandlers struct {
	catalog     services.CatalogService
	cycles      services.CycleService
	consultants services.ConsultantService
	maxBodySize int64
}

// AdminHandlersDeps bundles the services backing the admin surface.
type AdminHandlersDeps struct {
	Catalog     services.CatalogService
	Cycles      services.CycleService
	Consultants services.ConsultantService
}

// AdminOption customises AdminHandlers construction.
type AdminOption func(*AdminHandlers)

// WithAdminMaxBodySize overrides the request body size limit.
func WithAdminMaxBodySize(limit int64) AdminOption {
	return func(h *AdminHandlers) {
		if limit > 0 {
			h.maxBodySize = limit
		}
	}
}

// NewAdminHandlers constructs the admin handler set.
func NewAdminHandlers(deps AdminHandlersDeps, opts ...AdminOption) (*AdminHandlers, error) {
	if deps.Catalog == nil {
		return nil, errors.New("admin handlers: catalog service is required")
	}
	if deps.Cycles == nil {
		return nil, errors.New("admin handlers: cycle service is required")
	}
	if deps.Consultants == nil {
		return nil, errors.New("admin handlers: consultant service is required")
	}
	h := &AdminHandlers{
		catalog:     deps.Catalog,
		cycles:      deps.Cycles,
		consultants: deps.Consultants,
		maxBodySize: defaultMaxBodySize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Routes registers the admin endpoints on the supplied router.
func (h *AdminHandlers) Routes(r chi.Router) {
	r.Get("/brands", h.listBrands)
	r.Put("/brands", h.upsertBrand)
	r.Get("/products", h.listProducts)
	r.Put("/products", h.upsertProduct)
	r.Get("/cycles", h.listCycles)
	r.Put("/cycles", h.upsertCycle)
	r.Get("/cycles/{cycleID}/prices", h.listCyclePrices)
	r.Put("/cycles/{cycleID}/prices", h.setCyclePrice)
	r.Get("/cycles/{cycleID}/promotions", h.listPromotions)
	r.Put("/promotions", h.upsertPromotion)
	r.Put("/consultants", h.upsertConsultant)
}

type upsertBrandRequest struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	Slug                     string `json:"slug"`
	DefaultCommissionRateBps int64  `json:"defaultCommissionRateBps"`
	Active                   bool   `json:"active"`
}

type upsertProductRequest struct {
	ID              string                  `json:"id"`
	SKU             string                  `json:"sku"`
	Name            string                  `json:"name"`
	Description     string                  `json:"description"`
	BasePrice       int64                   `json:"basePrice"`
	Points          int                     `json:"points"`
	BrandID         string                  `json:"brandId"`
	IsRefill        bool                    `json:"isRefill"`
	ParentProductID *string                 `json:"parentProductId"`
	Variants        []productVariantPayload `json:"variants"`
	Active          bool                    `json:"active"`
}

type upsertCycleRequest struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	StartsAt time.Time `json:"startsAt"`
	EndsAt   time.Time `json:"endsAt"`
	Active   bool      `json:"active"`
}

type setCyclePriceRequest struct {
	ProductID   string `json:"productId"`
	Price       int64  `json:"price"`
	Promotional bool   `json:"promotional"`
}

type upsertPromotionRequest struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CycleID       string    `json:"cycleId"`
	DiscountType  string    `json:"discountType"`
	DiscountValue int64     `json:"discountValue"`
	StartsAt      time.Time `json:"startsAt"`
	EndsAt        time.Time `json:"endsAt"`
	Active        bool      `json:"active"`
	ProductIDs    []string  `json:"productIds"`
}

type upsertConsultantRequest struct {
	ID     string `json:"id"`
	Slug   string `json:"slug"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Active bool   `json:"active"`
}

func (h *AdminHandlers) listBrands(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pager, err := pageFromRequest(r, pagination.Options{DefaultPageSize: 50, MaxPageSize: 200})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.catalog.ListBrands(ctx, services.BrandFilter{Pagination: pager})
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newListResponse(page, newBrandPayload))
}

func (h *AdminHandlers) upsertBrand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req upsertBrandRequest
	if err := decodeJSONBody(r, h.maxBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	brand, err := h.catalog.UpsertBrand(ctx, services.UpsertBrandCommand{
		ID:                       strings.TrimSpace(req.ID),
		Name:                     strings.TrimSpace(req.Name),
		Slug:                     strings.TrimSpace(req.Slug),
		DefaultCommissionRateBps: req.DefaultCommissionRateBps,
		Active:                   req.Active,
	})
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newBrandPayload(brand))
}

func (h *AdminHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pager, err := pageFromRequest(r, pagination.Options{DefaultPageSize: 50, MaxPageSize: 200})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.ProductFilter{Pagination: pager}
	if brandID := strings.TrimSpace(r.URL.Query().Get("brandId")); brandID != "" {
		filter.BrandID = &brandID
	}

	page, err := h.catalog.ListProducts(ctx, filter)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newListResponse(page, newProductPayload))
}

func (h *AdminHandlers) upsertProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req upsertProductRequest
	if err := decodeJSONBody(r, h.maxBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	variants := make([]domain.ProductVariant, 0, len(req.Variants))
	for _, v := range req.Variants {
		variants = append(variants, domain.ProductVariant{
			Name:  strings.TrimSpace(v.Name),
			SKU:   strings.TrimSpace(v.SKU),
			Color: strings.TrimSpace(v.Color),
		})
	}

	product, err := h.catalog.UpsertProduct(ctx, services.UpsertProductCommand{
		ID:              strings.TrimSpace(req.ID),
		SKU:             strings.TrimSpace(req.SKU),
		Name:            strings.TrimSpace(req.Name),
		Description:     strings.TrimSpace(req.Description),
		BasePrice:       req.BasePrice,
		Points:          req.Points,
		BrandID:         strings.TrimSpace(req.BrandID),
		IsRefill:        req.IsRefill,
		ParentProductID: req.ParentProductID,
		Variants:        variants,
		Active:          req.Active,
	})
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newProductPayload(product))
}

func (h *AdminHandlers) listCycles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pager, err := pageFromRequest(r, pagination.Options{DefaultPageSize: 20, MaxPageSize: 100})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.cycles.ListCycles(ctx, pager)
	if err != nil {
		h.writeCycleError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newListResponse(page, newCyclePayload))
}

func (h *AdminHandlers) upsertCycle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req upsertCycleRequest
	if err := decodeJSONBody(r, h.maxBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	cycle, err := h.cycles.UpsertCycle(ctx, services.UpsertCycleCommand{
		ID:       strings.TrimSpace(req.ID),
		Name:     strings.TrimSpace(req.Name),
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
		Active:   req.Active,
	})
	if err != nil {
		h.writeCycleError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newCyclePayload(cycle))
}

func (h *AdminHandlers) listCyclePrices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	prices, err := h.cycles.ListCyclePrices(ctx, chi.URLParam(r, "cycleID"))
	if err != nil {
		h.writeCycleError(ctx, w, err)
		return
	}

	items := make([]cyclePricePayload, 0, len(prices))
	for _, price := range prices {
		items = append(items, newCyclePricePayload(price))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"items": items})
}

func (h *AdminHandlers) setCyclePrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req setCyclePriceRequest
	if err := decodeJSONBody(r, h.maxBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	price, err := h.cycles.SetCyclePrice(ctx, services.SetCyclePriceCommand{
		CycleID:     chi.URLParam(r, "cycleID"),
		ProductID:   strings.TrimSpace(req.ProductID),
		Price:       req.Price,
		Promotional: req.Promotional,
	})
	if err != nil {
		h.writeCycleError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newCyclePricePayload(price))
}

func (h *AdminHandlers) listPromotions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	promotions, err := h.cycles.ListPromotions(ctx, chi.URLParam(r, "cycleID"))
	if err != nil {
		h.writeCycleError(ctx, w, err)
		return
	}

	items := make([]promotionPayload, 0, len(promotions))
	for _, promotion := range promotions {
		items = append(items, newPromotionPayload(promotion))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"items": items})
}

func (h *AdminHandlers) upsertPromotion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req upsertPromotionRequest
	if err := decodeJSONBody(r, h.maxBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	promotion, err := h.cycles.UpsertPromotion(ctx, services.UpsertPromotionCommand{
		ID:            strings.TrimSpace(req.ID),
		Name:          strings.TrimSpace(req.Name),
		CycleID:       strings.TrimSpace(req.CycleID),
		DiscountType:  domain.DiscountType(strings.ToLower(strings.TrimSpace(req.DiscountType))),
		DiscountValue: req.DiscountValue,
		StartsAt:      req.StartsAt,
		EndsAt:        req.EndsAt,
		Active:        req.Active,
		ProductIDs:    req.ProductIDs,
	})
	if err != nil {
		h.writeCycleError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newPromotionPayload(promotion))
}

func (h *AdminHandlers) upsertConsultant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req upsertConsultantRequest
	if err := decodeJSONBody(r, h.maxBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	consultant, err := h.consultants.UpsertConsultant(ctx, services.UpsertConsultantCommand{
		ID:     strings.TrimSpace(req.ID),
		Slug:   strings.TrimSpace(req.Slug),
		Name:   strings.TrimSpace(req.Name),
		Email:  strings.TrimSpace(req.Email),
		Phone:  strings.TrimSpace(req.Phone),
		Active: req.Active,
	})
	if err != nil {
		h.writeConsultantError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newConsultantPayload(consultant))
}

func (h *AdminHandlers) writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "catalog entry not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("unavailable", "catalog unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal", "unexpected catalog error", http.StatusInternalServerError))
	}
}

func (h *AdminHandlers) writeCycleError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCycleInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCycleNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "cycle not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCycleUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("unavailable", "cycle service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal", "unexpected cycle error", http.StatusInternalServerError))
	}
}

func (h *AdminHandlers) writeConsultantError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrConsultantInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrConsultantNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "consultant not found", http.StatusNotFound))
	case errors.Is(err, services.ErrConsultantUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("unavailable", "consultant service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal", "unexpected consultant error", http.StatusInternalServerError))
	}
}
