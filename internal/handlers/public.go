package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vessia-direct/api/internal/platform/httpx"
	"github.com/vessia-direct/api/internal/platform/pagination"
	"github.com/vessia-direct/api/internal/services"
)

// PublicHandlers exposes the unauthenticated storefront read surface: catalog browsing,
// consultant storefront resolution, and live price quotes.
type PublicHandlers struct {
	catalog     services.CatalogService
	cycles      services.CycleService
	consultants services.ConsultantService
	pricer      services.PricingResolver
}

// PublicHandlersDeps bundles the services backing the public surface.
type PublicHandlersDeps struct {
	Catalog     services.CatalogService
	Cycles      services.CycleService
	Consultants services.ConsultantService
	Pricer      services.PricingResolver
}

// NewPublicHandlers constructs the public handler set.
func NewPublicHandlers(deps PublicHandlersDeps) (*PublicHandlers, error) {
	if deps.Catalog == nil {
		return nil, errors.New("public handlers: catalog service is required")
	}
	if deps.Cycles == nil {
		return nil, errors.New("public handlers: cycle service is required")
	}
	if deps.Consultants == nil {
		return nil, errors.New("public handlers: consultant service is required")
	}
	if deps.Pricer == nil {
		return nil, errors.New("public handlers: pricing resolver is required")
	}
	return &PublicHandlers{
		catalog:     deps.Catalog,
		cycles:      deps.Cycles,
		consultants: deps.Consultants,
		pricer:      deps.Pricer,
	}, nil
}

// Routes registers the public endpoints on the supplied router.
func (h *PublicHandlers) Routes(r chi.Router) {
	r.Get("/consultants/{slug}", h.getConsultantBySlug)
	r.Get("/brands", h.listBrands)
	r.Get("/products", h.listProducts)
	r.Get("/products/{productID}", h.getProduct)
	r.Get("/products/{productID}/price", h.getProductPrice)
	r.Get("/cycles/active", h.getActiveCycle)
	r.Get("/cycles/{cycleID}/promotions", h.listPromotions)
}

func (h *PublicHandlers) getConsultantBySlug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	consultant, err := h.consultants.GetConsultantBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		h.writeConsultantError(ctx, w, err)
		return
	}
	if !consultant.Active {
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "consultant not found", http.StatusNotFound))
		return
	}
	writeJSONResponse(w, http.StatusOK, newConsultantPayload(consultant))
}

func (h *PublicHandlers) listBrands(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pager, err := pageFromRequest(r, pagination.Options{DefaultPageSize: 50, MaxPageSize: 100})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.catalog.ListBrands(ctx, services.BrandFilter{OnlyActive: true, Pagination: pager})
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newListResponse(page, newBrandPayload))
}

func (h *PublicHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pager, err := pageFromRequest(r, pagination.Options{DefaultPageSize: 50, MaxPageSize: 100})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.ProductFilter{OnlyActive: true, Pagination: pager}
	if brandID := strings.TrimSpace(r.URL.Query().Get("brandId")); brandID != "" {
		filter.BrandID = &brandID
	}
	if rawRefill := strings.TrimSpace(r.URL.Query().Get("isRefill")); rawRefill != "" {
		isRefill := strings.EqualFold(rawRefill, "true")
		filter.IsRefill = &isRefill
	}

	page, err := h.catalog.ListProducts(ctx, filter)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newListResponse(page, newProductPayload))
}

func (h *PublicHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	if !product.Active {
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "product not found", http.StatusNotFound))
		return
	}
	writeJSONResponse(w, http.StatusOK, newProductPayload(product))
}

// getProductPrice resolves the effective price for a product. Without an explicit
// cycleId the quote is computed against the active cycle.
func (h *PublicHandlers) getProductPrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cycleID := strings.TrimSpace(r.URL.Query().Get("cycleId"))
	if cycleID == "" {
		cycle, err := h.cycles.ActiveCycle(ctx)
		if err != nil {
			h.writeCycleError(ctx, w, err)
			return
		}
		cycleID = cycle.ID
	}

	quote, err := h.pricer.ResolvePrice(ctx, cycleID, chi.URLParam(r, "productID"))
	if err != nil {
		h.writePricingError(ctx, w, err)
		return
	}

	payload := newPriceQuotePayload(quote)
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"cycleId":     cycleID,
		"productId":   chi.URLParam(r, "productID"),
		"unitPrice":   payload.UnitPrice,
		"finalPrice":  payload.FinalPrice,
		"discounted":  payload.Discounted,
		"promotionId": payload.PromotionID,
	})
}

func (h *PublicHandlers) getActiveCycle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cycle, err := h.cycles.ActiveCycle(ctx)
	if err != nil {
		h.writeCycleError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newCyclePayload(cycle))
}

func (h *PublicHandlers) listPromotions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	promotions, err := h.cycles.ListPromotions(ctx, chi.URLParam(r, "cycleID"))
	if err != nil {
		h.writeCycleError(ctx, w, err)
		return
	}

	items := make([]promotionPayload, 0, len(promotions))
	for _, promotion := range promotions {
		if !promotion.Active {
			continue
		}
		items = append(items, newPromotionPayload(promotion))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"items": items})
}

func (h *PublicHandlers) writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
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

func (h *PublicHandlers) writeCycleError(ctx context.Context, w http.ResponseWriter, err error) {
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

func (h *PublicHandlers) writeConsultantError(ctx context.Context, w http.ResponseWriter, err error) {
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

func (h *PublicHandlers) writePricingError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrPricingInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPricingNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "product or cycle not found", http.StatusNotFound))
	case errors.Is(err, services.ErrPricingUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("unavailable", "pricing unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal", "unexpected pricing error", http.StatusInternalServerError))
	}
}
