package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/vessia-direct/api/internal/domain"
	"github.com/vessia-direct/api/internal/platform/httpx"
	"github.com/vessia-direct/api/internal/platform/pagination"
	"github.com/vessia-direct/api/internal/services"
)

// CommissionHandlers exposes read access to commission rows.
type CommissionHandlers struct {
	commissions services.CommissionService
}

// NewCommissionHandlers constructs the commission handler set.
func NewCommissionHandlers(commissions services.CommissionService) (*CommissionHandlers, error) {
	if commissions == nil {
		return nil, errors.New("commission handlers: commission service is required")
	}
	return &CommissionHandlers{commissions: commissions}, nil
}

// Routes registers the commission endpoints on the supplied router.
func (h *CommissionHandlers) Routes(r chi.Router) {
	r.Get("/", h.listCommissions)
}

func (h *CommissionHandlers) listCommissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	pager, err := pageFromRequest(r, pagination.Options{DefaultPageSize: 50, MaxPageSize: 200})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.CommissionListFilter{
		CycleID:    strings.TrimSpace(r.URL.Query().Get("cycleId")),
		OrderID:    strings.TrimSpace(r.URL.Query().Get("orderId")),
		Pagination: pager,
	}
	if rawStatus := strings.TrimSpace(r.URL.Query().Get("status")); rawStatus != "" {
		switch domain.CommissionStatus(strings.ToLower(rawStatus)) {
		case domain.CommissionStatusValid:
			filter.Status = []domain.CommissionStatus{domain.CommissionStatusValid}
		case domain.CommissionStatusCancelled:
			filter.Status = []domain.CommissionStatus{domain.CommissionStatusCancelled}
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", "unknown commission status", http.StatusBadRequest))
			return
		}
	}
	if strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("unattached")), "true") {
		filter.Unattached = true
	}

	if isBackOffice(identity) {
		filter.ConsultantID = strings.TrimSpace(r.URL.Query().Get("consultantId"))
	} else {
		filter.ConsultantID = identity.ConsultantID
	}

	page, err := h.commissions.ListCommissions(ctx, filter)
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newListResponse(page, newCommissionPayload))
}

func (h *CommissionHandlers) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCommissionInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCommissionNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "commission not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCommissionUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("unavailable", "commission service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal", "unexpected commission error", http.StatusInternalServerError))
	}
}
