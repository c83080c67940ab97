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

// PayoutHandlers exposes payout generation and settlement endpoints.
type PayoutHandlers struct {
	payouts     services.PayoutService
	maxBodySize int64
}

// PayoutOption customises PayoutHandlers construction.
type PayoutOption func(*PayoutHandlers)

// WithPayoutMaxBodySize overrides the request body size limit.
func WithPayoutMaxBodySize(limit int64) PayoutOption {
	return func(h *PayoutHandlers) {
		if limit > 0 {
			h.maxBodySize = limit
		}
	}
}

// NewPayoutHandlers constructs the payout handler set.
func NewPayoutHandlers(payouts services.PayoutService, opts ...PayoutOption) (*PayoutHandlers, error) {
	if payouts == nil {
		return nil, errors.New("payout handlers: payout service is required")
	}
	h := &PayoutHandlers{
		payouts:     payouts,
		maxBodySize: defaultMaxBodySize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Routes registers the payout endpoints on the supplied router.
func (h *PayoutHandlers) Routes(r chi.Router) {
	r.Post("/", h.generatePayout)
	r.Get("/", h.listPayouts)
	r.Get("/{payoutID}", h.getPayout)
	r.Post("/{payoutID}/pay", h.markPaid)
}

type generatePayoutRequest struct {
	ConsultantID string `json:"consultantId"`
	CycleID      string `json:"cycleId"`
}

type generatePayoutResponse struct {
	NothingToPay  bool           `json:"nothingToPay"`
	AlreadyExists bool           `json:"alreadyExists,omitempty"`
	Payout        *payoutPayload `json:"payout,omitempty"`
}

func (h *PayoutHandlers) generatePayout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req generatePayoutRequest
	if err := decodeJSONBody(r, h.maxBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	consultantID := strings.TrimSpace(req.ConsultantID)
	if !isBackOffice(identity) || consultantID == "" {
		consultantID = identity.ConsultantID
	}

	result, err := h.payouts.GeneratePayout(ctx, services.GeneratePayoutCommand{
		ConsultantID: consultantID,
		CycleID:      strings.TrimSpace(req.CycleID),
	})
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	resp := generatePayoutResponse{NothingToPay: result.NothingToPay, AlreadyExists: result.AlreadyExists}
	if result.NothingToPay {
		writeJSONResponse(w, http.StatusOK, resp)
		return
	}
	payload := newPayoutPayload(result.Payout)
	resp.Payout = &payload
	// Generation is idempotent; replaying the request answers with the payout that
	// already exists rather than a conflict.
	if result.AlreadyExists {
		writeJSONResponse(w, http.StatusOK, resp)
		return
	}
	writeJSONResponse(w, http.StatusCreated, resp)
}

func (h *PayoutHandlers) listPayouts(w http.ResponseWriter, r *http.Request) {
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

	filter := services.PayoutListFilter{
		CycleID:    strings.TrimSpace(r.URL.Query().Get("cycleId")),
		Pagination: pager,
	}
	if rawStatus := strings.TrimSpace(r.URL.Query().Get("status")); rawStatus != "" {
		switch domain.PayoutStatus(strings.ToLower(rawStatus)) {
		case domain.PayoutStatusPending:
			filter.Status = []domain.PayoutStatus{domain.PayoutStatusPending}
		case domain.PayoutStatusPaid:
			filter.Status = []domain.PayoutStatus{domain.PayoutStatusPaid}
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", "unknown payout status", http.StatusBadRequest))
			return
		}
	}

	if isBackOffice(identity) {
		filter.ConsultantID = strings.TrimSpace(r.URL.Query().Get("consultantId"))
	} else {
		filter.ConsultantID = identity.ConsultantID
	}

	page, err := h.payouts.ListPayouts(ctx, filter)
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newListResponse(page, newPayoutPayload))
}

func (h *PayoutHandlers) getPayout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	payout, err := h.payouts.GetPayout(ctx, chi.URLParam(r, "payoutID"))
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	if !isBackOffice(identity) && payout.ConsultantID != identity.ConsultantID {
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "payout not found", http.StatusNotFound))
		return
	}
	writeJSONResponse(w, http.StatusOK, newPayoutPayload(payout))
}

// markPaid flips a payout to paid. There is no reversal, which is why the route sits
// behind the staff and admin roles in the router.
func (h *PayoutHandlers) markPaid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	if !isBackOffice(identity) {
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "only back office can settle payouts", http.StatusForbidden))
		return
	}

	payout, err := h.payouts.MarkPayoutAsPaid(ctx, chi.URLParam(r, "payoutID"))
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newPayoutPayload(payout))
}

func (h *PayoutHandlers) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrPayoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_argument", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPayoutNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "payout not found", http.StatusNotFound))
	case errors.Is(err, services.ErrPayoutAlreadyExists):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", "payout already exists for this consultant and cycle", http.StatusConflict))
	case errors.Is(err, services.ErrPayoutUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("unavailable", "payout service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal", "unexpected payout error", http.StatusInternalServerError))
	}
}
