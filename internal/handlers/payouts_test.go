package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/vessia-direct/api/internal/domain"
	"github.com/vessia-direct/api/internal/services"
)

func newPayoutRouter(t *testing.T, payouts services.PayoutService) chi.Router {
	t.Helper()
	handlers, err := NewPayoutHandlers(payouts)
	if err != nil {
		t.Fatalf("NewPayoutHandlers: %v", err)
	}
	r := chi.NewRouter()
	handlers.Routes(r)
	return r
}

func TestGeneratePayoutReturnsCreated(t *testing.T) {
	var gotCmd services.GeneratePayoutCommand
	payouts := &stubPayoutService{
		generateFn: func(_ context.Context, cmd services.GeneratePayoutCommand) (services.PayoutResult, error) {
			gotCmd = cmd
			return services.PayoutResult{Payout: domain.Payout{
				ID:              "con-1_cyc-1",
				ConsultantID:    cmd.ConsultantID,
				CycleID:         cmd.CycleID,
				TotalAmount:     125000,
				CommissionCount: 3,
				Status:          domain.PayoutStatusPending,
				GeneratedAt:     time.Now(),
			}}, nil
		},
	}

	router := newPayoutRouter(t, payouts)
	req := authedRequest(t, http.MethodPost, "/", strings.NewReader(`{"cycleId":"cyc-1"}`), consultantIdentity("con-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotCmd.ConsultantID != "con-1" || gotCmd.CycleID != "cyc-1" {
		t.Fatalf("unexpected command %+v", gotCmd)
	}

	var payload generatePayoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.NothingToPay || payload.Payout == nil || payload.Payout.TotalAmount != 125000 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestGeneratePayoutNothingToPay(t *testing.T) {
	payouts := &stubPayoutService{
		generateFn: func(context.Context, services.GeneratePayoutCommand) (services.PayoutResult, error) {
			return services.PayoutResult{NothingToPay: true}, nil
		},
	}

	router := newPayoutRouter(t, payouts)
	req := authedRequest(t, http.MethodPost, "/", strings.NewReader(`{"cycleId":"cyc-1"}`), consultantIdentity("con-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload generatePayoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.NothingToPay || payload.Payout != nil {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestGeneratePayoutConsultantCannotTargetOthers(t *testing.T) {
	var gotCmd services.GeneratePayoutCommand
	payouts := &stubPayoutService{
		generateFn: func(_ context.Context, cmd services.GeneratePayoutCommand) (services.PayoutResult, error) {
			gotCmd = cmd
			return services.PayoutResult{NothingToPay: true}, nil
		},
	}

	router := newPayoutRouter(t, payouts)
	req := authedRequest(t, http.MethodPost, "/", strings.NewReader(`{"consultantId":"con-victim","cycleId":"cyc-1"}`), consultantIdentity("con-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if gotCmd.ConsultantID != "con-1" {
		t.Fatalf("consultant must not generate payouts for others, got %+v", gotCmd)
	}
}

func TestGeneratePayoutExistingPairReturnsOK(t *testing.T) {
	payouts := &stubPayoutService{
		generateFn: func(_ context.Context, cmd services.GeneratePayoutCommand) (services.PayoutResult, error) {
			return services.PayoutResult{
				AlreadyExists: true,
				Payout: domain.Payout{
					ID:           "con-1_cyc-1",
					ConsultantID: cmd.ConsultantID,
					CycleID:      cmd.CycleID,
					TotalAmount:  5400,
					Status:       domain.PayoutStatusPending,
				},
			}, nil
		},
	}

	router := newPayoutRouter(t, payouts)
	req := authedRequest(t, http.MethodPost, "/", strings.NewReader(`{"cycleId":"cyc-1"}`), consultantIdentity("con-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload generatePayoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.AlreadyExists || payload.Payout == nil || payload.Payout.ID != "con-1_cyc-1" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestGetPayoutHidesForeignPayouts(t *testing.T) {
	payouts := &stubPayoutService{
		getFn: func(_ context.Context, payoutID string) (domain.Payout, error) {
			return domain.Payout{ID: payoutID, ConsultantID: "con-other"}, nil
		},
	}

	router := newPayoutRouter(t, payouts)
	req := authedRequest(t, http.MethodGet, "/pay-1", nil, consultantIdentity("con-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestMarkPaidRequiresBackOffice(t *testing.T) {
	payouts := &stubPayoutService{
		markPaidFn: func(context.Context, string) (domain.Payout, error) {
			t.Fatal("markPaid should not run for consultants")
			return domain.Payout{}, nil
		},
	}

	router := newPayoutRouter(t, payouts)
	req := authedRequest(t, http.MethodPost, "/pay-1/pay", nil, consultantIdentity("con-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestMarkPaidStaffSucceeds(t *testing.T) {
	paidAt := time.Date(2026, time.April, 2, 12, 0, 0, 0, time.UTC)
	payouts := &stubPayoutService{
		markPaidFn: func(_ context.Context, payoutID string) (domain.Payout, error) {
			return domain.Payout{ID: payoutID, Status: domain.PayoutStatusPaid, PaidAt: &paidAt}, nil
		},
	}

	router := newPayoutRouter(t, payouts)
	req := authedRequest(t, http.MethodPost, "/pay-1/pay", nil, staffIdentity())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload payoutPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != string(domain.PayoutStatusPaid) || payload.PaidAt == "" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestListPayoutsScopesConsultant(t *testing.T) {
	var gotFilter services.PayoutListFilter
	payouts := &stubPayoutService{
		listFn: func(_ context.Context, filter services.PayoutListFilter) (domain.CursorPage[domain.Payout], error) {
			gotFilter = filter
			return domain.CursorPage[domain.Payout]{}, nil
		},
	}

	router := newPayoutRouter(t, payouts)
	req := authedRequest(t, http.MethodGet, "/?consultantId=con-9&status=pending", nil, consultantIdentity("con-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if gotFilter.ConsultantID != "con-1" {
		t.Fatalf("consultant scoping failed, got %+v", gotFilter)
	}
	if len(gotFilter.Status) != 1 || gotFilter.Status[0] != domain.PayoutStatusPending {
		t.Fatalf("expected pending status filter, got %+v", gotFilter.Status)
	}
}
