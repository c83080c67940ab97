package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/vessia-direct/api/internal/domain"
	"github.com/vessia-direct/api/internal/repositories"
)

// payoutCandidatePageSize bounds each page when sweeping eligible commissions.
const payoutCandidatePageSize = 100

var (
	// ErrPayoutInvalidInput indicates the caller supplied invalid payout parameters.
	ErrPayoutInvalidInput = errors.New("payout: invalid input")
	// ErrPayoutNotFound indicates the requested payout does not exist.
	ErrPayoutNotFound = errors.New("payout: not found")
	// ErrPayoutAlreadyExists indicates a payout for the (consultant, cycle) pair was
	// generated before.
	ErrPayoutAlreadyExists = errors.New("payout: already exists")
	// ErrPayoutUnavailable indicates the backing store could not be reached.
	ErrPayoutUnavailable = errors.New("payout: unavailable")
)

// PayoutServiceDeps wires repositories and collaborators for payout aggregation.
type PayoutServiceDeps struct {
	Payouts     repositories.PayoutRepository
	Commissions repositories.CommissionRepository
	Orders      repositories.OrderRepository
	Notifier    Notifier
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
}

type payoutService struct {
	payouts     repositories.PayoutRepository
	commissions repositories.CommissionRepository
	orders      repositories.OrderRepository
	notifier    Notifier
	unitOfWork  repositories.UnitOfWork
	now         func() time.Time
	logger      func(context.Context, string, map[string]any)
}

// NewPayoutService constructs a PayoutService enforcing dependency validation.
func NewPayoutService(deps PayoutServiceDeps) (PayoutService, error) {
	if deps.Payouts == nil {
		return nil, errors.New("payout service: payout repository is required")
	}
	if deps.Commissions == nil {
		return nil, errors.New("payout service: commission repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("payout service: order repository is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &payoutService{
		payouts:     deps.Payouts,
		commissions: deps.Commissions,
		orders:      deps.Orders,
		notifier:    deps.Notifier,
		unitOfWork:  unit,
		now:         func() time.Time { return clock().UTC() },
		logger:      logger,
	}, nil
}

// GeneratePayout batches the consultant's eligible commissions for the cycle into a
// single payout. Eligible means valid, unattached, and derived from a delivered order.
// The payout insert and every commission attachment commit in one transaction. The
// operation is idempotent: a second generation for the same pair returns the earlier
// payout with AlreadyExists set instead of creating a duplicate.
func (s *payoutService) GeneratePayout(ctx context.Context, cmd GeneratePayoutCommand) (PayoutResult, error) {
	consultantID := strings.TrimSpace(cmd.ConsultantID)
	cycleID := strings.TrimSpace(cmd.CycleID)
	if consultantID == "" {
		return PayoutResult{}, fmt.Errorf("%w: consultant id is required", ErrPayoutInvalidInput)
	}
	if cycleID == "" {
		return PayoutResult{}, fmt.Errorf("%w: cycle id is required", ErrPayoutInvalidInput)
	}

	if existing, err := s.payouts.FindByConsultantCycle(ctx, consultantID, cycleID); err == nil {
		return PayoutResult{Payout: existing, AlreadyExists: true}, nil
	} else if !isRepoNotFound(err) {
		return PayoutResult{}, s.mapRepositoryError(err)
	}

	eligible, err := s.collectEligibleCommissions(ctx, consultantID, cycleID)
	if err != nil {
		return PayoutResult{}, err
	}
	if len(eligible) == 0 {
		s.logger(ctx, "payout.nothing_to_pay", map[string]any{
			"consultantId": consultantID,
			"cycleId":      cycleID,
		})
		return PayoutResult{NothingToPay: true}, nil
	}

	var total int64
	for _, commission := range eligible {
		total += commission.CommissionAmount
	}

	now := s.now()
	payout := domain.Payout{
		ConsultantID:    consultantID,
		CycleID:         cycleID,
		TotalAmount:     total,
		CommissionCount: len(eligible),
		Status:          domain.PayoutStatusPending,
		GeneratedAt:     now,
	}

	err = s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		saved, err := s.payouts.Insert(txCtx, payout)
		if err != nil {
			return s.mapRepositoryError(err)
		}
		payout = saved
		for _, commission := range eligible {
			commission.PayoutID = &payout.ID
			commission.UpdatedAt = now
			if err := s.commissions.Update(txCtx, commission); err != nil {
				return s.mapRepositoryError(err)
			}
		}
		return nil
	})
	if err != nil {
		// A concurrent generation won the insert. The pair's payout already exists,
		// so resolve to it instead of surfacing the conflict.
		if errors.Is(err, ErrPayoutAlreadyExists) {
			existing, findErr := s.payouts.FindByConsultantCycle(ctx, consultantID, cycleID)
			if findErr == nil {
				return PayoutResult{Payout: existing, AlreadyExists: true}, nil
			}
		}
		return PayoutResult{}, err
	}

	s.notify(ctx, domain.Notification{
		Type:          domain.NotificationPayoutAvailable,
		RecipientType: domain.RecipientConsultant,
		RecipientID:   consultantID,
		Context: map[string]any{
			"payoutId":        payout.ID,
			"cycleId":         cycleID,
			"totalAmount":     payout.TotalAmount,
			"commissionCount": payout.CommissionCount,
		},
	})

	return PayoutResult{Payout: payout}, nil
}

// MarkPayoutAsPaid flips the payout to paid. The flip is one-way; marking an already
// paid payout again leaves it unchanged.
func (s *payoutService) MarkPayoutAsPaid(ctx context.Context, payoutID string) (Payout, error) {
	payoutID = strings.TrimSpace(payoutID)
	if payoutID == "" {
		return Payout{}, fmt.Errorf("%w: payout id is required", ErrPayoutInvalidInput)
	}

	payout, err := s.payouts.FindByID(ctx, payoutID)
	if err != nil {
		return Payout{}, s.mapRepositoryError(err)
	}
	if payout.Status == domain.PayoutStatusPaid {
		return payout, nil
	}

	now := s.now()
	payout.Status = domain.PayoutStatusPaid
	payout.PaidAt = &now

	if err := s.payouts.Update(ctx, payout); err != nil {
		return Payout{}, s.mapRepositoryError(err)
	}
	return payout, nil
}

// GetPayout fetches one payout by ID.
func (s *payoutService) GetPayout(ctx context.Context, payoutID string) (Payout, error) {
	payoutID = strings.TrimSpace(payoutID)
	if payoutID == "" {
		return Payout{}, fmt.Errorf("%w: payout id is required", ErrPayoutInvalidInput)
	}
	payout, err := s.payouts.FindByID(ctx, payoutID)
	if err != nil {
		return Payout{}, s.mapRepositoryError(err)
	}
	return payout, nil
}

// ListPayouts returns payouts matching the filter with cursor paging.
func (s *payoutService) ListPayouts(ctx context.Context, filter PayoutListFilter) (domain.CursorPage[Payout], error) {
	page, err := s.payouts.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Payout]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

// collectEligibleCommissions sweeps the consultant's valid unattached commissions for
// the cycle and keeps only those whose order reached delivered. The store has no joins,
// so the delivery gate is enforced by loading each candidate's order.
func (s *payoutService) collectEligibleCommissions(ctx context.Context, consultantID, cycleID string) ([]domain.Commission, error) {
	var eligible []domain.Commission
	orderStatuses := map[string]domain.OrderStatus{}

	pageToken := ""
	for {
		page, err := s.commissions.List(ctx, repositories.CommissionListFilter{
			ConsultantID: consultantID,
			CycleID:      cycleID,
			Status:       []domain.CommissionStatus{domain.CommissionStatusValid},
			Unattached:   true,
			Pagination:   domain.Pagination{PageSize: payoutCandidatePageSize, PageToken: pageToken},
		})
		if err != nil {
			return nil, s.mapRepositoryError(err)
		}

		for _, commission := range page.Items {
			status, seen := orderStatuses[commission.OrderID]
			if !seen {
				order, err := s.orders.FindByID(ctx, commission.OrderID)
				if err != nil {
					if isRepoNotFound(err) {
						s.logger(ctx, "payout.order_missing", map[string]any{
							"commissionId": commission.ID,
							"orderId":      commission.OrderID,
						})
						orderStatuses[commission.OrderID] = ""
						continue
					}
					return nil, s.mapRepositoryError(err)
				}
				status = order.Status
				orderStatuses[commission.OrderID] = status
			}
			if status == domain.OrderStatusDelivered {
				eligible = append(eligible, commission)
			}
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return eligible, nil
}

func (s *payoutService) notify(ctx context.Context, notification domain.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, notification); err != nil {
		s.logger(ctx, "payout.notification_failed", map[string]any{
			"type":        string(notification.Type),
			"recipientId": notification.RecipientID,
			"error":       err.Error(),
		})
	}
}

func (s *payoutService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrPayoutNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrPayoutAlreadyExists, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrPayoutUnavailable, err)
		}
	}
	return err
}
