package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/vessia-direct/api/internal/domain"
)

func newTestConsultantService(t *testing.T, consultants *stubConsultantRepo) ConsultantService {
	t.Helper()

	svc, err := NewConsultantService(ConsultantServiceDeps{
		Consultants: consultants,
		IDGenerator: func() string { return "000TEST" },
	})
	if err != nil {
		t.Fatalf("new consultant service: %v", err)
	}
	return svc
}

func TestConsultantServiceUpsertGeneratesID(t *testing.T) {
	ctx := context.Background()

	var upserted domain.Consultant
	consultants := &stubConsultantRepo{
		upsertFn: func(_ context.Context, consultant domain.Consultant) (domain.Consultant, error) {
			upserted = consultant
			return consultant, nil
		},
	}

	svc := newTestConsultantService(t, consultants)

	consultant, err := svc.UpsertConsultant(ctx, UpsertConsultantCommand{
		Name:   "María Quispe",
		Slug:   "maria-quispe",
		Email:  "maria@example.com",
		Active: true,
	})
	if err != nil {
		t.Fatalf("upsert consultant: %v", err)
	}
	if consultant.ID != "con_000TEST" || upserted.ID != "con_000TEST" {
		t.Fatalf("expected generated id got %q", consultant.ID)
	}
	if upserted.Slug != "maria-quispe" {
		t.Fatalf("unexpected upsert %+v", upserted)
	}
}

func TestConsultantServiceUpsertRejectsBadSlug(t *testing.T) {
	svc := newTestConsultantService(t, &stubConsultantRepo{})

	_, err := svc.UpsertConsultant(context.Background(), UpsertConsultantCommand{Name: "x", Slug: "Not Url Safe"})
	if !errors.Is(err, ErrConsultantInvalidInput) {
		t.Fatalf("expected invalid input got %v", err)
	}
}

func TestConsultantServiceGetBySlug(t *testing.T) {
	consultants := &stubConsultantRepo{
		slugFn: func(_ context.Context, slug string) (domain.Consultant, error) {
			if slug != "maria-quispe" {
				return domain.Consultant{}, repoError{message: "consultant not found", notFound: true}
			}
			return domain.Consultant{ID: "con-1", Slug: slug}, nil
		},
	}

	svc := newTestConsultantService(t, consultants)

	consultant, err := svc.GetConsultantBySlug(context.Background(), "maria-quispe")
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if consultant.ID != "con-1" {
		t.Fatalf("unexpected consultant %+v", consultant)
	}

	if _, err := svc.GetConsultantBySlug(context.Background(), "nobody"); !errors.Is(err, ErrConsultantNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
}
