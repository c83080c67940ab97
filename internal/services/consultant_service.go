package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	domain "github.com/vessia-direct/api/internal/domain"
	"github.com/vessia-direct/api/internal/repositories"
)

const consultantIDPrefix = "con_"

var (
	// ErrConsultantInvalidInput indicates the caller supplied invalid consultant parameters.
	ErrConsultantInvalidInput = errors.New("consultant: invalid input")
	// ErrConsultantNotFound indicates the requested consultant does not exist.
	ErrConsultantNotFound = errors.New("consultant: not found")
	// ErrConsultantUnavailable indicates the backing store could not be reached.
	ErrConsultantUnavailable = errors.New("consultant: unavailable")
)

// ConsultantServiceDeps bundles constructor inputs for the consultant service.
type ConsultantServiceDeps struct {
	Consultants repositories.ConsultantRepository
	IDGenerator func() string
}

type consultantService struct {
	consultants repositories.ConsultantRepository
	newID       func() string
}

// NewConsultantService constructs a ConsultantService enforcing dependency validation.
func NewConsultantService(deps ConsultantServiceDeps) (ConsultantService, error) {
	if deps.Consultants == nil {
		return nil, errors.New("consultant service: consultant repository is required")
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &consultantService{
		consultants: deps.Consultants,
		newID:       idGen,
	}, nil
}

// GetConsultant fetches one consultant by ID.
func (s *consultantService) GetConsultant(ctx context.Context, consultantID string) (Consultant, error) {
	consultantID = strings.TrimSpace(consultantID)
	if consultantID == "" {
		return Consultant{}, fmt.Errorf("%w: consultant id is required", ErrConsultantInvalidInput)
	}
	consultant, err := s.consultants.FindByID(ctx, consultantID)
	if err != nil {
		return Consultant{}, s.mapRepositoryError(err)
	}
	return consultant, nil
}

// GetConsultantBySlug resolves a consultant by their storefront slug.
func (s *consultantService) GetConsultantBySlug(ctx context.Context, slug string) (Consultant, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Consultant{}, fmt.Errorf("%w: slug is required", ErrConsultantInvalidInput)
	}
	consultant, err := s.consultants.FindBySlug(ctx, slug)
	if err != nil {
		return Consultant{}, s.mapRepositoryError(err)
	}
	return consultant, nil
}

// UpsertConsultant creates or updates a consultant profile.
func (s *consultantService) UpsertConsultant(ctx context.Context, cmd UpsertConsultantCommand) (Consultant, error) {
	name := strings.TrimSpace(cmd.Name)
	slug := strings.TrimSpace(cmd.Slug)
	if name == "" {
		return Consultant{}, fmt.Errorf("%w: consultant name is required", ErrConsultantInvalidInput)
	}
	if slug != "" && !slugPattern.MatchString(slug) {
		return Consultant{}, fmt.Errorf("%w: consultant slug %q is not url safe", ErrConsultantInvalidInput, slug)
	}

	consultantID := strings.TrimSpace(cmd.ID)
	if consultantID == "" {
		consultantID = consultantIDPrefix + s.newID()
	}

	saved, err := s.consultants.Upsert(ctx, domain.Consultant{
		ID:     consultantID,
		Slug:   slug,
		Name:   name,
		Email:  strings.TrimSpace(cmd.Email),
		Phone:  strings.TrimSpace(cmd.Phone),
		Active: cmd.Active,
	})
	if err != nil {
		return Consultant{}, s.mapRepositoryError(err)
	}
	return saved, nil
}

func (s *consultantService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrConsultantNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrConsultantUnavailable, err)
		}
	}
	return err
}
