package patients

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/premiumdental/dental-ai-platform/pkg/logging"
)

var patientsTracer = otel.Tracer("dental.internal.patients")

// Service owns patient registration and lookup rules.
type Service struct {
	repo   Repository
	logger *logging.Logger
}

// NewService constructs a patient service.
func NewService(repo Repository, logger *logging.Logger) *Service {
	if repo == nil {
		panic("patients: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// CreateRequest carries the fields collected during registration.
type CreateRequest struct {
	FullName      string
	Phone         string
	DateOfBirth   time.Time
	InsuranceName string
	HasInsurance  bool
}

// Create registers a new patient.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Patient, error) {
	ctx, span := patientsTracer.Start(ctx, "patients.create")
	defer span.End()

	patient := &Patient{
		FullName:      req.FullName,
		Phone:         req.Phone,
		DateOfBirth:   req.DateOfBirth,
		InsuranceName: req.InsuranceName,
		HasInsurance:  req.HasInsurance,
	}
	if err := patient.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	created, err := s.repo.Create(ctx, patient)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("dental.patient_id", created.ID))
	s.logger.Info("patient registered", "patient_id", created.ID)
	return created, nil
}

// GetByID returns the patient or ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id string) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// Exists reports whether a patient with the given ID is registered.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetByPhone returns the patient matching the phone number or ErrNotFound.
func (s *Service) GetByPhone(ctx context.Context, phone string) (*Patient, error) {
	return s.repo.GetByPhone(ctx, phone)
}

// LinkFamilyMembers attaches family member IDs to a patient, deduplicating
// against the existing set.
func (s *Service) LinkFamilyMembers(ctx context.Context, patientID string, memberIDs []string) (*Patient, error) {
	patient, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(patient.FamilyMembers))
	for _, id := range patient.FamilyMembers {
		seen[id] = struct{}{}
	}
	for _, id := range memberIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		patient.FamilyMembers = append(patient.FamilyMembers, id)
	}

	return s.repo.Update(ctx, patient)
}
