package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oncohub/oncohub/internal/domain"
	"github.com/oncohub/oncohub/internal/domain/patient"
	"github.com/oncohub/oncohub/internal/domain/request"
)

type PatientService struct {
	repo        patient.Repository
	requestRepo request.Repository
	userRepo    UserRepository
	auditSvc    *AuditService
	log         *zap.Logger
}

func NewPatientService(repo patient.Repository, requestRepo request.Repository, userRepo UserRepository, auditSvc *AuditService, log *zap.Logger) *PatientService {
	return &PatientService{
		repo:        repo,
		requestRepo: requestRepo,
		userRepo:    userRepo,
		auditSvc:    auditSvc,
		log:         log,
	}
}

// CreateProfile creates the patient profile for the calling account and
// links the account to it. One profile per account.
func (s *PatientService) CreateProfile(ctx context.Context, cmd *patient.CreatePatientCommand, caller *domain.Claims, ip string) (*patient.Patient, error) {
	if caller.Role != domain.RolePatient {
		return nil, ErrForbidden
	}
	if caller.PatientID != nil {
		return nil, patient.ErrProfileExists
	}
	if err := validateCreatePatientCommand(cmd); err != nil {
		return nil, err
	}

	p := &patient.Patient{
		UserID:      caller.UserID,
		FirstName:   strings.TrimSpace(cmd.FirstName),
		LastName:    strings.TrimSpace(cmd.LastName),
		DateOfBirth: cmd.DateOfBirth,
		Gender:      cmd.Gender,
		BloodType:   cmd.BloodType,
		ContactInfo: patient.ContactInfo{
			Phone:   strings.TrimSpace(cmd.Phone),
			Email:   strings.ToLower(strings.TrimSpace(cmd.Email)),
			Address: cmd.Address,
			City:    cmd.City,
			Country: cmd.Country,
		},
		EmergencyContact:  cmd.EmergencyContact,
		Oncology:          cmd.Oncology,
		Allergies:         cmd.Allergies,
		ChronicConditions: cmd.ChronicConditions,
		HospitalID:        cmd.HospitalID,
		Notes:             cmd.Notes,
		Status:            patient.StatusActive,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.log.Error("failed to create patient profile", zap.Error(err))
		return nil, fmt.Errorf("creating patient profile: %w", err)
	}

	if err := s.userRepo.LinkProfile(ctx, caller.UserID, domain.RolePatient, p.ID); err != nil {
		s.log.Error("failed to link patient profile to account", zap.Error(err))
		return nil, fmt.Errorf("linking profile: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     string(caller.Role),
		Action:       "create",
		ResourceType: "patient",
		ResourceID:   p.ID.String(),
		IPAddress:    ip,
	})

	return p, nil
}

// GetPatient returns a patient profile. Patients read only their own;
// doctors read a patient only through an accepted request; admins read all.
func (s *PatientService) GetPatient(ctx context.Context, id uuid.UUID, caller *domain.Claims, ip string) (*patient.Patient, error) {
	switch caller.Role {
	case domain.RolePatient:
		if caller.PatientID == nil || *caller.PatientID != id {
			return nil, ErrForbidden
		}
	case domain.RoleDoctor:
		if caller.DoctorID == nil {
			return nil, ErrForbidden
		}
		ok, err := s.requestRepo.HasAccepted(ctx, *caller.DoctorID, id)
		if err != nil {
			return nil, fmt.Errorf("checking access: %w", err)
		}
		if !ok {
			return nil, ErrForbidden
		}
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     string(caller.Role),
		Action:       "read",
		ResourceType: "patient",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return p, nil
}

// UpdateProfile applies partial updates. Only the owning patient (or an
// admin) may write.
func (s *PatientService) UpdateProfile(ctx context.Context, id uuid.UUID, cmd *patient.UpdatePatientCommand, caller *domain.Claims, ip string) (*patient.Patient, error) {
	if caller.Role == domain.RolePatient {
		if caller.PatientID == nil || *caller.PatientID != id {
			return nil, ErrForbidden
		}
	} else if caller.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}

	p, err := s.repo.Update(ctx, id, cmd)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     string(caller.Role),
		Action:       "update",
		ResourceType: "patient",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return p, nil
}

func (s *PatientService) DeactivatePatient(ctx context.Context, id uuid.UUID, caller *domain.Claims, ip string) error {
	if caller.Role != domain.RoleAdmin {
		return ErrForbidden
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := p.Deactivate(); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     string(caller.Role),
		Action:       "delete",
		ResourceType: "patient",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return s.repo.SoftDelete(ctx, id)
}

// ListPatients is an admin-only view; doctors reach patients one at a time
// through accepted requests, never as a directory.
func (s *PatientService) ListPatients(ctx context.Context, q *patient.ListPatientsQuery, caller *domain.Claims) (*patient.PagedPatients, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}

	return s.repo.List(ctx, q)
}

func validateCreatePatientCommand(cmd *patient.CreatePatientCommand) error {
	var errs []string

	if strings.TrimSpace(cmd.FirstName) == "" {
		errs = append(errs, "first_name is required")
	}
	if strings.TrimSpace(cmd.LastName) == "" {
		errs = append(errs, "last_name is required")
	}
	if cmd.DateOfBirth.IsZero() {
		errs = append(errs, "date_of_birth is required")
	}
	if cmd.DateOfBirth.After(time.Now()) {
		errs = append(errs, "date_of_birth cannot be in the future")
	}
	if !cmd.Gender.IsValid() {
		errs = append(errs, "gender is invalid")
	}
	if cmd.Oncology != nil && cmd.Oncology.PrimaryCancerType != "" {
		switch cmd.Oncology.PrimaryCancerType {
		case "liver", "lung", "breast":
		default:
			errs = append(errs, "primary_cancer_type must be liver, lung, or breast")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
