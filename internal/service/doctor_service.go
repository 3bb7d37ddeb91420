package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oncohub/oncohub/internal/domain"
	"github.com/oncohub/oncohub/internal/domain/doctor"
)

type DoctorService struct {
	repo     doctor.Repository
	userRepo UserRepository
	auditSvc *AuditService
	log      *zap.Logger
}

func NewDoctorService(repo doctor.Repository, userRepo UserRepository, auditSvc *AuditService, log *zap.Logger) *DoctorService {
	return &DoctorService{repo: repo, userRepo: userRepo, auditSvc: auditSvc, log: log}
}

// CreateProfile creates the professional profile for the calling doctor
// account and links the account to it.
func (s *DoctorService) CreateProfile(ctx context.Context, cmd *doctor.CreateDoctorCommand, caller *domain.Claims, ip string) (*doctor.Doctor, error) {
	if caller.Role != domain.RoleDoctor {
		return nil, ErrForbidden
	}
	if caller.DoctorID != nil {
		return nil, doctor.ErrProfileExists
	}
	if err := validateCreateDoctorCommand(cmd); err != nil {
		return nil, err
	}

	d := &doctor.Doctor{
		UserID:            caller.UserID,
		FirstName:         strings.TrimSpace(cmd.FirstName),
		LastName:          strings.TrimSpace(cmd.LastName),
		Specialization:    cmd.Specialization,
		LicenseNumber:     strings.TrimSpace(cmd.LicenseNumber),
		HospitalID:        cmd.HospitalID,
		HospitalName:      cmd.HospitalName,
		Bio:               cmd.Bio,
		YearsActive:       cmd.YearsActive,
		AcceptingPatients: true,
	}

	if err := s.repo.Create(ctx, d); err != nil {
		s.log.Error("failed to create doctor profile", zap.Error(err))
		return nil, err
	}

	if err := s.userRepo.LinkProfile(ctx, caller.UserID, domain.RoleDoctor, d.ID); err != nil {
		s.log.Error("failed to link doctor profile to account", zap.Error(err))
		return nil, fmt.Errorf("linking profile: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     string(caller.Role),
		Action:       "create",
		ResourceType: "doctor",
		ResourceID:   d.ID.String(),
		IPAddress:    ip,
	})

	return d, nil
}

// GetDoctor returns a doctor profile. Profiles are public within the
// platform so patients can choose whom to request.
func (s *DoctorService) GetDoctor(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile applies partial updates to the caller's own profile.
func (s *DoctorService) UpdateProfile(ctx context.Context, id uuid.UUID, cmd *doctor.UpdateDoctorCommand, caller *domain.Claims, ip string) (*doctor.Doctor, error) {
	if caller.Role == domain.RoleDoctor {
		if caller.DoctorID == nil || *caller.DoctorID != id {
			return nil, ErrForbidden
		}
	} else if caller.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}

	if cmd.Specialization != nil && !cmd.Specialization.IsValid() {
		return nil, doctor.ErrInvalidSpecialization
	}

	d, err := s.repo.Update(ctx, id, cmd)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     string(caller.Role),
		Action:       "update",
		ResourceType: "doctor",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return d, nil
}

// ListDoctors is the directory patients browse when picking a doctor.
func (s *DoctorService) ListDoctors(ctx context.Context, q *doctor.ListDoctorsQuery) (*doctor.PagedDoctors, error) {
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Specialization != nil && !q.Specialization.IsValid() {
		return nil, doctor.ErrInvalidSpecialization
	}

	return s.repo.List(ctx, q)
}

func validateCreateDoctorCommand(cmd *doctor.CreateDoctorCommand) error {
	var errs []string

	if strings.TrimSpace(cmd.FirstName) == "" {
		errs = append(errs, "first_name is required")
	}
	if strings.TrimSpace(cmd.LastName) == "" {
		errs = append(errs, "last_name is required")
	}
	if !cmd.Specialization.IsValid() {
		errs = append(errs, "specialization is invalid")
	}
	if strings.TrimSpace(cmd.LicenseNumber) == "" {
		errs = append(errs, "license_number is required")
	}
	if cmd.YearsActive < 0 {
		errs = append(errs, "years_active cannot be negative")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
