package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oncohub/oncohub/internal/domain"
	"github.com/oncohub/oncohub/internal/domain/patient"
	"github.com/oncohub/oncohub/internal/domain/request"
)

func newTestPatientService(t *testing.T) (*PatientService, *fakePatientRepo, *fakeRequestRepo, *fakeUserRepo) {
	t.Helper()
	patientRepo := newFakePatientRepo()
	requestRepo := newFakeRequestRepo()
	userRepo := newFakeUserRepo()
	auditSvc := NewAuditService(&fakeAuditRepo{}, zap.NewNop(), nil)
	t.Cleanup(auditSvc.Shutdown)
	svc := NewPatientService(patientRepo, requestRepo, userRepo, auditSvc, zap.NewNop())
	return svc, patientRepo, requestRepo, userRepo
}

func seedUser(t *testing.T, userRepo *fakeUserRepo, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{
		Email:    uuid.NewString() + "@example.com",
		Role:     role,
		IsActive: true,
	}
	if err := userRepo.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestCreateProfileLinksAccount(t *testing.T) {
	svc, _, _, userRepo := newTestPatientService(t)
	ctx := context.Background()
	u := seedUser(t, userRepo, domain.RolePatient)

	claims := &domain.Claims{UserID: u.ID, Role: domain.RolePatient}
	p, err := svc.CreateProfile(ctx, &patient.CreatePatientCommand{
		FirstName:   "Grace",
		LastName:    "Hopper",
		DateOfBirth: time.Date(1980, 3, 14, 0, 0, 0, 0, time.UTC),
		Gender:      patient.GenderFemale,
	}, claims, "10.0.0.1")
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	linked, _ := userRepo.GetByID(ctx, u.ID)
	if linked.PatientID == nil || *linked.PatientID != p.ID {
		t.Error("account not linked to new patient profile")
	}
}

func TestCreateProfileRejectsSecond(t *testing.T) {
	svc, _, _, userRepo := newTestPatientService(t)
	ctx := context.Background()
	u := seedUser(t, userRepo, domain.RolePatient)

	cmd := &patient.CreatePatientCommand{
		FirstName:   "Grace",
		LastName:    "Hopper",
		DateOfBirth: time.Date(1980, 3, 14, 0, 0, 0, 0, time.UTC),
		Gender:      patient.GenderFemale,
	}
	p, err := svc.CreateProfile(ctx, cmd, &domain.Claims{UserID: u.ID, Role: domain.RolePatient}, "")
	if err != nil {
		t.Fatalf("first CreateProfile: %v", err)
	}

	// Claims now carry the profile link, as they would after re-login
	_, err = svc.CreateProfile(ctx, cmd, &domain.Claims{UserID: u.ID, Role: domain.RolePatient, PatientID: &p.ID}, "")
	if !errors.Is(err, patient.ErrProfileExists) {
		t.Errorf("second CreateProfile = %v, want ErrProfileExists", err)
	}
}

func TestGetPatientAccessControl(t *testing.T) {
	svc, patientRepo, requestRepo, _ := newTestPatientService(t)
	ctx := context.Background()

	p := &patient.Patient{
		UserID:    uuid.New(),
		FirstName: "Grace",
		LastName:  "Hopper",
		Status:    patient.StatusActive,
	}
	if err := patientRepo.Create(ctx, p); err != nil {
		t.Fatalf("seed patient: %v", err)
	}

	// The owning patient reads their own profile
	if _, err := svc.GetPatient(ctx, p.ID, patientClaims(p.ID), ""); err != nil {
		t.Errorf("owner read = %v, want nil", err)
	}

	// Another patient is denied
	if _, err := svc.GetPatient(ctx, p.ID, patientClaims(uuid.New()), ""); !errors.Is(err, ErrForbidden) {
		t.Errorf("other patient read = %v, want ErrForbidden", err)
	}

	// A doctor without an accepted request is denied
	doctorID := uuid.New()
	if _, err := svc.GetPatient(ctx, p.ID, doctorClaims(doctorID), ""); !errors.Is(err, ErrForbidden) {
		t.Errorf("ungated doctor read = %v, want ErrForbidden", err)
	}

	// After acceptance the same doctor reads the profile
	if err := requestRepo.Create(ctx, &request.DoctorRequest{
		PatientID: p.ID,
		DoctorID:  doctorID,
		Status:    request.StatusAccepted,
	}); err != nil {
		t.Fatalf("seed accepted request: %v", err)
	}
	if _, err := svc.GetPatient(ctx, p.ID, doctorClaims(doctorID), ""); err != nil {
		t.Errorf("gated doctor read = %v, want nil", err)
	}

	// Admin reads without a request
	admin := &domain.Claims{UserID: uuid.New(), Role: domain.RoleAdmin}
	if _, err := svc.GetPatient(ctx, p.ID, admin, ""); err != nil {
		t.Errorf("admin read = %v, want nil", err)
	}
}

func TestUpdateProfileOnlyOwner(t *testing.T) {
	svc, patientRepo, _, _ := newTestPatientService(t)
	ctx := context.Background()

	p := &patient.Patient{UserID: uuid.New(), FirstName: "Grace", LastName: "Hopper"}
	if err := patientRepo.Create(ctx, p); err != nil {
		t.Fatalf("seed patient: %v", err)
	}

	newName := "Grace Brewster"
	cmd := &patient.UpdatePatientCommand{FirstName: &newName}

	if _, err := svc.UpdateProfile(ctx, p.ID, cmd, patientClaims(uuid.New()), ""); !errors.Is(err, ErrForbidden) {
		t.Errorf("other patient update = %v, want ErrForbidden", err)
	}
	if _, err := svc.UpdateProfile(ctx, p.ID, cmd, doctorClaims(uuid.New()), ""); !errors.Is(err, ErrForbidden) {
		t.Errorf("doctor update = %v, want ErrForbidden", err)
	}

	updated, err := svc.UpdateProfile(ctx, p.ID, cmd, patientClaims(p.ID), "")
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.FirstName != newName {
		t.Errorf("first name = %q, want %q", updated.FirstName, newName)
	}
}

func TestListPatientsAdminOnly(t *testing.T) {
	svc, _, _, _ := newTestPatientService(t)
	ctx := context.Background()

	q := &patient.ListPatientsQuery{}
	if _, err := svc.ListPatients(ctx, q, patientClaims(uuid.New())); !errors.Is(err, ErrForbidden) {
		t.Errorf("patient list = %v, want ErrForbidden", err)
	}
	if _, err := svc.ListPatients(ctx, q, doctorClaims(uuid.New())); !errors.Is(err, ErrForbidden) {
		t.Errorf("doctor list = %v, want ErrForbidden", err)
	}
	admin := &domain.Claims{UserID: uuid.New(), Role: domain.RoleAdmin}
	if _, err := svc.ListPatients(ctx, q, admin); err != nil {
		t.Errorf("admin list = %v, want nil", err)
	}
}
