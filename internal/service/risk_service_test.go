package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oncohub/oncohub/internal/domain/request"
	"github.com/oncohub/oncohub/internal/domain/risk"
)

func newTestRiskService(t *testing.T) (*RiskService, *fakeCaseFileRepo, *fakeRequestRepo) {
	t.Helper()
	caseRepo := newFakeCaseFileRepo()
	requestRepo := newFakeRequestRepo()
	auditSvc := NewAuditService(&fakeAuditRepo{}, zap.NewNop(), nil)
	t.Cleanup(auditSvc.Shutdown)
	svc := NewRiskService(caseRepo, requestRepo, auditSvc, nil, zap.NewNop())
	return svc, caseRepo, requestRepo
}

func TestAssessPersistsResult(t *testing.T) {
	svc, caseRepo, _ := newTestRiskService(t)
	ctx := context.Background()
	patientID := uuid.New()

	a, err := svc.Assess(ctx, patientID, risk.DiagnosisInput{
		CancerType:  risk.CancerLiver,
		TumorSizeCm: 5,
		Biomarker1:  500,
	}, patientClaims(patientID), "10.0.0.1")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}

	if a.Probability != 90 {
		t.Errorf("probability = %d, want 90", a.Probability)
	}
	if a.RiskLevel != string(risk.LevelHigh) {
		t.Errorf("risk level = %s, want High", a.RiskLevel)
	}

	history, err := caseRepo.ListAssessments(ctx, patientID)
	if err != nil {
		t.Fatalf("ListAssessments: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history size = %d, want 1", len(history))
	}
	if history[0].CancerType != "liver" || history[0].TumorSizeCm != 5 {
		t.Errorf("persisted inputs = %s/%.1f, want liver/5.0", history[0].CancerType, history[0].TumorSizeCm)
	}
}

func TestAssessHistoryNewestFirst(t *testing.T) {
	svc, caseRepo, _ := newTestRiskService(t)
	ctx := context.Background()
	patientID := uuid.New()
	claims := patientClaims(patientID)

	inputs := []risk.DiagnosisInput{
		{CancerType: risk.CancerLiver, TumorSizeCm: 2, Biomarker1: 10},
		{CancerType: risk.CancerLiver, TumorSizeCm: 5, Biomarker1: 500},
	}
	for _, in := range inputs {
		if _, err := svc.Assess(ctx, patientID, in, claims, ""); err != nil {
			t.Fatalf("Assess: %v", err)
		}
	}

	history, _ := caseRepo.ListAssessments(ctx, patientID)
	if len(history) != 2 {
		t.Fatalf("history size = %d, want 2", len(history))
	}
	if history[0].TumorSizeCm != 5 {
		t.Errorf("newest assessment tumor size = %.1f, want 5 (newest first)", history[0].TumorSizeCm)
	}
}

func TestAssessLungWithoutSmokingStatus(t *testing.T) {
	svc, _, _ := newTestRiskService(t)
	ctx := context.Background()
	patientID := uuid.New()
	claims := patientClaims(patientID)

	unset, err := svc.Assess(ctx, patientID, risk.DiagnosisInput{
		CancerType:  risk.CancerLung,
		TumorSizeCm: 2,
		Biomarker1:  7,
	}, claims, "")
	if err != nil {
		t.Fatalf("Assess without smoking status: %v", err)
	}

	never, err := svc.Assess(ctx, patientID, risk.DiagnosisInput{
		CancerType:       risk.CancerLung,
		TumorSizeCm:      2,
		Biomarker1:       7,
		AdditionalFactor: "never",
	}, claims, "")
	if err != nil {
		t.Fatalf("Assess as never-smoker: %v", err)
	}

	if unset.Probability != never.Probability {
		t.Errorf("unset status scored %d, never-smoker scored %d; want equal", unset.Probability, never.Probability)
	}
	if unset.Probability != 41 {
		t.Errorf("probability = %d, want 41", unset.Probability)
	}
}

func TestAssessValidation(t *testing.T) {
	svc, _, _ := newTestRiskService(t)
	ctx := context.Background()
	patientID := uuid.New()
	claims := patientClaims(patientID)

	tests := []struct {
		name string
		in   risk.DiagnosisInput
	}{
		{"unknown cancer type", risk.DiagnosisInput{CancerType: "pancreatic", TumorSizeCm: 2}},
		{"zero tumor size", risk.DiagnosisInput{CancerType: risk.CancerLiver, TumorSizeCm: 0, Biomarker1: 10}},
		{"negative tumor size", risk.DiagnosisInput{CancerType: risk.CancerLiver, TumorSizeCm: -1, Biomarker1: 10}},
		{"negative biomarker", risk.DiagnosisInput{CancerType: risk.CancerLiver, TumorSizeCm: 2, Biomarker1: -5}},
		{"bad smoking status", risk.DiagnosisInput{CancerType: risk.CancerLung, TumorSizeCm: 2, Biomarker1: 3, AdditionalFactor: "sometimes"}},
		{"bad her2 value", risk.DiagnosisInput{CancerType: risk.CancerBreast, TumorSizeCm: 2, Biomarker1: 20, Biomarker2: "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Assess(ctx, patientID, tt.in, claims, "")
			var validErr *ValidationError
			if !errors.As(err, &validErr) {
				t.Errorf("err = %v, want *ValidationError", err)
			}
		})
	}
}

func TestAssessAccessControl(t *testing.T) {
	svc, _, requestRepo := newTestRiskService(t)
	ctx := context.Background()
	patientID, doctorID := uuid.New(), uuid.New()

	in := risk.DiagnosisInput{CancerType: risk.CancerLiver, TumorSizeCm: 3, Biomarker1: 100}

	// Doctor without an accepted request is denied
	_, err := svc.Assess(ctx, patientID, in, doctorClaims(doctorID), "")
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("ungated doctor = %v, want ErrForbidden", err)
	}

	// Patient assessing someone else is denied
	_, err = svc.Assess(ctx, patientID, in, patientClaims(uuid.New()), "")
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("other patient = %v, want ErrForbidden", err)
	}

	// After acceptance the doctor may assess
	if err := requestRepo.Create(ctx, &request.DoctorRequest{
		PatientID: patientID,
		DoctorID:  doctorID,
		Status:    request.StatusAccepted,
	}); err != nil {
		t.Fatalf("seed accepted request: %v", err)
	}
	if _, err := svc.Assess(ctx, patientID, in, doctorClaims(doctorID), ""); err != nil {
		t.Errorf("gated doctor = %v, want nil", err)
	}
}
