package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oncohub/oncohub/internal/domain"
	"github.com/oncohub/oncohub/internal/domain/casefile"
	"github.com/oncohub/oncohub/internal/domain/request"
	"github.com/oncohub/oncohub/internal/domain/risk"
	"github.com/oncohub/oncohub/pkg/metrics"
)

// RiskService validates scorer input, runs the deterministic risk
// computation, and persists the outcome to the patient's assessment
// history.
type RiskService struct {
	caseRepo    casefile.Repository
	requestRepo request.Repository
	auditSvc    *AuditService
	metrics     *metrics.Collector
	log         *zap.Logger
}

func NewRiskService(caseRepo casefile.Repository, requestRepo request.Repository, auditSvc *AuditService, collector *metrics.Collector, log *zap.Logger) *RiskService {
	return &RiskService{
		caseRepo:    caseRepo,
		requestRepo: requestRepo,
		auditSvc:    auditSvc,
		metrics:     collector,
		log:         log,
	}
}

// Assess computes a risk score for the patient and records it. Patients
// assess themselves; doctors need an accepted request for the patient.
func (s *RiskService) Assess(ctx context.Context, patientID uuid.UUID, in risk.DiagnosisInput, caller *domain.Claims, ip string) (*casefile.RiskAssessment, error) {
	switch caller.Role {
	case domain.RolePatient:
		if caller.PatientID == nil || *caller.PatientID != patientID {
			return nil, ErrForbidden
		}
	case domain.RoleDoctor:
		if caller.DoctorID == nil {
			return nil, ErrForbidden
		}
		ok, err := s.requestRepo.HasAccepted(ctx, *caller.DoctorID, patientID)
		if err != nil {
			return nil, fmt.Errorf("checking access: %w", err)
		}
		if !ok {
			return nil, ErrForbidden
		}
	case domain.RoleAdmin:
	default:
		return nil, ErrForbidden
	}

	if err := validateDiagnosisInput(in); err != nil {
		return nil, err
	}

	result := risk.ComputeRisk(in)

	a := &casefile.RiskAssessment{
		PatientID:        patientID,
		RequestedBy:      caller.UserID,
		CancerType:       string(in.CancerType),
		TumorSizeCm:      in.TumorSizeCm,
		Biomarker1:       in.Biomarker1,
		Biomarker2:       in.Biomarker2,
		AdditionalFactor: in.AdditionalFactor,
		Probability:      result.Probability,
		RiskLevel:        string(result.RiskLevel),
		Recommendation:   result.Recommendation,
	}

	if err := s.caseRepo.CreateAssessment(ctx, a); err != nil {
		s.log.Error("failed to persist risk assessment", zap.Error(err))
		return nil, fmt.Errorf("saving assessment: %w", err)
	}

	if s.metrics != nil {
		s.metrics.AssessmentsTotal.WithLabelValues(string(in.CancerType), string(result.RiskLevel)).Inc()
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     string(caller.Role),
		Action:       "create",
		ResourceType: "risk_assessment",
		ResourceID:   a.ID.String(),
		IPAddress:    ip,
	})

	s.log.Info("risk assessment recorded",
		zap.String("patient_id", patientID.String()),
		zap.String("cancer_type", string(in.CancerType)),
		zap.String("risk_level", string(result.RiskLevel)),
	)

	return a, nil
}

func validateDiagnosisInput(in risk.DiagnosisInput) error {
	var errs []string

	if !in.CancerType.IsValid() {
		errs = append(errs, "cancer_type must be liver, lung, or breast")
	}
	if in.TumorSizeCm <= 0 {
		errs = append(errs, "tumor_size_cm must be positive")
	}
	if in.Biomarker1 < 0 {
		errs = append(errs, "biomarker1 cannot be negative")
	}
	if in.CancerType == risk.CancerLung {
		// Smoking status is optional; unset scores like a never-smoker
		switch in.AdditionalFactor {
		case "current", "former", "never", "":
		default:
			errs = append(errs, "additional_factor must be current, former, or never for lung")
		}
	}
	if in.CancerType == risk.CancerBreast {
		switch in.Biomarker2 {
		case "positive", "negative", "":
		default:
			errs = append(errs, "biomarker2 must be positive or negative for breast")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
