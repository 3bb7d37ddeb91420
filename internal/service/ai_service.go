package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oncohub/oncohub/internal/ai"
	"github.com/oncohub/oncohub/internal/domain"
	"github.com/oncohub/oncohub/internal/domain/casefile"
	"github.com/oncohub/oncohub/internal/domain/patient"
	"github.com/oncohub/oncohub/internal/domain/request"
	"github.com/oncohub/oncohub/pkg/metrics"
)

// AIService drafts treatment plans and knowledge graphs for a patient's
// case via the external generative model. Drafts are advisory output for
// the doctor; nothing is stored unless the doctor attaches it to a case
// record.
type AIService struct {
	generator   ai.Generator
	patientRepo patient.Repository
	caseRepo    casefile.Repository
	requestRepo request.Repository
	auditSvc    *AuditService
	metrics     *metrics.Collector
	log         *zap.Logger
}

func NewAIService(generator ai.Generator, patientRepo patient.Repository, caseRepo casefile.Repository, requestRepo request.Repository, auditSvc *AuditService, collector *metrics.Collector, log *zap.Logger) *AIService {
	return &AIService{
		generator:   generator,
		patientRepo: patientRepo,
		caseRepo:    caseRepo,
		requestRepo: requestRepo,
		auditSvc:    auditSvc,
		metrics:     collector,
		log:         log,
	}
}

// DraftTreatmentPlan asks the model for a treatment plan draft grounded in
// the patient's case context. Doctor-only, gated by an accepted request.
func (s *AIService) DraftTreatmentPlan(ctx context.Context, patientID uuid.UUID, caller *domain.Claims, ip string) (string, error) {
	return s.draft(ctx, patientID, caller, ip, "treatment_plan", s.generator.GenerateTreatmentPlan)
}

// DraftKnowledgeGraph asks the model for a JSON knowledge graph of the
// case's entities and relations.
func (s *AIService) DraftKnowledgeGraph(ctx context.Context, patientID uuid.UUID, caller *domain.Claims, ip string) (string, error) {
	return s.draft(ctx, patientID, caller, ip, "knowledge_graph", s.generator.GenerateKnowledgeGraph)
}

func (s *AIService) draft(ctx context.Context, patientID uuid.UUID, caller *domain.Claims, ip, kind string, generate func(context.Context, ai.CaseContext) (string, error)) (string, error) {
	if caller.Role != domain.RoleDoctor || caller.DoctorID == nil {
		return "", ErrForbidden
	}
	ok, err := s.requestRepo.HasAccepted(ctx, *caller.DoctorID, patientID)
	if err != nil {
		return "", fmt.Errorf("checking access: %w", err)
	}
	if !ok {
		return "", ErrForbidden
	}

	cc, err := s.buildCaseContext(ctx, patientID)
	if err != nil {
		return "", err
	}

	text, err := generate(ctx, cc)
	if err != nil {
		if s.metrics != nil {
			s.metrics.AIRequestsTotal.WithLabelValues(kind, outcomeFor(err)).Inc()
		}
		s.log.Warn("ai draft failed",
			zap.String("kind", kind),
			zap.Error(err),
		)
		return "", err
	}

	if s.metrics != nil {
		s.metrics.AIRequestsTotal.WithLabelValues(kind, "ok").Inc()
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     string(caller.Role),
		Action:       "read",
		ResourceType: "ai_draft",
		ResourceID:   patientID.String(),
		IPAddress:    ip,
		Changes:      fmt.Sprintf(`{"kind":%q}`, kind),
	})

	return text, nil
}

// buildCaseContext assembles the redacted clinical view the model sees:
// oncology profile, latest assessment, and extracted text from uploaded
// files. No names or identifiers are included.
func (s *AIService) buildCaseContext(ctx context.Context, patientID uuid.UUID) (ai.CaseContext, error) {
	var cc ai.CaseContext

	p, err := s.patientRepo.GetByID(ctx, patientID)
	if err != nil {
		return cc, err
	}
	if p.Oncology != nil {
		cc.CancerType = p.Oncology.PrimaryCancerType
		cc.Stage = p.Oncology.Stage
	}

	assessments, err := s.caseRepo.ListAssessments(ctx, patientID)
	if err != nil {
		return cc, fmt.Errorf("loading assessments: %w", err)
	}
	if len(assessments) > 0 {
		latest := assessments[0]
		cc.CancerType = latest.CancerType
		cc.TumorSizeCm = latest.TumorSizeCm
		cc.RiskLevel = latest.RiskLevel
		cc.BiomarkerNotes = fmt.Sprintf("biomarker1=%.1f biomarker2=%s factor=%s",
			latest.Biomarker1, latest.Biomarker2, latest.AdditionalFactor)
	}

	files, err := s.caseRepo.ListFiles(ctx, patientID)
	if err != nil {
		return cc, fmt.Errorf("loading files: %w", err)
	}
	var extracted []string
	for _, f := range files {
		if f.ExtractedText != "" {
			extracted = append(extracted, f.ExtractedText)
		}
		if len(extracted) >= 5 {
			break
		}
	}
	cc.ExtractedText = strings.Join(extracted, "\n---\n")

	return cc, nil
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ai.ErrDisabled):
		return "disabled"
	case errors.Is(err, ai.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
