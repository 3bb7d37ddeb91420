package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oncohub/oncohub/internal/domain"
	"github.com/oncohub/oncohub/internal/domain/casefile"
	"github.com/oncohub/oncohub/internal/domain/request"
	"github.com/oncohub/oncohub/pkg/metrics"
)

// allowedContentTypes for medical file uploads. Anything else is rejected
// before the bytes touch storage.
var allowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/dicom":     true,
	"text/plain":      true,
}

// CaseService serves the patient's case data: records, addenda, medical
// files, and the assessment history. Every doctor-side read goes through
// the accepted-request gate; patients always reach their own case.
type CaseService struct {
	repo        casefile.Repository
	requestRepo request.Repository
	auditSvc    *AuditService
	metrics     *metrics.Collector
	maxFileSize int64
	log         *zap.Logger
}

func NewCaseService(repo casefile.Repository, requestRepo request.Repository, auditSvc *AuditService, collector *metrics.Collector, maxFileSize int64, log *zap.Logger) *CaseService {
	return &CaseService{
		repo:        repo,
		requestRepo: requestRepo,
		auditSvc:    auditSvc,
		metrics:     collector,
		maxFileSize: maxFileSize,
		log:         log,
	}
}

// authorizeCaseAccess resolves whether the caller may read (or, for
// doctors, write into) the given patient's case.
func (s *CaseService) authorizeCaseAccess(ctx context.Context, patientID uuid.UUID, caller *domain.Claims) error {
	switch caller.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RolePatient:
		if caller.PatientID != nil && *caller.PatientID == patientID {
			return nil
		}
		return ErrForbidden
	case domain.RoleDoctor:
		if caller.DoctorID == nil {
			return ErrForbidden
		}
		ok, err := s.requestRepo.HasAccepted(ctx, *caller.DoctorID, patientID)
		if err != nil {
			return fmt.Errorf("checking access: %w", err)
		}
		if !ok {
			return ErrForbidden
		}
		return nil
	}
	return ErrForbidden
}

// CreateRecord writes a new immutable case record. Only a doctor with an
// accepted request for the patient may write one.
func (s *CaseService) CreateRecord(ctx context.Context, cmd *casefile.CreateRecordCommand, caller *domain.Claims, ip string) (*casefile.CaseRecord, error) {
	if caller.Role != domain.RoleDoctor || caller.DoctorID == nil {
		return nil, ErrForbidden
	}
	if err := s.authorizeCaseAccess(ctx, cmd.PatientID, caller); err != nil {
		return nil, err
	}
	if !cmd.Type.IsValid() {
		return nil, casefile.ErrInvalidRecordType
	}
	if strings.TrimSpace(cmd.Summary) == "" {
		return nil, &ValidationError{Fields: []string{"summary is required"}}
	}

	r := &casefile.CaseRecord{
		PatientID:          cmd.PatientID,
		DoctorID:           *caller.DoctorID,
		RequestID:          cmd.RequestID,
		Type:               cmd.Type,
		Summary:            strings.TrimSpace(cmd.Summary),
		Diagnoses:          cmd.Diagnoses,
		Notes:              cmd.Notes,
		TreatmentPlanText:  cmd.TreatmentPlanText,
		KnowledgeGraphJSON: cmd.KnowledgeGraphJSON,
		CreatedBy:          caller.UserID,
	}

	if err := s.repo.CreateRecord(ctx, r); err != nil {
		s.log.Error("failed to create case record", zap.Error(err))
		return nil, fmt.Errorf("creating case record: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     string(caller.Role),
		Action:       "create",
		ResourceType: "case_record",
		ResourceID:   r.ID.String(),
		IPAddress:    ip,
	})

	return r, nil
}

// GetRecord returns one case record with its addenda.
func (s *CaseService) GetRecord(ctx context.Context, id uuid.UUID, caller *domain.Claims, ip string) (*casefile.CaseRecord, error) {
	r, err := s.repo.GetRecordByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeCaseAccess(ctx, r.PatientID, caller); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     string(caller.Role),
		Action:       "read",
		ResourceType: "case_record",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return r, nil
}

// AddAddendum appends a correction to an existing record. The original
// record is never modified.
func (s *CaseService) AddAddendum(ctx context.Context, cmd *casefile.AddAddendumCommand, caller *domain.Claims, ip string) (*casefile.Addendum, error) {
	if caller.Role != domain.RoleDoctor || caller.DoctorID == nil {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(cmd.Content) == "" {
		return nil, &ValidationError{Fields: []string{"content is required"}}
	}

	r, err := s.repo.GetRecordByID(ctx, cmd.CaseRecordID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeCaseAccess(ctx, r.PatientID, caller); err != nil {
		return nil, err
	}

	a := &casefile.Addendum{
		CaseRecordID: cmd.CaseRecordID,
		Content:      strings.TrimSpace(cmd.Content),
		CreatedBy:    caller.UserID,
	}

	if err := s.repo.AddAddendum(ctx, a); err != nil {
		return nil, fmt.Errorf("adding addendum: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     string(caller.Role),
		Action:       "update",
		ResourceType: "case_record",
		ResourceID:   cmd.CaseRecordID.String(),
		IPAddress:    ip,
	})

	return a, nil
}

// ListRecords pages a patient's case records.
func (s *CaseService) ListRecords(ctx context.Context, q *casefile.ListRecordsQuery, caller *domain.Claims) (*casefile.PagedRecords, error) {
	if q.PatientID == nil {
		return nil, &ValidationError{Fields: []string{"patient_id is required"}}
	}
	if err := s.authorizeCaseAccess(ctx, *q.PatientID, caller); err != nil {
		return nil, err
	}
	if q.Type != nil && !q.Type.IsValid() {
		return nil, casefile.ErrInvalidRecordType
	}
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}

	return s.repo.ListRecords(ctx, q)
}

// UploadFile validates and stores a medical file. Patients upload to their
// own case; doctors need an accepted request.
func (s *CaseService) UploadFile(ctx context.Context, cmd *casefile.UploadFileCommand, caller *domain.Claims, ip string) (*casefile.MedicalFile, error) {
	if err := s.authorizeCaseAccess(ctx, cmd.PatientID, caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cmd.FileName) == "" {
		return nil, casefile.ErrFileNameRequired
	}
	if int64(len(cmd.Content)) > s.maxFileSize {
		return nil, casefile.ErrFileTooLarge
	}
	if !allowedContentTypes[cmd.ContentType] {
		return nil, casefile.ErrContentTypeDenied
	}

	sum := sha256.Sum256(cmd.Content)

	f := &casefile.MedicalFile{
		PatientID:     cmd.PatientID,
		UploadedBy:    caller.UserID,
		RecordID:      cmd.RecordID,
		FileName:      strings.TrimSpace(cmd.FileName),
		ContentType:   cmd.ContentType,
		SizeBytes:     int64(len(cmd.Content)),
		SHA256:        hex.EncodeToString(sum[:]),
		Content:       cmd.Content,
		ExtractedText: cmd.ExtractedText,
	}

	if err := s.repo.CreateFile(ctx, f); err != nil {
		s.log.Error("failed to store medical file", zap.Error(err))
		return nil, fmt.Errorf("storing file: %w", err)
	}

	if s.metrics != nil {
		s.metrics.FilesUploadedTotal.Inc()
		s.metrics.FileUploadBytes.Add(float64(f.SizeBytes))
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     string(caller.Role),
		Action:       "create",
		ResourceType: "medical_file",
		ResourceID:   f.ID.String(),
		IPAddress:    ip,
	})

	return f, nil
}

// GetFile returns a file including its raw bytes, for download.
func (s *CaseService) GetFile(ctx context.Context, id uuid.UUID, caller *domain.Claims, ip string) (*casefile.MedicalFile, error) {
	f, err := s.repo.GetFileByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeCaseAccess(ctx, f.PatientID, caller); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     string(caller.Role),
		Action:       "read",
		ResourceType: "medical_file",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return f, nil
}

// ListFiles returns the patient's file metadata without content.
func (s *CaseService) ListFiles(ctx context.Context, patientID uuid.UUID, caller *domain.Claims) ([]*casefile.MedicalFile, error) {
	if err := s.authorizeCaseAccess(ctx, patientID, caller); err != nil {
		return nil, err
	}
	return s.repo.ListFiles(ctx, patientID)
}

// ListAssessments returns the patient's risk assessment history, newest
// first.
func (s *CaseService) ListAssessments(ctx context.Context, patientID uuid.UUID, caller *domain.Claims) ([]*casefile.RiskAssessment, error) {
	if err := s.authorizeCaseAccess(ctx, patientID, caller); err != nil {
		return nil, err
	}
	return s.repo.ListAssessments(ctx, patientID)
}
