package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oncohub/oncohub/internal/domain/casefile"
	"github.com/oncohub/oncohub/internal/domain/request"
)

const testMaxFileSize = 1 << 20

func newTestCaseService(t *testing.T) (*CaseService, *fakeCaseFileRepo, *fakeRequestRepo) {
	t.Helper()
	caseRepo := newFakeCaseFileRepo()
	requestRepo := newFakeRequestRepo()
	auditSvc := NewAuditService(&fakeAuditRepo{}, zap.NewNop(), nil)
	t.Cleanup(auditSvc.Shutdown)
	svc := NewCaseService(caseRepo, requestRepo, auditSvc, nil, testMaxFileSize, zap.NewNop())
	return svc, caseRepo, requestRepo
}

func grantAccess(t *testing.T, repo *fakeRequestRepo, doctorID, patientID uuid.UUID) {
	t.Helper()
	if err := repo.Create(context.Background(), &request.DoctorRequest{
		PatientID: patientID,
		DoctorID:  doctorID,
		Status:    request.StatusAccepted,
	}); err != nil {
		t.Fatalf("seed accepted request: %v", err)
	}
}

func TestCreateRecordRequiresAcceptedRequest(t *testing.T) {
	svc, _, requestRepo := newTestCaseService(t)
	ctx := context.Background()
	patientID, doctorID := uuid.New(), uuid.New()

	cmd := &casefile.CreateRecordCommand{
		PatientID: patientID,
		Type:      casefile.TypeConsultNote,
		Summary:   "initial consult",
	}

	claims := doctorClaims(doctorID)
	_, err := svc.CreateRecord(ctx, cmd, claims, "")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("ungated doctor = %v, want ErrForbidden", err)
	}

	grantAccess(t, requestRepo, doctorID, patientID)
	rec, err := svc.CreateRecord(ctx, cmd, claims, "")
	if err != nil {
		t.Fatalf("gated doctor = %v, want nil", err)
	}
	// Author identity comes from the caller's claims, not the payload
	if rec.DoctorID != doctorID {
		t.Errorf("record doctor = %s, want %s", rec.DoctorID, doctorID)
	}
	if rec.CreatedBy != claims.UserID {
		t.Errorf("record author = %s, want caller %s", rec.CreatedBy, claims.UserID)
	}
}

func TestCreateRecordPatientCannotWrite(t *testing.T) {
	svc, _, _ := newTestCaseService(t)
	patientID := uuid.New()

	_, err := svc.CreateRecord(context.Background(), &casefile.CreateRecordCommand{
		PatientID: patientID,
		Type:      casefile.TypeConsultNote,
		Summary:   "self-authored note",
	}, patientClaims(patientID), "")
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("patient record write = %v, want ErrForbidden", err)
	}
}

func TestAddAddendumKeepsOriginalRecord(t *testing.T) {
	svc, _, requestRepo := newTestCaseService(t)
	ctx := context.Background()
	patientID, doctorID := uuid.New(), uuid.New()
	grantAccess(t, requestRepo, doctorID, patientID)
	claims := doctorClaims(doctorID)

	rec, err := svc.CreateRecord(ctx, &casefile.CreateRecordCommand{
		PatientID: patientID,
		Type:      casefile.TypeLabReport,
		Summary:   "AFP 500 ng/mL",
	}, claims, "")
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}

	if _, err := svc.AddAddendum(ctx, &casefile.AddAddendumCommand{
		CaseRecordID: rec.ID,
		Content:      "corrected units: value confirmed on re-run",
	}, claims, ""); err != nil {
		t.Fatalf("AddAddendum: %v", err)
	}

	got, err := svc.GetRecord(ctx, rec.ID, claims, "")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if got.Summary != "AFP 500 ng/mL" {
		t.Errorf("original summary changed to %q", got.Summary)
	}
	if len(got.Addenda) != 1 {
		t.Fatalf("addenda count = %d, want 1", len(got.Addenda))
	}
}

func TestUploadFileValidation(t *testing.T) {
	svc, _, _ := newTestCaseService(t)
	ctx := context.Background()
	patientID := uuid.New()
	claims := patientClaims(patientID)

	tests := []struct {
		name    string
		cmd     casefile.UploadFileCommand
		wantErr error
	}{
		{
			name: "missing name",
			cmd: casefile.UploadFileCommand{
				PatientID:   patientID,
				ContentType: "application/pdf",
				Content:     []byte("x"),
			},
			wantErr: casefile.ErrFileNameRequired,
		},
		{
			name: "too large",
			cmd: casefile.UploadFileCommand{
				PatientID:   patientID,
				FileName:    "scan.pdf",
				ContentType: "application/pdf",
				Content:     bytes.Repeat([]byte("a"), testMaxFileSize+1),
			},
			wantErr: casefile.ErrFileTooLarge,
		},
		{
			name: "denied content type",
			cmd: casefile.UploadFileCommand{
				PatientID:   patientID,
				FileName:    "notes.exe",
				ContentType: "application/octet-stream",
				Content:     []byte("x"),
			},
			wantErr: casefile.ErrContentTypeDenied,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UploadFile(ctx, &tt.cmd, claims, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUploadFileComputesChecksum(t *testing.T) {
	svc, _, _ := newTestCaseService(t)
	ctx := context.Background()
	patientID := uuid.New()

	claims := patientClaims(patientID)
	content := []byte("tumor markers within normal limits")
	f, err := svc.UploadFile(ctx, &casefile.UploadFileCommand{
		PatientID:     patientID,
		FileName:      "labs.txt",
		ContentType:   "text/plain",
		Content:       content,
		ExtractedText: string(content),
	}, claims, "")
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}

	sum := sha256.Sum256(content)
	if f.SHA256 != hex.EncodeToString(sum[:]) {
		t.Errorf("sha256 = %s, want %s", f.SHA256, hex.EncodeToString(sum[:]))
	}
	if f.SizeBytes != int64(len(content)) {
		t.Errorf("size = %d, want %d", f.SizeBytes, len(content))
	}
	if f.UploadedBy != claims.UserID {
		t.Errorf("uploader = %s, want caller %s", f.UploadedBy, claims.UserID)
	}
}

func TestFileReadsGatedByAcceptedRequest(t *testing.T) {
	svc, _, requestRepo := newTestCaseService(t)
	ctx := context.Background()
	patientID, doctorID := uuid.New(), uuid.New()

	f, err := svc.UploadFile(ctx, &casefile.UploadFileCommand{
		PatientID:   patientID,
		FileName:    "report.pdf",
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.4"),
	}, patientClaims(patientID), "")
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}

	if _, err := svc.GetFile(ctx, f.ID, doctorClaims(doctorID), ""); !errors.Is(err, ErrForbidden) {
		t.Errorf("ungated doctor file read = %v, want ErrForbidden", err)
	}

	grantAccess(t, requestRepo, doctorID, patientID)
	got, err := svc.GetFile(ctx, f.ID, doctorClaims(doctorID), "")
	if err != nil {
		t.Fatalf("gated doctor file read = %v", err)
	}
	if !bytes.Equal(got.Content, []byte("%PDF-1.4")) {
		t.Error("downloaded content differs from uploaded content")
	}

	// Another patient can never read it
	if _, err := svc.GetFile(ctx, f.ID, patientClaims(uuid.New()), ""); !errors.Is(err, ErrForbidden) {
		t.Errorf("other patient file read = %v, want ErrForbidden", err)
	}
}

func TestListFilesOmitsContent(t *testing.T) {
	svc, _, _ := newTestCaseService(t)
	ctx := context.Background()
	patientID := uuid.New()
	claims := patientClaims(patientID)

	if _, err := svc.UploadFile(ctx, &casefile.UploadFileCommand{
		PatientID:   patientID,
		FileName:    "report.pdf",
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.4"),
	}, claims, ""); err != nil {
		t.Fatalf("UploadFile: %v", err)
	}

	files, err := svc.ListFiles(ctx, patientID, claims)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("files = %d, want 1", len(files))
	}
	if files[0].Content != nil {
		t.Error("listing returned file content, want metadata only")
	}
}
