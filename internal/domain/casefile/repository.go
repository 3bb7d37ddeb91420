package casefile

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateRecord(ctx context.Context, r *CaseRecord) error
	GetRecordByID(ctx context.Context, id uuid.UUID) (*CaseRecord, error)
	AddAddendum(ctx context.Context, a *Addendum) error
	ListRecords(ctx context.Context, q *ListRecordsQuery) (*PagedRecords, error)

	CreateFile(ctx context.Context, f *MedicalFile) error
	GetFileByID(ctx context.Context, id uuid.UUID) (*MedicalFile, error)
	// ListFiles returns file metadata without the content column.
	ListFiles(ctx context.Context, patientID uuid.UUID) ([]*MedicalFile, error)

	CreateAssessment(ctx context.Context, a *RiskAssessment) error
	ListAssessments(ctx context.Context, patientID uuid.UUID) ([]*RiskAssessment, error)
}
