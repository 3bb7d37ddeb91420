package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oncohub/oncohub/internal/domain/casefile"
)

// CaseFileRepo persists case records, addenda, medical files, and risk
// assessments. Records and addenda are append-only; there are no update or
// delete operations here.
type CaseFileRepo struct {
	db *gorm.DB
}

func NewCaseFileRepo(db *gorm.DB) *CaseFileRepo {
	return &CaseFileRepo{db: db}
}

func (r *CaseFileRepo) CreateRecord(ctx context.Context, rec *casefile.CaseRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *CaseFileRepo) GetRecordByID(ctx context.Context, id uuid.UUID) (*casefile.CaseRecord, error) {
	var rec casefile.CaseRecord
	err := r.db.WithContext(ctx).
		Preload("Addenda", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&rec, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, casefile.ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *CaseFileRepo) AddAddendum(ctx context.Context, a *casefile.Addendum) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *CaseFileRepo) ListRecords(ctx context.Context, q *casefile.ListRecordsQuery) (*casefile.PagedRecords, error) {
	db := r.db.WithContext(ctx).Model(&casefile.CaseRecord{})

	if q.PatientID != nil {
		db = db.Where("patient_id = ?", *q.PatientID)
	}
	if q.DoctorID != nil {
		db = db.Where("doctor_id = ?", *q.DoctorID)
	}
	if q.Type != nil {
		db = db.Where("type = ?", *q.Type)
	}
	if q.DateFrom != nil {
		db = db.Where("created_at >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		db = db.Where("created_at <= ?", *q.DateTo)
	}

	var count int64
	if err := db.Count(&count).Error; err != nil {
		return nil, err
	}

	var records []*casefile.CaseRecord
	if err := db.Scopes(paginate(q.Page, q.PageSize)).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return &casefile.PagedRecords{
		Records:    records,
		TotalCount: count,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages(count, q.PageSize),
	}, nil
}

func (r *CaseFileRepo) CreateFile(ctx context.Context, f *casefile.MedicalFile) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *CaseFileRepo) GetFileByID(ctx context.Context, id uuid.UUID) (*casefile.MedicalFile, error) {
	var f casefile.MedicalFile
	err := r.db.WithContext(ctx).First(&f, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, casefile.ErrFileNotFound
		}
		return nil, err
	}
	return &f, nil
}

// ListFiles returns metadata only; the content column is omitted so a
// listing never drags file bytes across the wire.
func (r *CaseFileRepo) ListFiles(ctx context.Context, patientID uuid.UUID) ([]*casefile.MedicalFile, error) {
	var files []*casefile.MedicalFile
	err := r.db.WithContext(ctx).Model(&casefile.MedicalFile{}).
		Omit("content").
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&files).Error
	return files, err
}

func (r *CaseFileRepo) CreateAssessment(ctx context.Context, a *casefile.RiskAssessment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// ListAssessments returns the patient's assessment history newest first.
func (r *CaseFileRepo) ListAssessments(ctx context.Context, patientID uuid.UUID) ([]*casefile.RiskAssessment, error) {
	var assessments []*casefile.RiskAssessment
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&assessments).Error
	return assessments, err
}
