// Package casefile holds the patient's oncology case data: clinical case
// records (immutable once written, corrected via append-only addenda),
// uploaded medical files with their extracted text, and the persisted
// history of risk assessments. All doctor-side reads of this data are
// gated by the request access predicate; the gate itself lives in the
// service layer.
package casefile

import (
	"time"

	"github.com/google/uuid"
)

type RecordType string

const (
	TypeConsultNote   RecordType = "consult_note"
	TypeLabReport     RecordType = "lab_report"
	TypeImagingReport RecordType = "imaging_report"
	TypeTreatmentPlan RecordType = "treatment_plan"
	TypeProgressNote  RecordType = "progress_note"
)

func (t RecordType) IsValid() bool {
	switch t {
	case TypeConsultNote, TypeLabReport, TypeImagingReport, TypeTreatmentPlan, TypeProgressNote:
		return true
	}
	return false
}

// Once created, records cannot be deleted or edited
type CaseRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`

	PatientID uuid.UUID  `gorm:"column:patient_id;type:uuid;not null;index"`
	DoctorID  uuid.UUID  `gorm:"column:doctor_id;type:uuid;not null;index"`
	RequestID *uuid.UUID `gorm:"column:request_id;type:uuid;index"`

	Type RecordType `gorm:"column:type;type:varchar(50);not null;index"`

	Summary   string   `gorm:"column:summary;type:text;not null"`
	Diagnoses []string `gorm:"column:diagnoses;serializer:json"`
	Notes     string   `gorm:"column:notes;type:text"`

	// AI-produced artifacts attached by the doctor, stored verbatim
	TreatmentPlanText  string `gorm:"column:treatment_plan_text;type:text"`
	KnowledgeGraphJSON string `gorm:"column:knowledge_graph_json;type:jsonb"`

	// Addenda: corrections appended without modifying the original
	Addenda []Addendum `gorm:"foreignKey:CaseRecordID"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (CaseRecord) TableName() string {
	return "clinical.case_records"
}

// Addendum is an append-only correction to an existing case record.
type Addendum struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	CaseRecordID uuid.UUID `gorm:"column:case_record_id;type:uuid;not null;index"`
	Content      string    `gorm:"column:content;type:text;not null"`
	CreatedBy    uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (Addendum) TableName() string {
	return "clinical.case_record_addenda"
}

// MedicalFile is an uploaded document (lab PDF, imaging report) together
// with the text extracted from it at upload time. The raw bytes live in
// the content column; ExtractedText is what the AI collaborator and the
// case view consume.
type MedicalFile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`

	PatientID  uuid.UUID  `gorm:"column:patient_id;type:uuid;not null;index"`
	UploadedBy uuid.UUID  `gorm:"column:uploaded_by;type:uuid;not null"`
	RecordID   *uuid.UUID `gorm:"column:record_id;type:uuid;index"`

	FileName    string `gorm:"column:file_name;type:varchar(255);not null"`
	ContentType string `gorm:"column:content_type;type:varchar(100);not null"`
	SizeBytes   int64  `gorm:"column:size_bytes;not null"`
	SHA256      string `gorm:"column:sha256;type:char(64);not null;index"`

	Content       []byte `gorm:"column:content;type:bytea"`
	ExtractedText string `gorm:"column:extracted_text;type:text"`
}

func (MedicalFile) TableName() string {
	return "clinical.medical_files"
}

// RiskAssessment is the persisted outcome of one scorer invocation,
// kept so the case history shows how the score evolved over time.
type RiskAssessment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`

	PatientID   uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`
	RequestedBy uuid.UUID `gorm:"column:requested_by;type:uuid;not null"`

	CancerType       string  `gorm:"column:cancer_type;type:varchar(20);not null"`
	TumorSizeCm      float64 `gorm:"column:tumor_size_cm;not null"`
	Biomarker1       float64 `gorm:"column:biomarker1;not null"`
	Biomarker2       string  `gorm:"column:biomarker2;type:varchar(50)"`
	AdditionalFactor string  `gorm:"column:additional_factor;type:varchar(50)"`

	Probability    int    `gorm:"column:probability;not null"`
	RiskLevel      string `gorm:"column:risk_level;type:varchar(10);not null;index"`
	Recommendation string `gorm:"column:recommendation;type:text;not null"`
}

func (RiskAssessment) TableName() string {
	return "clinical.risk_assessments"
}

// Commands carry request payloads only; author identity (doctor, uploader)
// is taken from the caller's claims in the service layer.
type CreateRecordCommand struct {
	PatientID          uuid.UUID
	RequestID          *uuid.UUID
	Type               RecordType
	Summary            string
	Diagnoses          []string
	Notes              string
	TreatmentPlanText  string
	KnowledgeGraphJSON string
}

type AddAddendumCommand struct {
	CaseRecordID uuid.UUID
	Content      string
}

type UploadFileCommand struct {
	PatientID     uuid.UUID
	RecordID      *uuid.UUID
	FileName      string
	ContentType   string
	Content       []byte
	ExtractedText string
}

type ListRecordsQuery struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Type      *RecordType
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

type PagedRecords struct {
	Records    []*CaseRecord
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}
