package doctor

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Specialization string

const (
	SpecMedicalOncology   Specialization = "medical_oncology"
	SpecSurgicalOncology  Specialization = "surgical_oncology"
	SpecRadiationOncology Specialization = "radiation_oncology"
	SpecHematology        Specialization = "hematology"
	SpecPalliativeCare    Specialization = "palliative_care"
	SpecGeneralPractice   Specialization = "general_practice"
)

func (s Specialization) IsValid() bool {
	switch s {
	case SpecMedicalOncology, SpecSurgicalOncology, SpecRadiationOncology,
		SpecHematology, SpecPalliativeCare, SpecGeneralPractice:
		return true
	}
	return false
}

// Doctor is the public-facing professional profile patients browse when
// choosing whom to send a care request to.
type Doctor struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	FirstName      string         `gorm:"column:first_name;type:varchar(100);not null"`
	LastName       string         `gorm:"column:last_name;type:varchar(100);not null"`
	Specialization Specialization `gorm:"column:specialization;type:varchar(50);not null;index"`
	LicenseNumber  string         `gorm:"column:license_number;type:varchar(50);uniqueIndex;not null"`

	HospitalID   *uuid.UUID `gorm:"column:hospital_id;type:uuid;index"`
	HospitalName string     `gorm:"column:hospital_name;type:varchar(255)"`
	Bio          string     `gorm:"column:bio;type:text"`
	YearsActive  int        `gorm:"column:years_active"`

	AcceptingPatients bool `gorm:"column:accepting_patients;default:true;index"`

	// The user account this profile belongs to
	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
}

func (Doctor) TableName() string {
	return "clinical.doctors"
}

func (d *Doctor) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

type CreateDoctorCommand struct {
	UserID         uuid.UUID
	FirstName      string
	LastName       string
	Specialization Specialization
	LicenseNumber  string
	HospitalID     *uuid.UUID
	HospitalName   string
	Bio            string
	YearsActive    int
}

type UpdateDoctorCommand struct {
	Specialization    *Specialization
	HospitalID        *uuid.UUID
	HospitalName      *string
	Bio               *string
	YearsActive       *int
	AcceptingPatients *bool
}

type ListDoctorsQuery struct {
	Search            string
	Specialization    *Specialization
	HospitalID        *uuid.UUID
	AcceptingPatients *bool
	Page              int
	PageSize          int
}

type PagedDoctors struct {
	Doctors    []*Doctor
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}
