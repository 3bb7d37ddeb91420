package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oncohub/oncohub/internal/domain/doctor"
)

type DoctorRepo struct {
	db *gorm.DB
}

func NewDoctorRepo(db *gorm.DB) *DoctorRepo {
	return &DoctorRepo{db: db}
}

func (r *DoctorRepo) Create(ctx context.Context, d *doctor.Doctor) error {
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		if isUniqueViolation(err) {
			return doctor.ErrLicenseExists
		}
		return err
	}
	return nil
}

func (r *DoctorRepo) GetByID(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	var d doctor.Doctor
	err := r.db.WithContext(ctx).
		Where("deleted_at IS NULL").
		First(&d, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, doctor.ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *DoctorRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*doctor.Doctor, error) {
	var d doctor.Doctor
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND deleted_at IS NULL", userID).
		First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, doctor.ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *DoctorRepo) Update(ctx context.Context, id uuid.UUID, cmd *doctor.UpdateDoctorCommand) (*doctor.Doctor, error) {
	var updated doctor.Doctor

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d doctor.Doctor
		if err := tx.Clauses(forUpdate()).
			Where("deleted_at IS NULL").
			First(&d, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return doctor.ErrDoctorNotFound
			}
			return err
		}

		if cmd.Specialization != nil {
			d.Specialization = *cmd.Specialization
		}
		if cmd.HospitalID != nil {
			d.HospitalID = cmd.HospitalID
		}
		if cmd.HospitalName != nil {
			d.HospitalName = *cmd.HospitalName
		}
		if cmd.Bio != nil {
			d.Bio = *cmd.Bio
		}
		if cmd.YearsActive != nil {
			d.YearsActive = *cmd.YearsActive
		}
		if cmd.AcceptingPatients != nil {
			d.AcceptingPatients = *cmd.AcceptingPatients
		}

		if err := tx.Save(&d).Error; err != nil {
			return err
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *DoctorRepo) List(ctx context.Context, q *doctor.ListDoctorsQuery) (*doctor.PagedDoctors, error) {
	db := r.db.WithContext(ctx).Model(&doctor.Doctor{}).Where("deleted_at IS NULL")

	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		db = db.Where("first_name ILIKE ? OR last_name ILIKE ? OR hospital_name ILIKE ?",
			pattern, pattern, pattern)
	}
	if q.Specialization != nil {
		db = db.Where("specialization = ?", *q.Specialization)
	}
	if q.HospitalID != nil {
		db = db.Where("hospital_id = ?", *q.HospitalID)
	}
	if q.AcceptingPatients != nil {
		db = db.Where("accepting_patients = ?", *q.AcceptingPatients)
	}

	var count int64
	if err := db.Count(&count).Error; err != nil {
		return nil, err
	}

	var doctors []*doctor.Doctor
	if err := db.Scopes(paginate(q.Page, q.PageSize)).
		Order("last_name ASC, first_name ASC").
		Find(&doctors).Error; err != nil {
		return nil, err
	}

	return &doctor.PagedDoctors{
		Doctors:    doctors,
		TotalCount: count,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages(count, q.PageSize),
	}, nil
}
