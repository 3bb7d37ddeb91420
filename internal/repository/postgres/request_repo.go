package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oncohub/oncohub/internal/domain/request"
)

// RequestRepo persists doctor requests. The table is append-only: rows are
// created and their status updated, never deleted.
type RequestRepo struct {
	db *gorm.DB
}

func NewRequestRepo(db *gorm.DB) *RequestRepo {
	return &RequestRepo{db: db}
}

func (r *RequestRepo) Create(ctx context.Context, req *request.DoctorRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *RequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*request.DoctorRequest, error) {
	var req request.DoctorRequest
	err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, request.ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

// UpdateStatus persists a decision. The row is re-checked under lock so a
// concurrent decision on the same request cannot double-apply: only a row
// still matching the expected pre-state (pending, or reschedule for
// proposal refreshes) is written.
func (r *RequestRepo) UpdateStatus(ctx context.Context, req *request.DoctorRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current request.DoctorRequest
		if err := tx.Clauses(forUpdate()).First(&current, "id = ?", req.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return request.ErrRequestNotFound
			}
			return err
		}

		if current.Status != req.Status && !current.CanTransitionTo(req.Status) {
			return request.ErrInvalidStatusTransition
		}

		return tx.Model(&request.DoctorRequest{}).
			Where("id = ?", req.ID).
			Updates(map[string]interface{}{
				"status":        req.Status,
				"schedule_note": req.ScheduleNote,
				"proposed_slot": req.ProposedSlot,
			}).Error
	})
}

func (r *RequestRepo) List(ctx context.Context, q *request.ListRequestsQuery) (*request.PagedRequests, error) {
	db := r.db.WithContext(ctx).Model(&request.DoctorRequest{})

	if q.PatientID != nil {
		db = db.Where("patient_id = ?", *q.PatientID)
	}
	if q.DoctorID != nil {
		db = db.Where("doctor_id = ?", *q.DoctorID)
	}
	if q.Status != nil {
		db = db.Where("status = ?", *q.Status)
	}

	var count int64
	if err := db.Count(&count).Error; err != nil {
		return nil, err
	}

	var requests []*request.DoctorRequest
	if err := db.Scopes(paginate(q.Page, q.PageSize)).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}

	return &request.PagedRequests{
		Requests:   requests,
		TotalCount: count,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages(count, q.PageSize),
	}, nil
}

// HasAccepted is the access predicate: true when at least one accepted
// request links the doctor/patient pair. Served by the partial index on
// (doctor_id, patient_id) WHERE status = 'accepted'.
func (r *RequestRepo) HasAccepted(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&request.DoctorRequest{}).
		Where("doctor_id = ? AND patient_id = ? AND status = ?",
			doctorID, patientID, request.StatusAccepted).
		Count(&count).Error
	return count > 0, err
}

func (r *RequestRepo) HasPending(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&request.DoctorRequest{}).
		Where("doctor_id = ? AND patient_id = ? AND status = ?",
			doctorID, patientID, request.StatusPending).
		Count(&count).Error
	return count > 0, err
}
