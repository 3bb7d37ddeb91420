package request

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new request in pending. Requests are append-only;
	// there is no delete operation anywhere on this interface.
	Create(ctx context.Context, r *DoctorRequest) error

	// GetByID returns ErrRequestNotFound when no row matches.
	GetByID(ctx context.Context, id uuid.UUID) (*DoctorRequest, error)

	// UpdateStatus persists a status transition together with the schedule
	// note and proposed slot, atomically relative to concurrent reads of
	// the same row.
	UpdateStatus(ctx context.Context, r *DoctorRequest) error

	List(ctx context.Context, q *ListRequestsQuery) (*PagedRequests, error)

	// HasAccepted reports whether at least one accepted request exists for
	// the doctor/patient pair. This is the sole access-control signal for
	// a doctor reading that patient's case data.
	HasAccepted(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error)

	// HasPending reports whether the patient already has an undecided
	// request addressed to the doctor.
	HasPending(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error)
}
