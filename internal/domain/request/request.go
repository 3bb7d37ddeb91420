// Package request models the patient-initiated care-relationship request
// and the access gate derived from it. A request starts in pending and is
// moved by the addressed doctor to exactly one of accepted, declined, or
// reschedule. Reschedule is a resting state: the doctor may refresh the
// proposed slot, but there is no transition out of it; a patient's
// follow-up is a new request. An accepted request grants the doctor
// permanent read access to the patient's case data; there is currently
// no revocation path.
package request

import (
	"time"

	"github.com/google/uuid"
)

// State transition possibilities:
//
//	pending → accepted
//	pending → declined
//	pending → reschedule
//
// accepted, declined, and reschedule have no outgoing transitions.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusDeclined   Status = "declined"
	StatusReschedule Status = "reschedule"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDeclined, StatusReschedule:
		return true
	}
	return false
}

// IsDecision reports whether s is a state a doctor may move a pending
// request into.
func (s Status) IsDecision() bool {
	switch s {
	case StatusAccepted, StatusDeclined, StatusReschedule:
		return true
	}
	return false
}

// DataShare is the optional consent payload a patient attaches when
// requesting a doctor: whether case data may be shared ahead of
// acceptance, a free-text note, and an optional medical file reference.
type DataShare struct {
	Consent bool       `json:"consent"`
	Note    string     `json:"note,omitempty"`
	FileID  *uuid.UUID `json:"file_id,omitempty"`
}

type DoctorRequest struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PatientID  uuid.UUID  `gorm:"column:patient_id;type:uuid;not null;index"`
	DoctorID   uuid.UUID  `gorm:"column:doctor_id;type:uuid;not null;index"`
	HospitalID *uuid.UUID `gorm:"column:hospital_id;type:uuid;index"`

	Status Status `gorm:"column:status;type:varchar(20);not null;default:'pending';index"`

	Note         string `gorm:"column:note;type:text"`
	ScheduleNote string `gorm:"column:schedule_note;type:text"`
	ProposedSlot string `gorm:"column:proposed_slot;type:varchar(100)"`

	DataShare *DataShare `gorm:"column:data_share;serializer:json"`
}

func (DoctorRequest) TableName() string {
	return "clinical.doctor_requests"
}

func (r *DoctorRequest) CanTransitionTo(newStatus Status) bool {
	allowed := map[Status][]Status{
		StatusPending:    {StatusAccepted, StatusDeclined, StatusReschedule},
		StatusAccepted:   {},
		StatusDeclined:   {},
		StatusReschedule: {},
	}

	for _, s := range allowed[r.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

// Accept moves a pending request to accepted, the state that grants the
// doctor access to the patient's case data.
func (r *DoctorRequest) Accept(scheduleNote string) error {
	if !r.CanTransitionTo(StatusAccepted) {
		return ErrInvalidStatusTransition
	}
	r.Status = StatusAccepted
	r.ScheduleNote = scheduleNote
	return nil
}

func (r *DoctorRequest) Decline(scheduleNote string) error {
	if !r.CanTransitionTo(StatusDeclined) {
		return ErrInvalidStatusTransition
	}
	r.Status = StatusDeclined
	r.ScheduleNote = scheduleNote
	return nil
}

// Reschedule records the doctor's counter-proposal. The request remains
// awaiting the patient's next action, which is modelled as a new request.
func (r *DoctorRequest) Reschedule(proposedSlot, scheduleNote string) error {
	if !r.CanTransitionTo(StatusReschedule) {
		return ErrInvalidStatusTransition
	}
	if proposedSlot == "" {
		return ErrProposedSlotRequired
	}
	r.Status = StatusReschedule
	r.ProposedSlot = proposedSlot
	r.ScheduleNote = scheduleNote
	return nil
}

// UpdateProposal refreshes the proposed slot of a request already in
// reschedule without changing its state. The doctor may re-propose; the
// status stays reschedule.
func (r *DoctorRequest) UpdateProposal(proposedSlot, scheduleNote string) error {
	if r.Status != StatusReschedule {
		return ErrInvalidStatusTransition
	}
	if proposedSlot == "" {
		return ErrProposedSlotRequired
	}
	r.ProposedSlot = proposedSlot
	r.ScheduleNote = scheduleNote
	return nil
}

type CreateRequestCommand struct {
	PatientID  uuid.UUID
	DoctorID   uuid.UUID
	HospitalID *uuid.UUID
	Note       string
	DataShare  *DataShare
}

// DecideRequestCommand is the doctor's one-shot decision on a pending
// request.
type DecideRequestCommand struct {
	Status       Status
	ScheduleNote string
	ProposedSlot string
}

type ListRequestsQuery struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    *Status
	Page      int
	PageSize  int
}

type PagedRequests struct {
	Requests   []*DoctorRequest
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}
