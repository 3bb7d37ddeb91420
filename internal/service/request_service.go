package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oncohub/oncohub/internal/domain"
	"github.com/oncohub/oncohub/internal/domain/request"
	"github.com/oncohub/oncohub/internal/events"
	"github.com/oncohub/oncohub/pkg/metrics"
)

// RequestService owns the request lifecycle: patients open requests,
// the addressed doctor decides them, and accepted requests become the
// access gate for the patient's case data.
type RequestService struct {
	repo      request.Repository
	publisher events.Publisher
	auditSvc  *AuditService
	metrics   *metrics.Collector
	log       *zap.Logger
}

func NewRequestService(repo request.Repository, publisher events.Publisher, auditSvc *AuditService, collector *metrics.Collector, log *zap.Logger) *RequestService {
	return &RequestService{
		repo:      repo,
		publisher: publisher,
		auditSvc:  auditSvc,
		metrics:   collector,
		log:       log,
	}
}

// CreateRequest opens a pending request from the calling patient to a
// doctor. A patient cannot hold two undecided requests to the same doctor.
func (s *RequestService) CreateRequest(ctx context.Context, cmd *request.CreateRequestCommand, caller *domain.Claims, ip string) (*request.DoctorRequest, error) {
	if caller.Role != domain.RolePatient {
		return nil, ErrForbidden
	}
	if caller.PatientID == nil || *caller.PatientID != cmd.PatientID {
		return nil, ErrForbidden
	}
	if cmd.DoctorID == uuid.Nil {
		return nil, &ValidationError{Fields: []string{"doctor_id is required"}}
	}

	pending, err := s.repo.HasPending(ctx, cmd.DoctorID, cmd.PatientID)
	if err != nil {
		return nil, fmt.Errorf("checking pending requests: %w", err)
	}
	if pending {
		return nil, request.ErrDuplicatePending
	}

	r := &request.DoctorRequest{
		PatientID:  cmd.PatientID,
		DoctorID:   cmd.DoctorID,
		HospitalID: cmd.HospitalID,
		Status:     request.StatusPending,
		Note:       strings.TrimSpace(cmd.Note),
		DataShare:  cmd.DataShare,
	}

	if err := s.repo.Create(ctx, r); err != nil {
		s.log.Error("failed to create doctor request", zap.Error(err))
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if s.metrics != nil {
		s.metrics.DoctorRequestsTotal.WithLabelValues(string(request.StatusPending)).Inc()
	}
	s.publisher.PublishRequestEvent(events.RequestEvent{
		EventType:  "request.created",
		RequestID:  r.ID,
		PatientID:  r.PatientID,
		DoctorID:   r.DoctorID,
		Status:     string(r.Status),
		OccurredAt: time.Now().UTC(),
	})
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     string(caller.Role),
		Action:       "create",
		ResourceType: "doctor_request",
		ResourceID:   r.ID.String(),
		IPAddress:    ip,
	})

	return r, nil
}

// GetRequest returns one request, visible only to the patient who opened
// it, the doctor it is addressed to, or an admin.
func (s *RequestService) GetRequest(ctx context.Context, id uuid.UUID, caller *domain.Claims) (*request.DoctorRequest, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canSee(r, caller) {
		return nil, ErrForbidden
	}
	return r, nil
}

// DecideRequest applies the addressed doctor's decision to a pending
// request. The doctor-identity check runs before any transition, so an
// attempt by the wrong doctor never touches the stored status.
func (s *RequestService) DecideRequest(ctx context.Context, id uuid.UUID, cmd *request.DecideRequestCommand, caller *domain.Claims, ip string) (*request.DoctorRequest, error) {
	if caller.Role != domain.RoleDoctor || caller.DoctorID == nil {
		return nil, ErrForbidden
	}
	if !cmd.Status.IsDecision() {
		return nil, request.ErrInvalidStatus
	}

	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.DoctorID != *caller.DoctorID {
		return nil, ErrForbidden
	}

	switch cmd.Status {
	case request.StatusAccepted:
		err = r.Accept(cmd.ScheduleNote)
	case request.StatusDeclined:
		err = r.Decline(cmd.ScheduleNote)
	case request.StatusReschedule:
		err = r.Reschedule(cmd.ProposedSlot, cmd.ScheduleNote)
	}
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, r); err != nil {
		s.log.Error("failed to persist request decision",
			zap.String("request_id", id.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("updating request status: %w", err)
	}

	if s.metrics != nil {
		s.metrics.DoctorRequestsTotal.WithLabelValues(string(r.Status)).Inc()
	}
	s.publisher.PublishRequestEvent(events.RequestEvent{
		EventType:  eventTypeFor(r.Status),
		RequestID:  r.ID,
		PatientID:  r.PatientID,
		DoctorID:   r.DoctorID,
		Status:     string(r.Status),
		OccurredAt: time.Now().UTC(),
	})
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     string(caller.Role),
		Action:       "update",
		ResourceType: "doctor_request",
		ResourceID:   r.ID.String(),
		IPAddress:    ip,
		Changes:      fmt.Sprintf(`{"status":%q}`, r.Status),
	})

	s.log.Info("request decided",
		zap.String("request_id", r.ID.String()),
		zap.String("status", string(r.Status)),
	)

	return r, nil
}

// UpdateProposal lets the addressed doctor re-propose a slot on a request
// already sitting in reschedule. The status does not change.
func (s *RequestService) UpdateProposal(ctx context.Context, id uuid.UUID, proposedSlot, scheduleNote string, caller *domain.Claims, ip string) (*request.DoctorRequest, error) {
	if caller.Role != domain.RoleDoctor || caller.DoctorID == nil {
		return nil, ErrForbidden
	}

	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.DoctorID != *caller.DoctorID {
		return nil, ErrForbidden
	}

	if err := r.UpdateProposal(proposedSlot, scheduleNote); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, r); err != nil {
		return nil, fmt.Errorf("updating proposal: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     string(caller.Role),
		Action:       "update",
		ResourceType: "doctor_request",
		ResourceID:   r.ID.String(),
		IPAddress:    ip,
	})

	return r, nil
}

// ListRequests returns the caller's side of the request inbox: patients
// see requests they opened, doctors see requests addressed to them.
func (s *RequestService) ListRequests(ctx context.Context, q *request.ListRequestsQuery, caller *domain.Claims) (*request.PagedRequests, error) {
	switch caller.Role {
	case domain.RolePatient:
		if caller.PatientID == nil {
			return nil, ErrForbidden
		}
		q.PatientID = caller.PatientID
		q.DoctorID = nil
	case domain.RoleDoctor:
		if caller.DoctorID == nil {
			return nil, ErrForbidden
		}
		q.DoctorID = caller.DoctorID
		q.PatientID = nil
	case domain.RoleAdmin:
		// Admins may filter freely
	default:
		return nil, ErrForbidden
	}

	if q.Status != nil && !q.Status.IsValid() {
		return nil, request.ErrInvalidStatus
	}
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}

	return s.repo.List(ctx, q)
}

// CanDoctorAccessPatientCase is the access predicate for all doctor-side
// reads of a patient's case data: true only when at least one accepted
// request links the pair. Evaluated per read, never cached.
func (s *RequestService) CanDoctorAccessPatientCase(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	return s.repo.HasAccepted(ctx, doctorID, patientID)
}

func (s *RequestService) canSee(r *request.DoctorRequest, caller *domain.Claims) bool {
	switch caller.Role {
	case domain.RoleAdmin:
		return true
	case domain.RolePatient:
		return caller.PatientID != nil && *caller.PatientID == r.PatientID
	case domain.RoleDoctor:
		return caller.DoctorID != nil && *caller.DoctorID == r.DoctorID
	}
	return false
}

func eventTypeFor(s request.Status) string {
	switch s {
	case request.StatusAccepted:
		return "request.accepted"
	case request.StatusDeclined:
		return "request.declined"
	case request.StatusReschedule:
		return "request.rescheduled"
	default:
		return "request.created"
	}
}
