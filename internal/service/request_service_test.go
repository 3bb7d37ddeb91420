package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oncohub/oncohub/internal/domain"
	"github.com/oncohub/oncohub/internal/domain/request"
	"github.com/oncohub/oncohub/internal/events"
)

func newTestRequestService(t *testing.T) (*RequestService, *fakeRequestRepo) {
	t.Helper()
	repo := newFakeRequestRepo()
	auditSvc := NewAuditService(&fakeAuditRepo{}, zap.NewNop(), nil)
	t.Cleanup(auditSvc.Shutdown)
	svc := NewRequestService(repo, events.NopPublisher{}, auditSvc, nil, zap.NewNop())
	return svc, repo
}

func patientClaims(patientID uuid.UUID) *domain.Claims {
	return &domain.Claims{UserID: uuid.New(), Role: domain.RolePatient, PatientID: &patientID}
}

func doctorClaims(doctorID uuid.UUID) *domain.Claims {
	return &domain.Claims{UserID: uuid.New(), Role: domain.RoleDoctor, DoctorID: &doctorID}
}

func createPending(t *testing.T, svc *RequestService, patientID, doctorID uuid.UUID) *request.DoctorRequest {
	t.Helper()
	r, err := svc.CreateRequest(context.Background(), &request.CreateRequestCommand{
		PatientID: patientID,
		DoctorID:  doctorID,
		Note:      "please review my case",
	}, patientClaims(patientID), "10.0.0.1")
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	return r
}

func TestCreateRequest(t *testing.T) {
	svc, _ := newTestRequestService(t)
	patientID, doctorID := uuid.New(), uuid.New()

	r := createPending(t, svc, patientID, doctorID)
	if r.Status != request.StatusPending {
		t.Errorf("new request status = %s, want pending", r.Status)
	}

	// A second undecided request to the same doctor is rejected
	_, err := svc.CreateRequest(context.Background(), &request.CreateRequestCommand{
		PatientID: patientID,
		DoctorID:  doctorID,
	}, patientClaims(patientID), "10.0.0.1")
	if !errors.Is(err, request.ErrDuplicatePending) {
		t.Errorf("duplicate pending error = %v, want ErrDuplicatePending", err)
	}
}

func TestCreateRequestOnlyByOwningPatient(t *testing.T) {
	svc, _ := newTestRequestService(t)
	patientID, doctorID := uuid.New(), uuid.New()

	otherPatient := uuid.New()
	_, err := svc.CreateRequest(context.Background(), &request.CreateRequestCommand{
		PatientID: patientID,
		DoctorID:  doctorID,
	}, patientClaims(otherPatient), "10.0.0.1")
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("create for another patient = %v, want ErrForbidden", err)
	}

	_, err = svc.CreateRequest(context.Background(), &request.CreateRequestCommand{
		PatientID: patientID,
		DoctorID:  doctorID,
	}, doctorClaims(doctorID), "10.0.0.1")
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("create by doctor = %v, want ErrForbidden", err)
	}
}

func TestDecideRequestAccept(t *testing.T) {
	svc, repo := newTestRequestService(t)
	patientID, doctorID := uuid.New(), uuid.New()
	r := createPending(t, svc, patientID, doctorID)

	decided, err := svc.DecideRequest(context.Background(), r.ID, &request.DecideRequestCommand{
		Status:       request.StatusAccepted,
		ScheduleNote: "Tuesday 10:00 works",
	}, doctorClaims(doctorID), "10.0.0.2")
	if err != nil {
		t.Fatalf("DecideRequest: %v", err)
	}
	if decided.Status != request.StatusAccepted {
		t.Errorf("status = %s, want accepted", decided.Status)
	}

	ok, err := repo.HasAccepted(context.Background(), doctorID, patientID)
	if err != nil || !ok {
		t.Errorf("HasAccepted after accept = %v, %v; want true, nil", ok, err)
	}
}

func TestDecideRequestWrongDoctorDoesNotMutate(t *testing.T) {
	svc, repo := newTestRequestService(t)
	patientID, doctorID := uuid.New(), uuid.New()
	r := createPending(t, svc, patientID, doctorID)

	intruder := uuid.New()
	_, err := svc.DecideRequest(context.Background(), r.ID, &request.DecideRequestCommand{
		Status: request.StatusAccepted,
	}, doctorClaims(intruder), "10.0.0.3")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("wrong doctor decision = %v, want ErrForbidden", err)
	}

	stored, err := repo.GetByID(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != request.StatusPending {
		t.Errorf("stored status after forbidden attempt = %s, want pending", stored.Status)
	}
}

func TestDecideRequestTerminalStatesRejectFurtherDecisions(t *testing.T) {
	for _, first := range []request.Status{request.StatusAccepted, request.StatusDeclined, request.StatusReschedule} {
		t.Run(string(first), func(t *testing.T) {
			svc, repo := newTestRequestService(t)
			patientID, doctorID := uuid.New(), uuid.New()
			r := createPending(t, svc, patientID, doctorID)

			cmd := &request.DecideRequestCommand{Status: first}
			if first == request.StatusReschedule {
				cmd.ProposedSlot = "2026-09-01T09:00"
			}
			if _, err := svc.DecideRequest(context.Background(), r.ID, cmd, doctorClaims(doctorID), ""); err != nil {
				t.Fatalf("first decision: %v", err)
			}

			_, err := svc.DecideRequest(context.Background(), r.ID, &request.DecideRequestCommand{
				Status: request.StatusAccepted,
			}, doctorClaims(doctorID), "")
			if !errors.Is(err, request.ErrInvalidStatusTransition) {
				t.Errorf("second decision = %v, want ErrInvalidStatusTransition", err)
			}

			stored, _ := repo.GetByID(context.Background(), r.ID)
			if stored.Status != first {
				t.Errorf("stored status = %s, want %s", stored.Status, first)
			}
		})
	}
}

func TestDecideRequestRescheduleRequiresSlot(t *testing.T) {
	svc, _ := newTestRequestService(t)
	patientID, doctorID := uuid.New(), uuid.New()
	r := createPending(t, svc, patientID, doctorID)

	_, err := svc.DecideRequest(context.Background(), r.ID, &request.DecideRequestCommand{
		Status: request.StatusReschedule,
	}, doctorClaims(doctorID), "")
	if !errors.Is(err, request.ErrProposedSlotRequired) {
		t.Errorf("reschedule without slot = %v, want ErrProposedSlotRequired", err)
	}
}

func TestUpdateProposalKeepsRescheduleState(t *testing.T) {
	svc, repo := newTestRequestService(t)
	patientID, doctorID := uuid.New(), uuid.New()
	r := createPending(t, svc, patientID, doctorID)

	if _, err := svc.DecideRequest(context.Background(), r.ID, &request.DecideRequestCommand{
		Status:       request.StatusReschedule,
		ProposedSlot: "2026-09-01T09:00",
	}, doctorClaims(doctorID), ""); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	updated, err := svc.UpdateProposal(context.Background(), r.ID, "2026-09-03T14:00", "afternoon instead", doctorClaims(doctorID), "")
	if err != nil {
		t.Fatalf("UpdateProposal: %v", err)
	}
	if updated.Status != request.StatusReschedule {
		t.Errorf("status after proposal refresh = %s, want reschedule", updated.Status)
	}
	if updated.ProposedSlot != "2026-09-03T14:00" {
		t.Errorf("proposed slot = %q, want refreshed value", updated.ProposedSlot)
	}

	stored, _ := repo.GetByID(context.Background(), r.ID)
	if stored.ProposedSlot != "2026-09-03T14:00" {
		t.Errorf("stored slot = %q, want refreshed value", stored.ProposedSlot)
	}
}

func TestUpdateProposalOnlyInReschedule(t *testing.T) {
	svc, _ := newTestRequestService(t)
	patientID, doctorID := uuid.New(), uuid.New()
	r := createPending(t, svc, patientID, doctorID)

	_, err := svc.UpdateProposal(context.Background(), r.ID, "2026-09-01T09:00", "", doctorClaims(doctorID), "")
	if !errors.Is(err, request.ErrInvalidStatusTransition) {
		t.Errorf("proposal refresh on pending = %v, want ErrInvalidStatusTransition", err)
	}
}

func TestCanDoctorAccessPatientCase(t *testing.T) {
	svc, _ := newTestRequestService(t)
	ctx := context.Background()

	patientA, patientB := uuid.New(), uuid.New()
	doctorX := uuid.New()

	// doctorX accepted patientA, declined patientB
	ra := createPending(t, svc, patientA, doctorX)
	if _, err := svc.DecideRequest(ctx, ra.ID, &request.DecideRequestCommand{Status: request.StatusAccepted}, doctorClaims(doctorX), ""); err != nil {
		t.Fatalf("accept: %v", err)
	}
	rb := createPending(t, svc, patientB, doctorX)
	if _, err := svc.DecideRequest(ctx, rb.ID, &request.DecideRequestCommand{Status: request.StatusDeclined}, doctorClaims(doctorX), ""); err != nil {
		t.Fatalf("decline: %v", err)
	}

	tests := []struct {
		name      string
		doctorID  uuid.UUID
		patientID uuid.UUID
		want      bool
	}{
		{"accepted pair", doctorX, patientA, true},
		{"declined pair", doctorX, patientB, false},
		{"unknown pair", uuid.New(), patientA, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.CanDoctorAccessPatientCase(ctx, tt.doctorID, tt.patientID)
			if err != nil {
				t.Fatalf("CanDoctorAccessPatientCase: %v", err)
			}
			if got != tt.want {
				t.Errorf("access = %v, want %v", got, tt.want)
			}
		})
	}

	// Pending alone never grants access
	patientC := uuid.New()
	createPending(t, svc, patientC, doctorX)
	got, err := svc.CanDoctorAccessPatientCase(ctx, doctorX, patientC)
	if err != nil {
		t.Fatalf("CanDoctorAccessPatientCase: %v", err)
	}
	if got {
		t.Error("pending request granted access, want denied")
	}
}

func TestListRequestsScopedToCaller(t *testing.T) {
	svc, _ := newTestRequestService(t)
	ctx := context.Background()

	patientA, patientB := uuid.New(), uuid.New()
	doctorX, doctorY := uuid.New(), uuid.New()
	createPending(t, svc, patientA, doctorX)
	createPending(t, svc, patientB, doctorX)
	createPending(t, svc, patientA, doctorY)

	page, err := svc.ListRequests(ctx, &request.ListRequestsQuery{}, doctorClaims(doctorX))
	if err != nil {
		t.Fatalf("ListRequests as doctor: %v", err)
	}
	if len(page.Requests) != 2 {
		t.Errorf("doctor inbox size = %d, want 2", len(page.Requests))
	}
	for _, r := range page.Requests {
		if r.DoctorID != doctorX {
			t.Errorf("doctor inbox leaked request for doctor %s", r.DoctorID)
		}
	}

	page, err = svc.ListRequests(ctx, &request.ListRequestsQuery{}, patientClaims(patientA))
	if err != nil {
		t.Fatalf("ListRequests as patient: %v", err)
	}
	if len(page.Requests) != 2 {
		t.Errorf("patient outbox size = %d, want 2", len(page.Requests))
	}
	for _, r := range page.Requests {
		if r.PatientID != patientA {
			t.Errorf("patient outbox leaked request of patient %s", r.PatientID)
		}
	}
}
