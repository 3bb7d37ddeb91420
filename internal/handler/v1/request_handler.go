package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oncohub/oncohub/internal/domain/request"
	"github.com/oncohub/oncohub/internal/service"
)

type RequestHandler struct {
	requestSvc *service.RequestService
}

func NewRequestHandler(requestSvc *service.RequestService) *RequestHandler {
	return &RequestHandler{requestSvc: requestSvc}
}

type createRequestRequest struct {
	DoctorID   uuid.UUID          `json:"doctor_id" binding:"required"`
	HospitalID *uuid.UUID         `json:"hospital_id"`
	Note       string             `json:"note"`
	DataShare  *request.DataShare `json:"data_share"`
}

func (h *RequestHandler) Create(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	if claims.PatientID == nil {
		respondError(c, http.StatusForbidden, "a patient profile is required")
		return
	}

	var req createRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	r, err := h.requestSvc.CreateRequest(c.Request.Context(), &request.CreateRequestCommand{
		PatientID:  *claims.PatientID,
		DoctorID:   req.DoctorID,
		HospitalID: req.HospitalID,
		Note:       req.Note,
		DataShare:  req.DataShare,
	}, claims, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, r)
}

func (h *RequestHandler) Get(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	r, err := h.requestSvc.GetRequest(c.Request.Context(), id, claims)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, r)
}

type decideRequestRequest struct {
	Status       string `json:"status" binding:"required"` // accepted | declined | reschedule
	ScheduleNote string `json:"schedule_note"`
	ProposedSlot string `json:"proposed_slot"`
}

// Decide is the addressed doctor's one-shot transition out of pending.
func (h *RequestHandler) Decide(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req decideRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	r, err := h.requestSvc.DecideRequest(c.Request.Context(), id, &request.DecideRequestCommand{
		Status:       request.Status(req.Status),
		ScheduleNote: req.ScheduleNote,
		ProposedSlot: req.ProposedSlot,
	}, claims, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, r)
}

type updateProposalRequest struct {
	ProposedSlot string `json:"proposed_slot" binding:"required"`
	ScheduleNote string `json:"schedule_note"`
}

// UpdateProposal refreshes the slot on a request already in reschedule.
func (h *RequestHandler) UpdateProposal(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req updateProposalRequest
	if !bindJSON(c, &req) {
		return
	}

	r, err := h.requestSvc.UpdateProposal(c.Request.Context(), id, req.ProposedSlot, req.ScheduleNote, claims, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, r)
}

func (h *RequestHandler) List(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	q := &request.ListRequestsQuery{
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}
	if raw := c.Query("status"); raw != "" {
		st := request.Status(raw)
		q.Status = &st
	}

	page, err := h.requestSvc.ListRequests(c.Request.Context(), q, claims)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, page)
}
