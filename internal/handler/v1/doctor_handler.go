package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oncohub/oncohub/internal/domain/doctor"
	"github.com/oncohub/oncohub/internal/service"
)

type DoctorHandler struct {
	doctorSvc *service.DoctorService
}

func NewDoctorHandler(doctorSvc *service.DoctorService) *DoctorHandler {
	return &DoctorHandler{doctorSvc: doctorSvc}
}

type createDoctorRequest struct {
	FirstName      string     `json:"first_name" binding:"required"`
	LastName       string     `json:"last_name" binding:"required"`
	Specialization string     `json:"specialization" binding:"required"`
	LicenseNumber  string     `json:"license_number" binding:"required"`
	HospitalID     *uuid.UUID `json:"hospital_id"`
	HospitalName   string     `json:"hospital_name"`
	Bio            string     `json:"bio"`
	YearsActive    int        `json:"years_active"`
}

func (h *DoctorHandler) Create(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createDoctorRequest
	if !bindJSON(c, &req) {
		return
	}

	d, err := h.doctorSvc.CreateProfile(c.Request.Context(), &doctor.CreateDoctorCommand{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Specialization: doctor.Specialization(req.Specialization),
		LicenseNumber:  req.LicenseNumber,
		HospitalID:     req.HospitalID,
		HospitalName:   req.HospitalName,
		Bio:            req.Bio,
		YearsActive:    req.YearsActive,
	}, claims, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, d)
}

func (h *DoctorHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	d, err := h.doctorSvc.GetDoctor(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, d)
}

type updateDoctorRequest struct {
	Specialization    *string    `json:"specialization"`
	HospitalID        *uuid.UUID `json:"hospital_id"`
	HospitalName      *string    `json:"hospital_name"`
	Bio               *string    `json:"bio"`
	YearsActive       *int       `json:"years_active"`
	AcceptingPatients *bool      `json:"accepting_patients"`
}

func (h *DoctorHandler) Update(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req updateDoctorRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &doctor.UpdateDoctorCommand{
		HospitalID:        req.HospitalID,
		HospitalName:      req.HospitalName,
		Bio:               req.Bio,
		YearsActive:       req.YearsActive,
		AcceptingPatients: req.AcceptingPatients,
	}
	if req.Specialization != nil {
		sp := doctor.Specialization(*req.Specialization)
		cmd.Specialization = &sp
	}

	d, err := h.doctorSvc.UpdateProfile(c.Request.Context(), id, cmd, claims, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, d)
}

// List is the doctor directory patients browse before sending a request.
func (h *DoctorHandler) List(c *gin.Context) {
	q := &doctor.ListDoctorsQuery{
		Search:   c.Query("search"),
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}
	if raw := c.Query("specialization"); raw != "" {
		sp := doctor.Specialization(raw)
		q.Specialization = &sp
	}
	if raw := c.Query("accepting"); raw == "true" || raw == "false" {
		accepting := raw == "true"
		q.AcceptingPatients = &accepting
	}
	if raw := c.Query("hospital_id"); raw != "" {
		hid, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid hospital_id")
			return
		}
		q.HospitalID = &hid
	}

	page, err := h.doctorSvc.ListDoctors(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, page)
}
