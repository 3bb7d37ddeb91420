package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oncohub/oncohub/internal/domain/risk"
	"github.com/oncohub/oncohub/internal/service"
)

type RiskHandler struct {
	riskSvc *service.RiskService
}

func NewRiskHandler(riskSvc *service.RiskService) *RiskHandler {
	return &RiskHandler{riskSvc: riskSvc}
}

type assessRequest struct {
	CancerType       string  `json:"cancer_type" binding:"required"`
	TumorSizeCm      float64 `json:"tumor_size_cm" binding:"required"`
	Biomarker1       float64 `json:"biomarker1"`
	Biomarker2       string  `json:"biomarker2"`
	AdditionalFactor string  `json:"additional_factor"`
}

// Assess runs the deterministic risk scorer for the patient in the path
// and records the result in the assessment history.
func (h *RiskHandler) Assess(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	patientID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req assessRequest
	if !bindJSON(c, &req) {
		return
	}

	assessment, err := h.riskSvc.Assess(c.Request.Context(), patientID, risk.DiagnosisInput{
		CancerType:       risk.CancerType(req.CancerType),
		TumorSizeCm:      req.TumorSizeCm,
		Biomarker1:       req.Biomarker1,
		Biomarker2:       req.Biomarker2,
		AdditionalFactor: req.AdditionalFactor,
	}, claims, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, assessment)
}
