package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oncohub/oncohub/internal/service"
)

type AIHandler struct {
	aiSvc *service.AIService
}

func NewAIHandler(aiSvc *service.AIService) *AIHandler {
	return &AIHandler{aiSvc: aiSvc}
}

// DraftTreatmentPlan returns an AI-drafted treatment plan for the patient.
// The draft is advisory; it is only persisted if the doctor attaches it to
// a case record.
func (h *AIHandler) DraftTreatmentPlan(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	patientID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	text, err := h.aiSvc.DraftTreatmentPlan(c.Request.Context(), patientID, claims, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, gin.H{"treatment_plan": text})
}

func (h *AIHandler) DraftKnowledgeGraph(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	patientID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	graph, err := h.aiSvc.DraftKnowledgeGraph(c.Request.Context(), patientID, claims, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, gin.H{"knowledge_graph": graph})
}
