package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oncohub/oncohub/internal/domain/casefile"
	"github.com/oncohub/oncohub/internal/service"
)

type CaseHandler struct {
	caseSvc *service.CaseService
}

func NewCaseHandler(caseSvc *service.CaseService) *CaseHandler {
	return &CaseHandler{caseSvc: caseSvc}
}

type createRecordRequest struct {
	PatientID          uuid.UUID  `json:"patient_id" binding:"required"`
	RequestID          *uuid.UUID `json:"request_id"`
	Type               string     `json:"type" binding:"required"`
	Summary            string     `json:"summary" binding:"required"`
	Diagnoses          []string   `json:"diagnoses"`
	Notes              string     `json:"notes"`
	TreatmentPlanText  string     `json:"treatment_plan_text"`
	KnowledgeGraphJSON string     `json:"knowledge_graph_json"`
}

func (h *CaseHandler) CreateRecord(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createRecordRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.caseSvc.CreateRecord(c.Request.Context(), &casefile.CreateRecordCommand{
		PatientID:          req.PatientID,
		RequestID:          req.RequestID,
		Type:               casefile.RecordType(req.Type),
		Summary:            req.Summary,
		Diagnoses:          req.Diagnoses,
		Notes:              req.Notes,
		TreatmentPlanText:  req.TreatmentPlanText,
		KnowledgeGraphJSON: req.KnowledgeGraphJSON,
	}, claims, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, rec)
}

func (h *CaseHandler) GetRecord(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	rec, err := h.caseSvc.GetRecord(c.Request.Context(), id, claims, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, rec)
}

type addAddendumRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *CaseHandler) AddAddendum(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req addAddendumRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.caseSvc.AddAddendum(c.Request.Context(), &casefile.AddAddendumCommand{
		CaseRecordID: id,
		Content:      req.Content,
	}, claims, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, a)
}

func (h *CaseHandler) ListRecords(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	patientID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	q := &casefile.ListRecordsQuery{
		PatientID: &patientID,
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "page_size", 20),
	}
	if raw := c.Query("type"); raw != "" {
		t := casefile.RecordType(raw)
		q.Type = &t
	}

	page, err := h.caseSvc.ListRecords(c.Request.Context(), q, claims)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, page)
}

type fileResponse struct {
	ID            string `json:"id"`
	FileName      string `json:"file_name"`
	ContentType   string `json:"content_type"`
	SizeBytes     int64  `json:"size_bytes"`
	SHA256        string `json:"sha256"`
	ExtractedText string `json:"extracted_text,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toFileResponse(f *casefile.MedicalFile) fileResponse {
	return fileResponse{
		ID:            f.ID.String(),
		FileName:      f.FileName,
		ContentType:   f.ContentType,
		SizeBytes:     f.SizeBytes,
		SHA256:        f.SHA256,
		ExtractedText: f.ExtractedText,
		CreatedAt:     f.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// UploadFile accepts a multipart upload. Plain-text files are their own
// extracted text; for binary formats the client may supply the text it
// extracted in the extracted_text form field.
func (h *CaseHandler) UploadFile(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	patientID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "a file part is required")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "could not read uploaded file")
		return
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		respondError(c, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	extracted := c.PostForm("extracted_text")
	if extracted == "" && contentType == "text/plain" {
		extracted = string(content)
	}

	var recordID *uuid.UUID
	if raw := c.PostForm("record_id"); raw != "" {
		rid, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid record_id")
			return
		}
		recordID = &rid
	}

	f, err := h.caseSvc.UploadFile(c.Request.Context(), &casefile.UploadFileCommand{
		PatientID:     patientID,
		RecordID:      recordID,
		FileName:      fileHeader.Filename,
		ContentType:   contentType,
		Content:       content,
		ExtractedText: extracted,
	}, claims, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, toFileResponse(f))
}

// DownloadFile streams the stored bytes back with the original name.
func (h *CaseHandler) DownloadFile(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	f, err := h.caseSvc.GetFile(c.Request.Context(), id, claims, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+f.FileName+`"`)
	c.Data(http.StatusOK, f.ContentType, f.Content)
}

func (h *CaseHandler) ListFiles(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	patientID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	files, err := h.caseSvc.ListFiles(c.Request.Context(), patientID, claims)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	respondOK(c, out)
}

func (h *CaseHandler) ListAssessments(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	patientID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	assessments, err := h.caseSvc.ListAssessments(c.Request.Context(), patientID, claims)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, assessments)
}
