package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"casebridge/internal/models"
	"casebridge/internal/repositories"
	"casebridge/internal/telemetry"
)

// CaseHandler manages case lifecycle endpoints. Only the slice the
// messaging core depends on lives here: participants, status, and the
// lawyer assignment that opens a case's message room.
type CaseHandler struct {
	cases repositories.CaseRepository
	audit *telemetry.AuditEmitter
}

// NewCaseHandler builds a CaseHandler.
func NewCaseHandler(cases repositories.CaseRepository, audit *telemetry.AuditEmitter) *CaseHandler {
	return &CaseHandler{cases: cases, audit: audit}
}

// CreateCase submits a new case; the caller becomes its client.
func (h *CaseHandler) CreateCase(c *gin.Context) {
	var req struct {
		CaseType    string `json:"case_type" binding:"required"`
		Title       string `json:"title" binding:"required"`
		Description string `json:"description" binding:"required"`
		Priority    string `json:"priority"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Priority == "" {
		req.Priority = "medium"
	}

	clientID := userIDFromContext(c)
	created, err := h.cases.CreateCase(c.Request.Context(), clientID, req.CaseType, req.Title, req.Description, req.Priority)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create case"})
		return
	}

	h.audit.Emit(c.Request.Context(), "case_created", created.ID, created.CaseNumber, requestIDFromContext(c), clientID)
	c.JSON(http.StatusCreated, created)
}

// GetCase returns a single case to one of its participants.
func (h *CaseHandler) GetCase(c *gin.Context) {
	caseID, ok := caseIDParam(c)
	if !ok {
		return
	}

	caseData, err := h.cases.GetCase(c.Request.Context(), caseID)
	if err != nil {
		caseError(c, err)
		return
	}
	if !caseData.IsParticipant(userIDFromContext(c)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied to this case"})
		return
	}

	c.JSON(http.StatusOK, caseData)
}

// ListCases returns the cases the caller participates in.
func (h *CaseHandler) ListCases(c *gin.Context) {
	cases, err := h.cases.ListCasesForUser(c.Request.Context(), userIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cases"})
		return
	}
	if cases == nil {
		cases = []models.Case{}
	}
	c.JSON(http.StatusOK, gin.H{"cases": cases})
}

// UpdateStatus transitions a case. Restricted to the assigned lawyer.
func (h *CaseHandler) UpdateStatus(c *gin.Context) {
	caseID, ok := caseIDParam(c)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidCaseStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status value"})
		return
	}

	userID := userIDFromContext(c)
	caseData, err := h.cases.GetCase(c.Request.Context(), caseID)
	if err != nil {
		caseError(c, err)
		return
	}
	if caseData.LawyerID == nil || *caseData.LawyerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the assigned lawyer may update status"})
		return
	}

	if err := h.cases.UpdateStatus(c.Request.Context(), caseID, req.Status); err != nil {
		caseError(c, err)
		return
	}

	h.audit.Emit(c.Request.Context(), "case_status_updated", caseID, req.Status, requestIDFromContext(c), userID)
	c.Status(http.StatusNoContent)
}

// AssignLawyer routes an unassigned case to the calling lawyer,
// opening its message room.
func (h *CaseHandler) AssignLawyer(c *gin.Context) {
	caseID, ok := caseIDParam(c)
	if !ok {
		return
	}

	userID := userIDFromContext(c)
	if userRoleFromContext(c) != "lawyer" {
		c.JSON(http.StatusForbidden, gin.H{"error": "lawyers only"})
		return
	}

	caseData, err := h.cases.GetCase(c.Request.Context(), caseID)
	if err != nil {
		caseError(c, err)
		return
	}
	if caseData.HasLawyer() {
		c.JSON(http.StatusConflict, gin.H{"error": "case already has a lawyer"})
		return
	}

	if err := h.cases.AssignLawyer(c.Request.Context(), caseID, userID); err != nil {
		caseError(c, err)
		return
	}

	h.audit.Emit(c.Request.Context(), "case_assigned", caseID, "", requestIDFromContext(c), userID)
	c.Status(http.StatusNoContent)
}

// AddRemark appends a note to a case on behalf of a participant.
func (h *CaseHandler) AddRemark(c *gin.Context) {
	caseID, ok := caseIDParam(c)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "remark text is required"})
		return
	}

	userID := userIDFromContext(c)
	caseData, err := h.cases.GetCase(c.Request.Context(), caseID)
	if err != nil {
		caseError(c, err)
		return
	}
	if !caseData.IsParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied to this case"})
		return
	}

	remark, err := h.cases.AddRemark(c.Request.Context(), caseID, userID, req.Text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add remark"})
		return
	}

	c.JSON(http.StatusCreated, remark)
}

func caseIDParam(c *gin.Context) (int, bool) {
	caseID, err := strconv.Atoi(c.Param("case_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid case id"})
		return 0, false
	}
	return caseID, true
}

func caseError(c *gin.Context, err error) {
	if errors.Is(err, repositories.ErrCaseNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "case not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "case lookup failed"})
}
