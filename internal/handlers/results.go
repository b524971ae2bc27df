package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/services"
)

type ResultHandler struct {
	log           *logger.Logger
	resultService services.ResultService
}

func NewResultHandler(log *logger.Logger, resultService services.ResultService) *ResultHandler {
	return &ResultHandler{
		log:           log.With("handler", "ResultHandler"),
		resultService: resultService,
	}
}

func (h *ResultHandler) GetClassView(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	view, err := h.resultService.ClassView(c.Request.Context(), examID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, view)
}

func (h *ResultHandler) GetStudentView(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	studentID := c.Param("student_id")
	view, err := h.resultService.StudentView(c.Request.Context(), examID, studentID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, view)
}

func (h *ResultHandler) GetTrace(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	trace, err := h.resultService.Trace(c.Request.Context(), examID, c.Param("student_id"), c.Param("concept_id"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"trace": trace})
}

func (h *ResultHandler) GetClusters(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	view, err := h.resultService.Clusters(c.Request.Context(), examID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, view)
}

func (h *ResultHandler) GetInterventions(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	interventions, err := h.resultService.Interventions(c.Request.Context(), examID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"interventions": interventions})
}

// GetStudentViewByToken serves the public, unauthenticated per-student view.
// The opaque token stands in for the student identity.
func (h *ResultHandler) GetStudentViewByToken(c *gin.Context) {
	token, err := uuid.Parse(c.Param("token"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_token", err)
		return
	}
	view, err := h.resultService.StudentViewByToken(c.Request.Context(), token)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, view)
}

func (h *ResultHandler) GetAuditTrail(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_limit", err)
			return
		}
	}
	entries, err := h.resultService.AuditTrail(c.Request.Context(), examID, limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"entries": entries})
}
