package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/conceptlens/conceptlens-backend/internal/engine"
	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/services"
)

type GraphHandler struct {
	log          *logger.Logger
	graphService services.GraphService
}

func NewGraphHandler(log *logger.Logger, graphService services.GraphService) *GraphHandler {
	return &GraphHandler{
		log:          log.With("handler", "GraphHandler"),
		graphService: graphService,
	}
}

func (h *GraphHandler) GetGraph(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	if v := c.Query("version"); v != "" {
		version, verr := strconv.Atoi(v)
		if verr != nil || version < 1 {
			RespondError(c, http.StatusBadRequest, "invalid_version", verr)
			return
		}
		g, gerr := h.graphService.GetVersion(c.Request.Context(), examID, version)
		if gerr != nil {
			RespondServiceError(c, gerr)
			return
		}
		RespondOK(c, gin.H{"graph": g, "version": version})
		return
	}

	g, version, err := h.graphService.GetHead(c.Request.Context(), examID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"graph": g, "version": version})
}

func (h *GraphHandler) ListVersions(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	versions, err := h.graphService.ListVersions(c.Request.Context(), examID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"versions": versions})
}

type commitGraphRequest struct {
	Graph      engine.Graph `json:"graph" binding:"required"`
	Annotation string       `json:"annotation"`
}

func (h *GraphHandler) CommitGraph(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var req commitGraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	version, err := h.graphService.Commit(c.Request.Context(), examID, req.Graph, req.Annotation)
	if err != nil {
		h.log.Warn("Graph commit rejected", "exam_id", examID.String(), "error", err)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"version": version})
}

type patchGraphRequest struct {
	Patch      engine.GraphPatch `json:"patch" binding:"required"`
	Annotation string            `json:"annotation"`
}

func (h *GraphHandler) PatchGraph(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var req patchGraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	version, err := h.graphService.ApplyPatch(c.Request.Context(), examID, req.Patch, req.Annotation)
	if err != nil {
		h.log.Warn("Graph patch rejected", "exam_id", examID.String(), "error", err)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"version": version})
}

type revertGraphRequest struct {
	ToVersion int `json:"to_version" binding:"required"`
}

func (h *GraphHandler) RevertGraph(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var req revertGraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	version, err := h.graphService.Revert(c.Request.Context(), examID, req.ToVersion)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"version": version})
}

type validateGraphRequest struct {
	Graph engine.Graph `json:"graph" binding:"required"`
}

// ValidateGraph is the dry-run endpoint: it reports the full validation
// result without storing anything.
func (h *GraphHandler) ValidateGraph(c *gin.Context) {
	var req validateGraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	v := h.graphService.Validate(c.Request.Context(), req.Graph)
	RespondOK(c, gin.H{"validation": v})
}

type edgeSuggestionsRequest struct {
	Suggestions []engine.EdgeSuggestion `json:"suggestions" binding:"required"`
}

func (h *GraphHandler) ValidateEdgeSuggestions(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var req edgeSuggestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	verdicts, err := h.graphService.ValidateEdgeSuggestions(c.Request.Context(), examID, req.Suggestions)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"verdicts": verdicts})
}
