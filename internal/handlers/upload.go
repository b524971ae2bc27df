package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/conceptlens/conceptlens-backend/internal/engine"
	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/services"
)

type UploadHandler struct {
	log           *logger.Logger
	uploadService services.UploadService
}

func NewUploadHandler(log *logger.Logger, uploadService services.UploadService) *UploadHandler {
	return &UploadHandler{
		log:           log.With("handler", "UploadHandler"),
		uploadService: uploadService,
	}
}

func (h *UploadHandler) UploadScores(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_file", fmt.Errorf("multipart field 'file' is required"))
		return
	}
	defer file.Close()

	if header.Size > engine.MaxUploadBytes {
		RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large",
			fmt.Errorf("file exceeds maximum size of %d MB", engine.MaxUploadBytes/(1024*1024)))
		return
	}

	summary, err := h.uploadService.IngestScores(c.Request.Context(), examID, file, header.Size)
	if err != nil {
		h.log.Warn("Score upload rejected", "exam_id", examID.String(), "error", err)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"summary": summary})
}

func (h *UploadHandler) UploadMapping(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_file", fmt.Errorf("multipart field 'file' is required"))
		return
	}
	defer file.Close()

	if header.Size > engine.MaxUploadBytes {
		RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large",
			fmt.Errorf("file exceeds maximum size of %d MB", engine.MaxUploadBytes/(1024*1024)))
		return
	}

	summary, err := h.uploadService.IngestMapping(c.Request.Context(), examID, file, header.Size)
	if err != nil {
		h.log.Warn("Mapping upload rejected", "exam_id", examID.String(), "error", err)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"summary": summary})
}

func (h *UploadHandler) ValidateTagSuggestions(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var req struct {
		Suggestions []engine.TagSuggestion `json:"suggestions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	verdicts, err := h.uploadService.ValidateTagSuggestions(c.Request.Context(), examID, req.Suggestions)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"verdicts": verdicts})
}
