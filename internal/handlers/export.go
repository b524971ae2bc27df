package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/services"
)

type ExportHandler struct {
	log           *logger.Logger
	exportService services.ExportService
}

func NewExportHandler(log *logger.Logger, exportService services.ExportService) *ExportHandler {
	return &ExportHandler{
		log:           log.With("handler", "ExportHandler"),
		exportService: exportService,
	}
}

func (h *ExportHandler) StartExport(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	run, err := h.exportService.Start(c.Request.Context(), examID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"export": run})
}

func (h *ExportHandler) GetExport(c *gin.Context) {
	runID, err := pathUUID(c, "export_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	run, err := h.exportService.Get(c.Request.Context(), runID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"export": run})
}

func (h *ExportHandler) ListExports(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	runs, err := h.exportService.List(c.Request.Context(), examID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"exports": runs})
}
