package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/conceptlens/conceptlens-backend/internal/engine"
	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/services"
)

type ParameterHandler struct {
	log          *logger.Logger
	paramService services.ParameterService
}

func NewParameterHandler(log *logger.Logger, paramService services.ParameterService) *ParameterHandler {
	return &ParameterHandler{
		log:          log.With("handler", "ParameterHandler"),
		paramService: paramService,
	}
}

func (h *ParameterHandler) GetParameters(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	params, err := h.paramService.Get(c.Request.Context(), examID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"parameters": params})
}

func (h *ParameterHandler) UpdateParameters(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var req engine.Params
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	params, err := h.paramService.Update(c.Request.Context(), examID, req)
	if err != nil {
		h.log.Warn("Parameter update rejected", "exam_id", examID.String(), "error", err)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"parameters": params})
}
