package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/services"
)

type ComputeHandler struct {
	log            *logger.Logger
	computeService services.ComputeService
}

func NewComputeHandler(log *logger.Logger, computeService services.ComputeService) *ComputeHandler {
	return &ComputeHandler{
		log:            log.With("handler", "ComputeHandler"),
		computeService: computeService,
	}
}

// TriggerCompute enqueues a readiness computation for the exam. The run is
// picked up asynchronously by the compute worker; poll GetRun for progress.
func (h *ComputeHandler) TriggerCompute(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	run, err := h.computeService.Enqueue(c.Request.Context(), examID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	// ?sync=1 executes inline instead of waiting for the worker. Useful for
	// tests and small classes.
	if c.Query("sync") == "1" {
		if err := h.computeService.Execute(c.Request.Context(), run.ID); err != nil {
			RespondServiceError(c, err)
			return
		}
		run, err = h.computeService.RunStatus(c.Request.Context(), run.ID)
		if err != nil {
			RespondServiceError(c, err)
			return
		}
		RespondOK(c, gin.H{"run": run})
		return
	}
	RespondAccepted(c, gin.H{"run": run})
}

func (h *ComputeHandler) GetRun(c *gin.Context) {
	runID, err := pathUUID(c, "run_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	run, err := h.computeService.RunStatus(c.Request.Context(), runID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"run": run})
}

func (h *ComputeHandler) GetLatestRun(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	run, err := h.computeService.LatestRun(c.Request.Context(), examID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"run": run})
}
