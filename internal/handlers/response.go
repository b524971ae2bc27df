package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/conceptlens/conceptlens-backend/internal/engine"
	"github.com/conceptlens/conceptlens-backend/internal/repos"
	"github.com/conceptlens/conceptlens-backend/internal/services"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondValidationErrors returns the complete row/field error set so the
// instructor can fix a file or graph in one pass.
func RespondValidationErrors(c *gin.Context, code string, errs []engine.ValidationError) {
	c.JSON(http.StatusUnprocessableEntity, ErrorEnvelope{
		Error: APIError{
			Message: "validation failed",
			Code:    code,
			Details: errs,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondAccepted(c *gin.Context, payload any) {
	c.JSON(http.StatusAccepted, payload)
}

// RespondServiceError maps service-layer failures onto the error envelope.
// Validation failures keep their detail payload; everything unrecognized is
// a 500.
func RespondServiceError(c *gin.Context, err error) {
	var uploadErr *services.UploadValidationError
	var graphErr *services.GraphRejectedError
	var paramsErr *services.ParamsRejectedError
	var cycleErr *engine.CycleError

	switch {
	case errors.As(err, &uploadErr):
		RespondValidationErrors(c, "upload_rejected", uploadErr.Errors)
	case errors.As(err, &graphErr):
		c.JSON(http.StatusUnprocessableEntity, ErrorEnvelope{
			Error: APIError{
				Message: graphErr.Error(),
				Code:    "graph_rejected",
				Details: graphErr.Validation,
			},
		})
	case errors.As(err, &paramsErr):
		RespondValidationErrors(c, "parameters_rejected", paramsErr.Errors)
	case errors.As(err, &cycleErr):
		c.JSON(http.StatusUnprocessableEntity, ErrorEnvelope{
			Error: APIError{
				Message: cycleErr.Error(),
				Code:    "graph_cycle",
				Details: gin.H{"cycle_path": cycleErr.Path},
			},
		})
	case errors.Is(err, repos.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repos.ErrConflict):
		RespondError(c, http.StatusConflict, "conflict", err)
	case errors.Is(err, services.ErrNoScores):
		RespondError(c, http.StatusConflict, "no_scores", err)
	case errors.Is(err, services.ErrRunInFlight):
		RespondError(c, http.StatusConflict, "run_in_flight", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
