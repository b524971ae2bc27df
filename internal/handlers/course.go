package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/services"
)

type CourseHandler struct {
	log           *logger.Logger
	courseService services.CourseService
}

func NewCourseHandler(log *logger.Logger, courseService services.CourseService) *CourseHandler {
	return &CourseHandler{
		log:           log.With("handler", "CourseHandler"),
		courseService: courseService,
	}
}

type createCourseRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	course, err := h.courseService.CreateCourse(c.Request.Context(), req.Name)
	if err != nil {
		h.log.Error("CreateCourse failed", "error", err)
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"course": course})
}

func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.courseService.ListCourses(c.Request.Context())
	if err != nil {
		h.log.Error("ListCourses failed", "error", err)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"courses": courses})
}

func (h *CourseHandler) GetCourse(c *gin.Context) {
	courseID, err := pathUUID(c, "course_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	course, err := h.courseService.GetCourse(c.Request.Context(), courseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"course": course})
}

func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	courseID, err := pathUUID(c, "course_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	if err := h.courseService.DeleteCourse(c.Request.Context(), courseID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": courseID})
}

type createExamRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *CourseHandler) CreateExam(c *gin.Context) {
	courseID, err := pathUUID(c, "course_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var req createExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	exam, err := h.courseService.CreateExam(c.Request.Context(), courseID, req.Name)
	if err != nil {
		h.log.Error("CreateExam failed", "error", err)
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"exam": exam})
}

func (h *CourseHandler) ListExams(c *gin.Context) {
	courseID, err := pathUUID(c, "course_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	exams, err := h.courseService.ListExams(c.Request.Context(), courseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"exams": exams})
}

func (h *CourseHandler) GetExam(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	exam, err := h.courseService.GetExam(c.Request.Context(), examID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"exam": exam})
}

func (h *CourseHandler) DeleteExam(c *gin.Context) {
	examID, err := pathUUID(c, "exam_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	if err := h.courseService.DeleteExam(c.Request.Context(), examID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": examID})
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, error) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return id, nil
}
