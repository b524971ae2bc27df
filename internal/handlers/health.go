package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil {
		RespondError(c, http.StatusServiceUnavailable, "db_unavailable", err)
		return
	}
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		RespondError(c, http.StatusServiceUnavailable, "db_unavailable", err)
		return
	}
	RespondOK(c, gin.H{"status": "ok"})
}
