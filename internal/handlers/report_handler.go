package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mariyam933/fyp/internal/database"
	"go.uber.org/zap"
)

type ReportHandler struct {
	reports *database.ReportStore
	logger  *zap.Logger
}

func NewReportHandler(reports *database.ReportStore, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

// --- GET: /api/overview ---
func (h *ReportHandler) Overview(c *gin.Context) {
	data, err := h.reports.Overview(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, data)
}
