package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mariyam933/fyp/internal/database"
	"go.uber.org/zap"
)

type SettingsHandler struct {
	settings *database.SettingsStore
	logger   *zap.Logger
}

func NewSettingsHandler(settings *database.SettingsStore, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

// --- GET: /api/settings ---
func (h *SettingsHandler) Get(c *gin.Context) {
	st, err := h.settings.Get(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// --- PUT: /api/settings ---
func (h *SettingsHandler) Update(c *gin.Context) {
	// 1. Parse JSON loosely so a bad field is reported by name
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	// 2. Collect the provided rates
	var patch database.SettingsPatch
	targets := []struct {
		key string
		dst **float64
	}{
		{"unitPrice", &patch.UnitPrice},
		{"fcRate", &patch.FCRate},
		{"qtrRate", &patch.QtrRate},
		{"fpaRate", &patch.FPARate},
		{"fixedCharges", &patch.FixedCharges},
		{"ptvFee", &patch.PTVFee},
		{"meterRent", &patch.MeterRent},
		{"waterBill", &patch.WaterBill},
		{"gstRate", &patch.GSTRate},
	}
	for _, t := range targets {
		if _, sent := body[t.key]; !sent {
			continue
		}
		v, ok := toNumber(body[t.key])
		if !ok {
			respondError(c, h.logger, invalidField(t.key))
			return
		}
		*t.dst = &v
	}

	// 3. Save
	st, err := h.settings.Update(c.Request.Context(), patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
