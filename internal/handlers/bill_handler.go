package handlers

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mariyam933/fyp/internal/apperr"
	"github.com/mariyam933/fyp/internal/database"
	"github.com/mariyam933/fyp/internal/events"
	"github.com/mariyam933/fyp/internal/export"
	"github.com/mariyam933/fyp/internal/middleware"
	"github.com/mariyam933/fyp/internal/models"
	"github.com/mariyam933/fyp/internal/receipt"
	"go.uber.org/zap"
)

type BillHandler struct {
	bills     *database.BillStore
	settings  *database.SettingsStore
	publisher events.Publisher
	uploads   Uploads
	logger    *zap.Logger
}

func NewBillHandler(bills *database.BillStore, settings *database.SettingsStore, publisher events.Publisher, uploads Uploads, logger *zap.Logger) *BillHandler {
	return &BillHandler{bills: bills, settings: settings, publisher: publisher, uploads: uploads, logger: logger}
}

// --- POST: /api/bill ---
// Accepts JSON or multipart form data (with an optional imageFile).
func (h *BillHandler) Create(c *gin.Context) {
	// 1. Read the body
	body, image, err := h.readCreateBody(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	// 2. Validate input at the boundary
	in, err := parseCreateBill(body)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	// 3. Store the meter photo, if any
	var saved *savedImage
	if image != nil {
		saved, err = h.uploads.saveImage(c, "imageFile", image)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		in.ImageURL = saved.URL
	}

	// 4. Price at the current tariff and persist
	ctx := c.Request.Context()
	settings, err := h.settings.Get(ctx)
	if err != nil {
		h.discard(saved)
		respondError(c, h.logger, err)
		return
	}
	bill, err := h.bills.Create(ctx, in, settings.TariffRates)
	if err != nil {
		h.discard(saved)
		respondError(c, h.logger, err)
		return
	}

	h.publish(ctx, events.BillCreated, bill)
	c.JSON(http.StatusCreated, bill)
}

func (h *BillHandler) readCreateBody(c *gin.Context) (map[string]any, *multipart.FileHeader, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			return nil, nil, apperr.Validation("", "Invalid input")
		}
		return body, nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, apperr.Validation("", "Invalid form data")
	}
	body := make(map[string]any, len(form.Value))
	for k, v := range form.Value {
		if len(v) > 0 {
			body[k] = v[0]
		}
	}
	var image *multipart.FileHeader
	if files := form.File["imageFile"]; len(files) > 0 {
		image = files[0]
	}
	return body, image, nil
}

func parseCreateBill(body map[string]any) (database.CreateBillInput, error) {
	var in database.CreateBillInput
	var err error

	if in.CustomerID, err = requiredID(body, "customerId"); err != nil {
		return in, err
	}
	if in.CurrentReading, err = requiredNumber(body, "currentReading"); err != nil {
		return in, err
	}
	if in.PreviousReading, err = optionalNumber(body, "previousReading"); err != nil {
		return in, err
	}
	serial, err := optionalString(body, "meterSrNo")
	if err != nil {
		return in, err
	}
	if serial == nil || strings.TrimSpace(*serial) == "" {
		return in, apperr.Validation("meterSrNo", "meterSrNo is required")
	}
	in.MeterSrNo = *serial

	if url, err := optionalString(body, "imageUrl"); err != nil {
		return in, err
	} else if url != nil {
		in.ImageURL = *url
	}
	if in.IsOCRProcessed, err = optionalBool(body, "isOcrProcessed"); err != nil {
		return in, err
	}
	return in, nil
}

// --- GET: /api/bill ---
func (h *BillHandler) List(c *gin.Context) {
	bills, err := h.bills.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, bills)
}

// --- GET: /api/bill/:customerId ---
func (h *BillHandler) ListForCustomer(c *gin.Context) {
	customerID, ok := h.customerParam(c)
	if !ok {
		return
	}

	bills, err := h.bills.ListForCustomer(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if len(bills) == 0 {
		respondError(c, h.logger, apperr.NotFound("bills"))
		return
	}
	c.JSON(http.StatusOK, bills)
}

// --- GET: /api/bill/prev/:customerId ---
// Used by the client to prefill the previous reading.
func (h *BillHandler) Previous(c *gin.Context) {
	customerID, ok := h.customerParam(c)
	if !ok {
		return
	}

	latest, err := h.bills.FindLatestForCustomer(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if latest == nil {
		respondError(c, h.logger, apperr.NotFound("previous bill"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"previousReading": latest.CurrentReading,
		"billId":          latest.ID,
		"createdAt":       latest.CreatedAt,
	})
}

// --- PUT: /api/bill/:billId ---
func (h *BillHandler) Update(c *gin.Context) {
	id, err := pathID(c, "billId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	patch, err := parseBillPatch(body)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	bill, err := h.bills.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.publish(c.Request.Context(), events.BillUpdated, bill)
	c.JSON(http.StatusOK, bill)
}

func parseBillPatch(body map[string]any) (database.BillPatch, error) {
	var patch database.BillPatch
	var err error

	if patch.MeterSrNo, err = optionalString(body, "meterSrNo"); err != nil {
		return patch, err
	}
	if patch.CurrentReading, err = optionalNumber(body, "currentReading"); err != nil {
		return patch, err
	}
	if patch.UnitsConsumed, err = optionalNumber(body, "unitsConsumed"); err != nil {
		return patch, err
	}
	status, err := optionalString(body, "status")
	if err != nil {
		return patch, err
	}
	if status != nil {
		s := models.BillStatus(strings.ToLower(strings.TrimSpace(*status)))
		patch.Status = &s
	}
	return patch, nil
}

// --- DELETE: /api/bill/:billId ---
func (h *BillHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "billId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	bill, err := h.bills.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.publish(c.Request.Context(), events.BillDeleted, bill)
	c.JSON(http.StatusOK, gin.H{"message": "Bill deleted successfully"})
}

// --- GET: /api/bill/receipt/:billId ---
func (h *BillHandler) Receipt(c *gin.Context) {
	id, err := pathID(c, "billId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	bill, err := h.bills.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !canSeeCustomer(c, bill.CustomerID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this resource"})
		return
	}

	var buf bytes.Buffer
	if err := receipt.Write(&buf, bill); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="bill-%d.pdf"`, bill.ID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// --- GET: /api/bill/export ---
func (h *BillHandler) Export(c *gin.Context) {
	bills, err := h.bills.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteBillsXLSX(&buf, bills); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="bills.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// customerParam reads :customerId and stops customers reading other
// customers' bills.
func (h *BillHandler) customerParam(c *gin.Context) (uint, bool) {
	customerID, err := pathID(c, "customerId")
	if err != nil {
		respondError(c, h.logger, err)
		return 0, false
	}
	if !canSeeCustomer(c, customerID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this resource"})
		return 0, false
	}
	return customerID, true
}

func canSeeCustomer(c *gin.Context, customerID uint) bool {
	role, _ := middleware.CurrentRole(c)
	if role != models.RoleCustomer {
		return true
	}
	userID, ok := middleware.CurrentUserID(c)
	return ok && userID == customerID
}

// publish announces a change. Failures are logged; the request already succeeded.
func (h *BillHandler) publish(ctx context.Context, eventType string, bill *models.Bill) {
	if err := h.publisher.Publish(ctx, events.NewBillEvent(eventType, bill)); err != nil {
		h.logger.Warn("failed to publish bill event",
			zap.String("type", eventType),
			zap.Uint("bill_id", bill.ID),
			zap.Error(err))
	}
}

// discard removes a photo saved for a bill that was never created.
func (h *BillHandler) discard(img *savedImage) {
	if img == nil {
		return
	}
	if err := os.Remove(img.Path); err != nil {
		h.logger.Warn("failed to remove orphaned upload", zap.String("path", img.Path), zap.Error(err))
	}
}
