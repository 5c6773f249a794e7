package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mariyam933/fyp/internal/apperr"
	"github.com/mariyam933/fyp/internal/ocr"
	"github.com/mariyam933/fyp/internal/utils"
	"go.uber.org/zap"
)

const scanTimeout = 30 * time.Second

// Uploads is where images are written and how they are addressed.
type Uploads struct {
	Dir      string
	BaseURL  string
	MaxBytes int64
}

type savedImage struct {
	Path string
	URL  string
	Data []byte
}

// saveImage checks that fh is a JPEG or PNG within the size limit and stores it.
func (u Uploads) saveImage(c *gin.Context, field string, fh *multipart.FileHeader) (*savedImage, error) {
	// 1. Size check
	if u.MaxBytes > 0 && fh.Size > u.MaxBytes {
		return nil, apperr.Validation(field, "file is too large (max %d bytes)", u.MaxBytes)
	}

	// 2. Security check: sniff the content, not the extension
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	ext, _, ok := utils.ImageExtension(data)
	if !ok {
		return nil, apperr.Validation(field, "invalid file type: only JPG and PNG images are allowed")
	}

	// 3. Generate a safe unique filename and save
	if err := os.MkdirAll(u.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	filename := utils.UniqueFilename(fh.Filename, ext)
	path := filepath.Join(u.Dir, filename)
	if err := c.SaveUploadedFile(fh, path); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	return &savedImage{
		Path:        path,
		URL:         utils.PublicURL(u.BaseURL, filename),
		Data:        data,
	}, nil
}

type UploadHandler struct {
	uploads Uploads
	reader  ocr.Reader // nil when scanning is not configured
	logger  *zap.Logger
}

func NewUploadHandler(uploads Uploads, reader ocr.Reader, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, reader: reader, logger: logger}
}

// --- UPLOAD: /api/upload ---
func (h *UploadHandler) Upload(c *gin.Context) {
	// 1. Get the file from the request
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded", "field": "file"})
		return
	}

	img, err := h.uploads.saveImage(c, "file", file)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "File uploaded successfully",
		"url":     img.URL,
	})
}

// --- SCAN: /api/meter-readings/scan ---
// Reads a meter photo and suggests a current reading. Nothing is stored
// apart from the photo itself.
func (h *UploadHandler) Scan(c *gin.Context) {
	if h.reader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "meter scanning is not configured"})
		return
	}

	file, err := c.FormFile("meterImage")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded", "field": "meterImage"})
		return
	}

	img, err := h.uploads.saveImage(c, "meterImage", file)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), scanTimeout)
	defer cancel()
	res, err := h.reader.ReadMeter(ctx, img.Data)
	if err != nil {
		if errors.Is(err, ocr.ErrNoText) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No text detected in the image", "imageUrl": img.URL})
			return
		}
		h.logger.Error("meter scan failed", zap.String("image", img.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read meter image"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"candidates":     res.Candidates,
		"currentReading": res.CurrentReading,
		"meterSrNo":      res.MeterSrNo,
		"rawText":        res.RawText,
		"imageUrl":       img.URL,
	})
}
