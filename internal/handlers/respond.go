package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mariyam933/fyp/internal/apperr"
	"go.uber.org/zap"
)

// respondError writes {"error": msg}, plus "field" for validation failures.
// Unclassified errors are logged and answered with a generic message.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status, msg := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err))
		_ = c.Error(err)
	}

	body := gin.H{"error": msg}
	var ve *apperr.ValidationError
	if errors.As(err, &ve) && ve.Field != "" {
		body["field"] = ve.Field
	}
	c.JSON(status, body)
}

// pathID parses a positive integer route parameter.
func pathID(c *gin.Context, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, apperr.Validation(name, "invalid %s", name)
	}
	return uint(n), nil
}
