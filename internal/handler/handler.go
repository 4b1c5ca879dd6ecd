// Package handler exposes the portal's orchestration over HTTP.
package handler

import (
	"errors"
	"net/http"

	"github.com/accidentlink/portal/internal/apperr"
	"github.com/gin-gonic/gin"
)

// respondError maps the error taxonomy onto one response shape. A
// partial success additionally carries the created report id so the
// caller can offer a retry scoped to the photo upload.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)

	var partial *apperr.PartialSuccessError
	if errors.As(err, &partial) {
		c.JSON(status, gin.H{
			"error":     "report created, photo upload failed",
			"report_id": partial.ReportID,
			"detail":    partial.Upload.Error(),
		})
		return
	}

	if errors.Is(err, apperr.ErrAuthExpired) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "credential expired, sign in again"})
		return
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
