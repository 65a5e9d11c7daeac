// Package handlers provides HTTP request handlers for the academy registry
// API: account authentication, registry bootstrap and authority rotation,
// the certificate lifecycle, and the event outbox feed.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/takeyourtokenapp/tyt.app/internal/database"
	"github.com/takeyourtokenapp/tyt.app/internal/registry"
	"github.com/takeyourtokenapp/tyt.app/internal/service"
)

// writeError maps service and registry errors to HTTP responses. Registry
// lifecycle errors keep their stable numeric code in the body.
func writeError(c *gin.Context, err error) {
	if regErr, ok := registry.AsError(err); ok {
		status := http.StatusInternalServerError
		switch regErr.Code {
		case registry.CodeUnauthorized:
			status = http.StatusForbidden
		case registry.CodeInvalidLevel:
			status = http.StatusBadRequest
		case registry.CodeCertificateExists, registry.CodeCertificateRevoked:
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"code": int(regErr.Code), "error": regErr.Message})
		return
	}

	switch {
	case errors.Is(err, database.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "certificate not found"})
	case errors.Is(err, service.ErrNotInitialized):
		c.JSON(http.StatusConflict, gin.H{"error": "registry not initialized"})
	case errors.Is(err, service.ErrAlreadyInitialized):
		c.JSON(http.StatusConflict, gin.H{"error": "registry already initialized"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
