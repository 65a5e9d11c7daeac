package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/takeyourtokenapp/tyt.app/internal/api/middleware"
	"github.com/takeyourtokenapp/tyt.app/internal/identity"
	"github.com/takeyourtokenapp/tyt.app/internal/registry"
	"github.com/takeyourtokenapp/tyt.app/internal/service"
	"go.uber.org/zap"
)

// CertificateHandler handles the certificate lifecycle
type CertificateHandler struct {
	registryService *service.RegistryService
	logger          *zap.Logger
}

// NewCertificateHandler creates a new certificate handler
func NewCertificateHandler(registryService *service.RegistryService, logger *zap.Logger) *CertificateHandler {
	return &CertificateHandler{
		registryService: registryService,
		logger:          logger,
	}
}

// pathParams extracts the (user, course_id) pair from the route.
func pathParams(c *gin.Context) (identity.Identity, uint64, bool) {
	user, err := identity.Parse(c.Param("user"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user identity: " + err.Error()})
		return identity.Identity{}, 0, false
	}

	courseID, err := strconv.ParseUint(c.Param("course_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
		return identity.Identity{}, 0, false
	}

	return user, courseID, true
}

// IssueRequest represents a certificate issuance request
type IssueRequest struct {
	User     string `json:"user" binding:"required"`
	CourseID uint64 `json:"course_id"`
	Level    uint8  `json:"level"`
}

// Issue issues a new certificate
// @Summary Issue certificate
// @Description Issue a soulbound certificate for a (user, course) pair; issuer authority only
// @Accept json
// @Produce json
// @Param request body IssueRequest true "Issue request"
// @Success 201 {object} registry.Certificate
// @Router /api/v1/certificates [post]
func (h *CertificateHandler) Issue(c *gin.Context) {
	caller, ok := middleware.CallerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no caller identity"})
		return
	}

	var req IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := identity.Parse(req.User)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user identity: " + err.Error()})
		return
	}

	cert, err := h.registryService.Issue(caller, user, req.CourseID, registry.Level(req.Level))
	if err != nil {
		h.logger.Warn("Certificate issuance failed",
			zap.String("user", req.User),
			zap.Uint64("course_id", req.CourseID),
			zap.Error(err),
		)
		writeError(c, err)
		return
	}

	h.logger.Info("Certificate issued",
		zap.String("user", cert.Owner.String()),
		zap.Uint64("course_id", cert.CourseID),
		zap.Uint8("level", uint8(cert.Level)),
	)

	c.JSON(http.StatusCreated, cert)
}

// Verify reports whether a user holds a valid certificate for a course
// @Summary Verify certificate
// @Description Returns true when the certificate exists and is not revoked
// @Produce json
// @Param user path string true "User identity (hex)"
// @Param course_id path int true "Course ID"
// @Success 200 {object} map[string]bool
// @Router /api/v1/certificates/{user}/{course_id}/verify [get]
func (h *CertificateHandler) Verify(c *gin.Context) {
	user, courseID, ok := pathParams(c)
	if !ok {
		return
	}

	valid, err := h.registryService.Verify(user, courseID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

// GetInfo returns the full certificate record
// @Summary Get certificate info
// @Produce json
// @Param user path string true "User identity (hex)"
// @Param course_id path int true "Course ID"
// @Success 200 {object} registry.Certificate
// @Router /api/v1/certificates/{user}/{course_id} [get]
func (h *CertificateHandler) GetInfo(c *gin.Context) {
	user, courseID, ok := pathParams(c)
	if !ok {
		return
	}

	cert, err := h.registryService.GetInfo(user, courseID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, cert)
}

// Revoke revokes a certificate
// @Summary Revoke certificate
// @Description Mark a certificate as revoked; issuer authority only
// @Param user path string true "User identity (hex)"
// @Param course_id path int true "Course ID"
// @Success 200 {object} registry.Certificate
// @Router /api/v1/certificates/{user}/{course_id}/revoke [put]
func (h *CertificateHandler) Revoke(c *gin.Context) {
	caller, ok := middleware.CallerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no caller identity"})
		return
	}

	user, courseID, ok := pathParams(c)
	if !ok {
		return
	}

	cert, err := h.registryService.Revoke(caller, user, courseID)
	if err != nil {
		h.logger.Warn("Certificate revocation failed",
			zap.String("user", user.String()),
			zap.Uint64("course_id", courseID),
			zap.Error(err),
		)
		writeError(c, err)
		return
	}

	h.logger.Info("Certificate revoked",
		zap.String("user", cert.Owner.String()),
		zap.Uint64("course_id", cert.CourseID),
	)

	c.JSON(http.StatusOK, cert)
}

// Burn destroys a certificate
// @Summary Burn certificate
// @Description Destroy a certificate; only its owner may burn it
// @Param user path string true "User identity (hex)"
// @Param course_id path int true "Course ID"
// @Success 204 "No Content"
// @Router /api/v1/certificates/{user}/{course_id} [delete]
func (h *CertificateHandler) Burn(c *gin.Context) {
	caller, ok := middleware.CallerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no caller identity"})
		return
	}

	user, courseID, ok := pathParams(c)
	if !ok {
		return
	}

	cert, err := h.registryService.Burn(caller, user, courseID)
	if err != nil {
		h.logger.Warn("Certificate burn failed",
			zap.String("user", user.String()),
			zap.Uint64("course_id", courseID),
			zap.Error(err),
		)
		writeError(c, err)
		return
	}

	h.logger.Info("Certificate burned",
		zap.String("user", cert.Owner.String()),
		zap.Uint64("course_id", cert.CourseID),
	)

	c.Status(http.StatusNoContent)
}
