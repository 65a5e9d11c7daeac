package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/takeyourtokenapp/tyt.app/internal/api/middleware"
	"github.com/takeyourtokenapp/tyt.app/internal/identity"
	"github.com/takeyourtokenapp/tyt.app/internal/service"
	"go.uber.org/zap"
)

// RegistryHandler handles registry bootstrap and authority rotation
type RegistryHandler struct {
	registryService *service.RegistryService
	logger          *zap.Logger
}

// NewRegistryHandler creates a new registry handler
func NewRegistryHandler(registryService *service.RegistryService, logger *zap.Logger) *RegistryHandler {
	return &RegistryHandler{
		registryService: registryService,
		logger:          logger,
	}
}

// InitializeRequest represents a registry bootstrap request
type InitializeRequest struct {
	IssuerAuthority string `json:"issuer_authority" binding:"required"`
}

// Initialize creates the registry configuration singleton
// @Summary Initialize registry
// @Description One-time bootstrap naming the issuer authority
// @Accept json
// @Produce json
// @Param request body InitializeRequest true "Initialize request"
// @Success 201 {object} map[string]interface{}
// @Router /api/v1/registry/initialize [post]
func (h *RegistryHandler) Initialize(c *gin.Context) {
	var req InitializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	authority, err := identity.Parse(req.IssuerAuthority)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg, err := h.registryService.Initialize(authority)
	if err != nil {
		h.logger.Error("Registry initialization failed", zap.Error(err))
		writeError(c, err)
		return
	}

	h.logger.Info("Registry initialized", zap.String("issuer_authority", cfg.IssuerAuthority.String()))

	c.JSON(http.StatusCreated, cfg)
}

// GetConfig returns the registry configuration
// @Summary Get registry configuration
// @Produce json
// @Success 200 {object} registry.Config
// @Router /api/v1/registry [get]
func (h *RegistryHandler) GetConfig(c *gin.Context) {
	cfg, err := h.registryService.Config()
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// UpdateAuthorityRequest represents an authority rotation request
type UpdateAuthorityRequest struct {
	NewAuthority string `json:"new_authority" binding:"required"`
}

// UpdateAuthority rotates the issuer authority
// @Summary Update issuer authority
// @Description Replace the issuer authority; only the current authority may call this
// @Accept json
// @Produce json
// @Param request body UpdateAuthorityRequest true "Rotation request"
// @Success 200 {object} registry.Config
// @Router /api/v1/registry/authority [put]
func (h *RegistryHandler) UpdateAuthority(c *gin.Context) {
	caller, ok := middleware.CallerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no caller identity"})
		return
	}

	var req UpdateAuthorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	newAuthority, err := identity.Parse(req.NewAuthority)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg, err := h.registryService.UpdateAuthority(caller, newAuthority)
	if err != nil {
		h.logger.Error("Authority rotation failed", zap.Error(err))
		writeError(c, err)
		return
	}

	h.logger.Info("Issuer authority updated",
		zap.String("old_authority", caller.String()),
		zap.String("new_authority", newAuthority.String()),
	)

	c.JSON(http.StatusOK, cfg)
}
