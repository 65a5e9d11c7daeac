package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/takeyourtokenapp/tyt.app/internal/api/middleware"
	"github.com/takeyourtokenapp/tyt.app/internal/service"
	"go.uber.org/zap"
)

// AuthHandler handles account registration and authentication
type AuthHandler struct {
	userService *service.UserService
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService *service.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRequest represents an account registration request. Identity is an
// optional 64-character hex identity; one is generated when omitted.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=8"`
	Identity string `json:"identity"`
}

// Register creates a new account
// @Summary Register account
// @Description Create an account with its signing identity
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 201 {object} map[string]string
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.Register(&service.RegisterRequest{
		Username: req.Username,
		Password: req.Password,
		Identity: req.Identity,
	})
	if err != nil {
		h.logger.Warn("Registration failed", zap.String("username", req.Username), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("Account registered",
		zap.String("username", user.Username),
		zap.String("identity", user.Identity),
	)

	c.JSON(http.StatusCreated, gin.H{
		"user_id":  user.ID,
		"username": user.Username,
		"identity": user.Identity,
	})
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates an account
// @Summary Account login
// @Description Authenticate and return a JWT token
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} map[string]string
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.userService.Authenticate(req.Username, req.Password)
	if err != nil {
		h.logger.Warn("Login failed", zap.String("username", req.Username), zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	h.logger.Info("User logged in", zap.String("username", req.Username))

	c.JSON(http.StatusOK, gin.H{
		"token": token,
	})
}

// GetCurrentUser returns the currently authenticated account
// @Summary Get current account
// @Success 200 {object} map[string]string
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, _ := c.Get("user_id")
	username, _ := c.Get("username")
	callerID, _ := middleware.CallerIdentity(c)

	c.JSON(http.StatusOK, gin.H{
		"user_id":  userID,
		"username": username,
		"identity": callerID.String(),
	})
}
