package service

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/takeyourtokenapp/tyt.app/internal/auth"
	"github.com/takeyourtokenapp/tyt.app/internal/config"
	"github.com/takeyourtokenapp/tyt.app/internal/database"
	"github.com/takeyourtokenapp/tyt.app/internal/database/models"
	"github.com/takeyourtokenapp/tyt.app/internal/identity"
)

// UserService handles account registration and login. Each account owns one
// 32-byte identity, the principal that signs registry operations.
type UserService struct {
	db  *database.Database
	cfg *config.Config
}

// NewUserService creates a new user service
func NewUserService(db *database.Database, cfg *config.Config) *UserService {
	return &UserService{
		db:  db,
		cfg: cfg,
	}
}

// RegisterRequest represents a request to register an account. Identity is
// optional; when empty a fresh random identity is generated.
type RegisterRequest struct {
	Username string
	Password string
	Identity string
}

// Register creates a new account
func (s *UserService) Register(req *RegisterRequest) (*models.User, error) {
	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		return nil, fmt.Errorf("weak password: %w", err)
	}

	var id identity.Identity
	var err error
	if req.Identity != "" {
		id, err = identity.Parse(req.Identity)
		if err != nil {
			return nil, fmt.Errorf("invalid identity: %w", err)
		}
	} else {
		id, err = identity.Random()
		if err != nil {
			return nil, err
		}
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		PasswordHash: passwordHash,
		Identity:     id.String(),
		CreatedAt:    time.Now(),
	}

	if err := s.db.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate verifies credentials and returns a JWT token carrying the
// account's identity.
func (s *UserService) Authenticate(username, password string) (string, error) {
	user, err := s.db.GetUserByUsername(username)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("invalid credentials")
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	if err := auth.VerifyPassword(password, user.PasswordHash); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	token, err := auth.GenerateToken(
		user.ID,
		user.Username,
		user.Identity,
		s.cfg.JWT.Secret,
		s.cfg.JWT.Issuer,
		s.cfg.JWT.Expiration,
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return token, nil
}
