package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mariyam933/fyp/internal/apperr"
	"github.com/mariyam933/fyp/internal/auth"
	"github.com/mariyam933/fyp/internal/database"
	"github.com/mariyam933/fyp/internal/models"
	"go.uber.org/zap"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
}

type AuthHandler struct {
	users  *database.UserStore
	tokens *auth.TokenManager
	logger *zap.Logger
}

func NewAuthHandler(users *database.UserStore, tokens *auth.TokenManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, logger: logger}
}

// --- POST: /login ---
func (h *AuthHandler) Login(c *gin.Context) {
	var input LoginRequest
	// 1. Validate Input JSON
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter all fields"})
		return
	}

	// 2. Find User in DB
	user, err := h.users.FindByEmail(c.Request.Context(), input.Email)
	if apperr.IsNotFound(err) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	// 3. Verify Password (Bcrypt)
	if !auth.CheckPassword(user.PasswordHash, input.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	// 4. Generate JWT Token
	token, err := h.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		h.logger.Error("failed to generate token", zap.Uint("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	// 5. Success! Return Token and Role
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"role":    user.Role,
		"user":    user,
	})
}

// --- POST: /register ---
// Creates an admin account. Only routed when registration is enabled.
func (h *AuthHandler) Register(c *gin.Context) {
	var input RegisterRequest

	// 1. Parse JSON
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter all fields"})
		return
	}

	// 2. Hash the Password
	hashed, err := auth.HashPassword(input.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	// 3. Create User Model
	user := models.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        input.Email,
		Address:      strings.TrimSpace(input.Address),
		Phone:        strings.TrimSpace(input.Phone),
		Role:         models.RoleAdmin,
		PasswordHash: hashed,
	}

	// 4. Save to DB
	if err := h.users.Create(c.Request.Context(), &user); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": user})
}
