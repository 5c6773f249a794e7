package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mariyam933/fyp/internal/auth"
	"github.com/mariyam933/fyp/internal/database"
	"github.com/mariyam933/fyp/internal/models"
	"github.com/mariyam933/fyp/internal/notify"
	"go.uber.org/zap"
)

const welcomeMailTimeout = 15 * time.Second

type AccountRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Address string `json:"address" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
	MeterNo string `json:"meterNo"`
}

type AccountUpdateRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email" binding:"omitempty,email"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	MeterNo string `json:"meterNo"`
}

// AccountHandler manages customers, admins and meter readers.
type AccountHandler struct {
	users           *database.UserStore
	mailer          notify.Mailer
	defaultPassword string
	logger          *zap.Logger
}

func NewAccountHandler(users *database.UserStore, mailer notify.Mailer, defaultPassword string, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{users: users, mailer: mailer, defaultPassword: defaultPassword, logger: logger}
}

// Create returns the POST handler for accounts of role.
// New accounts get the default password, which is mailed to them.
func (h *AccountHandler) Create(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Validate input
		var input AccountRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
			return
		}
		if role == models.RoleCustomer && strings.TrimSpace(input.MeterNo) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required", "field": "meterNo"})
			return
		}

		// 2. Hash the default password
		hashed, err := auth.HashPassword(h.defaultPassword)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}

		// 3. Save
		user := models.User{
			Name:         strings.TrimSpace(input.Name),
			Email:        input.Email,
			Address:      strings.TrimSpace(input.Address),
			Phone:        strings.TrimSpace(input.Phone),
			Role:         role,
			PasswordHash: hashed,
		}
		if role == models.RoleCustomer {
			user.MeterNo = strings.TrimSpace(input.MeterNo)
		}
		if err := h.users.Create(c.Request.Context(), &user); err != nil {
			respondError(c, h.logger, err)
			return
		}

		// 4. Welcome mail, best effort
		ctx, cancel := context.WithTimeout(c.Request.Context(), welcomeMailTimeout)
		defer cancel()
		if err := h.mailer.SendWelcome(ctx, &user, h.defaultPassword); err != nil {
			h.logger.Warn("failed to send welcome mail",
				zap.Uint("user_id", user.ID),
				zap.String("role", string(role)),
				zap.Error(err))
		}

		c.JSON(http.StatusCreated, user)
	}
}

// List returns the GET handler for accounts of role.
func (h *AccountHandler) List(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := h.users.ListByRole(c.Request.Context(), role)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

// --- GET: /api/customer/:id ---
func (h *AccountHandler) GetCustomer(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	user, err := h.users.Get(c.Request.Context(), id, models.RoleCustomer)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// --- PUT: /api/customer/:id ---
// Only non-empty fields are changed.
func (h *AccountHandler) UpdateCustomer(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var input AccountUpdateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	user, err := h.users.Update(c.Request.Context(), id, models.RoleCustomer, database.UserPatch{
		Name:    input.Name,
		Email:   input.Email,
		Address: input.Address,
		Phone:   input.Phone,
		MeterNo: input.MeterNo,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// --- DELETE: /api/customer/:id ---
func (h *AccountHandler) DeleteCustomer(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.users.Delete(c.Request.Context(), id, models.RoleCustomer); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Customer deleted successfully"})
}
