package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"meridian-pos/internal/database/models"
	"meridian-pos/internal/utils"
)

type AuthHTTPHandler struct {
	db       *gorm.DB
	tokenTTL time.Duration
}

func NewAuthHTTPHandler(db *gorm.DB, tokenTTL time.Duration) *AuthHTTPHandler {
	return &AuthHTTPHandler{db: db, tokenTTL: tokenTTL}
}

type registerRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Role      string `json:"role"`
	BranchID  *int32 `json:"branch_id"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func sanitizeUser(u models.User) gin.H {
	return gin.H{
		"id":        u.ID,
		"username":  u.Username,
		"email":     u.Email,
		"firstname": u.Firstname,
		"lastname":  u.Lastname,
		"role":      u.Role,
		"branch_id": u.BranchID,
		"is_active": u.IsActive,
	}
}

func validRole(role string) bool {
	switch role {
	case models.RoleAdmin, models.RoleManager, models.RoleCashier, models.RoleStaff:
		return true
	}
	return false
}

func (h *AuthHTTPHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleCashier
	}
	if !validRole(role) {
		fail(c, http.StatusBadRequest, "Unknown role")
		return
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user := models.User{
		Username:  req.Username,
		Email:     req.Email,
		Password:  string(pwHash),
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Role:      role,
		BranchID:  req.BranchID,
		IsActive:  true,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		fail(c, http.StatusConflict, "Username or email already taken")
		return
	}

	created(c, sanitizeUser(user))
}

func (h *AuthHTTPHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	var user models.User
	err := h.db.WithContext(c.Request.Context()).
		Where("username = ?", req.Username).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		fail(c, http.StatusInternalServerError, "Database error")
		return
	}
	if !user.IsActive {
		fail(c, http.StatusUnauthorized, "Account is disabled")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, exp, err := utils.GenerateToken(user.ID, user.Username, user.Role, user.BranchID, h.tokenTTL)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	now := time.Now()
	h.db.WithContext(c.Request.Context()).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("last_login", &now)

	success(c, gin.H{
		"token":      token,
		"expires_at": exp,
		"user":       sanitizeUser(user),
	})
}
