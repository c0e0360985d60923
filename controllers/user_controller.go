package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/stitchwise-api/config"
	"github.com/kendall-kelly/stitchwise-api/logging"
	"github.com/kendall-kelly/stitchwise-api/middleware"
	"github.com/kendall-kelly/stitchwise-api/models"
	"github.com/kendall-kelly/stitchwise-api/services"
	"gorm.io/gorm"
)

// UpdateUserRequest represents the request body for updating a user profile
type UpdateUserRequest struct {
	Name  string `json:"name" binding:"omitempty"`
	Email string `json:"email" binding:"omitempty,email"`
}

// isUniqueViolation detects duplicate keys on both PostgreSQL and SQLite
func isUniqueViolation(err error) bool {
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate") || strings.Contains(errMsg, "unique")
}

// CreateUser handles POST /api/v1/users - creates a new user from Auth0 userinfo.
// Tailors also get an active reputation profile.
func CreateUser(c *gin.Context) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user ID from token")
		return
	}

	accessToken, err := middleware.GetAccessToken(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "MISSING_TOKEN", "Access token not found")
		return
	}

	// Fetch user info from Auth0
	userInfo, err := services.NewAuth0Service(config.GetConfig()).GetUserInfo(c.Request.Context(), accessToken)
	if err != nil {
		logging.FromContext(c.Request.Context(), nil).Warn("auth0 userinfo failed", "error", err)
		respondError(c, http.StatusInternalServerError, "AUTH0_ERROR", "Failed to fetch user information from Auth0")
		return
	}

	if userInfo.Email == "" {
		respondError(c, http.StatusBadRequest, "MISSING_EMAIL", "Email not provided by Auth0")
		return
	}
	if userInfo.Name == "" {
		respondError(c, http.StatusBadRequest, "MISSING_NAME", "Name not provided by Auth0")
		return
	}

	user := models.User{
		Auth0ID: auth0ID,
		Name:    userInfo.Name,
		Email:   userInfo.Email,
		Role:    middleware.ClaimedRole(c),
	}

	err = config.GetDB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if user.Role != models.RoleTailor {
			return nil
		}
		return tx.Create(&models.TailorProfile{UserID: user.ID, Active: true}).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			respondError(c, http.StatusConflict, "USER_EXISTS", "A user with this Auth0 ID or email already exists")
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create user")
		return
	}

	logging.FromContext(c.Request.Context(), nil).Info("user created", "user_id", user.ID, "role", user.Role)
	respondOK(c, http.StatusCreated, user)
}

// GetMyProfile handles GET /api/v1/users/me - gets current user's profile
func GetMyProfile(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var user models.User
	if err := config.GetDB().WithContext(c.Request.Context()).First(&user, actor.UserID).Error; err != nil {
		respondError(c, http.StatusNotFound, "USER_NOT_FOUND", "User profile not found. Please create a profile first.")
		return
	}

	respondOK(c, http.StatusOK, user)
}

// UpdateMyProfile handles PUT /api/v1/users/me - updates current user's profile
func UpdateMyProfile(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	var user models.User
	if err := db.First(&user, actor.UserID).Error; err != nil {
		respondError(c, http.StatusNotFound, "USER_NOT_FOUND", "User profile not found")
		return
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Email != "" {
		updates["email"] = req.Email
	}

	// If no fields to update, return current user
	if len(updates) == 0 {
		respondOK(c, http.StatusOK, user)
		return
	}

	if err := db.Model(&user).Updates(updates).Error; err != nil {
		if isUniqueViolation(err) {
			respondError(c, http.StatusConflict, "EMAIL_EXISTS", "A user with this email already exists")
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update user profile")
		return
	}

	if err := db.First(&user, actor.UserID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch updated profile")
		return
	}

	respondOK(c, http.StatusOK, user)
}
