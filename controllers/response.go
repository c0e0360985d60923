package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/stitchwise-api/logging"
	"github.com/kendall-kelly/stitchwise-api/middleware"
	"github.com/kendall-kelly/stitchwise-api/models"
	"github.com/kendall-kelly/stitchwise-api/utils"
)

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// statusFor maps an error kind to its HTTP status
func statusFor(kind error) int {
	switch {
	case errors.Is(kind, utils.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, utils.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(kind, utils.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(kind, utils.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondServiceError writes a business error with its code, and anything
// else as an opaque 500 after logging it
func respondServiceError(c *gin.Context, err error) {
	if appErr, ok := utils.AsAppError(err); ok {
		respondError(c, statusFor(appErr.Kind), appErr.Code, appErr.Message)
		return
	}

	logging.FromContext(c.Request.Context(), nil).Error("request failed",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"error", err,
	)
	respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
}

// requireActor returns the resolved actor or writes a 401
func requireActor(c *gin.Context) (models.Actor, bool) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return models.Actor{}, false
	}
	return actor, true
}

// uintParam parses a positive numeric path parameter or writes a 400
func uintParam(c *gin.Context, name, code string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || value == 0 {
		respondError(c, http.StatusBadRequest, code, "Invalid "+name+" parameter")
		return 0, false
	}
	return uint(value), true
}

// orderIDParam parses :id
func orderIDParam(c *gin.Context) (uint, bool) {
	return uintParam(c, "id", "INVALID_ORDER_ID")
}
