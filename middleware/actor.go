package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/stitchwise-api/config"
	"github.com/kendall-kelly/stitchwise-api/models"
	"gorm.io/gorm"
)

// ActorKey is the gin context key holding the resolved models.Actor
const ActorKey = "actor"

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// ResolveActor loads the local user behind the token and stores it as the request actor
func ResolveActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth0ID, err := GetUserID(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
			return
		}

		var user models.User
		err = config.GetDB().WithContext(c.Request.Context()).Where("auth0_id = ?", auth0ID).First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				abortWithError(c, http.StatusNotFound, "USER_NOT_FOUND", "User profile not found. Please create a profile first.")
				return
			}
			abortWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load user profile")
			return
		}

		c.Set(ActorKey, models.Actor{UserID: user.ID, Role: user.Role})
		c.Next()
	}
}

// GetActor returns the actor stored by ResolveActor
func GetActor(c *gin.Context) (models.Actor, error) {
	value, exists := c.Get(ActorKey)
	if !exists {
		return models.Actor{}, &AuthError{Code: "MISSING_ACTOR", Message: "Actor not found in context"}
	}
	actor, ok := value.(models.Actor)
	if !ok {
		return models.Actor{}, &AuthError{Code: "INVALID_ACTOR", Message: "Actor is not in the expected format"}
	}
	return actor, nil
}

// RequireRole lets the request through only for the given roles
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := GetActor(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
			return
		}
		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusForbidden, "FORBIDDEN", "You do not have permission to access this resource")
	}
}
