package testutil

import (
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/stitchwise-api/middleware"
	"github.com/kendall-kelly/stitchwise-api/models"
)

const testIssuer = "https://test.auth0.com/"

// MockValidatedClaims creates claims as the JWT middleware would store them
func MockValidatedClaims(subject string, role models.Role) *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Issuer:  testIssuer,
			Subject: subject,
		},
		CustomClaims: &middleware.CustomClaims{
			Role: string(role),
		},
	}
}

// SetMockAuthContext sets the same context keys as middleware.EnsureValidToken
func SetMockAuthContext(c *gin.Context, subject string, role models.Role) {
	c.Set(middleware.UserIDKey, subject)
	c.Set(middleware.ClaimsKey, MockValidatedClaims(subject, role))
	c.Set(middleware.AccessTokenKey, "test-access-token")
}

// HeaderAuthMiddleware authenticates each request from the X-Test-User header,
// letting one router serve several users in a test
func HeaderAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if subject := c.GetHeader("X-Test-User"); subject != "" {
			SetMockAuthContext(c, subject, models.Role(c.GetHeader("X-Test-Role")))
		}
		c.Next()
	}
}
