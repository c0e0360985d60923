package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/stitchwise-api/config"
	"github.com/kendall-kelly/stitchwise-api/logging"
	"github.com/kendall-kelly/stitchwise-api/models"
)

// Gin context keys set by the authentication middleware
const (
	UserIDKey      = "user_id"
	ClaimsKey      = "validated_claims"
	AccessTokenKey = "access_token"
)

// CustomClaims contains the custom data we read from the token.
// The role claim is namespaced as Auth0 requires for custom claims.
type CustomClaims struct {
	Scope string `json:"scope"`
	Role  string `json:"https://stitchwise.app/role"`
}

// Validate rejects tokens carrying an unknown role
func (c CustomClaims) Validate(ctx context.Context) error {
	if c.Role != "" && !models.Role(c.Role).IsValid() {
		return fmt.Errorf("unknown role claim %q", c.Role)
	}
	return nil
}

// EnsureValidToken checks the Auth0 RS256 access token and stores the subject,
// the validated claims and the raw token in the gin context.
func EnsureValidToken(cfg *config.Config, logger *slog.Logger) (gin.HandlerFunc, error) {
	issuerURL, err := url.Parse("https://" + cfg.Auth0Domain + "/")
	if err != nil {
		return nil, fmt.Errorf("failed to parse the issuer url: %w", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{cfg.Auth0Audience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the jwt validator: %w", err)
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		logging.FromContext(r.Context(), logger).Info("rejected access token", "error", err)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"INVALID_TOKEN","message":"Failed to validate JWT."}}`))
	}

	checker := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		passed := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			passed = true
			claims := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)

			c.Set(UserIDKey, claims.RegisteredClaims.Subject)
			c.Set(ClaimsKey, claims)
			c.Set(AccessTokenKey, bearerToken(r))
			c.Request = r

			c.Next()
		}

		checker.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// GetUserID extracts the Auth0 subject from the Gin context
func GetUserID(c *gin.Context) (string, error) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return "", &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	userIDStr, ok := userID.(string)
	if !ok || userIDStr == "" {
		return "", &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not a string"}
	}

	return userIDStr, nil
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// GetAccessToken returns the raw bearer token of the request
func GetAccessToken(c *gin.Context) (string, error) {
	token, exists := c.Get(AccessTokenKey)
	if !exists {
		return "", &AuthError{Code: "MISSING_TOKEN", Message: "Access token not found in context"}
	}

	tokenStr, ok := token.(string)
	if !ok || tokenStr == "" {
		return "", &AuthError{Code: "MISSING_TOKEN", Message: "Access token not found in context"}
	}

	return tokenStr, nil
}

// ClaimedRole returns the role carried by the token, defaulting to customer
func ClaimedRole(c *gin.Context) models.Role {
	claims, err := GetClaims(c)
	if err != nil {
		return models.RoleCustomer
	}
	custom, ok := claims.CustomClaims.(*CustomClaims)
	if !ok || custom.Role == "" {
		return models.RoleCustomer
	}
	return models.Role(custom.Role)
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
