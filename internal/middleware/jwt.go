package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"time"
	"os"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"pipeline_tracker/internal/config"
	"pipeline_tracker/internal/models"
)

var secret = []byte(getJWTSecret())

func getJWTSecret() string {
	if val := os.Getenv("JWT_SECRET"); val != "" {
		return val
	}
	return "supersecret" // fallback
}

// TokenTTL is how long an issued credential stays valid.
const TokenTTL = 72 * time.Hour

// GenerateToken issues a signed bearer token for the user. The returned jti
// must be stored as a session row before the token is handed out; a token
// whose jti has no session row is rejected by RequireAuth.
func GenerateToken(userID uint, role string) (string, string, error) {
	jti := uuid.NewString()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"jti":     jti,
		"exp":     time.Now().Add(TokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	return signed, jti, err
}

func ValidateToken(tokenStr string) (*jwt.Token, error) {
	return jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
}

// RequireAuth ensures a valid, unrevoked bearer token is present
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if !bindTokenClaims(c, tokenString) {
			return
		}

		c.Next()
	}
}

// OptionalAuth binds token claims when an Authorization header is supplied
// but lets anonymous requests through. A header that is present but invalid
// is still rejected rather than treated as anonymous.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		if !bindTokenClaims(c, strings.TrimPrefix(authHeader, "Bearer ")) {
			return
		}
		c.Next()
	}
}

// bindTokenClaims validates the token and its session row, then stores
// user_id, role and token_id in the context for downstream handlers.
// Aborts the request with 401 on any failure.
func bindTokenClaims(c *gin.Context, tokenString string) bool {
	token, err := ValidateToken(tokenString)
	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
		return false
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
		return false
	}

	var session models.Session
	if err := config.DB.Where("token_id = ?", jti).First(&session).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return false
	}
	if time.Now().After(session.ExpiresAt) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return false
	}

	c.Set("user_id", claims["user_id"])
	c.Set("role", claims["role"])
	c.Set("token_id", jti)
	return true
}
