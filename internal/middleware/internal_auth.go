package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// InternalOnly protects internal endpoints with a service-to-service JWT
func InternalOnly(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("X-Service-Token")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"type":    "authentication_error",
				"message": "Missing service token",
			})
			return
		}

		token = strings.TrimPrefix(token, "Bearer ")

		claims := jwt.MapClaims{}
		parsedToken, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})

		if err != nil || !parsedToken.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"type":    "authentication_error",
				"message": "Invalid service token",
			})
			return
		}

		if role, ok := claims["role"].(string); !ok || role != "internal_service" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"type":    "authorization_error",
				"message": "Token does not have service role",
			})
			return
		}

		if serviceName, ok := claims["service"].(string); ok {
			c.Set("service_name", serviceName)
		}

		c.Next()
	}
}

// GenerateServiceToken creates a JWT for internal service-to-service calls
func GenerateServiceToken(secret string, serviceName string) (string, error) {
	claims := jwt.MapClaims{
		"role":    "internal_service",
		"service": serviceName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
