package middlewares

import (
	"PinguinGuard/services"
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Authenticator проверяет bearer-токен и возвращает вызывающего.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (services.Identity, error)
}

// AuthMiddleware кладет firebase_uid и user_type в контекст запроса.
func AuthMiddleware(authenticator Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		identity, err := authenticator.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			log.Printf("[AUTH] Токен отклонен: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
			return
		}

		c.Set("firebase_uid", identity.FirebaseUID)
		c.Set("user_type", identity.UserType)
		c.Next()
	}
}
