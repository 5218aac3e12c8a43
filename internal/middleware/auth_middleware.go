package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/junyours/CSDL/config"
	"github.com/junyours/CSDL/models"
)

// CachedUserData - единая структура для данных пользователя в кэше.
type CachedUserData struct {
	UserID   uint   `json:"user_id"`
	UserIDNo string `json:"user_id_no"`
	Role     string `json:"role"`
}

const userCacheTTL = 10 * time.Minute

// AuthMiddleware проверяет JWT (cookie или заголовок Authorization) и
// кладет данные пользователя в контекст запроса. Данные кэшируются в
// Redis, при недоступном Redis читаются из БД на каждый запрос.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := c.Cookie("auth_token")
		if err != nil || tokenStr == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				handleAuthError(c, "Authorization token not provided")
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				handleAuthError(c, "Invalid Authorization header format")
				return
			}
			tokenStr = parts[1]
		}

		token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return config.JwtKey, nil
		})
		if err != nil || !token.Valid {
			handleAuthError(c, "Invalid or expired token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			handleAuthError(c, "Invalid token claims")
			return
		}

		userIDFloat, ok := claims["user_id"].(float64)
		if !ok {
			handleAuthError(c, "Invalid user ID format in token")
			return
		}
		userID := uint(userIDFloat)

		cacheKey := fmt.Sprintf("user:%d:data", userID)
		var userData CachedUserData
		if config.CacheGetJSON(cacheKey, &userData) {
			setContextAndProceed(c, &userData)
			return
		}

		var dbUser models.User
		if err := config.DB.First(&dbUser, userID).Error; err != nil {
			handleAuthError(c, "User from token not found in DB")
			return
		}

		userData = CachedUserData{
			UserID:   dbUser.ID,
			UserIDNo: dbUser.UserIDNo,
			Role:     dbUser.UserRole,
		}
		config.CacheSetJSON(cacheKey, userData, userCacheTTL)

		setContextAndProceed(c, &userData)
	}
}

// RoleMiddleware пропускает только пользователей с одной из указанных
// ролей. Вешается после AuthMiddleware.
func RoleMiddleware(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("user_role")
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		slog.Warn("Отказ в доступе по роли", "role", role, "path", c.FullPath())
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "You are not authorized to perform this action"})
	}
}

func setContextAndProceed(c *gin.Context, data *CachedUserData) {
	c.Set("user_id", data.UserID)
	c.Set("user_id_no", data.UserIDNo)
	c.Set("user_role", data.Role)
	c.Next()
}

func handleAuthError(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": message})
}
