package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/junyours/CSDL/internal/middleware"
)

// SetupRoutes инициализирует все маршруты приложения.
func SetupRoutes(r *gin.Engine) {
	// --- Публичные маршруты ---
	// Вход не требует токена; все остальное закрыто AuthMiddleware.
	RegisterAuthRoutes(r)

	// --- Защищенная группа маршрутов ---
	authRequired := r.Group("/")
	authRequired.Use(middleware.AuthMiddleware())
	{
		RegisterAPIRoutes(authRequired)
	}
}
