package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/junyours/CSDL/internal/handlers"
)

// RegisterAuthRoutes регистрирует публичные маршруты аутентификации.
func RegisterAuthRoutes(r *gin.Engine) {
	r.POST("/api/login", handlers.LoginHandler)
}
