package main

import (
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/junyours/CSDL/config"
	"github.com/junyours/CSDL/internal/handlers"
	"github.com/junyours/CSDL/internal/routes"
)

func main() {
	// .env не обязателен: в проде переменные приходят из окружения.
	if err := godotenv.Load(); err != nil {
		slog.Info("Файл .env не найден, используется окружение процесса")
	}

	config.LoadConfig()
	config.ConnectDB()
	config.ConnectRedis()

	// Хаб живого мониторинга посещаемости.
	go handlers.EventMonitor.Run()

	r := gin.Default()
	r.Static("/static", "./static")
	routes.SetupRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	slog.Info("Сервер запускается", "port", port)
	if err := r.Run(":" + port); err != nil {
		slog.Error("Ошибка запуска сервера", "error", err)
		os.Exit(1)
	}
}
