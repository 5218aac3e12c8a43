package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/junyours/CSDL/config"
	"github.com/junyours/CSDL/models"
)

const strictModeCacheKey = "attendance:strict_mode"

// StrictModeEnabled читает режим фиксации посещаемости. Конфигурация -
// одиночная строка в БД, кешируется в Redis; при отсутствии строки режим
// считается выключенным.
func StrictModeEnabled() bool {
	var cached bool
	if config.CacheGetJSON(strictModeCacheKey, &cached) {
		return cached
	}

	var cfg models.EventAttendanceModeConfig
	if err := config.DB.First(&cfg).Error; err != nil {
		return false
	}

	config.CacheSetJSON(strictModeCacheKey, cfg.IsStrictMode, 0)
	return cfg.IsStrictMode
}

// GetAttendanceModeHandler возвращает текущий режим фиксации.
func GetAttendanceModeHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"is_strict_mode": StrictModeEnabled()})
}

// UpdateAttendanceModeHandler переключает режим фиксации и сбрасывает кеш.
func UpdateAttendanceModeHandler(c *gin.Context) {
	var req struct {
		IsStrictMode *bool `json:"is_strict_mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "is_strict_mode is required."})
		return
	}

	var cfg models.EventAttendanceModeConfig
	if err := config.DB.First(&cfg).Error; err != nil {
		cfg = models.EventAttendanceModeConfig{IsStrictMode: *req.IsStrictMode}
		if err := config.DB.Create(&cfg).Error; err != nil {
			slog.Error("Ошибка создания конфигурации режима", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update attendance mode."})
			return
		}
	} else {
		if err := config.DB.Model(&cfg).Update("is_strict_mode", *req.IsStrictMode).Error; err != nil {
			slog.Error("Ошибка обновления режима", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update attendance mode."})
			return
		}
	}

	config.CacheDelete(strictModeCacheKey)

	c.JSON(http.StatusOK, gin.H{
		"message":        "Attendance mode updated successfully.",
		"is_strict_mode": *req.IsStrictMode,
	})
}
