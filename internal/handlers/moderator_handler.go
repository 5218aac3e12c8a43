package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/junyours/CSDL/config"
	"github.com/junyours/CSDL/models"
)

// ListModeratorsHandler возвращает активных модераторов посещаемости.
func ListModeratorsHandler(c *gin.Context) {
	var moderators []models.UserModerator
	if err := config.DB.Preload("User").
		Where("is_removed = ?", false).
		Find(&moderators).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch moderators."})
		return
	}
	c.JSON(http.StatusOK, moderators)
}

// CreateModeratorHandler назначает пользователя модератором. Ранее
// удаленная запись восстанавливается вместо создания дубликата.
func CreateModeratorHandler(c *gin.Context) {
	var req struct {
		UserIDNo string `json:"user_id_no" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "user_id_no is required."})
		return
	}

	var user models.User
	if err := config.DB.Where("user_id_no = ?", req.UserIDNo).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}

	var moderator models.UserModerator
	err := config.DB.Where("user_id = ?", user.ID).First(&moderator).Error
	switch {
	case err == nil:
		if err := config.DB.Model(&moderator).Update("is_removed", false).Error; err != nil {
			slog.Error("Ошибка восстановления модератора", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to save moderator."})
			return
		}
		moderator.IsRemoved = false
	case errors.Is(err, gorm.ErrRecordNotFound):
		moderator = models.UserModerator{UserID: user.ID}
		if err := config.DB.Create(&moderator).Error; err != nil {
			slog.Error("Ошибка создания модератора", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to save moderator."})
			return
		}
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to save moderator."})
		return
	}

	config.DB.Preload("User").First(&moderator, moderator.ID)

	c.JSON(http.StatusOK, moderator)
}

// RemoveModeratorHandler мягко удаляет модератора.
func RemoveModeratorHandler(c *gin.Context) {
	var moderator models.UserModerator
	if err := config.DB.First(&moderator, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Moderator not found."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch moderator."})
		return
	}

	if err := config.DB.Model(&moderator).Update("is_removed", true).Error; err != nil {
		slog.Error("Ошибка удаления модератора", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to remove moderator."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Moderator removed successfully"})
}
