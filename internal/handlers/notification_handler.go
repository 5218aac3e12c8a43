package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/junyours/CSDL/config"
	"github.com/junyours/CSDL/models"
)

// GetUserNotificationsHandler возвращает уведомления для курса и уровня
// года пользователя, новые первыми, с его статусом прочтения. Пустой
// список адресатов означает "для всех".
func GetUserNotificationsHandler(c *gin.Context) {
	courseID, _ := strconv.ParseInt(c.Query("course_id"), 10, 64)
	yearLevelID, _ := strconv.ParseInt(c.Query("year_level_id"), 10, 64)
	userID := c.GetUint("user_id")

	var notifications []models.Notification
	if err := config.DB.Order("created_at desc").Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch notifications."})
		return
	}

	var reads []models.NotificationUser
	config.DB.Where("user_id = ?", userID).Find(&reads)
	readByNotification := make(map[uint]models.NotificationUser, len(reads))
	for _, r := range reads {
		readByNotification[r.NotificationID] = r
	}

	data := make([]gin.H, 0, len(notifications))
	for _, n := range notifications {
		if len(n.CoursesID) > 0 && !n.CoursesID.Contains(courseID) {
			continue
		}
		if len(n.YearLevelsID) > 0 && !n.YearLevelsID.Contains(yearLevelID) {
			continue
		}

		entry := gin.H{
			"id":              n.ID,
			"courses_id":      n.CoursesID,
			"year_levels_id":  n.YearLevelsID,
			"notifiable_type": n.NotifiableType,
			"data":            n.Data,
			"created_at":      n.CreatedAt,
			"is_read":         false,
			"read_at":         nil,
		}
		if read, ok := readByNotification[n.ID]; ok {
			entry["is_read"] = read.IsRead
			entry["read_at"] = read.ReadAt
		}
		data = append(data, entry)
	}

	c.JSON(http.StatusOK, data)
}

// MarkNotificationReadHandler отмечает уведомление прочитанным текущим
// пользователем. Повторный вызов обновляет время прочтения.
func MarkNotificationReadHandler(c *gin.Context) {
	var req struct {
		NotificationID uint `json:"notification_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "notification_id is required."})
		return
	}

	now := time.Now()
	read := models.NotificationUser{
		NotificationID: req.NotificationID,
		UserID:         c.GetUint("user_id"),
		IsRead:         true,
		ReadAt:         &now,
	}

	err := config.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "notification_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_read", "read_at"}),
	}).Create(&read).Error
	if err != nil {
		// Редкая гонка с параллельной отметкой того же уведомления.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
			return
		}
		slog.Error("Ошибка отметки уведомления", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to mark notification as read."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
