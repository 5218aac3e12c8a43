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

// ListCouncilHandler возвращает действующих членов студенческого совета.
func ListCouncilHandler(c *gin.Context) {
	var members []models.UserStudentCouncil
	if err := config.DB.Preload("User").
		Where("is_removed = ?", false).
		Find(&members).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch council members."})
		return
	}
	c.JSON(http.StatusOK, members)
}

// CreateCouncilMemberHandler добавляет пользователя в студсовет.
// Удаленная запись восстанавливается с новой должностью; активный
// дубликат отклоняется.
func CreateCouncilMemberHandler(c *gin.Context) {
	var req struct {
		UserIDNo string `json:"user_id_no" binding:"required"`
		Position string `json:"position"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "user_id_no is required."})
		return
	}

	var user models.User
	if err := config.DB.Where("user_id_no = ?", req.UserIDNo).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
		return
	}

	var existing models.UserStudentCouncil
	err := config.DB.Where("user_id = ?", user.ID).First(&existing).Error
	switch {
	case err == nil:
		if existing.IsRemoved {
			if err := config.DB.Model(&existing).Updates(map[string]any{
				"is_removed": false,
				"position":   req.Position,
			}).Error; err != nil {
				slog.Error("Ошибка восстановления члена студсовета", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to save council member."})
				return
			}
			existing.IsRemoved = false
			existing.Position = req.Position
			c.JSON(http.StatusOK, gin.H{"message": "Restored successfully.", "data": existing})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"message": "User is already in student council.", "data": existing})
		return
	case errors.Is(err, gorm.ErrRecordNotFound):
		member := models.UserStudentCouncil{UserID: user.ID, Position: req.Position}
		if err := config.DB.Create(&member).Error; err != nil {
			slog.Error("Ошибка создания члена студсовета", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to save council member."})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Saved successfully.", "data": member})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to save council member."})
	}
}

// RemoveCouncilMemberHandler мягко удаляет члена студсовета.
func RemoveCouncilMemberHandler(c *gin.Context) {
	var member models.UserStudentCouncil
	if err := config.DB.First(&member, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Council member not found."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch council member."})
		return
	}

	if err := config.DB.Model(&member).Update("is_removed", true).Error; err != nil {
		slog.Error("Ошибка удаления члена студсовета", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to remove council member."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Removed successfully."})
}

// SearchCouncilCandidateHandler ищет студента во внешней системе и
// отклоняет тех, кто не заведен в учетных записях или уже состоит в
// студсовете. Возвращаются только зачисления текущего учебного года.
func SearchCouncilCandidateHandler(c *gin.Context) {
	userIDNo := c.Query("user_id_no")
	if userIDNo == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id_no is required"})
		return
	}

	if config.EnrollmentAPI.BaseURL == "" || config.EnrollmentAPI.Token == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "API configuration is missing"})
		return
	}

	profiles, err := enrollmentClient().StudentProfiles(c.Request.Context(), []string{userIDNo})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch enrolled students from API"})
		return
	}
	if len(profiles) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "No students found"})
		return
	}

	var user models.User
	if err := config.DB.Where("user_id_no = ?", profiles[0].UserIDNo).First(&user).Error; err != nil {
		c.JSON(http.StatusForbidden, gin.H{"message": "User not exist or already added as council"})
		return
	}

	var active int64
	config.DB.Model(&models.UserStudentCouncil{}).
		Where("user_id = ? AND is_removed = ?", user.ID, false).
		Count(&active)
	if active > 0 {
		c.JSON(http.StatusForbidden, gin.H{"message": "User not exist or already added as council"})
		return
	}

	c.JSON(http.StatusOK, profiles)
}

// CheckCouncilMembershipHandler сообщает, состоит ли пользователь в
// студсовете, и отдает id записи для журнала погашений.
func CheckCouncilMembershipHandler(c *gin.Context) {
	userIDNo := c.Query("user_id_no")

	var member models.UserStudentCouncil
	err := config.DB.
		Joins("JOIN users ON users.id = user_student_councils.user_id").
		Where("users.user_id_no = ? AND user_student_councils.is_removed = ?", userIDNo, false).
		First(&member).Error
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"is_council_member":       false,
			"user_student_council_id": nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"is_council_member":       true,
		"user_student_council_id": member.ID,
	})
}
