package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/junyours/CSDL/config"
	"github.com/junyours/CSDL/internal/enrollment"
	"github.com/junyours/CSDL/internal/sanctions"
	"github.com/junyours/CSDL/models"
)

// GetStudentSanctionsHandler считает задолженность студента: условия
// зачисления из внешней системы -> подходящие события -> пропущенные
// контрольные точки -> суммы санкций. События с действующим погашением,
// будущие, отмененные и неактивные отсекаются до расчета.
func GetStudentSanctionsHandler(c *gin.Context) {
	userIDNos := c.QueryArray("user_id_no")
	if len(userIDNos) == 0 {
		if single := c.Query("user_id_no"); single != "" {
			userIDNos = []string{single}
		}
	}
	if len(userIDNos) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "user_id_no[] is required.",
			"data":    []any{},
		})
		return
	}

	// Отсекаем номера, которых нет в системе, чтобы не дергать внешний
	// API впустую.
	var validUsers []string
	if err := config.DB.Model(&models.User{}).
		Where("user_id_no IN ?", userIDNos).
		Pluck("user_id_no", &validUsers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch users."})
		return
	}
	if len(validUsers) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Provided user_id_no(s) do not exist in the system.",
			"data":    []any{},
		})
		return
	}
	userIDNos = validUsers

	client := enrollmentClient()
	conditions, err := client.StudentEnrollment(c.Request.Context(), userIDNos)
	if err != nil {
		if errors.Is(err, enrollment.ErrUpstreamUnavailable) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to fetch enrollment data.",
				"data":    []any{},
			})
			return
		}
		slog.Error("Ошибка клиента системы зачисления", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch enrollment data."})
		return
	}
	if len(conditions) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "No enrollments found.",
			"data":    []any{},
		})
		return
	}

	// События, уже закрытые действующим погашением этого студента.
	var settledEventIDs []uint
	if err := config.DB.Model(&models.EventSanctionSettlement{}).
		Where("user_id_no IN ? AND is_void = ?", userIDNos, false).
		Pluck("event_id", &settledEventIDs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch settlements."})
		return
	}

	query := config.DB.
		Where("is_cancelled = ? AND status = ?", false, true).
		Where("event_date <= ?", time.Now()).
		Preload("Location").Preload("Sanction").Preload("Attendances").
		Order("event_date desc").Order("created_at desc")
	if len(settledEventIDs) > 0 {
		query = query.Where("id NOT IN ?", settledEventIDs)
	}

	var candidates []models.Event
	if err := query.Find(&candidates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch events."})
		return
	}

	// Сопоставление события с условиями зачисления: учебный год равен,
	// курс и уровень года входят в списки участников.
	eligible := make([]models.Event, 0, len(candidates))
	for _, event := range candidates {
		for _, cond := range conditions {
			if uint(cond.SchoolYearID) == event.SchoolYearID &&
				event.ParticipantCourseID.Contains(cond.CourseID) &&
				event.ParticipantYearLevelID.Contains(cond.YearLevelID) {
				eligible = append(eligible, event)
				break
			}
		}
	}

	// Система считает задолженность по одному студенту за раз.
	userID := userIDNos[0]
	results, totals := sanctions.ComputeOwedSanctions(userID, eligible)

	c.JSON(http.StatusOK, gin.H{
		"success":               true,
		"message":               "Events fetched successfully.",
		"total_monetary":        totals.Monetary.InexactFloat64(),
		"total_service_minutes": totals.ServiceMinutes,
		"data":                  results,
	})
}
