package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/junyours/CSDL/config"
	"github.com/junyours/CSDL/internal/enrollment"
)

// enrollmentClient собирает клиента внешней системы зачислений из
// конфигурации окружения.
func enrollmentClient() *enrollment.Client {
	return enrollment.NewClient(config.EnrollmentAPI.BaseURL, config.EnrollmentAPI.Token)
}

// SchoolStructureHandler проксирует справочник учебных годов, курсов и
// уровней из внешней системы зачислений.
func SchoolStructureHandler(c *gin.Context) {
	raw, err := enrollmentClient().SchoolStructure(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		respondEnrollmentError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

// EnrolledStudentsHandler проксирует списки зачисленных студентов.
func EnrolledStudentsHandler(c *gin.Context) {
	raw, err := enrollmentClient().EnrolledStudents(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		respondEnrollmentError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

// StudentEnrollmentHandler возвращает условия зачисления по списку
// студенческих номеров.
func StudentEnrollmentHandler(c *gin.Context) {
	userIDNos := c.QueryArray("user_id_no")
	if len(userIDNos) == 0 {
		if single := c.Query("user_id_no"); single != "" {
			userIDNos = []string{single}
		}
	}
	if len(userIDNos) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "user_id_no is required."})
		return
	}

	conditions, err := enrollmentClient().StudentEnrollment(c.Request.Context(), userIDNos)
	if err != nil {
		respondEnrollmentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": conditions})
}

func respondEnrollmentError(c *gin.Context, err error) {
	if errors.Is(err, enrollment.ErrUpstreamUnavailable) {
		c.JSON(http.StatusBadGateway, gin.H{"message": "Enrollment system is unavailable."})
		return
	}
	slog.Error("Ошибка запроса к системе зачислений", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch enrollment data."})
}
