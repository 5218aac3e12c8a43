package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/junyours/CSDL/config"
	"github.com/junyours/CSDL/internal/attendance"
	"github.com/junyours/CSDL/internal/geofence"
	"github.com/junyours/CSDL/models"
)

// StoreAttendanceRequest определяет структуру отправки отметки с
// мобильного клиента.
type StoreAttendanceRequest struct {
	EventID             uint   `json:"event_id" binding:"required"`
	UserIDNo            string `json:"user_id_no" binding:"required,max=255"`
	Checkpoint          string `json:"checkpoint" binding:"required,oneof=start_time end_time first_start_time first_end_time second_start_time second_end_time"`
	LocationCoordinates struct {
		Lat *float64 `json:"lat" binding:"required,gte=-90,lte=90"`
		Lng *float64 `json:"lng" binding:"required,gte=-180,lte=180"`
	} `json:"location_coordinates" binding:"required"`
	DeviceUserIDNo string `json:"device_user_id_no" binding:"required,max=255"`
	DeviceModel    string `json:"device_model" binding:"required,max=255"`
}

// StoreEventAttendanceHandler принимает отметку посещаемости: проверка
// полей, контрольной точки, дубликата, геозоны и strict-режима - затем
// запись. 201 при успехе, 422/403 по шагу конвейера, 500 только при
// неожиданном сбое хранения.
func StoreEventAttendanceHandler(c *gin.Context) {
	var req StoreAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Validation failed.", "errors": err.Error()})
		return
	}

	strictMode := StrictModeEnabled()

	recorder := attendance.NewRecorder(config.DB)
	record, err := recorder.Record(attendance.Submission{
		EventID:        req.EventID,
		UserIDNo:       req.UserIDNo,
		Checkpoint:     req.Checkpoint,
		Point:          geofence.Point{Lat: *req.LocationCoordinates.Lat, Lng: *req.LocationCoordinates.Lng},
		DeviceUserIDNo: req.DeviceUserIDNo,
		DeviceModel:    req.DeviceModel,
	}, strictMode)

	if err != nil {
		var outOfRange *attendance.OutOfRangeError
		switch {
		case errors.Is(err, attendance.ErrEventNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Event not found."})
		case errors.Is(err, attendance.ErrInvalidCheckpoint):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid checkpoint. Must be one of the event time fields."})
		case errors.Is(err, attendance.ErrCheckpointNotScheduled):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": fmt.Sprintf("The checkpoint '%s' is not scheduled for this event.", req.Checkpoint)})
		case errors.Is(err, attendance.ErrDuplicateAttendance):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "You have already attended this checkpoint for this event."})
		case errors.As(err, &outOfRange):
			c.JSON(http.StatusForbidden, gin.H{"message": fmt.Sprintf(
				"Can't record attendance right now, you are %d meters away from event location.",
				int(math.Round(outOfRange.DistanceMeters)))})
		case errors.Is(err, attendance.ErrDeviceNotRegistered):
			c.JSON(http.StatusForbidden, gin.H{"message": "Device user ID not registered."})
		case errors.Is(err, attendance.ErrNotModerator):
			c.JSON(http.StatusForbidden, gin.H{"message": "User is not authorized as a moderator."})
		default:
			slog.Error("Не удалось записать отметку посещаемости", "error", err, "event_id", req.EventID)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to record attendance. Please try again later."})
		}
		return
	}

	// Рассылаем принятую отметку наблюдателям события.
	EventMonitor.Broadcast(record.EventID, record)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Attendance recorded successfully.",
		"data":    record,
	})
}

// ListAttendancesQuery - фильтры списка отметок по событию.
type ListAttendancesQuery struct {
	EventID    uint   `form:"event_id" binding:"required"`
	UserIDNo   string `form:"user_id_no"`
	Checkpoint string `form:"checkpoint" binding:"omitempty,oneof=start_time end_time first_start_time first_end_time second_start_time second_end_time"`
	DateFrom   string `form:"date_from"`
	DateTo     string `form:"date_to"`
}

// ListEventAttendancesHandler возвращает отметки события с фильтрами,
// пагинацией, счетчиками и действующими погашениями по событию.
func ListEventAttendancesHandler(c *gin.Context) {
	var q ListAttendancesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Validation failed.", "errors": err.Error()})
		return
	}

	dateFrom, dateTo, err := parseDateRange(q.DateFrom, q.DateTo)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}

	base := config.DB.Model(&models.EventAttendance{}).Where("event_id = ?", q.EventID)

	filtered := config.DB.Model(&models.EventAttendance{}).Where("event_id = ?", q.EventID)
	if q.UserIDNo != "" {
		filtered = filtered.Where("user_id_no = ?", q.UserIDNo)
	}
	if q.Checkpoint != "" {
		filtered = filtered.Where("checkpoint = ?", q.Checkpoint)
	}
	if dateFrom != nil {
		filtered = filtered.Where("attended_at >= ?", *dateFrom)
	}
	if dateTo != nil {
		filtered = filtered.Where("attended_at < ?", dateTo.AddDate(0, 0, 1))
	}

	var totalFiltered int64
	if err := filtered.Count(&totalFiltered).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch attendances."})
		return
	}

	var attendances []models.EventAttendance
	if err := filtered.Order("attended_at desc").Scopes(Paginate(c)).Find(&attendances).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch attendances."})
		return
	}
	if attendances == nil {
		attendances = make([]models.EventAttendance, 0)
	}

	// Действующие (не аннулированные) погашения по событию.
	settlementsQuery := config.DB.Where("event_id = ? AND is_void = ?", q.EventID, false)
	if q.UserIDNo != "" {
		settlementsQuery = settlementsQuery.Where("user_id_no = ?", q.UserIDNo)
	}
	var settlements []models.EventSanctionSettlement
	if err := settlementsQuery.Order("created_at desc").Find(&settlements).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch settlements."})
		return
	}
	if settlements == nil {
		settlements = make([]models.EventSanctionSettlement, 0)
	}

	counts := gin.H{"total_filtered": totalFiltered}

	var totalAll int64
	base.Count(&totalAll)
	counts["total_all"] = totalAll

	if q.UserIDNo != "" {
		var n int64
		config.DB.Model(&models.EventAttendance{}).
			Where("event_id = ? AND user_id_no = ?", q.EventID, q.UserIDNo).Count(&n)
		counts["total_with_user"] = n
	}
	if q.Checkpoint != "" {
		var n int64
		config.DB.Model(&models.EventAttendance{}).
			Where("event_id = ? AND checkpoint = ?", q.EventID, q.Checkpoint).Count(&n)
		counts["total_with_checkpoint"] = n
	}
	if dateFrom != nil || dateTo != nil {
		rangeQuery := config.DB.Model(&models.EventAttendance{}).Where("event_id = ?", q.EventID)
		if dateFrom != nil {
			rangeQuery = rangeQuery.Where("attended_at >= ?", *dateFrom)
		}
		if dateTo != nil {
			rangeQuery = rangeQuery.Where("attended_at < ?", dateTo.AddDate(0, 0, 1))
		}
		var n int64
		rangeQuery.Count(&n)
		counts["total_with_date_range"] = n
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Attendances and settlements retrieved successfully.",
		"data": gin.H{
			"attendances": attendances,
			"settlements": settlements,
		},
		"meta":   NewPageMeta(c, totalFiltered),
		"counts": counts,
	})
}

func parseDateRange(from, to string) (*time.Time, *time.Time, error) {
	var dateFrom, dateTo *time.Time
	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return nil, nil, errors.New("Invalid date_from format. Use YYYY-MM-DD.")
		}
		dateFrom = &t
	}
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return nil, nil, errors.New("Invalid date_to format. Use YYYY-MM-DD.")
		}
		dateTo = &t
	}
	if dateFrom != nil && dateTo != nil && dateTo.Before(*dateFrom) {
		return nil, nil, errors.New("date_to must be after or equal to date_from.")
	}
	return dateFrom, dateTo, nil
}
