package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/junyours/CSDL/config"
	"github.com/junyours/CSDL/internal/geofence"
	"github.com/junyours/CSDL/models"
)

// LocationRequest - тело создания локации. Полигон обязателен и должен
// содержать минимум три вершины с валидными координатами.
type LocationRequest struct {
	LocationName  string           `json:"location_name" binding:"required,max=255"`
	Address       string           `json:"address" binding:"required,max=255"`
	PolygonPoints []geofence.Point `json:"polygon_points" binding:"required,min=3,dive"`
	Status        *bool            `json:"status"`
}

func validatePolygon(points []geofence.Point) string {
	for _, p := range points {
		if p.Lat < -90 || p.Lat > 90 {
			return "polygon_points.*.lat must be between -90 and 90"
		}
		if p.Lng < -180 || p.Lng > 180 {
			return "polygon_points.*.lng must be between -180 and 180"
		}
	}
	return ""
}

// ListLocationsHandler возвращает только активные локации.
func ListLocationsHandler(c *gin.Context) {
	var locations []models.Location
	if err := config.DB.Select("id", "location_name", "address", "polygon_points", "status").
		Where("status = ?", true).
		Find(&locations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch locations."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"locations": locations})
}

// CreateLocationHandler создает локацию с геозоной.
func CreateLocationHandler(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": err.Error()})
		return
	}
	if msg := validatePolygon(req.PolygonPoints); msg != "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": msg})
		return
	}

	status := true
	if req.Status != nil {
		status = *req.Status
	}

	location := models.Location{
		LocationName:  req.LocationName,
		Address:       req.Address,
		PolygonPoints: models.PolygonPoints(req.PolygonPoints),
		Status:        status,
	}

	if err := config.DB.Create(&location).Error; err != nil {
		slog.Error("Ошибка создания локации", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create location."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": location, "message": "Location created successfully"})
}

// MoveLocationToBinHandler деактивирует локацию. Строка остается в БД,
// чтобы прошедшие события не потеряли геозону.
func MoveLocationToBinHandler(c *gin.Context) {
	var location models.Location
	if err := config.DB.First(&location, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Location not found."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch location."})
		return
	}

	if err := config.DB.Model(&location).Update("status", false).Error; err != nil {
		slog.Error("Ошибка деактивации локации", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to move location to bin."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Location moved to bin successfully."})
}
