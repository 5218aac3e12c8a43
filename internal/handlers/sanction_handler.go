package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/junyours/CSDL/config"
	"github.com/junyours/CSDL/models"
)

// SanctionRequest - тело создания/обновления санкции. Денежные и
// сервисные поля обязательны только для своего типа.
type SanctionRequest struct {
	SanctionType        string           `json:"sanction_type" binding:"required,oneof=monetary service"`
	SanctionName        string           `json:"sanction_name" binding:"required,max=255"`
	SanctionDescription string           `json:"sanction_description" binding:"max=255"`
	MonetaryAmount      *decimal.Decimal `json:"monetary_amount"`
	ServiceTime         *int             `json:"service_time"`
	ServiceTimeType     *string          `json:"service_time_type"`
	Status              *bool            `json:"status"`
}

func (r *SanctionRequest) validateTypeFields() string {
	switch r.SanctionType {
	case models.SanctionTypeMonetary:
		if r.MonetaryAmount == nil {
			return "monetary_amount is required for monetary sanction"
		}
		if r.MonetaryAmount.IsNegative() {
			return "monetary_amount must be at least 0"
		}
	case models.SanctionTypeService:
		if r.ServiceTime == nil || *r.ServiceTime < 1 {
			return "service_time is required for service sanction and must be at least 1"
		}
		if r.ServiceTimeType == nil ||
			(*r.ServiceTimeType != models.ServiceTimeMinutes && *r.ServiceTimeType != models.ServiceTimeHours) {
			return "service_time_type must be minutes or hours"
		}
	}
	return ""
}

// apply заполняет модель полями запроса. Поля чужого типа санкции
// принудительно остаются NULL.
func (r *SanctionRequest) apply(sanction *models.Sanction) {
	sanction.SanctionType = r.SanctionType
	sanction.SanctionName = r.SanctionName
	sanction.SanctionDescription = r.SanctionDescription

	sanction.MonetaryAmount = decimal.NullDecimal{}
	sanction.ServiceTime = nil
	sanction.ServiceTimeType = nil

	if r.SanctionType == models.SanctionTypeMonetary {
		sanction.MonetaryAmount = decimal.NullDecimal{Decimal: *r.MonetaryAmount, Valid: true}
	} else {
		sanction.ServiceTime = r.ServiceTime
		sanction.ServiceTimeType = r.ServiceTimeType
	}

	sanction.Status = true
	if r.Status != nil {
		sanction.Status = *r.Status
	}
}

// ListSanctionsHandler возвращает активные санкции с поиском по имени и
// описанию и постраничной навигацией.
func ListSanctionsHandler(c *gin.Context) {
	query := config.DB.Model(&models.Sanction{}).Where("status = ?", true)

	search := c.Query("search")
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("sanction_name LIKE ? OR sanction_description LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch sanctions."})
		return
	}

	var sanctions []models.Sanction
	if err := query.Scopes(Paginate(c)).Find(&sanctions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch sanctions."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sanctions": sanctions,
		"filters":   gin.H{"search": search},
		"meta":      NewPageMeta(c, total),
	})
}

// CreateSanctionHandler создает санкцию.
func CreateSanctionHandler(c *gin.Context) {
	var req SanctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": err.Error()})
		return
	}
	if msg := req.validateTypeFields(); msg != "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": msg})
		return
	}

	var sanction models.Sanction
	req.apply(&sanction)

	if err := config.DB.Create(&sanction).Error; err != nil {
		slog.Error("Ошибка создания санкции", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create sanction."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Sanction created successfully",
		"sanction": sanction,
	})
}

// UpdateSanctionHandler обновляет санкцию.
func UpdateSanctionHandler(c *gin.Context) {
	var sanction models.Sanction
	if err := config.DB.First(&sanction, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Sanction not found."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch sanction."})
		return
	}

	var req SanctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": err.Error()})
		return
	}
	if msg := req.validateTypeFields(); msg != "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": msg})
		return
	}

	req.apply(&sanction)

	if err := config.DB.Save(&sanction).Error; err != nil {
		slog.Error("Ошибка обновления санкции", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update sanction."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Sanction updated successfully",
		"sanction": sanction,
	})
}
