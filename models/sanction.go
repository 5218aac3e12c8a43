package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Типы санкций и единицы отработки.
const (
	SanctionTypeMonetary = "monetary"
	SanctionTypeService  = "service"

	ServiceTimeMinutes = "minutes"
	ServiceTimeHours   = "hours"
)

// Sanction - справочник санкций. Для monetary заполняется только
// MonetaryAmount, для service - ServiceTime и ServiceTimeType; вторая
// группа полей остается NULL. Денежные суммы держим в decimal, чтобы
// накопление не плыло на float.
type Sanction struct {
	gorm.Model
	SanctionType        string              `json:"sanction_type" gorm:"not null"`
	SanctionName        string              `json:"sanction_name" gorm:"not null"`
	SanctionDescription string              `json:"sanction_description"`
	MonetaryAmount      decimal.NullDecimal `json:"monetary_amount" gorm:"type:numeric(10,2)"`
	ServiceTime         *int                `json:"service_time"`
	ServiceTimeType     *string             `json:"service_time_type"`
	Status              bool                `json:"status" gorm:"default:true"`
}
