package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Типы погашения. waived не обязан совпадать с типом санкции.
const (
	SettlementTypeMonetary = "monetary"
	SettlementTypeService  = "service"
	SettlementTypeWaived   = "waived"

	SettlementStatusSettled = "settled"
	SettlementStatusWaived  = "waived"
)

// EventSanctionSettlement - строка журнала погашений. Все строки одной
// массовой операции несут общий TransactionCode; аннулирование ставит
// is_void на всю транзакцию целиком, физически строки не удаляются.
type EventSanctionSettlement struct {
	gorm.Model
	TransactionCode string `json:"transaction_code" gorm:"index;not null"`

	EventID  uint   `json:"event_id" gorm:"not null"`
	Event    *Event `json:"event,omitempty" gorm:"foreignKey:EventID"`
	UserIDNo string `json:"user_id_no" gorm:"not null;index"`

	SanctionID uint      `json:"sanction_id" gorm:"not null"`
	Sanction   *Sanction `json:"sanction,omitempty" gorm:"foreignKey:SanctionID"`

	// Для monetary/service тип обязан совпадать с типом санкции.
	SettlementType string `json:"settlement_type" gorm:"not null"`

	AmountPaid       decimal.NullDecimal `json:"amount_paid" gorm:"type:numeric(10,2)"`
	ServiceCompleted *int                `json:"service_completed"`
	ServiceTimeType  *string             `json:"service_time_type"`

	SettlementLoggedBy uint                `json:"settlement_logged_by" gorm:"not null"`
	LoggedBy           *UserStudentCouncil `json:"logged_by,omitempty" gorm:"foreignKey:SettlementLoggedBy"`

	Status  string `json:"status" gorm:"default:'settled'"`
	Remarks string `json:"remarks" gorm:"type:text"`

	TransactionDateTime time.Time `json:"transaction_date_time"`
	IsVoid              bool      `json:"is_void" gorm:"default:false"`
}
