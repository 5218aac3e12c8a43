// Package settlement ведет журнал погашений санкций: одиночные и
// массовые записи под общим кодом транзакции и аннулирование транзакции
// целиком.
package settlement

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/junyours/CSDL/models"
)

var (
	ErrEventNotFound    = errors.New("event not found")
	ErrSanctionNotFound = errors.New("sanction not found")

	// ErrSanctionTypeMismatch - тип погашения не совпал с типом санкции
	// (waived от этой проверки освобожден).
	ErrSanctionTypeMismatch = errors.New("invalid settlement type. Must match sanction type")

	// ErrAmountRequired - monetary-погашение без amount_paid.
	ErrAmountRequired = errors.New("amount_paid is required for monetary settlement")

	// ErrServiceFieldsRequired - service-погашение без service_completed
	// или service_time_type.
	ErrServiceFieldsRequired = errors.New("service_completed and service_time_type required for service settlement")

	// ErrTransactionNotFound - код не совпал ни с одной строкой журнала.
	ErrTransactionNotFound = errors.New("no transactions found with this code")

	// ErrNoItems - пустой массив в массовой записи.
	ErrNoItems = errors.New("no settlements provided")
)

// ItemError привязывает ошибку валидации к индексу элемента массовой
// записи, чтобы клиент видел, какая именно строка сломала пакет.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("settlement index %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Item - одна строка погашения на входе журнала.
type Item struct {
	EventID          uint             `json:"event_id" validate:"required"`
	UserIDNo         string           `json:"user_id_no" validate:"required,max=255"`
	SanctionID       uint             `json:"sanction_id" validate:"required"`
	SettlementType   string           `json:"settlement_type" validate:"required,oneof=monetary service waived"`
	AmountPaid       *decimal.Decimal `json:"amount_paid"`
	ServiceCompleted *int             `json:"service_completed" validate:"omitempty,min=0"`
	ServiceTimeType  *string          `json:"service_time_type" validate:"omitempty,oneof=minutes hours"`
	LoggedBy         uint             `json:"settlement_logged_by" validate:"required"`
	Status           string           `json:"status" validate:"omitempty,oneof=settled waived"`
	Remarks          string           `json:"remarks"`
}

// Ledger - сервис журнала погашений.
type Ledger struct {
	DB       *gorm.DB
	validate *validator.Validate
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{DB: db, validate: validator.New()}
}

// Record записывает одиночное погашение под собственным кодом транзакции.
func (l *Ledger) Record(item Item) (string, *models.EventSanctionSettlement, error) {
	var created *models.EventSanctionSettlement
	var code string

	err := l.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		code, err = l.newTransactionCode(tx)
		if err != nil {
			return err
		}
		created, err = l.createItem(tx, code, item)
		return err
	})
	if err != nil {
		return "", nil, err
	}
	return code, created, nil
}

// RecordBulk записывает весь пакет под одним кодом транзакции. Пакет
// атомарен: любая невалидная строка откатывает все, наружу уходит
// *ItemError с индексом виновника.
func (l *Ledger) RecordBulk(items []Item) (string, []models.EventSanctionSettlement, error) {
	if len(items) == 0 {
		return "", nil, ErrNoItems
	}

	var created []models.EventSanctionSettlement
	var code string

	err := l.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		code, err = l.newTransactionCode(tx)
		if err != nil {
			return err
		}
		for i, item := range items {
			row, err := l.createItem(tx, code, item)
			if err != nil {
				return &ItemError{Index: i, Err: err}
			}
			created = append(created, *row)
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return code, created, nil
}

// VoidTransaction аннулирует все строки с данным кодом. Идемпотентна:
// повторное аннулирование проходит успешно и ничего не меняет.
func (l *Ledger) VoidTransaction(code string) (int64, error) {
	var total int64
	if err := l.DB.Model(&models.EventSanctionSettlement{}).
		Where("transaction_code = ?", code).
		Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count transaction rows: %w", err)
	}
	if total == 0 {
		return 0, ErrTransactionNotFound
	}

	res := l.DB.Model(&models.EventSanctionSettlement{}).
		Where("transaction_code = ?", code).
		Update("is_void", true)
	if res.Error != nil {
		return 0, fmt.Errorf("void transaction: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (l *Ledger) createItem(tx *gorm.DB, code string, item Item) (*models.EventSanctionSettlement, error) {
	if err := l.validate.Struct(item); err != nil {
		return nil, err
	}

	var eventCount int64
	if err := tx.Model(&models.Event{}).Where("id = ?", item.EventID).Count(&eventCount).Error; err != nil {
		return nil, fmt.Errorf("check event: %w", err)
	}
	if eventCount == 0 {
		return nil, ErrEventNotFound
	}

	var sanction models.Sanction
	if err := tx.First(&sanction, item.SanctionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSanctionNotFound
		}
		return nil, fmt.Errorf("load sanction: %w", err)
	}

	if item.SettlementType != models.SettlementTypeWaived &&
		sanction.SanctionType != item.SettlementType {
		return nil, ErrSanctionTypeMismatch
	}

	switch item.SettlementType {
	case models.SettlementTypeMonetary:
		if item.AmountPaid == nil {
			return nil, ErrAmountRequired
		}
		if item.AmountPaid.IsNegative() {
			return nil, ErrAmountRequired
		}
	case models.SettlementTypeService:
		if item.ServiceCompleted == nil || item.ServiceTimeType == nil {
			return nil, ErrServiceFieldsRequired
		}
	}

	status := item.Status
	if status == "" {
		status = models.SettlementStatusSettled
	}

	row := models.EventSanctionSettlement{
		TransactionCode:     code,
		EventID:             item.EventID,
		UserIDNo:            item.UserIDNo,
		SanctionID:          item.SanctionID,
		SettlementType:      item.SettlementType,
		SettlementLoggedBy:  item.LoggedBy,
		Status:              status,
		Remarks:             item.Remarks,
		TransactionDateTime: time.Now(),
	}

	// Поля другой формы оплаты принудительно остаются NULL.
	if item.SettlementType == models.SettlementTypeMonetary {
		row.AmountPaid = decimal.NullDecimal{Decimal: *item.AmountPaid, Valid: true}
	}
	if item.SettlementType == models.SettlementTypeService {
		row.ServiceCompleted = item.ServiceCompleted
		row.ServiceTimeType = item.ServiceTimeType
	}

	if err := tx.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create settlement: %w", err)
	}
	return &row, nil
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 12

// newTransactionCode генерирует код формата оригинала (12 символов
// A-Z0-9) и проверяет его на коллизию с существующими строками;
// при совпадении генерирует заново.
func (l *Ledger) newTransactionCode(tx *gorm.DB) (string, error) {
	for {
		code, err := randomCode(codeLength)
		if err != nil {
			return "", err
		}

		var count int64
		if err := tx.Model(&models.EventSanctionSettlement{}).
			Where("transaction_code = ?", code).
			Count(&count).Error; err != nil {
			return "", fmt.Errorf("check transaction code: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}
}

func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate transaction code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
