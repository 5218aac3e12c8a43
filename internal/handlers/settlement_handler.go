package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/divan/num2words"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/junyours/CSDL/config"
	"github.com/junyours/CSDL/internal/settlement"
	"github.com/junyours/CSDL/models"
)

// SettlementItemRequest - одна строка погашения во входном JSON.
type SettlementItemRequest struct {
	EventID          uint             `json:"event_id"`
	UserIDNo         string           `json:"user_id_no"`
	SanctionID       uint             `json:"sanction_id"`
	SettlementType   string           `json:"settlement_type"`
	AmountPaid       *decimal.Decimal `json:"amount_paid"`
	ServiceCompleted *int             `json:"service_completed"`
	ServiceTimeType  *string          `json:"service_time_type"`
	LoggedBy         uint             `json:"settlement_logged_by"`
	Status           string           `json:"status"`
	Remarks          string           `json:"remarks"`
}

func (r SettlementItemRequest) toItem() settlement.Item {
	return settlement.Item{
		EventID:          r.EventID,
		UserIDNo:         r.UserIDNo,
		SanctionID:       r.SanctionID,
		SettlementType:   r.SettlementType,
		AmountPaid:       r.AmountPaid,
		ServiceCompleted: r.ServiceCompleted,
		ServiceTimeType:  r.ServiceTimeType,
		LoggedBy:         r.LoggedBy,
		Status:           r.Status,
		Remarks:          r.Remarks,
	}
}

// StoreSettlementHandler принимает либо одиночное погашение, либо
// массовое в поле settlements. Массовая запись атомарна: один код
// транзакции на весь пакет, ошибка любой строки откатывает все.
func StoreSettlementHandler(c *gin.Context) {
	var payload struct {
		SettlementItemRequest
		Settlements []SettlementItemRequest `json:"settlements"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Validation failed.", "errors": err.Error()})
		return
	}

	ledger := settlement.NewLedger(config.DB)

	if payload.Settlements != nil {
		if len(payload.Settlements) == 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "No settlements provided."})
			return
		}

		items := make([]settlement.Item, 0, len(payload.Settlements))
		for _, s := range payload.Settlements {
			items = append(items, s.toItem())
		}

		code, created, err := ledger.RecordBulk(items)
		if err != nil {
			respondSettlementError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message":          "Sanction settlements recorded successfully.",
			"transaction_code": code,
			"count":            len(created),
			"data":             created,
		})
		return
	}

	code, created, err := ledger.Record(payload.SettlementItemRequest.toItem())
	if err != nil {
		respondSettlementError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":          "Sanction settlement recorded successfully.",
		"transaction_code": code,
		"data":             created,
	})
}

func respondSettlementError(c *gin.Context, err error) {
	var itemErr *settlement.ItemError
	if errors.As(err, &itemErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": fmt.Sprintf("Validation failed for settlement index %d.", itemErr.Index),
			"errors":  itemErr.Err.Error(),
		})
		return
	}

	switch {
	case errors.Is(err, settlement.ErrNoItems):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "No settlements provided."})
	case errors.Is(err, settlement.ErrEventNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Event not found."})
	case errors.Is(err, settlement.ErrSanctionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Sanction not found."})
	case errors.Is(err, settlement.ErrSanctionTypeMismatch):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid settlement type. Must match sanction type."})
	case errors.Is(err, settlement.ErrAmountRequired):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "amount_paid is required for monetary settlement."})
	case errors.Is(err, settlement.ErrServiceFieldsRequired):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "service_completed and service_time_type required for service settlement."})
	default:
		slog.Error("Ошибка записи погашения", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "An error occurred while recording settlements."})
	}
}

// VoidSettlementHandler аннулирует транзакцию целиком по коду.
// Повторное аннулирование - не ошибка.
func VoidSettlementHandler(c *gin.Context) {
	var req struct {
		TransactionCode string `json:"transaction_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "transaction_code is required."})
		return
	}

	ledger := settlement.NewLedger(config.DB)
	count, err := ledger.VoidTransaction(req.TransactionCode)
	if err != nil {
		if errors.Is(err, settlement.ErrTransactionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": fmt.Sprintf("No transactions found with code %s.", req.TransactionCode),
			})
			return
		}
		slog.Error("Ошибка аннулирования транзакции", "error", err, "code", req.TransactionCode)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to void transaction."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Transaction(s) with code %s have been voided.", req.TransactionCode),
		"count":   count,
	})
}

// ListSettlementsHandler возвращает журнал погашений с фильтрами по
// регистратору и текущему дню, со сводкой по активным и аннулированным
// транзакциям.
func ListSettlementsHandler(c *gin.Context) {
	query := config.DB.Preload("Event").Preload("LoggedBy").Preload("LoggedBy.User")

	if loggedBy := c.Query("settlement_logged_by"); loggedBy != "" {
		query = query.Where("settlement_logged_by = ?", loggedBy)
	}
	if c.Query("today") == "1" {
		dayStart := time.Now().Truncate(24 * time.Hour)
		query = query.Where("transaction_date_time >= ? AND transaction_date_time < ?", dayStart, dayStart.AddDate(0, 0, 1))
	}

	var settlements []models.EventSanctionSettlement
	if err := query.Order("created_at desc").Find(&settlements).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch settlements."})
		return
	}

	totalPaid := decimal.Zero
	voided := make([]models.EventSanctionSettlement, 0)
	allCodes := make(map[string]bool)
	voidedCodes := make(map[string]bool)

	for _, s := range settlements {
		allCodes[s.TransactionCode] = true
		if s.IsVoid {
			voided = append(voided, s)
			voidedCodes[s.TransactionCode] = true
			continue
		}
		// В сумму идут только действующие оплаты.
		if s.AmountPaid.Valid {
			totalPaid = totalPaid.Add(s.AmountPaid.Decimal)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"data":        settlements,
		"voided_data": voided,
		"summary": gin.H{
			"total_amount_paid":         totalPaid.InexactFloat64(),
			"total_transactions":        len(allCodes),
			"voided_transactions_count": len(voidedCodes),
		},
	})
}

// SettlementReceiptHandler собирает данные квитанции по коду транзакции,
// с суммой прописью для денежных погашений.
func SettlementReceiptHandler(c *gin.Context) {
	code := c.Param("transaction_code")

	var rows []models.EventSanctionSettlement
	if err := config.DB.Preload("Event").Preload("Sanction").
		Where("transaction_code = ?", code).
		Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch settlements."})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": fmt.Sprintf("No transactions found with code %s.", code)})
		return
	}

	total := decimal.Zero
	for _, row := range rows {
		if !row.IsVoid && row.AmountPaid.Valid {
			total = total.Add(row.AmountPaid.Decimal)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction_code":      code,
		"transaction_date":      rows[0].TransactionDateTime,
		"is_void":               rows[0].IsVoid,
		"items":                 rows,
		"total_amount_paid":     total.InexactFloat64(),
		"total_amount_in_words": amountInWords(total),
	})
}

// amountInWords переводит сумму в слова для печати на квитанции.
func amountInWords(amount decimal.Decimal) string {
	whole := amount.IntPart()
	cents := amount.Sub(decimal.NewFromInt(whole)).Mul(decimal.NewFromInt(100)).Round(0).IntPart()

	words := strings.TrimSpace(num2words.Convert(int(whole)))
	return fmt.Sprintf("%s pesos and %02d/100", words, cents)
}
