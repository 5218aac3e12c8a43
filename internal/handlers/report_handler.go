package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/junyours/CSDL/config"
	"github.com/junyours/CSDL/models"
)

// ExportEventAttendancesHandler выгружает отметки события в XLSX.
func ExportEventAttendancesHandler(c *gin.Context) {
	var event models.Event
	if err := config.DB.Preload("Location").First(&event, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Event not found."})
		return
	}

	query := config.DB.Where("event_id = ?", event.ID)
	if checkpoint := c.Query("checkpoint"); checkpoint != "" {
		query = query.Where("checkpoint = ?", checkpoint)
	}

	var records []models.EventAttendance
	if err := query.Order("attended_at asc").Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch attendances."})
		return
	}

	f := excelize.NewFile()
	sheetName := "Attendance"
	index, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Student ID No", "Checkpoint", "Attended At", "Latitude", "Longitude", "Device Operator", "Device Model"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for i, rec := range records {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), rec.UserIDNo)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), rec.Checkpoint)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), rec.AttendedAt.Format("2006-01-02 15:04:05"))
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), rec.LocationCoordinates.Lat)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), rec.LocationCoordinates.Lng)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), rec.DeviceUserIDNo)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), rec.DeviceModel)
	}

	fileName := fmt.Sprintf("event_%d_attendances_%s.xlsx", event.ID, time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to write Excel file"})
	}
}

// CouncilReportRequest - параметры отчета члена студсовета за период.
type CouncilReportRequest struct {
	SettlementLoggedBy   uint   `json:"settlement_logged_by" form:"settlement_logged_by" binding:"required"`
	SettlementLoggedName string `json:"settlement_logged_name" form:"settlement_logged_name" binding:"required"`
	DepartmentName       string `json:"department_name" form:"department_name" binding:"required"`
	StartDate            string `json:"start_date" form:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate              string `json:"end_date" form:"end_date" binding:"required,datetime=2006-01-02"`
}

// ExportCouncilReportHandler выгружает погашения, зарегистрированные
// членом студсовета за период, со сводкой по действующим и аннулированным
// транзакциям.
func ExportCouncilReportHandler(c *gin.Context) {
	var req CouncilReportRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Validation failed.", "errors": err.Error()})
		return
	}

	start, _ := time.Parse("2006-01-02", req.StartDate)
	end, _ := time.Parse("2006-01-02", req.EndDate)
	end = end.AddDate(0, 0, 1)

	var settlements []models.EventSanctionSettlement
	if err := config.DB.Preload("Event").
		Where("settlement_logged_by = ?", req.SettlementLoggedBy).
		Where("transaction_date_time >= ? AND transaction_date_time < ?", start, end).
		Order("transaction_date_time asc").
		Find(&settlements).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch settlements."})
		return
	}

	totalPaid := decimal.Zero
	allCodes := make(map[string]bool)
	voidedCodes := make(map[string]bool)
	for _, s := range settlements {
		allCodes[s.TransactionCode] = true
		if s.IsVoid {
			voidedCodes[s.TransactionCode] = true
			continue
		}
		if s.AmountPaid.Valid {
			totalPaid = totalPaid.Add(s.AmountPaid.Decimal)
		}
	}

	f := excelize.NewFile()
	sheetName := "Council Report"
	index, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	f.SetCellValue(sheetName, "A1", "Council Member")
	f.SetCellValue(sheetName, "B1", req.SettlementLoggedName)
	f.SetCellValue(sheetName, "A2", "Department")
	f.SetCellValue(sheetName, "B2", req.DepartmentName)
	f.SetCellValue(sheetName, "A3", "Period")
	f.SetCellValue(sheetName, "B3", fmt.Sprintf("%s - %s", req.StartDate, req.EndDate))

	headerRow := 5
	headers := []string{"Transaction Code", "Date", "Event", "Student ID No", "Type", "Amount Paid", "Service Completed", "Status", "Voided"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		f.SetCellValue(sheetName, cell, header)
	}

	for i, s := range settlements {
		row := headerRow + 1 + i
		eventName := ""
		if s.Event != nil {
			eventName = s.Event.EventName
		}
		amount := ""
		if s.AmountPaid.Valid {
			amount = s.AmountPaid.Decimal.StringFixed(2)
		}
		service := ""
		if s.ServiceCompleted != nil && s.ServiceTimeType != nil {
			service = fmt.Sprintf("%d %s", *s.ServiceCompleted, *s.ServiceTimeType)
		}

		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), s.TransactionCode)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), s.TransactionDateTime.Format("2006-01-02 15:04:05"))
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), eventName)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), s.UserIDNo)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), s.SettlementType)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), amount)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), service)
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), s.Status)
		f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), s.IsVoid)
	}

	summaryRow := headerRow + len(settlements) + 2
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryRow), "Total Amount Paid")
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryRow), totalPaid.StringFixed(2))
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryRow+1), "Total Transactions")
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryRow+1), len(allCodes))
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryRow+2), "Voided Transactions")
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryRow+2), len(voidedCodes))

	fileName := fmt.Sprintf("council_report_range_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to write Excel file"})
	}
}
