package settlement

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/junyours/CSDL/models"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.UserStudentCouncil{},
		&models.Location{},
		&models.Sanction{},
		&models.Event{},
		&models.EventSanctionSettlement{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fixtures struct {
	event    models.Event
	monetary models.Sanction
	service  models.Sanction
	council  models.UserStudentCouncil
}

func seed(t *testing.T, db *gorm.DB) fixtures {
	t.Helper()

	monetary := models.Sanction{
		SanctionType:   models.SanctionTypeMonetary,
		SanctionName:   "Fine",
		MonetaryAmount: decimal.NullDecimal{Decimal: decimal.RequireFromString("50.00"), Valid: true},
		Status:         true,
	}
	if err := db.Create(&monetary).Error; err != nil {
		t.Fatalf("seed monetary sanction: %v", err)
	}

	service := models.Sanction{
		SanctionType:    models.SanctionTypeService,
		SanctionName:    "Community service",
		ServiceTime:     intPtr(2),
		ServiceTimeType: strPtr(models.ServiceTimeHours),
		Status:          true,
	}
	if err := db.Create(&service).Error; err != nil {
		t.Fatalf("seed service sanction: %v", err)
	}

	event := models.Event{
		SchoolYearID:   1,
		EventName:      "Foundation Day",
		EventDate:      time.Now(),
		AttendanceType: models.AttendanceTypeSingle,
		StartTime:      strPtr("08:00"),
		EndTime:        strPtr("10:00"),
		SanctionID:     monetary.ID,
		Status:         true,
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}

	user := models.User{UserIDNo: "2021-0100", Password: "hash"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	council := models.UserStudentCouncil{UserID: user.ID, Position: "Treasurer"}
	if err := db.Create(&council).Error; err != nil {
		t.Fatalf("seed council: %v", err)
	}

	return fixtures{event: event, monetary: monetary, service: service, council: council}
}

func monetaryItem(f fixtures) Item {
	return Item{
		EventID:        f.event.ID,
		UserIDNo:       "2021-0001",
		SanctionID:     f.monetary.ID,
		SettlementType: models.SettlementTypeMonetary,
		AmountPaid:     decPtr("50.00"),
		LoggedBy:       f.council.ID,
	}
}

func TestRecordSingle(t *testing.T) {
	db := testDB(t)
	f := seed(t, db)
	ledger := NewLedger(db)

	code, created, err := ledger.Record(monetaryItem(f))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if len(code) != codeLength {
		t.Errorf("code %q length = %d, want %d", code, len(code), codeLength)
	}
	for _, ch := range code {
		if !((ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')) {
			t.Errorf("code %q contains invalid character %q", code, ch)
		}
	}

	if created.TransactionCode != code {
		t.Errorf("row code = %s, want %s", created.TransactionCode, code)
	}
	if created.Status != models.SettlementStatusSettled {
		t.Errorf("default status = %s, want settled", created.Status)
	}
	if !created.AmountPaid.Valid || !created.AmountPaid.Decimal.Equal(decimal.RequireFromString("50.00")) {
		t.Errorf("amount_paid = %+v, want 50.00", created.AmountPaid)
	}
	if created.ServiceCompleted != nil || created.ServiceTimeType != nil {
		t.Error("service fields must stay NULL on monetary settlement")
	}
}

func TestRecordBulkSharesOneCode(t *testing.T) {
	db := testDB(t)
	f := seed(t, db)
	ledger := NewLedger(db)

	serviceItem := Item{
		EventID:          f.event.ID,
		UserIDNo:         "2021-0002",
		SanctionID:       f.service.ID,
		SettlementType:   models.SettlementTypeService,
		ServiceCompleted: intPtr(120),
		ServiceTimeType:  strPtr(models.ServiceTimeMinutes),
		LoggedBy:         f.council.ID,
	}

	code, created, err := ledger.RecordBulk([]Item{monetaryItem(f), serviceItem})
	if err != nil {
		t.Fatalf("RecordBulk: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created %d rows, want 2", len(created))
	}
	for _, row := range created {
		if row.TransactionCode != code {
			t.Errorf("row code = %s, want shared %s", row.TransactionCode, code)
		}
	}
}

func TestRecordBulkAtomic(t *testing.T) {
	db := testDB(t)
	f := seed(t, db)
	ledger := NewLedger(db)

	bad := monetaryItem(f)
	bad.AmountPaid = nil // невалидная строка

	items := []Item{monetaryItem(f), monetaryItem(f), monetaryItem(f), bad}
	_, _, err := ledger.RecordBulk(items)

	var itemErr *ItemError
	if !errors.As(err, &itemErr) {
		t.Fatalf("err = %v, want *ItemError", err)
	}
	if itemErr.Index != 3 {
		t.Errorf("failing index = %d, want 3", itemErr.Index)
	}
	if !errors.Is(err, ErrAmountRequired) {
		t.Errorf("wrapped err = %v, want ErrAmountRequired", itemErr.Err)
	}

	// Пакет атомарен: ни одна строка не должна была сохраниться.
	var count int64
	db.Model(&models.EventSanctionSettlement{}).Count(&count)
	if count != 0 {
		t.Errorf("settlement rows = %d, want 0 after rollback", count)
	}
}

func TestRecordBulkEmpty(t *testing.T) {
	db := testDB(t)
	seed(t, db)
	ledger := NewLedger(db)

	if _, _, err := ledger.RecordBulk(nil); !errors.Is(err, ErrNoItems) {
		t.Fatalf("err = %v, want ErrNoItems", err)
	}
}

func TestRecordTypeMismatch(t *testing.T) {
	db := testDB(t)
	f := seed(t, db)
	ledger := NewLedger(db)

	item := monetaryItem(f)
	item.SanctionID = f.service.ID // санкция service, погашение monetary

	if _, _, err := ledger.Record(item); !errors.Is(err, ErrSanctionTypeMismatch) {
		t.Fatalf("err = %v, want ErrSanctionTypeMismatch", err)
	}
}

func TestRecordWaivedBypassesTypeCheck(t *testing.T) {
	db := testDB(t)
	f := seed(t, db)
	ledger := NewLedger(db)

	item := Item{
		EventID:        f.event.ID,
		UserIDNo:       "2021-0003",
		SanctionID:     f.service.ID,
		SettlementType: models.SettlementTypeWaived,
		LoggedBy:       f.council.ID,
		Status:         models.SettlementStatusWaived,
		Remarks:        "Excused by dean",
	}

	_, created, err := ledger.Record(item)
	if err != nil {
		t.Fatalf("Record waived: %v", err)
	}
	if created.Status != models.SettlementStatusWaived {
		t.Errorf("status = %s, want waived", created.Status)
	}
	if created.AmountPaid.Valid {
		t.Error("waived settlement must not carry amount_paid")
	}
}

func TestRecordServiceRequiresFields(t *testing.T) {
	db := testDB(t)
	f := seed(t, db)
	ledger := NewLedger(db)

	item := Item{
		EventID:        f.event.ID,
		UserIDNo:       "2021-0004",
		SanctionID:     f.service.ID,
		SettlementType: models.SettlementTypeService,
		LoggedBy:       f.council.ID,
	}

	if _, _, err := ledger.Record(item); !errors.Is(err, ErrServiceFieldsRequired) {
		t.Fatalf("err = %v, want ErrServiceFieldsRequired", err)
	}
}

func TestRecordUnknownEventAndSanction(t *testing.T) {
	db := testDB(t)
	f := seed(t, db)
	ledger := NewLedger(db)

	item := monetaryItem(f)
	item.EventID = 9999
	if _, _, err := ledger.Record(item); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("err = %v, want ErrEventNotFound", err)
	}

	item = monetaryItem(f)
	item.SanctionID = 9999
	if _, _, err := ledger.Record(item); !errors.Is(err, ErrSanctionNotFound) {
		t.Fatalf("err = %v, want ErrSanctionNotFound", err)
	}
}

func TestVoidTransaction(t *testing.T) {
	db := testDB(t)
	f := seed(t, db)
	ledger := NewLedger(db)

	code, _, err := ledger.RecordBulk([]Item{monetaryItem(f), monetaryItem(f)})
	if err != nil {
		t.Fatalf("RecordBulk: %v", err)
	}

	affected, err := ledger.VoidTransaction(code)
	if err != nil {
		t.Fatalf("VoidTransaction: %v", err)
	}
	if affected != 2 {
		t.Errorf("affected = %d, want 2", affected)
	}

	var voidCount int64
	db.Model(&models.EventSanctionSettlement{}).
		Where("transaction_code = ? AND is_void = ?", code, true).
		Count(&voidCount)
	if voidCount != 2 {
		t.Errorf("voided rows = %d, want 2", voidCount)
	}

	// Идемпотентность: повторное аннулирование не ошибка.
	if _, err := ledger.VoidTransaction(code); err != nil {
		t.Fatalf("second VoidTransaction: %v", err)
	}
}

func TestVoidTransactionNotFound(t *testing.T) {
	db := testDB(t)
	seed(t, db)
	ledger := NewLedger(db)

	_, err := ledger.VoidTransaction("NOSUCHCODE12")
	if !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("err = %v, want ErrTransactionNotFound", err)
	}
}

func TestTransactionCodesDiffer(t *testing.T) {
	db := testDB(t)
	f := seed(t, db)
	ledger := NewLedger(db)

	codeA, _, err := ledger.Record(monetaryItem(f))
	if err != nil {
		t.Fatalf("first Record: %v", err)
	}
	codeB, _, err := ledger.Record(monetaryItem(f))
	if err != nil {
		t.Fatalf("second Record: %v", err)
	}
	if codeA == codeB {
		t.Error("independent settlements must get distinct transaction codes")
	}
}
