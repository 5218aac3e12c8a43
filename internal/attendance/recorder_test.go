package attendance

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/junyours/CSDL/internal/geofence"
	"github.com/junyours/CSDL/models"
)

func strPtr(s string) *string { return &s }

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.UserModerator{},
		&models.Location{},
		&models.Sanction{},
		&models.Event{},
		&models.EventAttendance{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return db
}

// Квадрат ~111м на сторону вокруг начала координат.
func campusLocation() models.Location {
	return models.Location{
		LocationName: "Main Quad",
		Address:      "Campus Ave",
		PolygonPoints: models.PolygonPoints{
			{Lat: 0, Lng: 0},
			{Lat: 0, Lng: 0.001},
			{Lat: 0.001, Lng: 0.001},
			{Lat: 0.001, Lng: 0},
		},
		Status: true,
	}
}

func seedEvent(t *testing.T, db *gorm.DB, loc models.Location) models.Event {
	t.Helper()

	if err := db.Create(&loc).Error; err != nil {
		t.Fatalf("seed location: %v", err)
	}

	sanction := models.Sanction{SanctionType: models.SanctionTypeMonetary, SanctionName: "Fine", Status: true}
	if err := db.Create(&sanction).Error; err != nil {
		t.Fatalf("seed sanction: %v", err)
	}

	event := models.Event{
		SchoolYearID:   1,
		EventName:      "Foundation Day",
		LocationID:     loc.ID,
		EventDate:      time.Now(),
		AttendanceType: models.AttendanceTypeSingle,
		StartTime:      strPtr("08:00"),
		EndTime:        strPtr("10:00"),
		SanctionID:     sanction.ID,
		Status:         true,
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return event
}

func submission(eventID uint) Submission {
	return Submission{
		EventID:        eventID,
		UserIDNo:       "2021-0001",
		Checkpoint:     models.CheckpointStartTime,
		Point:          geofence.Point{Lat: 0.0005, Lng: 0.0005},
		DeviceUserIDNo: "2021-0001",
		DeviceModel:    "Pixel 7",
	}
}

func TestRecordSuccess(t *testing.T) {
	db := testDB(t)
	event := seedEvent(t, db, campusLocation())
	r := NewRecorder(db)

	record, err := r.Record(submission(event.ID), false)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if record.ID == 0 {
		t.Error("record was not persisted")
	}
	if record.Checkpoint != models.CheckpointStartTime {
		t.Errorf("checkpoint = %s", record.Checkpoint)
	}

	var count int64
	db.Model(&models.EventAttendance{}).Count(&count)
	if count != 1 {
		t.Errorf("attendance rows = %d, want 1", count)
	}
}

func TestRecordDuplicate(t *testing.T) {
	db := testDB(t)
	event := seedEvent(t, db, campusLocation())
	r := NewRecorder(db)

	if _, err := r.Record(submission(event.ID), false); err != nil {
		t.Fatalf("first record: %v", err)
	}

	_, err := r.Record(submission(event.ID), false)
	if !errors.Is(err, ErrDuplicateAttendance) {
		t.Fatalf("err = %v, want ErrDuplicateAttendance", err)
	}

	// Другая контрольная точка того же студента проходит.
	sub := submission(event.ID)
	sub.Checkpoint = models.CheckpointEndTime
	if _, err := r.Record(sub, false); err != nil {
		t.Fatalf("different checkpoint: %v", err)
	}
}

func TestRecordEventNotFound(t *testing.T) {
	db := testDB(t)
	r := NewRecorder(db)

	_, err := r.Record(submission(12345), false)
	if !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("err = %v, want ErrEventNotFound", err)
	}
}

func TestRecordInvalidCheckpoint(t *testing.T) {
	db := testDB(t)
	event := seedEvent(t, db, campusLocation())
	r := NewRecorder(db)

	sub := submission(event.ID)
	sub.Checkpoint = "lunch_time"
	_, err := r.Record(sub, false)
	if !errors.Is(err, ErrInvalidCheckpoint) {
		t.Fatalf("err = %v, want ErrInvalidCheckpoint", err)
	}
}

func TestRecordCheckpointNotScheduled(t *testing.T) {
	db := testDB(t)
	event := seedEvent(t, db, campusLocation())
	r := NewRecorder(db)

	// single-событие: точки второй смены не запланированы.
	sub := submission(event.ID)
	sub.Checkpoint = models.CheckpointSecondStartTime
	_, err := r.Record(sub, false)
	if !errors.Is(err, ErrCheckpointNotScheduled) {
		t.Fatalf("err = %v, want ErrCheckpointNotScheduled", err)
	}
}

func TestRecordOutOfRange(t *testing.T) {
	db := testDB(t)
	event := seedEvent(t, db, campusLocation())
	r := NewRecorder(db)

	sub := submission(event.ID)
	// ~556м южнее нижнего ребра полигона.
	sub.Point = geofence.Point{Lat: -0.005, Lng: 0.0005}

	_, err := r.Record(sub, false)
	var outOfRange *OutOfRangeError
	if !errors.As(err, &outOfRange) {
		t.Fatalf("err = %v, want OutOfRangeError", err)
	}
	if outOfRange.DistanceMeters < 500 || outOfRange.DistanceMeters > 600 {
		t.Errorf("distance = %f, want ~556", outOfRange.DistanceMeters)
	}

	var count int64
	db.Model(&models.EventAttendance{}).Count(&count)
	if count != 0 {
		t.Error("denied submission must not be persisted")
	}
}

func TestRecordWithinToleranceAllows(t *testing.T) {
	db := testDB(t)
	event := seedEvent(t, db, campusLocation())
	r := NewRecorder(db)

	sub := submission(event.ID)
	// ~55м южнее ребра: вне полигона, но в пределах допуска.
	sub.Point = geofence.Point{Lat: -0.0005, Lng: 0.0005}

	if _, err := r.Record(sub, false); err != nil {
		t.Fatalf("Record within tolerance: %v", err)
	}
}

func TestRecordNoPolygonAllows(t *testing.T) {
	db := testDB(t)
	loc := campusLocation()
	loc.PolygonPoints = nil
	event := seedEvent(t, db, loc)
	r := NewRecorder(db)

	sub := submission(event.ID)
	sub.Point = geofence.Point{Lat: 45, Lng: 90}

	if _, err := r.Record(sub, false); err != nil {
		t.Fatalf("Record without polygon: %v", err)
	}
}

func TestRecordStrictMode(t *testing.T) {
	db := testDB(t)
	event := seedEvent(t, db, campusLocation())
	r := NewRecorder(db)

	// Оператор устройства не заведен.
	sub := submission(event.ID)
	sub.DeviceUserIDNo = "9999-0000"
	if _, err := r.Record(sub, true); !errors.Is(err, ErrDeviceNotRegistered) {
		t.Fatalf("err = %v, want ErrDeviceNotRegistered", err)
	}

	// Заведен, но не модератор.
	operator := models.User{UserIDNo: "2021-0050", Password: "hash", UserRole: models.RoleStudent}
	if err := db.Create(&operator).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	sub.DeviceUserIDNo = operator.UserIDNo
	if _, err := r.Record(sub, true); !errors.Is(err, ErrNotModerator) {
		t.Fatalf("err = %v, want ErrNotModerator", err)
	}

	// Удаленный модератор не считается.
	mod := models.UserModerator{UserID: operator.ID, IsRemoved: true}
	if err := db.Create(&mod).Error; err != nil {
		t.Fatalf("seed moderator: %v", err)
	}
	if _, err := r.Record(sub, true); !errors.Is(err, ErrNotModerator) {
		t.Fatalf("err = %v, want ErrNotModerator for removed moderator", err)
	}

	// Активный модератор проходит. Проверяется оператор устройства, а не
	// студент из отметки.
	if err := db.Model(&mod).Update("is_removed", false).Error; err != nil {
		t.Fatalf("restore moderator: %v", err)
	}
	if _, err := r.Record(sub, true); err != nil {
		t.Fatalf("Record strict mode with moderator: %v", err)
	}
}
