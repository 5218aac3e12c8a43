// Package attendance реализует конвейер приема отметки посещаемости:
// событие -> контрольная точка -> дубликат -> геозона -> strict-режим ->
// запись. Ошибки каждого шага типизированы, чтобы обработчик HTTP мог
// поставить правильный статус и текст.
package attendance

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/junyours/CSDL/internal/geofence"
	"github.com/junyours/CSDL/models"
)

var (
	// ErrEventNotFound - событие с таким id не существует.
	ErrEventNotFound = errors.New("event not found")

	// ErrInvalidCheckpoint - имя вне списка шести контрольных точек.
	ErrInvalidCheckpoint = errors.New("invalid checkpoint. Must be one of the event time fields")

	// ErrCheckpointNotScheduled - точка для события не запланирована
	// (соответствующее поле времени NULL).
	ErrCheckpointNotScheduled = errors.New("checkpoint is not scheduled for this event")

	// ErrDuplicateAttendance - по (event, user, checkpoint) запись уже есть.
	ErrDuplicateAttendance = errors.New("you have already attended this checkpoint for this event")

	// ErrDeviceNotRegistered - устройство отправителя не привязано к
	// зарегистрированному пользователю (strict-режим).
	ErrDeviceNotRegistered = errors.New("device user ID not registered")

	// ErrNotModerator - пользователь устройства не активный модератор
	// (strict-режим).
	ErrNotModerator = errors.New("user is not authorized as a moderator")
)

// OutOfRangeError - отказ геозоны с вычисленным расстоянием до границы
// полигона, идет в сообщение пользователю.
type OutOfRangeError struct {
	DistanceMeters float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("can't record attendance right now, you are %.0f meters away from event location", e.DistanceMeters)
}

// Submission - проверенные обработчиком поля одной отметки.
type Submission struct {
	EventID        uint
	UserIDNo       string
	Checkpoint     string
	Point          geofence.Point
	DeviceUserIDNo string
	DeviceModel    string
}

// Recorder записывает отметки посещаемости. Без состояния, кроме БД:
// strict-режим передается параметром на каждый вызов.
type Recorder struct {
	DB *gorm.DB
}

func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{DB: db}
}

// Record проводит отправку через весь конвейер и сохраняет отметку.
// При любой ошибке в БД ничего не пишется. Повтор той же отправки после
// успеха отбивается уникальным индексом как ErrDuplicateAttendance.
func (r *Recorder) Record(sub Submission, strictMode bool) (*models.EventAttendance, error) {
	if !models.IsValidCheckpoint(sub.Checkpoint) {
		return nil, ErrInvalidCheckpoint
	}

	var event models.Event
	if err := r.DB.Preload("Location").First(&event, sub.EventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("load event: %w", err)
	}

	if event.CheckpointTime(sub.Checkpoint) == nil {
		return nil, ErrCheckpointNotScheduled
	}

	// Ранняя проверка дубликата, чтобы не гонять геозону зря. Настоящая
	// гарантия - уникальный индекс при вставке ниже.
	var existing int64
	if err := r.DB.Model(&models.EventAttendance{}).
		Where("event_id = ? AND user_id_no = ? AND checkpoint = ?", sub.EventID, sub.UserIDNo, sub.Checkpoint).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if existing > 0 {
		return nil, ErrDuplicateAttendance
	}

	if event.Location != nil && len(event.Location.PolygonPoints) > 0 {
		res := geofence.Evaluate(sub.Point, event.Location.PolygonPoints, geofence.DefaultToleranceMeters)
		if !res.Allowed {
			return nil, &OutOfRangeError{DistanceMeters: res.DistanceMeters}
		}
	}

	if strictMode {
		if err := r.checkModerator(sub.DeviceUserIDNo); err != nil {
			return nil, err
		}
	}

	record := models.EventAttendance{
		EventID:             sub.EventID,
		UserIDNo:            sub.UserIDNo,
		Checkpoint:          sub.Checkpoint,
		AttendedAt:          time.Now(),
		LocationCoordinates: models.Coordinates(sub.Point),
		DeviceUserIDNo:      sub.DeviceUserIDNo,
		DeviceModel:         sub.DeviceModel,
	}

	if err := r.DB.Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateAttendance
		}
		return nil, fmt.Errorf("create attendance: %w", err)
	}

	return &record, nil
}

// checkModerator проверяет оператора устройства, а не студента, за
// которого записывается отметка.
func (r *Recorder) checkModerator(deviceUserIDNo string) error {
	var user models.User
	if err := r.DB.Where("user_id_no = ?", deviceUserIDNo).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDeviceNotRegistered
		}
		return fmt.Errorf("load device user: %w", err)
	}

	var count int64
	if err := r.DB.Model(&models.UserModerator{}).
		Where("user_id = ? AND is_removed = ?", user.ID, false).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check moderator: %w", err)
	}
	if count == 0 {
		return ErrNotModerator
	}
	return nil
}
