package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/junyours/CSDL/internal/geofence"
)

// Coordinates хранит точку устройства {lat,lng} в JSONB.
type Coordinates geofence.Point

func (c Coordinates) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *Coordinates) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	case nil:
		*c = Coordinates{}
		return nil
	default:
		return errors.New("unsupported type for Coordinates")
	}
}

// EventAttendance - одна отметка посещаемости. Запись неизменяема после
// создания. Уникальный индекс (event_id, user_id_no, checkpoint) - это
// единственная защита от дублей при конкурентных отправках; проверка
// чтением перед записью его не заменяет.
type EventAttendance struct {
	gorm.Model
	EventID    uint   `json:"event_id" gorm:"not null;uniqueIndex:idx_attendance_once"`
	Event      *Event `json:"event,omitempty" gorm:"foreignKey:EventID"`
	UserIDNo   string `json:"user_id_no" gorm:"not null;uniqueIndex:idx_attendance_once"`
	Checkpoint string `json:"checkpoint" gorm:"not null;uniqueIndex:idx_attendance_once"`

	AttendedAt          time.Time   `json:"attended_at"`
	LocationCoordinates Coordinates `json:"location_coordinates" gorm:"type:jsonb"`

	// Кто физически отправил отметку: номер пользователя устройства и
	// модель устройства. В strict-режиме по этим данным проверяется
	// модераторство оператора.
	DeviceUserIDNo string `json:"device_user_id_no"`
	DeviceModel    string `json:"device_model"`
}
