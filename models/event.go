package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Типы посещаемости события: одна пара контрольных точек или две.
const (
	AttendanceTypeSingle = "single"
	AttendanceTypeDouble = "double"
)

// Имена шести контрольных точек. Контрольная точка "действительна" для
// события, только если соответствующее поле времени не NULL.
const (
	CheckpointStartTime       = "start_time"
	CheckpointEndTime         = "end_time"
	CheckpointFirstStartTime  = "first_start_time"
	CheckpointFirstEndTime    = "first_end_time"
	CheckpointSecondStartTime = "second_start_time"
	CheckpointSecondEndTime   = "second_end_time"
)

// CheckpointNames - полный список допустимых имен контрольных точек.
var CheckpointNames = []string{
	CheckpointStartTime,
	CheckpointEndTime,
	CheckpointFirstStartTime,
	CheckpointFirstEndTime,
	CheckpointSecondStartTime,
	CheckpointSecondEndTime,
}

// IsValidCheckpoint проверяет, что имя входит в список из шести точек.
func IsValidCheckpoint(name string) bool {
	for _, cp := range CheckpointNames {
		if cp == name {
			return true
		}
	}
	return false
}

// IDList хранит массив идентификаторов (курсы, уровни года) в JSONB.
type IDList []int64

func (l IDList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *IDList) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	case nil:
		*l = nil
		return nil
	default:
		return errors.New("unsupported type for IDList")
	}
}

// Contains сообщает, присутствует ли id в списке.
func (l IDList) Contains(id int64) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Event представляет событие кампуса с геозоной, контрольными точками и
// привязанной санкцией за пропуски.
type Event struct {
	gorm.Model
	SchoolYearID uint      `json:"school_year_id" gorm:"not null"`
	EventName    string    `json:"event_name" gorm:"not null"`
	LocationID   uint      `json:"location_id"`
	Location     *Location `json:"location,omitempty" gorm:"foreignKey:LocationID"`
	EventDate    time.Time `json:"event_date" gorm:"type:date;not null"`

	// single: start/end; double: first_*/second_*. NULL означает
	// "точка не требуется".
	AttendanceType  string  `json:"attendance_type" gorm:"not null"`
	StartTime       *string `json:"start_time"`
	EndTime         *string `json:"end_time"`
	FirstStartTime  *string `json:"first_start_time"`
	FirstEndTime    *string `json:"first_end_time"`
	SecondStartTime *string `json:"second_start_time"`
	SecondEndTime   *string `json:"second_end_time"`

	// Длительность окна отметки в минутах. Поле сохраняется, но логикой
	// геозоны не проверяется (известный пробел оригинала).
	AttendanceDuration int `json:"attendance_duration"`

	ParticipantCourseID    IDList `json:"participant_course_id" gorm:"type:jsonb"`
	ParticipantYearLevelID IDList `json:"participant_year_level_id" gorm:"type:jsonb"`

	SanctionID uint      `json:"sanction_id"`
	Sanction   *Sanction `json:"sanction,omitempty" gorm:"foreignKey:SanctionID"`

	IsCancelled bool `json:"is_cancelled" gorm:"default:false"`
	Status      bool `json:"status" gorm:"default:true"`

	Attendances []EventAttendance `json:"attendances,omitempty" gorm:"foreignKey:EventID"`
}

// CheckpointTime возвращает поле времени события по имени контрольной точки.
// nil означает, что точка для события не запланирована.
func (e *Event) CheckpointTime(name string) *string {
	switch name {
	case CheckpointStartTime:
		return e.StartTime
	case CheckpointEndTime:
		return e.EndTime
	case CheckpointFirstStartTime:
		return e.FirstStartTime
	case CheckpointFirstEndTime:
		return e.FirstEndTime
	case CheckpointSecondStartTime:
		return e.SecondStartTime
	case CheckpointSecondEndTime:
		return e.SecondEndTime
	}
	return nil
}

// RequiredCheckpoints возвращает точки, обязательные для события, в
// фиксированном порядке объявления. Для single учитываются только
// start/end, для double - четыре точки двух смен.
func (e *Event) RequiredCheckpoints() []string {
	var candidates []string
	if e.AttendanceType == AttendanceTypeSingle {
		candidates = []string{CheckpointStartTime, CheckpointEndTime}
	} else {
		candidates = []string{
			CheckpointFirstStartTime,
			CheckpointFirstEndTime,
			CheckpointSecondStartTime,
			CheckpointSecondEndTime,
		}
	}

	required := make([]string, 0, len(candidates))
	for _, cp := range candidates {
		if e.CheckpointTime(cp) != nil {
			required = append(required, cp)
		}
	}
	return required
}
