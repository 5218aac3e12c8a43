package models

import "gorm.io/gorm"

// Notification - объявление для участников события: приглашение,
// изменение или отмена. Адресация - по спискам курсов и уровней года,
// как и у самого события.
type Notification struct {
	gorm.Model
	CoursesID      IDList `json:"courses_id" gorm:"type:jsonb"`
	YearLevelsID   IDList `json:"year_levels_id" gorm:"type:jsonb"`
	NotifiableType string `json:"notifiable_type"`
	Data           string `json:"data" gorm:"type:text"`
}
