package models

import "gorm.io/gorm"

// UserStudentCouncil - член студенческого совета, уполномоченный
// регистрировать погашения санкций. Ссылка на эту запись идет в
// settlement_logged_by журнала погашений.
type UserStudentCouncil struct {
	gorm.Model
	UserID    uint   `json:"user_id" gorm:"not null;index"`
	User      *User  `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Position  string `json:"position"`
	IsRemoved bool   `json:"is_removed" gorm:"default:false"`
}
