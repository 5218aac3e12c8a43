package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationUser - отметка прочтения уведомления конкретным
// пользователем. Одна строка на пару (notification_id, user_id).
type NotificationUser struct {
	gorm.Model
	NotificationID uint       `json:"notification_id" gorm:"not null;uniqueIndex:idx_notification_user"`
	UserID         uint       `json:"user_id" gorm:"not null;uniqueIndex:idx_notification_user"`
	IsRead         bool       `json:"is_read" gorm:"default:false"`
	ReadAt         *time.Time `json:"read_at"`
}
