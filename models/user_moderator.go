package models

import "gorm.io/gorm"

// UserModerator отмечает пользователя как модератора посещаемости. В
// strict-режиме отметки принимаются только с устройств активных
// модераторов. Удаление мягкое - через IsRemoved, чтобы запись можно
// было восстановить.
type UserModerator struct {
	gorm.Model
	UserID    uint  `json:"user_id" gorm:"not null;index"`
	User      *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
	IsRemoved bool  `json:"is_removed" gorm:"default:false"`
}
