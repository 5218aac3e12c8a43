package models

import "gorm.io/gorm"

// EventAttendanceModeConfig - единственная строка конфигурации режима
// приема отметок. При включенном strict-режиме отметку может отправить
// только устройство активного модератора. Значение читается один раз на
// запрос и передается в конвейер записи явно, а не через глобальное
// изменяемое состояние.
type EventAttendanceModeConfig struct {
	gorm.Model
	IsStrictMode bool `json:"is_strict_mode" gorm:"default:false"`
}
