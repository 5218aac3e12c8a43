package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/junyours/CSDL/internal/geofence"
)

// PolygonPoints - это специальный тип для хранения вершин полигона в JSONB.
// Полигон замкнут неявно: последняя вершина соединяется с первой.
type PolygonPoints []geofence.Point

// Value преобразует список вершин в JSON для сохранения в БД.
func (p PolygonPoints) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan считывает JSON из БД и восстанавливает список вершин.
func (p *PolygonPoints) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	case nil:
		*p = nil
		return nil
	default:
		return errors.New("unsupported type for PolygonPoints")
	}
}

// Location представляет геозону события: адрес и полигон разрешенной зоны.
// Записи не удаляются физически, а деактивируются через Status.
type Location struct {
	gorm.Model
	LocationName  string        `json:"location_name" gorm:"not null"`
	Address       string        `json:"address"`
	PolygonPoints PolygonPoints `json:"polygon_points" gorm:"type:jsonb"`
	Status        bool          `json:"status" gorm:"default:true"`
}
