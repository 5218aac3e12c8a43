// Package geofence содержит геометрию проверки местоположения: тест
// точки в полигоне и минимальное расстояние до границы полигона.
//
// Полигон задается списком вершин (lat, lng) и считается замкнутым
// неявно: последняя вершина соединяется с первой, дублировать первую
// точку в конце списка не нужно.
package geofence

import "math"

// EarthRadiusMeters - радиус Земли для формулы гаверсинусов.
const EarthRadiusMeters = 6371000.0

// DefaultToleranceMeters - допуск вне полигона, в пределах которого
// отметка посещаемости все еще принимается.
const DefaultToleranceMeters = 70.0

// Point - географическая координата.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PointInPolygon проверяет попадание точки в полигон методом трассировки
// луча (even-odd rule). Эпсилон в знаменателе защищает от деления на ноль
// на горизонтальных ребрах.
func PointInPolygon(p Point, polygon []Point) bool {
	x := p.Lng
	y := p.Lat
	n := len(polygon)
	inside := false

	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi := polygon[i].Lng
		yi := polygon[i].Lat
		xj := polygon[j].Lng
		yj := polygon[j].Lat

		if (yi > y) != (yj > y) &&
			x < xi+(xj-xi)*(y-yi)/(yj-yi+1e-9) {
			inside = !inside
		}
	}

	return inside
}

// Haversine возвращает расстояние по дуге большого круга в метрах.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := deg2rad(lat2 - lat1)
	dLon := deg2rad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(lat1))*math.Cos(deg2rad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// DistanceToSegment возвращает расстояние в метрах от точки p до отрезка ab.
// Проекция основания перпендикуляра считается в плоском приближении
// (lng/lat как декартовы координаты), параметр t зажимается в [0,1], после
// чего расстояние до спроецированной точки измеряется гаверсинусом. На
// кампусных дистанциях погрешность приближения несущественна.
func DistanceToSegment(p, a, b Point) float64 {
	abx := b.Lng - a.Lng
	aby := b.Lat - a.Lat
	apx := p.Lng - a.Lng
	apy := p.Lat - a.Lat

	proj := apx*abx + apy*aby
	len2 := abx*abx + aby*aby

	// Вырожденный отрезок: обе вершины совпадают.
	if len2 == 0 {
		return Haversine(p.Lat, p.Lng, a.Lat, a.Lng)
	}

	t := math.Max(0, math.Min(1, proj/len2))

	projX := a.Lng + t*abx
	projY := a.Lat + t*aby

	return Haversine(p.Lat, p.Lng, projY, projX)
}

// MinDistanceToPolygon возвращает минимум DistanceToSegment по всем ребрам
// полигона, включая замыкающее ребро последняя->первая вершина.
func MinDistanceToPolygon(p Point, polygon []Point) float64 {
	n := len(polygon)
	minDist := math.MaxFloat64

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		dist := DistanceToSegment(p, polygon[i], polygon[j])
		if dist < minDist {
			minDist = dist
		}
	}

	return minDist
}

func deg2rad(deg float64) float64 {
	return deg * math.Pi / 180
}
