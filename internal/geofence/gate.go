package geofence

// Result - решение геозоны по одной отметке посещаемости.
// DistanceMeters заполняется только при отказе и идет в сообщение
// пользователю ("you are N meters away ...").
type Result struct {
	Allowed        bool
	DistanceMeters float64
}

// Evaluate решает, принимается ли точка устройства для события с данным
// полигоном. Точка внутри полигона принимается сразу; снаружи - если до
// границы не дальше toleranceMeters. Событие без полигона геозоной не
// ограничено.
func Evaluate(p Point, polygon []Point, toleranceMeters float64) Result {
	if len(polygon) == 0 {
		return Result{Allowed: true}
	}

	if PointInPolygon(p, polygon) {
		return Result{Allowed: true}
	}

	dist := MinDistanceToPolygon(p, polygon)
	if dist <= toleranceMeters {
		return Result{Allowed: true}
	}

	return Result{Allowed: false, DistanceMeters: dist}
}
