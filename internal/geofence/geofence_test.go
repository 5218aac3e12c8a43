package geofence

import (
	"math"
	"testing"
)

// Квадрат ~111м на стороне вокруг начала координат.
var square = []Point{
	{Lat: 0, Lng: 0},
	{Lat: 0, Lng: 0.001},
	{Lat: 0.001, Lng: 0.001},
	{Lat: 0.001, Lng: 0},
}

// Градус широты в метрах при R=6371000.
const metersPerDegree = EarthRadiusMeters * math.Pi / 180

func TestPointInPolygon(t *testing.T) {
	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"center", Point{Lat: 0.0005, Lng: 0.0005}, true},
		{"outside north", Point{Lat: 0.002, Lng: 0.0005}, false},
		{"outside negative", Point{Lat: -0.0005, Lng: 0.0005}, false},
		{"far away", Point{Lat: 15, Lng: 15}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PointInPolygon(tt.p, square); got != tt.want {
				t.Errorf("PointInPolygon(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestPointInPolygonDeterministicOnVertex(t *testing.T) {
	// Вершина и точка на ребре не должны приводить к панике или NaN;
	// конкретный ответ не нормируется, важна стабильность.
	for i := 0; i < 100; i++ {
		got := PointInPolygon(square[0], square)
		again := PointInPolygon(square[0], square)
		if got != again {
			t.Fatal("PointInPolygon is not deterministic on a vertex")
		}
	}
}

func TestHaversine(t *testing.T) {
	// Один градус широты вдоль меридиана.
	got := Haversine(0, 0, 1, 0)
	want := metersPerDegree
	if math.Abs(got-want) > 1 {
		t.Errorf("Haversine 1 degree lat = %f, want ~%f", got, want)
	}

	if d := Haversine(10, 20, 10, 20); d != 0 {
		t.Errorf("Haversine same point = %f, want 0", d)
	}
}

func TestDistanceToSegmentClampsToEndpoints(t *testing.T) {
	a := Point{Lat: 0, Lng: 0}
	b := Point{Lat: 0, Lng: 0.001}

	// Точка за пределами отрезка по оси должна мериться до ближайшего конца.
	p := Point{Lat: 0, Lng: -0.001}
	want := Haversine(p.Lat, p.Lng, a.Lat, a.Lng)
	if got := DistanceToSegment(p, a, b); math.Abs(got-want) > 0.001 {
		t.Errorf("DistanceToSegment clamped = %f, want %f", got, want)
	}

	// Перпендикуляр к середине отрезка.
	mid := Point{Lat: 0.0005, Lng: 0.0005}
	wantMid := Haversine(mid.Lat, mid.Lng, 0, 0.0005)
	if got := DistanceToSegment(mid, a, b); math.Abs(got-wantMid) > 0.001 {
		t.Errorf("DistanceToSegment perpendicular = %f, want %f", got, wantMid)
	}
}

func TestDistanceToSegmentDegenerate(t *testing.T) {
	a := Point{Lat: 0.001, Lng: 0.001}
	p := Point{Lat: 0, Lng: 0.001}

	want := Haversine(p.Lat, p.Lng, a.Lat, a.Lng)
	if got := DistanceToSegment(p, a, a); math.Abs(got-want) > 0.001 {
		t.Errorf("DistanceToSegment degenerate = %f, want %f", got, want)
	}
}

func TestMinDistanceToPolygonClosingEdge(t *testing.T) {
	// Точка к западу от полигона ближе всего к замыкающему ребру
	// (последняя вершина -> первая), которое идет по lng=0.
	p := Point{Lat: 0.0005, Lng: -0.0002}
	got := MinDistanceToPolygon(p, square)
	want := 0.0002 * metersPerDegree
	if math.Abs(got-want) > 1 {
		t.Errorf("MinDistanceToPolygon = %f, want ~%f", got, want)
	}
}

func TestEvaluateInsideAllows(t *testing.T) {
	res := Evaluate(Point{Lat: 0.0005, Lng: 0.0005}, square, DefaultToleranceMeters)
	if !res.Allowed {
		t.Fatalf("expected inside point to be allowed, got %+v", res)
	}
}

func TestEvaluateToleranceBoundary(t *testing.T) {
	// Точки строго южнее нижнего ребра: расстояние по меридиану.
	offset := func(meters float64) Point {
		return Point{Lat: -meters / metersPerDegree, Lng: 0.0005}
	}

	near := Evaluate(offset(69.9), square, DefaultToleranceMeters)
	if !near.Allowed {
		t.Errorf("69.9m away should be allowed, got distance %f", near.DistanceMeters)
	}

	far := Evaluate(offset(70.1), square, DefaultToleranceMeters)
	if far.Allowed {
		t.Error("70.1m away should be denied")
	}
	if math.Abs(far.DistanceMeters-70.1) > 0.5 {
		t.Errorf("denied distance = %f, want ~70.1", far.DistanceMeters)
	}
}

func TestEvaluateEmptyPolygonAllows(t *testing.T) {
	res := Evaluate(Point{Lat: 45, Lng: 90}, nil, DefaultToleranceMeters)
	if !res.Allowed {
		t.Fatal("empty polygon must allow any point")
	}
}
