package geo

import (
	"math"
	"testing"
)

func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		tol                    float64
	}{
		{"identical", 19.076, 72.8777, 19.076, 72.8777, 0, 1e-9},
		{"mumbai to pune", 19.076, 72.8777, 18.5204, 73.8567, 120, 5},
		{"one degree latitude", 0, 0, 1, 0, 111.19, 0.1},
		{"antipodal", 0, 0, 0, 180, math.Pi * earthRadiusKm, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > tt.tol {
				t.Fatalf("got=%v want=%v±%v", got, tt.want, tt.tol)
			}
		})
	}
}

func TestDistanceKmSymmetric(t *testing.T) {
	points := [][2]float64{{19.076, 72.8777}, {28.6139, 77.209}, {-33.8688, 151.2093}, {51.5074, -0.1278}}
	for _, a := range points {
		for _, b := range points {
			ab := DistanceKm(a[0], a[1], b[0], b[1])
			ba := DistanceKm(b[0], b[1], a[0], a[1])
			if math.Abs(ab-ba) > 1e-9 {
				t.Fatalf("asymmetric: %v vs %v", ab, ba)
			}
			if ab < 0 {
				t.Fatalf("negative distance %v", ab)
			}
		}
	}
}
