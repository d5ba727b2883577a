package geo

import (
	"math"
	"testing"
)

func TestHaversineKnownDistance(t *testing.T) {
	// Lowell, MA to Boston, MA is roughly 25 miles as the crow flies.
	lowell := Location{Latitude: 42.6334, Longitude: -71.3162}
	boston := Location{Latitude: 42.3601, Longitude: -71.0589}

	got := StraightLineMiles(lowell, boston)
	if got < 22 || got > 25 {
		t.Fatalf("unexpected lowell->boston miles: %.2f", got)
	}
	if back := StraightLineMiles(boston, lowell); math.Abs(back-got) > 1e-9 {
		t.Fatalf("haversine not symmetric: %.6f vs %.6f", got, back)
	}
}

func TestHaversineSamePoint(t *testing.T) {
	if d := Haversine(42.6, -71.3, 42.6, -71.3); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestRoundTenth(t *testing.T) {
	cases := map[float64]float64{
		3.44:  3.4,
		3.45:  3.5,
		15.0:  15.0,
		25.27: 25.3,
	}
	for in, want := range cases {
		if got := RoundTenth(in); got != want {
			t.Fatalf("RoundTenth(%v) = %v, want %v", in, got, want)
		}
	}
}
