package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/route-scheduler/internal/domain/geo"
)

func newTestGoogle(t *testing.T, h http.HandlerFunc) *Google {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	g := NewGoogle("test-key", 1000, 2*time.Second, nil)
	g.BaseURL = srv.URL
	return g
}

func TestGoogleGeocode(t *testing.T) {
	g := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/geocode/json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" || r.URL.Query().Get("address") != "10 Main St, Lowell" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"10 Main St, Lowell, MA 01852, USA",
			"geometry":{"location":{"lat":42.6401,"lng":-71.3155}}}]}`))
	})

	loc, err := g.Geocode(context.Background(), "10 Main St, Lowell")
	if err != nil {
		t.Fatal(err)
	}
	if loc.Latitude != 42.6401 || loc.Longitude != -71.3155 || loc.FormattedAddress != "10 Main St, Lowell, MA 01852, USA" {
		t.Fatalf("loc = %+v", loc)
	}
}

func TestGoogleGeocodeStatuses(t *testing.T) {
	cases := []struct {
		name     string
		code     int
		body     string
		notFound bool
	}{
		{name: "zero results", code: 200, body: `{"status":"ZERO_RESULTS","results":[]}`, notFound: true},
		{name: "denied", code: 200, body: `{"status":"REQUEST_DENIED","error_message":"bad key"}`},
		{name: "http error", code: 502, body: `oops`},
		{name: "garbage", code: 200, body: `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := g.Geocode(context.Background(), "x")
			if err == nil {
				t.Fatal("expected an error")
			}
			if errors.Is(err, geo.ErrAddressNotFound) != tc.notFound {
				t.Fatalf("not found = %v, err = %v", !tc.notFound, err)
			}
		})
	}
}

func TestGoogleRoute(t *testing.T) {
	g := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/distancematrix/json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("origins"); got != "42.633400,-71.316200" {
			t.Errorf("origins = %s", got)
		}
		_, _ = w.Write([]byte(`{"status":"OK","rows":[{"elements":[
			{"status":"OK","distance":{"value":40877},"duration":{"value":2281}}]}]}`))
	})

	d, err := g.Route(context.Background(),
		geo.Location{Latitude: 42.6334, Longitude: -71.3162},
		geo.Location{Latitude: 42.3601, Longitude: -71.0589})
	if err != nil {
		t.Fatal(err)
	}
	// 40877 m = 25.4 mi; 2281 s = 38.02 min -> 39.
	if d.DistanceMiles != 25.4 || d.DurationMinutes != 39 {
		t.Fatalf("d = %+v", d)
	}
}

func TestGoogleRouteElementFailure(t *testing.T) {
	g := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"OK","rows":[{"elements":[{"status":"NOT_FOUND"}]}]}`))
	})
	if _, err := g.Route(context.Background(), geo.Location{}, geo.Location{}); err == nil {
		t.Fatal("expected an error")
	}
}

func TestGoogleHonorsContext(t *testing.T) {
	g := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"OK","results":[]}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Geocode(ctx, "x"); err == nil {
		t.Fatal("cancelled context should fail")
	}
}

func TestStatic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "addresses.json")
	body := `{"10 Main St, Lowell": {"lat": 42.64, "lng": -71.31},
		"Depot": {"lat": 42.63, "lng": -71.32, "formatted_address": "1 Depot Rd, Lowell, MA"}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := LoadAddressBook(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Fatalf("len = %d", s.Len())
	}

	loc, err := s.Geocode(context.Background(), "  10 main st,   LOWELL ")
	if err != nil || loc.Latitude != 42.64 || loc.FormattedAddress != "10 Main St, Lowell" {
		t.Fatalf("loc = %+v, %v", loc, err)
	}
	loc, _ = s.Geocode(context.Background(), "depot")
	if loc.FormattedAddress != "1 Depot Rd, Lowell, MA" {
		t.Fatalf("formatted = %q", loc.FormattedAddress)
	}
	loc, err = s.Geocode(context.Background(), "42.5, -71.1")
	if err != nil || loc.Latitude != 42.5 || loc.Longitude != -71.1 {
		t.Fatalf("coordinates = %+v, %v", loc, err)
	}
	for _, addr := range []string{"Nowhere", "95,10", "a,b"} {
		if _, err := s.Geocode(context.Background(), addr); !errors.Is(err, geo.ErrAddressNotFound) {
			t.Fatalf("%q: err = %v", addr, err)
		}
	}
}
