// Package geocode resolves addresses and road distances. Google talks to
// the Maps Geocoding and Distance Matrix APIs; Static serves a fixed
// address book for development.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/example/route-scheduler/internal/domain/geo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://maps.googleapis.com/maps/api"

type Google struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
	Log     *zap.Logger

	limiter *rate.Limiter
}

// NewGoogle returns a client that makes at most qps requests per second
// across Geocode and Route.
func NewGoogle(apiKey string, qps float64, timeout time.Duration, log *zap.Logger) *Google {
	if log == nil {
		log = zap.NewNop()
	}
	return &Google{
		APIKey:  apiKey,
		BaseURL: DefaultBaseURL,
		HTTP:    &http.Client{Timeout: timeout},
		Log:     log,
		limiter: rate.NewLimiter(rate.Limit(qps), 1),
	}
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (g *Google) Geocode(ctx context.Context, address string) (geo.Location, error) {
	q := url.Values{"address": {address}, "key": {g.APIKey}}
	var resp geocodeResponse
	if err := g.get(ctx, "/geocode/json", q, &resp); err != nil {
		return geo.Location{}, err
	}
	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return geo.Location{}, geo.ErrAddressNotFound
	default:
		return geo.Location{}, apiError("geocode", resp.Status, resp.ErrorMessage)
	}
	if len(resp.Results) == 0 {
		return geo.Location{}, geo.ErrAddressNotFound
	}
	r := resp.Results[0]
	return geo.Location{
		Latitude:         r.Geometry.Location.Lat,
		Longitude:        r.Geometry.Location.Lng,
		FormattedAddress: r.FormattedAddress,
	}, nil
}

type matrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Value float64 `json:"value"` // meters
			} `json:"distance"`
			Duration struct {
				Value float64 `json:"value"` // seconds
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

// Route asks the Distance Matrix API for the driving distance and time
// between two points.
func (g *Google) Route(ctx context.Context, from, to geo.Location) (geo.DistanceResult, error) {
	q := url.Values{
		"origins":      {latLng(from)},
		"destinations": {latLng(to)},
		"mode":         {"driving"},
		"units":        {"imperial"},
		"key":          {g.APIKey},
	}
	var resp matrixResponse
	if err := g.get(ctx, "/distancematrix/json", q, &resp); err != nil {
		return geo.DistanceResult{}, err
	}
	if resp.Status != "OK" {
		return geo.DistanceResult{}, apiError("distance matrix", resp.Status, resp.ErrorMessage)
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return geo.DistanceResult{}, fmt.Errorf("distance matrix: empty response")
	}
	el := resp.Rows[0].Elements[0]
	if el.Status != "OK" {
		return geo.DistanceResult{}, apiError("distance matrix element", el.Status, "")
	}
	return geo.DistanceResult{
		DistanceMiles:   geo.RoundTenth(geo.MetersToMiles(el.Distance.Value)),
		DurationMinutes: int(math.Ceil(el.Duration.Value / 60)),
	}, nil
}

func (g *Google) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	start := time.Now()
	resp, err := g.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("google %s: %w", path, err)
	}
	defer resp.Body.Close()
	g.Log.Debug("google maps request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("google %s: http %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("google %s: decode: %w", path, err)
	}
	return nil
}

func apiError(op, status, msg string) error {
	if msg != "" {
		return fmt.Errorf("%s: %s: %s", op, status, msg)
	}
	return fmt.Errorf("%s: %s", op, status)
}

func latLng(l geo.Location) string {
	return fmt.Sprintf("%.6f,%.6f", l.Latitude, l.Longitude)
}
