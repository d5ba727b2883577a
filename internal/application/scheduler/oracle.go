package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/example/route-scheduler/internal/domain/geo"
	"go.uber.org/zap"
)

const (
	// RoadFactor converts straight-line miles into an estimate of road miles.
	RoadFactor = 1.25
	// AverageSpeedMPH is used to derive travel minutes from road miles.
	AverageSpeedMPH = 35.0
)

// Geocoder resolves a free-form address. It returns geo.ErrAddressNotFound
// when there is no candidate.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (geo.Location, error)
}

// Router is an optional API-backed distance source.
type Router interface {
	Route(ctx context.Context, from, to geo.Location) (geo.DistanceResult, error)
}

// Cache stores resolved addresses. Implementations may be bounded or not.
type Cache interface {
	Get(ctx context.Context, key string) (geo.Location, bool, error)
	Set(ctx context.Context, key string, loc geo.Location) error
}

// Oracle is the distance oracle: address resolution plus pairwise
// distance/duration. Cache and Router are optional.
type Oracle struct {
	Geocoder Geocoder
	Cache    Cache
	Router   Router
	Log      *zap.Logger
}

func NewOracle(g Geocoder, c Cache, r Router, log *zap.Logger) *Oracle {
	if log == nil {
		log = zap.NewNop()
	}
	return &Oracle{Geocoder: g, Cache: c, Router: r, Log: log}
}

func cacheKey(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}

func (o *Oracle) Resolve(ctx context.Context, address string) (geo.Location, error) {
	if strings.TrimSpace(address) == "" {
		return geo.Location{}, fmt.Errorf("%w: empty address", geo.ErrAddressNotFound)
	}
	key := cacheKey(address)
	if o.Cache != nil {
		loc, ok, err := o.Cache.Get(ctx, key)
		if err != nil {
			o.Log.Warn("geocode cache read failed", zap.String("address", address), zap.Error(err))
		} else if ok {
			return loc, nil
		}
	}

	loc, err := o.Geocoder.Geocode(ctx, address)
	if err != nil {
		if errors.Is(err, geo.ErrAddressNotFound) {
			return geo.Location{}, fmt.Errorf("%w: %q", geo.ErrAddressNotFound, address)
		}
		return geo.Location{}, fmt.Errorf("geocode %q: %w", address, err)
	}

	if o.Cache != nil {
		if err := o.Cache.Set(ctx, key, loc); err != nil {
			o.Log.Warn("geocode cache write failed", zap.String("address", address), zap.Error(err))
		}
	}
	return loc, nil
}

func (o *Oracle) Between(ctx context.Context, a, b geo.Location) (geo.DistanceResult, error) {
	if o.Router != nil {
		d, err := o.Router.Route(ctx, a, b)
		if err == nil {
			return d, nil
		}
		o.Log.Warn("router failed, using straight-line estimate", zap.Error(err))
	}
	return Estimate(a, b), nil
}

// Estimate derives road distance and travel time from the haversine
// separation. Larger separations never produce smaller results.
func Estimate(a, b geo.Location) geo.DistanceResult {
	miles := geo.RoundTenth(geo.StraightLineMiles(a, b) * RoadFactor)
	return geo.DistanceResult{
		DistanceMiles:   miles,
		DurationMinutes: int(math.Ceil(miles*60/AverageSpeedMPH - 1e-9)),
	}
}
