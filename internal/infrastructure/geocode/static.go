package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/example/route-scheduler/internal/domain/geo"
)

// Static resolves addresses from a fixed book. Literal "lat,lng" strings
// resolve to themselves.
type Static struct {
	book map[string]geo.Location
}

type entry struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formatted_address"`
}

func NewStatic(book map[string]geo.Location) *Static {
	s := &Static{book: make(map[string]geo.Location, len(book))}
	for addr, loc := range book {
		if loc.FormattedAddress == "" {
			loc.FormattedAddress = addr
		}
		s.book[normalize(addr)] = loc
	}
	return s
}

// LoadAddressBook reads a JSON object of address -> {lat, lng[, formatted_address]}.
func LoadAddressBook(path string) (*Static, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("address book: %w", err)
	}
	var raw map[string]entry
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("address book %s: %w", path, err)
	}
	book := make(map[string]geo.Location, len(raw))
	for addr, e := range raw {
		book[addr] = geo.Location{Latitude: e.Lat, Longitude: e.Lng, FormattedAddress: e.FormattedAddress}
	}
	return NewStatic(book), nil
}

func (s *Static) Geocode(_ context.Context, address string) (geo.Location, error) {
	if loc, ok := s.book[normalize(address)]; ok {
		return loc, nil
	}
	if loc, ok := parseLatLng(address); ok {
		return loc, nil
	}
	return geo.Location{}, geo.ErrAddressNotFound
}

func (s *Static) Len() int { return len(s.book) }

func normalize(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}

func parseLatLng(s string) (geo.Location, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geo.Location{}, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return geo.Location{}, false
	}
	return geo.Location{Latitude: lat, Longitude: lng, FormattedAddress: strings.TrimSpace(s)}, true
}
