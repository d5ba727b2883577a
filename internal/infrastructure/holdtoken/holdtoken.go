// Package holdtoken signs auto-schedule suggestions so a client can confirm
// them later without the server keeping state.
package holdtoken

import (
	"fmt"
	"time"

	"github.com/example/route-scheduler/internal/domain/booking"
	"github.com/example/route-scheduler/internal/internaltypes"
	"github.com/gorilla/securecookie"
)

const tokenName = "routesched_hold"

// Hold is the suggestion a token vouches for.
type Hold struct {
	CustomerName string `json:"n"`
	Address      string `json:"a"`
	Date         string `json:"d"`
	Time         string `json:"t"`
	ServiceType  string `json:"s,omitempty"`
}

type Signer struct {
	sc  *securecookie.SecureCookie
	ttl time.Duration
}

func NewSigner(hashKey, blockKey []byte, ttl time.Duration) *Signer {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(ttl / time.Second))
	sc.SetSerializer(securecookie.JSONEncoder{})
	return &Signer{sc: sc, ttl: ttl}
}

func (s *Signer) TTL() time.Duration { return s.ttl }

// Issue signs a successful auto-schedule result.
func (s *Signer) Issue(res booking.SchedulingResult, serviceType string) (string, error) {
	if !res.Success || res.Time == nil {
		return "", fmt.Errorf("cannot hold an unsuccessful result")
	}
	return s.sc.Encode(tokenName, Hold{
		CustomerName: res.CustomerName,
		Address:      res.Address,
		Date:         booking.FormatDate(res.Date),
		Time:         res.Time.String(),
		ServiceType:  serviceType,
	})
}

// Open verifies a token and returns the held suggestion.
func (s *Signer) Open(token string) (Hold, error) {
	var h Hold
	if err := s.sc.Decode(tokenName, token, &h); err != nil {
		return Hold{}, fmt.Errorf("%w: %v", internaltypes.ErrInvalidHold, err)
	}
	return h, nil
}

// Request turns the hold back into a booking request.
func (h Hold) Request() (booking.Request, error) {
	date, err := booking.ParseDate(h.Date)
	if err != nil {
		return booking.Request{}, err
	}
	at, err := booking.ParseClock(h.Time)
	if err != nil {
		return booking.Request{}, err
	}
	return booking.Request{Address: h.Address, Date: date, Time: &at, ServiceType: h.ServiceType}, nil
}
