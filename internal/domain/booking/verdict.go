package booking

import (
	"time"

	"github.com/example/route-scheduler/internal/domain/geo"
)

type Reason string

const (
	ReasonAccepted           Reason = "accepted"
	ReasonNonWorkingDay      Reason = "non_working_day"
	ReasonValidationError    Reason = "validation_error"
	ReasonOutsideServiceArea Reason = "outside_service_area"
	ReasonDayFull            Reason = "day_full"
	ReasonTooFarFromAnchor   Reason = "too_far_from_anchor"
	ReasonTimeConflict       Reason = "time_conflict"
	ReasonNoSlotAvailable    Reason = "no_slot_available"
	ReasonAutoScheduleError  Reason = "auto_schedule_error"
)

// NoAvailableSlots is reported in place of an empty open-slot list.
const NoAvailableSlots = "No available slots"

type AlternateReason string

const (
	AlternateEmptyDay        AlternateReason = "empty_day"
	AlternateNearAnchor      AlternateReason = "near_anchor"
	AlternateHasAvailability AlternateReason = "has_availability"
)

type Alternate struct {
	Date    time.Time       `json:"date"`
	Reason  AlternateReason `json:"reason"`
	Message string          `json:"message"`
}

// AnchorRef identifies the anchor a request was measured against.
type AnchorRef struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// Verdict is the outcome of validating a Request. Policy rejections and
// resolution failures are both verdicts; Err carries the failure cause
// for the latter so callers can escalate it.
type Verdict struct {
	Valid   bool   `json:"valid"`
	Reason  Reason `json:"reason"`
	Message string `json:"message"`

	IsAnchor bool          `json:"isAnchor"`
	Location *geo.Location `json:"location,omitempty"`

	DistanceFromBase   float64    `json:"distanceFromBase"`
	DurationFromBase   int        `json:"durationFromBase"`
	DistanceFromAnchor *float64   `json:"distanceFromAnchor,omitempty"`
	DurationFromAnchor *int       `json:"durationFromAnchor,omitempty"`
	Anchor             *AnchorRef `json:"anchor,omitempty"`

	NextWorkingDate *time.Time `json:"nextWorkingDate,omitempty"`
	Alternate       *Alternate `json:"alternate,omitempty"`
	SuggestedTimes  []string   `json:"suggestedTimes,omitempty"`

	err error
}

func (v Verdict) Err() error { return v.err }

func (v Verdict) WithErr(err error) Verdict {
	v.err = err
	return v
}

// SchedulingResult is the auto-scheduler's answer: a full date and time, or
// a terminal failure.
type SchedulingResult struct {
	Success      bool   `json:"success"`
	Reason       Reason `json:"reason"`
	Message      string `json:"message"`
	CustomerName string `json:"customerName"`
	Address      string `json:"address"`

	Location *geo.Location `json:"location,omitempty"`
	Date     time.Time     `json:"date,omitzero"`
	Time     *Clock        `json:"time,omitempty"`
	IsAnchor bool          `json:"isAnchor"`

	DistanceFromBase   float64  `json:"distanceFromBase"`
	DurationFromBase   int      `json:"durationFromBase"`
	DistanceFromAnchor *float64 `json:"distanceFromAnchor,omitempty"`
	DurationFromAnchor *int     `json:"durationFromAnchor,omitempty"`

	err error
}

func (r SchedulingResult) Err() error { return r.err }

func (r SchedulingResult) WithErr(err error) SchedulingResult {
	r.err = err
	return r
}

// Request turns a successful result back into a booking request.
func (r SchedulingResult) Request(serviceType string) Request {
	return Request{
		Address:     r.Address,
		Date:        r.Date,
		Time:        r.Time,
		ServiceType: serviceType,
	}
}
