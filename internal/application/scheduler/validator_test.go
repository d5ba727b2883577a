package scheduler

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/example/route-scheduler/internal/domain/booking"
	"github.com/example/route-scheduler/internal/domain/geo"
)

func TestValidateEmptyDayMakesAnchor(t *testing.T) {
	store, oracle := newFakeStore(), newFakeOracle()
	oracle.place("12 Elm St", 42.7, -71.1)
	oracle.set(base, "12 Elm St", 15.0, 26)

	v := testEngine(store, oracle).Validate(context.Background(), booking.Request{Address: "12 Elm St", Date: monday})
	if !v.Valid || v.Reason != booking.ReasonAccepted {
		t.Fatalf("expected accept, got %+v", v)
	}
	if !v.IsAnchor {
		t.Fatalf("first booking of the day must be the anchor")
	}
	if v.DistanceFromBase != 15.0 {
		t.Fatalf("distance from base = %v, want 15.0", v.DistanceFromBase)
	}
	if v.DistanceFromAnchor != nil {
		t.Fatalf("anchor has no distance from anchor, got %v", *v.DistanceFromAnchor)
	}
}

func TestValidateNearAnchorAccepted(t *testing.T) {
	store, oracle := newFakeStore(), newFakeOracle()
	anchor := store.add(monday, "1 Anchor Rd", 42.6, -71.2, "08:00")
	oracle.place("2 Oak St", 42.61, -71.21)
	oracle.set(base, "2 Oak St", 5.0, 9)
	oracle.set("1 Anchor Rd", "2 Oak St", 3.5, 8)

	v := testEngine(store, oracle).Validate(context.Background(), booking.Request{Address: "2 Oak St", Date: monday})
	if !v.Valid || v.IsAnchor {
		t.Fatalf("expected non-anchor accept, got %+v", v)
	}
	if v.DistanceFromAnchor == nil || *v.DistanceFromAnchor != 3.5 {
		t.Fatalf("distance from anchor = %v, want 3.5", v.DistanceFromAnchor)
	}
	if v.DurationFromAnchor == nil || *v.DurationFromAnchor != 8 {
		t.Fatalf("duration from anchor = %v, want 8", v.DurationFromAnchor)
	}
	if v.Anchor == nil || v.Anchor.ID != anchor.ID {
		t.Fatalf("anchor ref = %+v", v.Anchor)
	}
}

func TestValidateTooFarFromAnchorSuggestsAlternate(t *testing.T) {
	store, oracle := newFakeStore(), newFakeOracle()
	store.add(monday, "1 Anchor Rd", 42.6, -71.2, "08:00")
	oracle.place("9 Far Ave", 42.9, -70.9)
	oracle.set(base, "9 Far Ave", 30.0, 52)
	oracle.set("1 Anchor Rd", "9 Far Ave", 25.3, 44)

	v := testEngine(store, oracle).Validate(context.Background(), booking.Request{Address: "9 Far Ave", Date: monday})
	if v.Valid || v.Reason != booking.ReasonTooFarFromAnchor {
		t.Fatalf("expected too_far_from_anchor, got %+v", v)
	}
	if v.Alternate == nil {
		t.Fatalf("expected an alternate date")
	}
	if !v.Alternate.Date.Equal(tuesday) || v.Alternate.Reason != booking.AlternateEmptyDay {
		t.Fatalf("alternate = %+v, want empty tuesday", v.Alternate)
	}
}

func TestValidateDayFullRegardlessOfDistance(t *testing.T) {
	store, oracle := newFakeStore(), newFakeOracle()
	store.fill(monday, 3)
	oracle.place("2 Oak St", 42.61, -71.21)
	oracle.set(base, "2 Oak St", 5.0, 9)

	v := testEngine(store, oracle).Validate(context.Background(), booking.Request{Address: "2 Oak St", Date: monday})
	if v.Reason != booking.ReasonDayFull {
		t.Fatalf("expected day_full, got %+v", v)
	}
	if v.Alternate == nil || !v.Alternate.Date.Equal(tuesday) {
		t.Fatalf("alternate = %+v", v.Alternate)
	}
}

func TestValidateOutsideServiceAreaForEveryDate(t *testing.T) {
	store, oracle := newFakeStore(), newFakeOracle()
	oracle.place("Remote Rd", 44.0, -70.0)
	oracle.set(base, "Remote Rd", 105.7, 181)
	e := testEngine(store, oracle)

	for _, d := range []int{1, 2, 3, 8, 30} {
		date := sunday.AddDate(0, 0, d)
		v := e.Validate(context.Background(), booking.Request{Address: "Remote Rd", Date: date})
		if v.Reason != booking.ReasonOutsideServiceArea {
			t.Fatalf("%s: expected outside_service_area, got %+v", booking.FormatDate(date), v)
		}
		if v.Alternate != nil {
			t.Fatalf("outside service area must not offer an alternate date")
		}
		if v.DistanceFromBase != 105.7 {
			t.Fatalf("distance from base = %v", v.DistanceFromBase)
		}
	}
	if store.dateCalls != 0 || store.rangeCalls != 0 {
		t.Fatalf("store should not be read for out-of-area requests")
	}
}

func TestValidateAnchorProximityIsEitherLimit(t *testing.T) {
	cases := []struct {
		name  string
		miles float64
		mins  int
		valid bool
	}{
		{name: "within both", miles: 10, mins: 20, valid: true},
		{name: "on both limits", miles: 15, mins: 30, valid: true},
		{name: "close but slow", miles: 10, mins: 45, valid: false},
		{name: "fast but far", miles: 20, mins: 25, valid: false},
		{name: "over both", miles: 40, mins: 70, valid: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, oracle := newFakeStore(), newFakeOracle()
			store.add(monday, "1 Anchor Rd", 42.6, -71.2, "")
			oracle.place("Candidate", 42.7, -71.0)
			oracle.set(base, "Candidate", 20, 35)
			oracle.set("1 Anchor Rd", "Candidate", tc.miles, tc.mins)

			v := testEngine(store, oracle).Validate(context.Background(), booking.Request{Address: "Candidate", Date: monday})
			if v.Valid != tc.valid {
				t.Fatalf("valid = %v, want %v (%+v)", v.Valid, tc.valid, v)
			}
			if !tc.valid && v.Reason != booking.ReasonTooFarFromAnchor {
				t.Fatalf("reason = %s", v.Reason)
			}
		})
	}
}

func TestValidateCapacityBoundaryAndSingleAnchor(t *testing.T) {
	store, oracle := newFakeStore(), newFakeOracle()
	addrs := []string{"n0", "n1", "n2", "n3"}
	for i, a := range addrs {
		oracle.place(a, 42.6+float64(i)/100, -71.2)
		oracle.set(base, a, 5, 9)
		for _, b := range addrs[:i] {
			oracle.set(a, b, 2, 5)
		}
	}
	e := testEngine(store, oracle)

	for i, a := range addrs {
		v := e.Validate(context.Background(), booking.Request{Address: a, Date: monday})
		if i < 3 {
			if !v.Valid {
				t.Fatalf("request %d should be accepted: %+v", i+1, v)
			}
			if v.IsAnchor != (i == 0) {
				t.Fatalf("request %d anchor = %v", i+1, v.IsAnchor)
			}
			store.add(monday, a, v.Location.Latitude, v.Location.Longitude, "")
			continue
		}
		if v.Reason != booking.ReasonDayFull {
			t.Fatalf("request %d should be day_full, got %+v", i+1, v)
		}
	}

	anchors := 0
	for _, b := range store.byDate[monday] {
		if b.IsAnchor {
			anchors++
		}
	}
	if anchors != 1 {
		t.Fatalf("expected exactly one anchor, got %d", anchors)
	}
}

func TestValidateNonWorkingDay(t *testing.T) {
	store, oracle := newFakeStore(), newFakeOracle()
	nextSunday := sunday.AddDate(0, 0, 7)

	v := testEngine(store, oracle).Validate(context.Background(), booking.Request{Address: "anything", Date: nextSunday})
	if v.Reason != booking.ReasonNonWorkingDay {
		t.Fatalf("expected non_working_day, got %+v", v)
	}
	if v.NextWorkingDate == nil || !v.NextWorkingDate.Equal(nextSunday.AddDate(0, 0, 1)) {
		t.Fatalf("next working date = %v", v.NextWorkingDate)
	}
	if oracle.resolveCalls != 0 {
		t.Fatalf("later gates must not run once the first fails")
	}
}

func TestValidateUnknownAddress(t *testing.T) {
	v := testEngine(newFakeStore(), newFakeOracle()).Validate(context.Background(),
		booking.Request{Address: "nowhere", Date: monday})
	if v.Valid || v.Reason != booking.ReasonValidationError {
		t.Fatalf("expected validation_error, got %+v", v)
	}
	if !errors.Is(v.Err(), geo.ErrAddressNotFound) {
		t.Fatalf("err = %v", v.Err())
	}
}

func TestValidateStoreFailureIsValidationError(t *testing.T) {
	store, oracle := newFakeStore(), newFakeOracle()
	oracle.place("2 Oak St", 42.61, -71.21)
	oracle.set(base, "2 Oak St", 5.0, 9)
	boom := errors.New("connection refused")
	store.err = boom

	v := testEngine(store, oracle).Validate(context.Background(), booking.Request{Address: "2 Oak St", Date: monday})
	if v.Reason != booking.ReasonValidationError || !errors.Is(v.Err(), boom) {
		t.Fatalf("expected wrapped store error, got %+v / %v", v, v.Err())
	}
}

func TestValidateMissingAnchorAcceptsWithoutProximity(t *testing.T) {
	store, oracle := newFakeStore(), newFakeOracle()
	store.add(monday, "1 Anchor Rd", 42.6, -71.2, "")
	store.byDate[monday][0].IsAnchor = false
	oracle.place("9 Far Ave", 42.9, -70.9)
	oracle.set(base, "9 Far Ave", 30.0, 52)

	v := testEngine(store, oracle).Validate(context.Background(), booking.Request{Address: "9 Far Ave", Date: monday})
	if !v.Valid || v.IsAnchor {
		t.Fatalf("expected non-anchor accept, got %+v", v)
	}
	if v.DistanceFromAnchor != nil {
		t.Fatalf("no anchor distance should be computed")
	}
}

func TestValidateTimeConflict(t *testing.T) {
	store, oracle := newFakeStore(), newFakeOracle()
	store.add(monday, "1 Anchor Rd", 42.6, -71.2, "08:00")
	oracle.place("2 Oak St", 42.61, -71.21)
	oracle.set(base, "2 Oak St", 5.0, 9)
	oracle.set("1 Anchor Rd", "2 Oak St", 3.5, 8)
	e := testEngine(store, oracle)

	v := e.Validate(context.Background(), booking.Request{Address: "2 Oak St", Date: monday, Time: clockPtr("10:00")})
	if v.Reason != booking.ReasonTimeConflict {
		t.Fatalf("expected time_conflict, got %+v", v)
	}
	if !reflect.DeepEqual(v.SuggestedTimes, []string{"12:00"}) {
		t.Fatalf("suggested = %v", v.SuggestedTimes)
	}

	v = e.Validate(context.Background(), booking.Request{Address: "2 Oak St", Date: monday, Time: clockPtr("12:00")})
	if !v.Valid {
		t.Fatalf("12:00 is exactly one gap away and should be accepted: %+v", v)
	}
}

func TestValidateTimeConflictNoSlotsSentinel(t *testing.T) {
	store, oracle := newFakeStore(), newFakeOracle()
	store.add(monday, "1 Anchor Rd", 42.6, -71.2, "09:00")
	store.add(monday, "1 Anchor Rd", 42.6, -71.2, "14:00")
	oracle.place("2 Oak St", 42.61, -71.21)
	oracle.set(base, "2 Oak St", 5.0, 9)
	oracle.set("1 Anchor Rd", "2 Oak St", 3.5, 8)

	v := testEngine(store, oracle).Validate(context.Background(),
		booking.Request{Address: "2 Oak St", Date: monday, Time: clockPtr("11:00")})
	if v.Reason != booking.ReasonTimeConflict {
		t.Fatalf("expected time_conflict, got %+v", v)
	}
	if !reflect.DeepEqual(v.SuggestedTimes, []string{booking.NoAvailableSlots}) {
		t.Fatalf("suggested = %v", v.SuggestedTimes)
	}
}
