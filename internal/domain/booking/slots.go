package booking

import "sort"

// OpenSlots proposes start times on a day that already has bookings at
// existing (minutes from midnight), within [workStart, workEnd]:
// one slot minGap before the first booking, the midpoint of every gap at
// least 2*minGap wide, and one slot minGap after the last booking.
// Results are floored to whole hours and deduplicated.
func OpenSlots(existing []Clock, workStart, workEnd Clock, minGap int) []Clock {
	gap := Clock(minGap)
	if len(existing) == 0 {
		return []Clock{workStart.Hour()}
	}
	times := make([]Clock, len(existing))
	copy(times, existing)
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	var out []Clock
	add := func(c Clock) {
		c = c.Hour()
		for _, o := range out {
			if o == c {
				return
			}
		}
		out = append(out, c)
	}

	if before := times[0] - gap; before >= workStart {
		add(before)
	}
	for i := 0; i+1 < len(times); i++ {
		if times[i+1]-times[i] >= 2*gap {
			add(times[i] + (times[i+1]-times[i])/2)
		}
	}
	if after := times[len(times)-1] + gap; after < workEnd {
		add(after)
	}
	return out
}

// FormatSlots renders slots as HH:MM, or the NoAvailableSlots sentinel.
func FormatSlots(slots []Clock) []string {
	if len(slots) == 0 {
		return []string{NoAvailableSlots}
	}
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.String())
	}
	return out
}

// Conflicts reports the existing times within minGap minutes of t.
// Differences are absolute and do not wrap around midnight.
func Conflicts(t Clock, existing []Clock, minGap int) []Clock {
	var out []Clock
	for _, e := range existing {
		d := int(t - e)
		if d < 0 {
			d = -d
		}
		if d < minGap {
			out = append(out, e)
		}
	}
	return out
}

// ChoosePreferredSlot returns the first preferred time not already taken.
// Matching is exact to the minute; there is no fallback to other free time.
func ChoosePreferredSlot(preferred []Clock, taken []Clock) (Clock, bool) {
	occupied := make(map[Clock]struct{}, len(taken))
	for _, t := range taken {
		occupied[t] = struct{}{}
	}
	for _, p := range preferred {
		if _, ok := occupied[p]; !ok {
			return p, true
		}
	}
	return 0, false
}
