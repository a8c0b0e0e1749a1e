package availability

import (
	"sort"
	"time"

	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/calendar"
)

// Window is one availability span in minutes since local midnight, walked in
// Step minute increments.
type Window struct {
	Start int
	End   int
	Step  int
}

// ComputeSlots returns "HH:MM" start times on day at which a booking of length
// duration fits inside a window without touching an occupied offset.
//
// A candidate start c is rejected when c+i is occupied for any i in [0, duration)
// stepping by the window's granularity. Occupied offsets are reservation start
// minutes only. When day is the calendar day of now, starts at or before the
// current minute are dropped. The result is sorted and free of duplicates.
func ComputeSlots(windows []Window, occupied map[int]struct{}, duration int, day calendar.Day, now time.Time) []string {
	if duration <= 0 {
		return []string{}
	}

	today := calendar.DayOf(now) == day
	nowMinute := calendar.MinuteOfDay(now)

	var starts []int
	for _, w := range windows {
		if w.Step <= 0 || w.End <= w.Start {
			continue
		}
		for cursor := w.Start; cursor+duration <= w.End; cursor += w.Step {
			if today && cursor <= nowMinute {
				continue
			}
			if blocked(cursor, duration, w.Step, occupied) {
				continue
			}
			starts = append(starts, cursor)
		}
	}

	sort.Ints(starts)
	out := make([]string, 0, len(starts))
	for i, s := range starts {
		if i > 0 && s == starts[i-1] {
			continue
		}
		out = append(out, calendar.FormatClock(s))
	}
	return out
}

func blocked(cursor, duration, step int, occupied map[int]struct{}) bool {
	for i := 0; i < duration; i += step {
		if _, ok := occupied[cursor+i]; ok {
			return true
		}
	}
	return false
}
