package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// MinSlotDurationMinutes and MaxSlotDurationMinutes bound the
	// generator's step. The upper bound prevents pathological
	// single-slot days.
	MinSlotDurationMinutes = 1
	MaxSlotDurationMinutes = 240
)

// parseTimeOfDay parses "HH:MM" (or "HH:MM:SS", seconds ignored) into
// minutes since midnight.
func parseTimeOfDay(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("parse time of day %q: want HH:MM", s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}

	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("parse time of day %q: out of range", s)
	}

	return h*60 + m, nil
}

// workWindow anchors a daily schedule's work hours to UTC midnight of
// its date and returns the absolute [start, end) window. All break and
// slot comparisons assume this UTC anchor; substituting a local-timezone
// interpretation would shift every containment and overlap check.
func workWindow(ds *DailySchedule) (start, end time.Time, err error) {
	startMin, err := parseTimeOfDay(ds.WorkStart)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endMin, err := parseTimeOfDay(ds.WorkEnd)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	y, m, d := ds.Date.UTC().Date()
	start = time.Date(y, m, d, startMin/60, startMin%60, 0, 0, time.UTC)
	end = time.Date(y, m, d, endMin/60, endMin%60, 0, 0, time.UTC)
	return start, end, nil
}

// intervalsOverlap is the half-open overlap test used for every break
// and slot comparison: [aStart,aEnd) and [bStart,bEnd) overlap iff
// aStart < bEnd && aEnd > bStart. Touching intervals do not overlap.
func intervalsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// overlapsAnyBreak reports whether [start, end) overlaps one of the breaks.
func overlapsAnyBreak(start, end time.Time, breaks []Break) bool {
	for _, b := range breaks {
		if intervalsOverlap(start, end, b.StartTime, b.EndTime) {
			return true
		}
	}
	return false
}

// partitionWindow walks [windowStart, windowEnd) in fixed duration steps
// and returns the candidate slots that fit entirely inside the window
// and do not overlap any break. A trailing remainder shorter than the
// step is silently dropped; a candidate touching a break is dropped
// whole, never emitted as blocked.
func partitionWindow(windowStart, windowEnd time.Time, step time.Duration, breaks []Break) []Slot {
	var slots []Slot

	for cursor := windowStart; cursor.Before(windowEnd); cursor = cursor.Add(step) {
		slotEnd := cursor.Add(step)
		if slotEnd.After(windowEnd) {
			break
		}

		if overlapsAnyBreak(cursor, slotEnd, breaks) {
			continue
		}

		slots = append(slots, Slot{
			StartTime: cursor,
			EndTime:   slotEnd,
		})
	}

	return slots
}
