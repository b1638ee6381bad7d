package consultation

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used on consultation records.
const DateLayout = "2006-01-02"

var slotLayouts = []string{"3:04 PM", "3:04PM", "15:04"}

// JoinWindow is how long before and after a slot's start the consultation
// room may be entered.
type JoinWindow struct {
	Before time.Duration
	After  time.Duration
}

// DefaultJoinWindow opens the room 30 minutes before the slot and keeps it
// open until 15 minutes after the start.
var DefaultJoinWindow = JoinWindow{Before: 30 * time.Minute, After: 15 * time.Minute}

// ParseDate parses a YYYY-MM-DD calendar date at midnight in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrMalformedTimeSlot, date)
	}
	return d, nil
}

// ToInstant combines a calendar date and a slot label such as "10:00 AM" into
// an absolute instant in loc.
func ToInstant(date, slot string, loc *time.Location) (time.Time, error) {
	day, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	label := strings.ToUpper(strings.TrimSpace(slot))
	for _, layout := range slotLayouts {
		t, err := time.Parse(layout, label)
		if err != nil {
			continue
		}
		return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
	}
	return time.Time{}, fmt.Errorf("%w: slot %q", ErrMalformedTimeSlot, slot)
}

// MinutesUntil returns the signed whole minutes from now to instant.
// Negative values mean the instant has passed.
func MinutesUntil(now, instant time.Time) int {
	return int(instant.Sub(now) / time.Minute)
}

// IsWithinJoinWindow reports whether now falls between before ahead of the
// instant and after past it, both ends inclusive.
func IsWithinJoinWindow(now, instant time.Time, before, after time.Duration) bool {
	d := instant.Sub(now)
	return d >= -after && d <= before
}

// Contains is IsWithinJoinWindow with the window's own bounds.
func (w JoinWindow) Contains(now, instant time.Time) bool {
	return IsWithinJoinWindow(now, instant, w.Before, w.After)
}

// HumanizeCountdown renders the time left until instant using the coarsest
// non-zero unit: "2 days away", "1 hour away", "5 minutes away" or "Now".
func HumanizeCountdown(now, instant time.Time) string {
	d := instant.Sub(now)
	if d < time.Minute {
		return "Now"
	}
	days := int(d / (24 * time.Hour))
	hours := int(d / time.Hour)
	minutes := int(d / time.Minute)
	switch {
	case days > 0:
		return plural(days, "day") + " away"
	case hours > 0:
		return plural(hours, "hour") + " away"
	default:
		return plural(minutes, "minute") + " away"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
