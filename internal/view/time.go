package view

import (
	"fmt"
	"time"
)

const week = 7 * 24 * time.Hour

var shortMonths = [...]string{
	"ene", "feb", "mar", "abr", "may", "jun",
	"jul", "ago", "sept", "oct", "nov", "dic",
}

// FormatRelativeTime says how long before now ts was, in the short form
// used on the feed. Anything a week or older is shown as a calendar date
// in now's location.
func FormatRelativeTime(ts, now time.Time) string {
	d := now.Sub(ts)

	switch {
	case d < time.Minute:
		return "Ahora"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	case d < week:
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	}

	return ShortDate(ts.In(now.Location()))
}

// ShortDate formats t as day and abbreviated Spanish month, "7 oct".
func ShortDate(t time.Time) string {
	return fmt.Sprintf("%d %s", t.Day(), shortMonths[t.Month()-1])
}
