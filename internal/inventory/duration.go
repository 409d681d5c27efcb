package inventory

import (
	"fmt"
	"time"
)

// DurationText describes how long ago added is, in Swedish, counting whole
// calendar days in now's location. Future dates read as today.
func DurationText(added, now time.Time) string {
	if added.IsZero() {
		return "Idag"
	}
	loc := now.Location()
	a := added.In(loc)
	start := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := int(end.Sub(start).Hours() / 24)

	switch {
	case days <= 0:
		return "Idag"
	case days == 1:
		return "Igår"
	case days < 7:
		return fmt.Sprintf("%d dagar", days)
	case days < 30:
		return plural(days/7, "vecka", "veckor")
	case days < 365:
		return plural(days/30, "månad", "månader")
	default:
		return fmt.Sprintf("%d år", days/365)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}
