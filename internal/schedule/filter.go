package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/amariwan/class-digest/internal/models"
)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday parses an English day name ("Monday") or its three letter abbreviation ("mon").
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if day, ok := weekdayNames[name]; ok {
		return day, nil
	}
	if len(name) == 3 {
		for full, day := range weekdayNames {
			if strings.HasPrefix(full, name) {
				return day, nil
			}
		}
	}
	return time.Sunday, fmt.Errorf("unknown day %q", s)
}

// Weekday returns the day of week of date in date's own location
func Weekday(date time.Time) time.Weekday {
	return date.Weekday()
}

// ForDate selects the classes held on date's weekday, ordered by start time.
// Classes starting at the same time keep their file order.
func ForDate(entries []models.ClassEntry, date time.Time) []models.ClassEntry {
	day := Weekday(date)
	var out []models.ClassEntry
	for _, e := range entries {
		if e.Day == day {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Start < out[j].Time.Start
	})
	return out
}
