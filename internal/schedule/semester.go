package schedule

import (
	"time"

	"github.com/amariwan/class-digest/internal/models"
)

// Semester tracks odd/even academic weeks. Week 1 is the week containing
// Start and is odd. Holiday weeks pause the count.
type Semester struct {
	Start        time.Time
	HolidayWeeks []time.Time
}

// Enabled reports whether a semester start is configured
func (s Semester) Enabled() bool {
	return !s.Start.IsZero()
}

// mondayOf returns midnight of the Monday starting date's week, in date's location
func mondayOf(date time.Time) time.Time {
	y, m, d := date.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	offset := (int(midnight.Weekday()) + 6) % 7
	return midnight.AddDate(0, 0, -offset)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IsHoliday reports whether date falls in a configured holiday week.
// Weeks before the semester start are never holidays.
func (s Semester) IsHoliday(date time.Time) bool {
	monday := mondayOf(date)
	if s.Enabled() && monday.Before(mondayOf(s.Start.In(date.Location()))) {
		return false
	}
	for _, hw := range s.HolidayWeeks {
		if sameDay(mondayOf(hw.In(date.Location())), monday) {
			return true
		}
	}
	return false
}

// Parity returns the academic week parity of date. Before the semester
// starts, or when no semester is configured, every week is WeekAll.
func (s Semester) Parity(date time.Time) models.WeekParity {
	if !s.Enabled() {
		return models.WeekAll
	}
	loc := date.Location()
	current := mondayOf(date)
	start := mondayOf(s.Start.In(loc))
	if current.Before(start) {
		return models.WeekAll
	}

	// Calendar days between Mondays can be 7n±1h across DST changes
	weeks := int(current.Sub(start).Hours()+12) / (24 * 7)

	seen := make(map[string]struct{})
	for _, hw := range s.HolidayWeeks {
		m := mondayOf(hw.In(loc))
		if m.Before(start) || !m.Before(current) {
			continue
		}
		key := m.Format(models.DateLayout)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		weeks--
	}

	if weeks%2 == 0 {
		return models.WeekOdd
	}
	return models.WeekEven
}

// FilterParity keeps classes that run in weeks of the given parity
func FilterParity(entries []models.ClassEntry, parity models.WeekParity) []models.ClassEntry {
	if parity == models.WeekAll {
		return entries
	}
	var out []models.ClassEntry
	for _, e := range entries {
		if e.WeekType == "" || e.WeekType == models.WeekAll || e.WeekType == parity {
			out = append(out, e)
		}
	}
	return out
}
