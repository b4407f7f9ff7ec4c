package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used in exception files and flags
const DateLayout = "2006-01-02"

// ClockTime is a wall clock time of day in minutes since midnight
type ClockTime int

// ParseClockTime parses "HH:MM" (24h). "24:00" is accepted as end of day.
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || len(h) == 0 || len(h) > 2 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || len(m) != 2 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if hour < 0 || minute < 0 || minute > 59 || hour > 24 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return ClockTime(hour*60 + minute), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// TimeRange is a half-open interval [Start, End) within one day
type TimeRange struct {
	Start ClockTime `json:"start"`
	End   ClockTime `json:"end"`
}

// ParseTimeRange parses "HH:MM-HH:MM". Start must be strictly before End.
func ParseTimeRange(s string) (TimeRange, error) {
	start, end, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return TimeRange{}, fmt.Errorf("invalid time range %q: want HH:MM-HH:MM", s)
	}
	from, err := ParseClockTime(start)
	if err != nil {
		return TimeRange{}, fmt.Errorf("time range %q: %w", s, err)
	}
	to, err := ParseClockTime(end)
	if err != nil {
		return TimeRange{}, fmt.Errorf("time range %q: %w", s, err)
	}
	if from >= to {
		return TimeRange{}, fmt.Errorf("time range %q: start must be before end", s)
	}
	return TimeRange{Start: from, End: to}, nil
}

// Overlaps reports whether the two half-open ranges share any instant.
// Ranges that only touch (10:00-11:00 and 11:00-12:00) do not overlap.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Start < o.End && o.Start < r.End
}

func (r TimeRange) String() string {
	return r.Start.String() + "-" + r.End.String()
}

// WeekParity selects the academic weeks a class runs in
type WeekParity string

const (
	WeekAll  WeekParity = "all"
	WeekOdd  WeekParity = "odd"
	WeekEven WeekParity = "even"
)

// ParseWeekParity maps a WeekType cell to a parity. Empty means all weeks.
func ParseWeekParity(s string) (WeekParity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "both", "every":
		return WeekAll, nil
	case "odd":
		return WeekOdd, nil
	case "even":
		return WeekEven, nil
	default:
		return "", fmt.Errorf("unknown week type %q", s)
	}
}

// ClassEntry is one row of the weekly schedule
type ClassEntry struct {
	Day      time.Weekday `json:"day"`
	Time     TimeRange    `json:"time"`
	Course   string       `json:"course"`
	Location string       `json:"location,omitempty"`
	Kind     string       `json:"kind,omitempty"`
	WeekType WeekParity   `json:"week_type,omitempty"`
	Row      int          `json:"-"` // 1-based data row in the source file
}

// PartialCancellation removes hour ranges and named courses from one date
type PartialCancellation struct {
	Date          time.Time   `json:"date"`
	ExcludeHours  []TimeRange `json:"exclude_hours"`
	CancelCourses []string    `json:"cancel_courses,omitempty"`
	Reason        string      `json:"reason,omitempty"`
}

// ExceptionSet holds the date based exceptions for a schedule
type ExceptionSet struct {
	FullDaysOff          map[string]struct{}   `json:"-"`
	PartialCancellations []PartialCancellation `json:"partial_cancellations"`
}

// IsDayOff reports whether date is listed as a full day off
func (e *ExceptionSet) IsDayOff(date time.Time) bool {
	if e == nil {
		return false
	}
	_, ok := e.FullDaysOff[date.Format(DateLayout)]
	return ok
}

// PartialFor returns every partial cancellation declared for date, in file order
func (e *ExceptionSet) PartialFor(date time.Time) []PartialCancellation {
	if e == nil {
		return nil
	}
	key := date.Format(DateLayout)
	var out []PartialCancellation
	for _, p := range e.PartialCancellations {
		if p.Date.Format(DateLayout) == key {
			out = append(out, p)
		}
	}
	return out
}

// Outcome describes how an agenda was resolved
type Outcome string

const (
	OutcomeRegular Outcome = "regular"
	OutcomeDayOff  Outcome = "day_off"
	OutcomeHoliday Outcome = "holiday"
	OutcomePartial Outcome = "partial"
)

// Agenda is the final list of classes for one day
type Agenda struct {
	Date    time.Time    `json:"date"`
	Entries []ClassEntry `json:"entries"`
	Outcome Outcome      `json:"outcome"`
	Reasons []string     `json:"reasons,omitempty"`
	Dropped int          `json:"dropped"`
}

// Empty reports whether there is nothing to attend
func (a *Agenda) Empty() bool {
	return len(a.Entries) == 0
}
