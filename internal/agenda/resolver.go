package agenda

import (
	"strings"
	"time"

	"github.com/amariwan/class-digest/internal/models"
	"github.com/amariwan/class-digest/internal/schedule"
	"github.com/amariwan/class-digest/internal/util"
)

// Resolver applies date based exceptions to one day of classes
type Resolver struct {
	exceptions *models.ExceptionSet
	semester   schedule.Semester
	logger     util.Logger
}

// NewResolver creates a resolver. A nil exception set matches no date.
func NewResolver(exceptions *models.ExceptionSet, semester schedule.Semester, logger util.Logger) *Resolver {
	return &Resolver{
		exceptions: exceptions,
		semester:   semester,
		logger:     logger,
	}
}

// Build selects the classes of date's weekday from the full weekly schedule and resolves them
func (r *Resolver) Build(week []models.ClassEntry, date time.Time) models.Agenda {
	return r.Resolve(schedule.ForDate(week, date), date)
}

// Resolve filters today's classes.
//
// A full day off empties the agenda without looking at partial rules. Partial
// cancellations drop every class whose time overlaps an excluded range, even
// by a minute, and every class whose course name contains a cancelled course.
func (r *Resolver) Resolve(today []models.ClassEntry, date time.Time) models.Agenda {
	out := models.Agenda{Date: date, Outcome: models.OutcomeRegular}

	if r.exceptions.IsDayOff(date) {
		r.logger.Info("Full day off", "date", date.Format(models.DateLayout))
		out.Outcome = models.OutcomeDayOff
		out.Dropped = len(today)
		return out
	}

	if r.semester.Enabled() {
		if r.semester.IsHoliday(date) {
			r.logger.Info("Holiday week, no classes", "date", date.Format(models.DateLayout))
			out.Outcome = models.OutcomeHoliday
			out.Dropped = len(today)
			return out
		}
		parity := r.semester.Parity(date)
		kept := schedule.FilterParity(today, parity)
		r.logger.Debug("Applied week parity", "parity", parity, "kept", len(kept), "total", len(today))
		out.Dropped += len(today) - len(kept)
		today = kept
	}

	rules := r.exceptions.PartialFor(date)
	if len(rules) == 0 {
		out.Entries = today
		return out
	}

	out.Outcome = models.OutcomePartial
	for _, rule := range rules {
		if rule.Reason != "" {
			out.Reasons = append(out.Reasons, rule.Reason)
		}
	}

	for _, e := range today {
		if rule, why := cancelledBy(e, rules); rule != nil {
			r.logger.Debug("Class cancelled", "course", e.Course, "time", e.Time.String(), "rule", why)
			out.Dropped++
			continue
		}
		out.Entries = append(out.Entries, e)
	}

	r.logger.Info("Applied partial cancellations", "date", date.Format(models.DateLayout),
		"rules", len(rules), "kept", len(out.Entries))
	return out
}

func cancelledBy(e models.ClassEntry, rules []models.PartialCancellation) (*models.PartialCancellation, string) {
	for i := range rules {
		for _, excluded := range rules[i].ExcludeHours {
			if e.Time.Overlaps(excluded) {
				return &rules[i], "hours " + excluded.String()
			}
		}
		course := strings.ToLower(e.Course)
		for _, c := range rules[i].CancelCourses {
			if strings.Contains(course, strings.ToLower(c)) {
				return &rules[i], "course " + c
			}
		}
	}
	return nil, ""
}
