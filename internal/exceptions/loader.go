package exceptions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amariwan/class-digest/internal/models"
	"github.com/amariwan/class-digest/internal/util"
)

var (
	// ErrBadDate is returned for dates not in YYYY-MM-DD form
	ErrBadDate = errors.New("invalid date")
	// ErrBadRange is returned for hour ranges not in HH:MM-HH:MM form
	ErrBadRange = errors.New("invalid hour range")
	// ErrTrailingData is returned when a file holds more than one document
	ErrTrailingData = errors.New("unexpected content after the first document")
)

// ExceptionDataError reports a malformed exceptions file. The run must stop:
// skipping a bad record could announce a cancelled class.
type ExceptionDataError struct {
	Path   string
	Record string // e.g. "full_days_off[2]"; empty for file level errors
	Err    error
}

func (e *ExceptionDataError) Error() string {
	if e.Record == "" {
		return fmt.Sprintf("exceptions %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("exceptions %s: %s: %v", e.Path, e.Record, e.Err)
}

func (e *ExceptionDataError) Unwrap() error { return e.Err }

// File is the on-disk layout of an exceptions file
type File struct {
	FullDaysOff          []string        `json:"full_days_off" yaml:"full_days_off"`
	PartialCancellations []PartialRecord `json:"partial_cancellations" yaml:"partial_cancellations"`
}

// PartialRecord is one partial cancellation as written in the file.
// cancel_hours and note are accepted as older spellings of exclude_hours and reason.
type PartialRecord struct {
	Date          string   `json:"date" yaml:"date"`
	ExcludeHours  []string `json:"exclude_hours" yaml:"exclude_hours"`
	CancelHours   []string `json:"cancel_hours,omitempty" yaml:"cancel_hours,omitempty"`
	CancelCourses []string `json:"cancel_courses,omitempty" yaml:"cancel_courses,omitempty"`
	Reason        string   `json:"reason" yaml:"reason"`
	Note          string   `json:"note,omitempty" yaml:"note,omitempty"`
}

// Loader reads exception files. Dates are interpreted in loc.
type Loader struct {
	loc    *time.Location
	logger util.Logger
}

// NewLoader creates an exceptions loader
func NewLoader(loc *time.Location, logger util.Logger) *Loader {
	if loc == nil {
		loc = time.Local
	}
	return &Loader{loc: loc, logger: logger}
}

// Load reads and validates the exceptions file. An empty path or a missing
// file yields an empty set.
func (l *Loader) Load(path string) (*models.ExceptionSet, error) {
	if path == "" {
		return Empty(), nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		l.logger.Info("No exceptions file, using regular schedule", "path", path)
		return Empty(), nil
	}
	if err != nil {
		return nil, &ExceptionDataError{Path: path, Err: err}
	}

	file, err := decodeFile(path, data)
	if err != nil {
		return nil, &ExceptionDataError{Path: path, Err: err}
	}

	set, err := l.build(file)
	if err != nil {
		var ede *ExceptionDataError
		if errors.As(err, &ede) {
			ede.Path = path
		}
		return nil, err
	}

	l.logger.Debug("Loaded exceptions", "path", path,
		"full_days_off", len(set.FullDaysOff),
		"partial_cancellations", len(set.PartialCancellations))
	return set, nil
}

// Empty returns an exception set that matches no date
func Empty() *models.ExceptionSet {
	return &models.ExceptionSet{FullDaysOff: map[string]struct{}{}}
}

func decodeFile(path string, data []byte) (*File, error) {
	var file File
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &file, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("failed to parse exceptions YAML: %w", err)
		}
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			return &file, decodeStrictYAML(data, &file.PartialCancellations)
		}
		return &file, decodeStrictYAML(data, &file)
	default:
		// A bare array is the per-date rule list of older files
		if trimmed[0] == '[' {
			return &file, decodeStrictJSON(data, &file.PartialCancellations)
		}
		return &file, decodeStrictJSON(data, &file)
	}
}

func decodeStrictJSON(data []byte, out interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to parse exceptions JSON: %w", err)
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		return ErrTrailingData
	}
	return nil
}

func decodeStrictYAML(data []byte, out interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to parse exceptions YAML: %w", err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); err != io.EOF {
		return ErrTrailingData
	}
	return nil
}

func (l *Loader) build(file *File) (*models.ExceptionSet, error) {
	set := Empty()

	for i, raw := range file.FullDaysOff {
		day, err := l.parseDate(raw)
		if err != nil {
			return nil, &ExceptionDataError{Record: fmt.Sprintf("full_days_off[%d]", i), Err: err}
		}
		set.FullDaysOff[day.Format(models.DateLayout)] = struct{}{}
	}

	for i, rec := range file.PartialCancellations {
		record := fmt.Sprintf("partial_cancellations[%d]", i)
		p, err := l.partial(rec)
		if err != nil {
			return nil, &ExceptionDataError{Record: record, Err: err}
		}
		set.PartialCancellations = append(set.PartialCancellations, p)
	}

	return set, nil
}

func (l *Loader) parseDate(raw string) (time.Time, error) {
	day, err := time.ParseInLocation(models.DateLayout, strings.TrimSpace(raw), l.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: want YYYY-MM-DD", ErrBadDate, raw)
	}
	return day, nil
}

func (l *Loader) partial(rec PartialRecord) (models.PartialCancellation, error) {
	if strings.TrimSpace(rec.Date) == "" {
		return models.PartialCancellation{}, fmt.Errorf("%w: date is required", ErrBadDate)
	}
	day, err := l.parseDate(rec.Date)
	if err != nil {
		return models.PartialCancellation{}, err
	}

	p := models.PartialCancellation{Date: day, Reason: rec.Reason}
	if p.Reason == "" {
		p.Reason = rec.Note
	}

	for _, raw := range append(append([]string{}, rec.ExcludeHours...), rec.CancelHours...) {
		r, err := models.ParseTimeRange(raw)
		if err != nil {
			return models.PartialCancellation{}, fmt.Errorf("%w: %v", ErrBadRange, err)
		}
		p.ExcludeHours = append(p.ExcludeHours, r)
	}

	for _, course := range rec.CancelCourses {
		if course = strings.TrimSpace(course); course != "" {
			p.CancelCourses = append(p.CancelCourses, course)
		}
	}

	return p, nil
}
