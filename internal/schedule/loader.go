package schedule

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/amariwan/class-digest/internal/models"
	"github.com/amariwan/class-digest/internal/util"
)

var (
	// ErrMissingColumn is returned when the header lacks a required column
	ErrMissingColumn = errors.New("missing required column")
	// ErrUnsupportedFormat is returned for file extensions other than csv/xlsx
	ErrUnsupportedFormat = errors.New("unsupported schedule format")
	// ErrInvalidRow is returned when a data row cannot be turned into a class
	ErrInvalidRow = errors.New("invalid schedule row")
)

// DataSourceError reports a schedule file that is missing, unreadable or malformed.
// It is fatal for the run.
type DataSourceError struct {
	Path string
	Op   string // "open", "read", "columns", "parse"
	Err  error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("schedule %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// scheduleRow is the decoded form of one spreadsheet row. Column names are
// normalized before decoding, see normalizeHeader.
type scheduleRow struct {
	Day      dayCell `csv:"day"`
	Time     string  `csv:"time"`
	Start    string  `csv:"start"`
	End      string  `csv:"end"`
	Course   string  `csv:"course"`
	Room     string  `csv:"room"`
	Location string  `csv:"location"`
	Type     string  `csv:"type"`
	WeekType string  `csv:"weektype"`
}

// Loader reads the weekly class table from CSV or XLSX files
type Loader struct {
	sheet  string
	logger util.Logger
}

// NewLoader creates a loader. sheet selects the XLSX worksheet; empty means the first one.
func NewLoader(sheet string, logger util.Logger) *Loader {
	return &Loader{sheet: sheet, logger: logger}
}

// Load reads every class in the file, in file order
func (l *Loader) Load(path string) ([]models.ClassEntry, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &DataSourceError{Path: path, Op: "open", Err: err}
	}

	var (
		raw [][]string
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		raw, err = readCSV(path)
	case ".xlsx", ".xlsm":
		raw, err = l.readXLSX(path)
	default:
		return nil, &DataSourceError{Path: path, Op: "open", Err: fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)}
	}
	if err != nil {
		return nil, &DataSourceError{Path: path, Op: "read", Err: err}
	}

	entries, err := decode(newTable(raw))
	if err != nil {
		var dse *DataSourceError
		if errors.As(err, &dse) {
			dse.Path = path
			return nil, dse
		}
		return nil, &DataSourceError{Path: path, Op: "parse", Err: err}
	}

	l.logger.Debug("Loaded schedule", "path", path, "classes", len(entries))
	return entries, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Spreadsheet exports often drop trailing empty cells
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	// encoding/csv skips empty lines; pad them back so row numbers match the file
	var raw [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return raw, nil
		}
		if err != nil {
			return nil, err
		}
		line, _ := r.FieldPos(0)
		for len(raw) < line-1 {
			raw = append(raw, nil)
		}
		raw = append(raw, rec)
	}
}

func (l *Loader) readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := l.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	return f.GetRows(sheet)
}

func decode(t *table) ([]models.ClassEntry, error) {
	if err := checkColumns(t); err != nil {
		return nil, err
	}

	var rows []scheduleRow
	if len(t.records) > 1 {
		if err := gocsv.UnmarshalCSV(t, &rows); err != nil {
			return nil, err
		}
	}

	entries := make([]models.ClassEntry, 0, len(rows))
	for i, row := range rows {
		entry, err := row.entry(t.line(i))
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func checkColumns(t *table) error {
	var missing []string
	for _, col := range []string{"day", "course"} {
		if !t.has(col) {
			missing = append(missing, col)
		}
	}
	if !t.has("time") && !(t.has("start") && t.has("end")) {
		missing = append(missing, "time (or start and end)")
	}
	if len(missing) > 0 {
		return &DataSourceError{Op: "columns", Err: fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))}
	}
	return nil
}

func (r scheduleRow) entry(line int) (models.ClassEntry, error) {
	fail := func(format string, args ...interface{}) (models.ClassEntry, error) {
		return models.ClassEntry{}, fmt.Errorf("%w at line %d: %s", ErrInvalidRow, line, fmt.Sprintf(format, args...))
	}

	if !r.Day.Valid() {
		return fail("day is empty")
	}
	if r.Course == "" {
		return fail("course is empty")
	}

	var (
		span models.TimeRange
		err  error
	)
	switch {
	case r.Time != "":
		span, err = models.ParseTimeRange(r.Time)
	case r.Start != "" && r.End != "":
		span, err = models.ParseTimeRange(r.Start + "-" + r.End)
	default:
		return fail("time is empty")
	}
	if err != nil {
		return fail("%v", err)
	}

	parity, err := models.ParseWeekParity(r.WeekType)
	if err != nil {
		return fail("%v", err)
	}

	location := r.Room
	if location == "" {
		location = r.Location
	}

	return models.ClassEntry{
		Day:      r.Day.Weekday(),
		Time:     span,
		Course:   r.Course,
		Location: location,
		Kind:     r.Type,
		WeekType: parity,
		Row:      line,
	}, nil
}

// dayCell is a weekday parsed from a spreadsheet cell, stored as day+1 so
// that the zero value means the cell was empty.
type dayCell int8

// Weekday returns the parsed day. Only meaningful when Valid reports true.
func (d dayCell) Weekday() time.Weekday { return time.Weekday(d - 1) }

// Valid reports whether the cell held a day
func (d dayCell) Valid() bool { return d > 0 }

// UnmarshalCSV accepts full English day names and three letter abbreviations in any case.
func (d *dayCell) UnmarshalCSV(csv string) error {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		*d = 0
		return nil
	}
	day, err := ParseWeekday(csv)
	if err != nil {
		return err
	}
	*d = dayCell(day + 1)
	return nil
}
