package schedule

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/amariwan/class-digest/internal/models"
	"github.com/amariwan/class-digest/internal/util"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestLoader() *Loader {
	return NewLoader("", util.NewLogger("error"))
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "schedule.csv", ` Day , Time ,Course, Room ,Type,Week Type
Monday,09:00-10:00,Math,A101,Lecture,
monday, 10:00-12:00 , Physics ,B2,Lab,odd

Tue,13:00-14:30,Chemistry,,Lecture,even
`)

	entries, err := newTestLoader().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 classes, got %d", len(entries))
	}

	math := entries[0]
	if math.Day != time.Monday || math.Course != "Math" || math.Location != "A101" || math.Kind != "Lecture" {
		t.Errorf("unexpected first entry: %+v", math)
	}
	if math.Time.String() != "09:00-10:00" || math.WeekType != models.WeekAll {
		t.Errorf("unexpected first entry time/week: %+v", math)
	}

	physics := entries[1]
	if physics.Course != "Physics" || physics.Location != "B2" || physics.WeekType != models.WeekOdd {
		t.Errorf("cells should be trimmed: %+v", physics)
	}

	chem := entries[2]
	if chem.Day != time.Tuesday || chem.WeekType != models.WeekEven || chem.Location != "" {
		t.Errorf("unexpected third entry: %+v", chem)
	}
	if chem.Row != 5 {
		t.Errorf("chem.Row = %d, want 5 (blank line counted)", chem.Row)
	}
}

func TestLoadCSVStartEndColumns(t *testing.T) {
	path := writeFile(t, "schedule.csv", `day_of_week,start_time,end_time,course_name,location
Friday,08:15,09:45,Algebra,Hall 1
`)

	entries, err := newTestLoader().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 class, got %d", len(entries))
	}
	e := entries[0]
	if e.Day != time.Friday || e.Time.String() != "08:15-09:45" || e.Course != "Algebra" || e.Location != "Hall 1" {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestLoadHeaderOnly(t *testing.T) {
	path := writeFile(t, "schedule.csv", "Day,Time,Course\n")

	entries, err := newTestLoader().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no classes, got %d", len(entries))
	}
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Day", "Time", "Course", "Room"},
		{"Monday", "09:00-10:00", "Math", "A101"},
		{"Monday", "10:00-12:00", "Physics"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	entries, err := newTestLoader().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 classes, got %d", len(entries))
	}
	if entries[0].Course != "Math" || entries[1].Course != "Physics" || entries[1].Location != "" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantOp  string
		wantErr error
	}{
		{
			name:    "missing day column",
			file:    "schedule.csv",
			content: "Time,Course\n09:00-10:00,Math\n",
			wantOp:  "columns",
			wantErr: ErrMissingColumn,
		},
		{
			name:    "missing time columns",
			file:    "schedule.csv",
			content: "Day,Start,Course\nMonday,09:00,Math\n",
			wantOp:  "columns",
			wantErr: ErrMissingColumn,
		},
		{
			name:    "empty file",
			file:    "schedule.csv",
			content: "",
			wantOp:  "columns",
			wantErr: ErrMissingColumn,
		},
		{
			name:    "bad time range",
			file:    "schedule.csv",
			content: "Day,Time,Course\nMonday,12:00-10:00,Math\n",
			wantOp:  "parse",
			wantErr: ErrInvalidRow,
		},
		{
			name:    "empty course",
			file:    "schedule.csv",
			content: "Day,Time,Course\nMonday,09:00-10:00,\n",
			wantOp:  "parse",
			wantErr: ErrInvalidRow,
		},
		{
			name:    "unsupported format",
			file:    "schedule.ods",
			content: "whatever",
			wantOp:  "open",
			wantErr: ErrUnsupportedFormat,
		},
		{
			name:    "bad day",
			file:    "schedule.csv",
			content: "Day,Time,Course\nFunday,09:00-10:00,Math\n",
			wantOp:  "parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			_, err := newTestLoader().Load(path)
			if err == nil {
				t.Fatal("expected error")
			}

			var dse *DataSourceError
			if !errors.As(err, &dse) {
				t.Fatalf("expected DataSourceError, got %T: %v", err, err)
			}
			if dse.Op != tt.wantOp {
				t.Errorf("Op = %q, want %q (%v)", dse.Op, tt.wantOp, err)
			}
			if dse.Path != path {
				t.Errorf("Path = %q, want %q", dse.Path, path)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v in chain, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := newTestLoader().Load(filepath.Join(t.TempDir(), "nope.csv"))

	var dse *DataSourceError
	if !errors.As(err, &dse) || dse.Op != "open" {
		t.Fatalf("expected open DataSourceError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist in chain, got %v", err)
	}
}

func TestNormalizeHeader(t *testing.T) {
	tests := map[string]string{
		" Day ":       "day",
		"Week Type":   "weektype",
		"week_type":   "weektype",
		"Course Name": "course",
		"Start-Time":  "start",
		"Venue":       "room",
		"Notes":       "notes",
	}
	for in, want := range tests {
		if got := normalizeHeader(in); got != want {
			t.Errorf("normalizeHeader(%q) = %q, want %q", in, got, want)
		}
	}
}
