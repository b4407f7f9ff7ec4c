package exceptions

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

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
	return NewLoader(time.UTC, util.NewLogger("error"))
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "exceptions.json", `{
  "full_days_off": ["2024-12-25", "2024-12-26"],
  "partial_cancellations": [
    {"date": "2024-11-04", "exclude_hours": ["10:00-12:00", "14:00-15:00"], "reason": "Faculty meeting"},
    {"date": "2024-11-05", "exclude_hours": [], "cancel_courses": [" Chemistry ", ""], "reason": "Lab closed"}
  ]
}`)

	set, err := newTestLoader().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !set.IsDayOff(time.Date(2024, 12, 25, 9, 0, 0, 0, time.UTC)) {
		t.Error("expected 2024-12-25 to be a day off")
	}
	if len(set.FullDaysOff) != 2 {
		t.Errorf("expected 2 days off, got %d", len(set.FullDaysOff))
	}
	if len(set.PartialCancellations) != 2 {
		t.Fatalf("expected 2 partial cancellations, got %d", len(set.PartialCancellations))
	}

	first := set.PartialCancellations[0]
	if first.Reason != "Faculty meeting" || len(first.ExcludeHours) != 2 || first.ExcludeHours[0].String() != "10:00-12:00" {
		t.Errorf("unexpected first record: %+v", first)
	}

	second := set.PartialCancellations[1]
	if len(second.CancelCourses) != 1 || second.CancelCourses[0] != "Chemistry" {
		t.Errorf("cancel_courses should be trimmed and blanks dropped: %+v", second.CancelCourses)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "exceptions.yaml", `full_days_off:
  - 2024-12-25
partial_cancellations:
  - date: "2024-11-04"
    exclude_hours: ["10:00-12:00"]
    reason: Faculty meeting
`)

	set, err := newTestLoader().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !set.IsDayOff(time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)) {
		t.Error("expected 2024-12-25 to be a day off")
	}
	if len(set.PartialFor(time.Date(2024, 11, 4, 0, 0, 0, 0, time.UTC))) != 1 {
		t.Error("expected a partial cancellation on 2024-11-04")
	}
}

func TestLoadLegacyArray(t *testing.T) {
	path := writeFile(t, "exceptions.json", `[
  {"date": "2026-03-02", "cancel_hours": ["08:00-10:00"], "cancel_courses": ["Physics"], "note": "Professor away"}
]`)

	set, err := newTestLoader().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(set.PartialCancellations) != 1 {
		t.Fatalf("expected 1 record, got %d", len(set.PartialCancellations))
	}
	p := set.PartialCancellations[0]
	if p.Reason != "Professor away" || len(p.ExcludeHours) != 1 || p.CancelCourses[0] != "Physics" {
		t.Errorf("legacy record not mapped: %+v", p)
	}
}

func TestLoadMissingOrEmpty(t *testing.T) {
	loader := newTestLoader()

	set, err := loader.Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if len(set.FullDaysOff) != 0 || len(set.PartialCancellations) != 0 {
		t.Error("missing file should give an empty set")
	}

	if _, err := loader.Load(""); err != nil {
		t.Errorf("empty path should not fail: %v", err)
	}

	if _, err := loader.Load(writeFile(t, "exceptions.json", "  \n")); err != nil {
		t.Errorf("blank file should not fail: %v", err)
	}
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name       string
		file       string
		content    string
		wantRecord string
		wantErr    error
	}{
		{"invalid json", "exceptions.json", `{"full_days_off": [`, "", nil},
		{"unknown field", "exceptions.json", `{"full_day_off": ["2024-12-25"]}`, "", nil},
		{"bad full day", "exceptions.json", `{"full_days_off": ["2024-12-25", "25/12/2024"]}`, "full_days_off[1]", ErrBadDate},
		{"bad partial date", "exceptions.json", `{"partial_cancellations": [{"date": "2024-13-01", "exclude_hours": ["10:00-11:00"]}]}`, "partial_cancellations[0]", ErrBadDate},
		{"missing partial date", "exceptions.json", `{"partial_cancellations": [{"exclude_hours": ["10:00-11:00"]}]}`, "partial_cancellations[0]", ErrBadDate},
		{"bad range", "exceptions.json", `{"partial_cancellations": [{"date": "2024-11-04", "exclude_hours": ["10:00"]}]}`, "partial_cancellations[0]", ErrBadRange},
		{"reversed range", "exceptions.json", `{"partial_cancellations": [{"date": "2024-11-04", "exclude_hours": ["12:00-10:00"]}]}`, "partial_cancellations[0]", ErrBadRange},
		{"yaml unknown field", "exceptions.yml", "holidays: [2024-12-25]\n", "", nil},
		{"second json value", "exceptions.json", `{"full_days_off": ["2024-12-25"]} {"partial_cancellations": [{"date": "bad"}]}`, "", ErrTrailingData},
		{"second legacy array", "exceptions.json", `[{"date": "2024-11-04"}] [{"date": "bad"}]`, "", ErrTrailingData},
		{"second yaml document", "exceptions.yaml", "full_days_off: [\"2024-12-25\"]\n---\npartial_cancellations:\n  - date: bad\n", "", ErrTrailingData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			_, err := newTestLoader().Load(path)

			var ede *ExceptionDataError
			if !errors.As(err, &ede) {
				t.Fatalf("expected ExceptionDataError, got %T: %v", err, err)
			}
			if ede.Path != path {
				t.Errorf("Path = %q, want %q", ede.Path, path)
			}
			if ede.Record != tt.wantRecord {
				t.Errorf("Record = %q, want %q", ede.Record, tt.wantRecord)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v in chain, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDatesUseLocation(t *testing.T) {
	plus9 := time.FixedZone("UTC+9", 9*60*60)
	loader := NewLoader(plus9, util.NewLogger("error"))

	set, err := loader.Load(writeFile(t, "exceptions.json", `{"partial_cancellations": [{"date": "2024-11-04", "exclude_hours": ["10:00-11:00"]}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if set.PartialCancellations[0].Date.Location() != plus9 {
		t.Error("partial date should be parsed in the configured location")
	}
	if got := set.PartialCancellations[0].Date.Format(models.DateLayout); got != "2024-11-04" {
		t.Errorf("date = %s", got)
	}
}
