package schedule

import (
	"io"
	"strings"
)

// headerAliases maps normalized header names onto the csv tags of scheduleRow
var headerAliases = map[string]string{
	"weekday":    "day",
	"dayofweek":  "day",
	"coursename": "course",
	"subject":    "course",
	"starttime":  "start",
	"endtime":    "end",
	"hours":      "time",
	"venue":      "room",
	"week":       "weektype",
	"parity":     "weektype",
}

// normalizeHeader lowercases a header and strips spaces, underscores and dashes
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
	if alias, ok := headerAliases[h]; ok {
		return alias
	}
	return h
}

// table is an in-memory sheet with a normalized header row and trimmed cells.
// It satisfies gocsv.CSVReader so CSV and XLSX input share one decoder.
type table struct {
	records [][]string
	lines   []int // source line of each record, header included
	pos     int
}

func newTable(raw [][]string) *table {
	t := &table{}
	for i, rec := range raw {
		cells := make([]string, len(rec))
		blank := true
		for j, c := range rec {
			cells[j] = strings.TrimSpace(c)
			if cells[j] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		if len(t.records) == 0 {
			for j := range cells {
				cells[j] = normalizeHeader(cells[j])
			}
		}
		t.records = append(t.records, cells)
		t.lines = append(t.lines, i+1)
	}
	return t
}

func (t *table) header() []string {
	if len(t.records) == 0 {
		return nil
	}
	return t.records[0]
}

func (t *table) has(column string) bool {
	for _, h := range t.header() {
		if h == column {
			return true
		}
	}
	return false
}

// line returns the source line of the i-th data row (0-based)
func (t *table) line(i int) int {
	if i+1 < len(t.lines) {
		return t.lines[i+1]
	}
	return 0
}

func (t *table) Read() ([]string, error) {
	if t.pos >= len(t.records) {
		return nil, io.EOF
	}
	rec := t.records[t.pos]
	t.pos++
	return rec, nil
}

func (t *table) ReadAll() ([][]string, error) {
	rest := t.records[t.pos:]
	t.pos = len(t.records)
	return rest, nil
}
