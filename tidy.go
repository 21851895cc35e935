package surveilans

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// District is a kecamatan as listed by the portal for a regency.
type District struct {
	Code string
	Name string
}

// Stratum is the categorical context of one query: where, and which
// demographic slice.
type Stratum struct {
	Regency  Regency
	District District
	Status   Status
	AgeGroup AgeGroup
	Sex      Sex
}

// Record is one tidy row: a positive case count for one village on one day
// within one stratum.
type Record struct {
	Regency  string
	District string
	Status   string
	AgeGroup string
	Sex      string
	Village  string
	Date     time.Time
	Cases    int
}

// Reshape melts a wide day-of-month table into tidy records. Value columns
// are the purely numeric headers, visited in header order, so the output is
// grouped by day column rather than sorted by date. Cells that do not form a
// valid date or a positive count produce no record.
func Reshape(t *Table, m Month, s Stratum) []Record {
	records, _ := reshape(t, m, s)
	return records
}

func reshape(t *Table, m Month, s Stratum) ([]Record, []*ParseError) {
	if t == nil || len(t.Rows) == 0 {
		return nil, nil
	}

	village := -1
	for i, h := range t.Headers {
		if h == VillageColumn {
			village = i
			break
		}
	}

	var (
		records []Record
		dropped []*ParseError
	)
	for col, header := range t.Headers {
		if !isDayColumn(header) {
			continue
		}

		day, _ := strconv.Atoi(header)
		date, ok := m.Date(day)
		if !ok {
			dropped = append(dropped, &ParseError{Column: header, Value: m.String(), Reason: "day outside month"})
			continue
		}

		for _, row := range t.Rows {
			raw := ""
			if col < len(row) {
				raw = row[col]
			}
			cases, err := parseCount(header, raw)
			if err != nil {
				dropped = append(dropped, err)
			}
			if cases <= 0 {
				continue
			}

			r := Record{
				Regency:  s.Regency.Label(),
				District: s.District.Name,
				Status:   s.Status.Label(),
				AgeGroup: s.AgeGroup.Label(),
				Sex:      s.Sex.Label(),
				Date:     date,
				Cases:    cases,
			}
			if village >= 0 && village < len(row) {
				r.Village = row[village]
			}
			records = append(records, r)
		}
	}

	return records, dropped
}

func isDayColumn(h string) bool {
	if h == "" {
		return false
	}
	for _, c := range h {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// parseCount coerces a cell to a non-negative case count. Missing and
// non-numeric values count as zero; fractional values are truncated.
func parseCount(column, raw string) (int, *ParseError) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return 0, nil
	}

	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 {
			return 0, &ParseError{Column: column, Value: raw, Reason: "negative count"}
		}
		return n, nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ParseError{Column: column, Value: raw, Reason: "not a number"}
	}
	if f < 0 {
		return 0, &ParseError{Column: column, Value: raw, Reason: "negative count"}
	}
	if f > math.MaxInt32 {
		return 0, &ParseError{Column: column, Value: raw, Reason: "count out of range"}
	}
	return int(f), nil
}
