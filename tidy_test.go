package surveilans

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStratum = Stratum{
	Regency:  RegencyCentral,
	District: District{Code: "101", Name: "GAMBIR"},
	Status:   StatusInCare,
	AgeGroup: AgeGroup("5"),
	Sex:      SexFemale,
}

func TestReshape(t *testing.T) {
	t.Run("Melts day columns into positive records", func(t *testing.T) {
		table := &Table{
			Headers: []string{"Kelurahan", "1", "2", "3"},
			Rows: [][]string{
				{"GAMBIR", "0", "2", ""},
				{"CIDENG", "1", "abc", "4"},
			},
		}

		records := Reshape(table, Month{2025, time.January}, testStratum)

		require.Len(t, records, 3)
		assert.Equal(t, Record{
			Regency:  "Jakarta Pusat",
			District: "GAMBIR",
			Status:   StatusInCare.Label(),
			AgeGroup: AgeGroup("5").Label(),
			Sex:      SexFemale.Label(),
			Village:  "CIDENG",
			Date:     time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
			Cases:    1,
		}, records[0])
		assert.Equal(t, "GAMBIR", records[1].Village)
		assert.Equal(t, 2, records[1].Cases)
		assert.Equal(t, 2, records[1].Date.Day())
		assert.Equal(t, "CIDENG", records[2].Village)
		assert.Equal(t, 4, records[2].Cases)
	})

	t.Run("Days that do not exist in the month are dropped", func(t *testing.T) {
		table := &Table{
			Headers: []string{"Kelurahan", "28", "29", "30"},
			Rows:    [][]string{{"A", "1", "1", "1"}},
		}

		records, dropped := reshape(table, Month{2025, time.February}, testStratum)

		require.Len(t, records, 1)
		assert.Equal(t, 28, records[0].Date.Day())
		assert.Len(t, dropped, 2)
	})

	t.Run("Non-numeric headers are not value columns", func(t *testing.T) {
		table := &Table{
			Headers: []string{"Kelurahan", "Total", "1a", "1"},
			Rows:    [][]string{{"A", "9", "9", "1"}},
		}

		records := Reshape(table, Month{2025, time.March}, testStratum)

		require.Len(t, records, 1)
		assert.Equal(t, 1, records[0].Date.Day())
	})

	t.Run("Output never exceeds rows times value columns and is stable", func(t *testing.T) {
		headers := []string{"Kelurahan"}
		for d := 1; d <= 31; d++ {
			headers = append(headers, strconv.Itoa(d))
		}
		var rows [][]string
		for v := 0; v < 4; v++ {
			row := []string{"V" + strconv.Itoa(v)}
			for d := 1; d <= 31; d++ {
				row = append(row, strconv.Itoa((v+d)%3))
			}
			rows = append(rows, row)
		}
		table := &Table{Headers: headers, Rows: rows}

		first := Reshape(table, Month{2025, time.March}, testStratum)
		second := Reshape(table, Month{2025, time.March}, testStratum)

		assert.LessOrEqual(t, len(first), 4*31)
		assert.Equal(t, first, second)
		for _, r := range first {
			assert.Greater(t, r.Cases, 0)
			assert.Equal(t, time.March, r.Date.Month())
		}
	})

	t.Run("Empty or nil table", func(t *testing.T) {
		assert.Empty(t, Reshape(nil, Month{2025, time.January}, testStratum))
		assert.Empty(t, Reshape(&Table{Headers: []string{"1"}}, Month{2025, time.January}, testStratum))
	})
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		dropped bool
	}{
		{"", 0, false},
		{"  ", 0, false},
		{"7", 7, false},
		{" 12 ", 12, false},
		{"0", 0, false},
		{"3.9", 3, false},
		{"-2", 0, true},
		{"-0.5", 0, true},
		{"n/a", 0, true},
		{"NaN", 0, true},
		{"1e12", 0, true},
	}

	for _, tt := range tests {
		t.Run(strconv.Quote(tt.raw), func(t *testing.T) {
			got, err := parseCount("1", tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.dropped, err != nil)
		})
	}
}
