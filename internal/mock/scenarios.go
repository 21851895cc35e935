package mock

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RenderTable writes a result fragment the way the portal does, including
// the row number and village name columns.
func RenderTable(headers []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString(`<div class="box"><table id="example2a" class="table"><thead><tr>`)
	for _, h := range headers {
		fmt.Fprintf(&b, "<th>%s</th>", h)
	}
	b.WriteString("</tr></thead><tbody>")
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, c := range row {
			fmt.Fprintf(&b, "<td>%s</td>", c)
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table></div>")
	return b.String()
}

// DayHeaders returns No, Nama and one numbered column per day of the month.
func DayHeaders(year, month int) []string {
	days := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	headers := []string{"No", "Nama"}
	for d := 1; d <= days; d++ {
		headers = append(headers, strconv.Itoa(d))
	}
	return headers
}

// SampleDistricts is a small slice of real kecamatan, enough for local runs.
func SampleDistricts() map[string][]Option {
	return map[string][]Option{
		"1": {{Code: "101", Name: "GAMBIR"}, {Code: "102", Name: "SAWAH BESAR"}},
		"2": {{Code: "201", Name: "PENJARINGAN"}},
		"3": {{Code: "301", Name: "CENGKARENG"}},
		"4": {{Code: "401", Name: "TEBET"}},
		"5": {{Code: "501", Name: "MATRAMAN"}},
		"6": {{Code: "601", Name: "KEPULAUAN SERIBU UTARA"}},
	}
}

// SampleDiseases mirrors a few entries of the real disease select.
func SampleDiseases() []Option {
	return []Option{
		{Code: "12", Name: "12. DEMAM BERDARAH DENGUE"},
		{Code: "34", Name: "34. COVID-19"},
	}
}

// RandomTables returns a Table func that emits sparse random counts for two
// villages per district; most queries come back empty.
func RandomTables(seed int64) func(q Query) string {
	var mu sync.Mutex
	rng := rand.New(rand.NewSource(seed))
	return func(q Query) string {
		mu.Lock()
		defer mu.Unlock()

		if rng.Intn(4) != 0 {
			return ""
		}
		headers := DayHeaders(q.Year, q.Month)
		var rows [][]string
		for v := 1; v <= 2; v++ {
			row := []string{strconv.Itoa(v), fmt.Sprintf("KELURAHAN %s-%d", q.District, v)}
			for range headers[2:] {
				if rng.Intn(10) == 0 {
					row = append(row, strconv.Itoa(rng.Intn(3)+1))
				} else {
					row = append(row, "0")
				}
			}
			rows = append(rows, row)
		}
		return RenderTable(headers, rows)
	}
}
