package surveilans

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	resultTableSelector = "table#example2a"

	nameColumn    = "Nama"
	numberColumn  = "No"
	VillageColumn = "Kelurahan"
)

// Table is the result grid of one query: one row per village, one column
// per day of the month plus the village label.
type Table struct {
	Headers []string
	Rows    [][]string
}

// ExtractTable pulls the result table out of a query response. It returns
// false when the page carries no table, no header or no body rows, which is
// how the portal reports zero cases.
func ExtractTable(doc *goquery.Document) (*Table, bool) {
	if doc == nil {
		return nil, false
	}

	table := doc.Find(resultTableSelector).First()
	if table.Length() == 0 {
		return nil, false
	}

	thead := table.Find("thead")
	tbody := table.Find("tbody")
	if thead.Length() == 0 || tbody.Length() == 0 {
		return nil, false
	}

	var headers []string
	thead.Find("th").Each(func(_ int, th *goquery.Selection) {
		headers = append(headers, cellText(th))
	})
	if len(headers) == 0 {
		return nil, false
	}

	var rows [][]string
	tbody.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, cellText(td))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	if len(rows) == 0 {
		return nil, false
	}

	return normalizeTable(headers, rows), true
}

// normalizeTable renames the village label column and drops the row number
// column. Rows are padded or cut to the header width.
func normalizeTable(headers []string, rows [][]string) *Table {
	keep := make([]int, 0, len(headers))
	out := &Table{Headers: make([]string, 0, len(headers))}

	for i, h := range headers {
		switch h {
		case numberColumn:
			continue
		case nameColumn:
			h = VillageColumn
		}
		keep = append(keep, i)
		out.Headers = append(out.Headers, h)
	}

	out.Rows = make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(keep))
		for j, idx := range keep {
			if idx < len(row) {
				cells[j] = row[idx]
			}
		}
		out.Rows = append(out.Rows, cells)
	}

	return out
}

func cellText(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}
