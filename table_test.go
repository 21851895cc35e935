package surveilans

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractTable(t *testing.T) {
	t.Run("Drops the number column and renames the name column", func(t *testing.T) {
		doc := docFrom(t, `<table id="example2a">
			<thead><tr><th>No</th><th>Nama</th><th>1</th><th>2</th></tr></thead>
			<tbody>
				<tr><td>1</td><td> GAMBIR </td><td>0</td><td>3</td></tr>
				<tr><td>2</td><td>CIDENG</td><td>1</td></tr>
			</tbody>
		</table>`)

		table, ok := ExtractTable(doc)

		require.True(t, ok)
		assert.Equal(t, []string{"Kelurahan", "1", "2"}, table.Headers)
		assert.Equal(t, [][]string{
			{"GAMBIR", "0", "3"},
			{"CIDENG", "1", ""},
		}, table.Rows)
		assert.NotContains(t, table.Headers, "No")
		assert.NotContains(t, table.Headers, "Nama")
	})

	t.Run("Rows without cells are skipped", func(t *testing.T) {
		doc := docFrom(t, `<table id="example2a">
			<thead><tr><th>Nama</th><th>1</th></tr></thead>
			<tbody><tr></tr><tr><td>A</td><td>2</td></tr></tbody>
		</table>`)

		table, ok := ExtractTable(doc)

		require.True(t, ok)
		assert.Len(t, table.Rows, 1)
	})

	t.Run("Reports absence", func(t *testing.T) {
		tests := []struct {
			name string
			html string
		}{
			{"no table", `<div class="alert">Data tidak ditemukan</div>`},
			{"other table", `<table id="other"><thead><tr><th>1</th></tr></thead><tbody><tr><td>1</td></tr></tbody></table>`},
			{"no header", `<table id="example2a"><tbody><tr><td>1</td></tr></tbody></table>`},
			{"no body rows", `<table id="example2a"><thead><tr><th>1</th></tr></thead><tbody></tbody></table>`},
			{"empty header row", `<table id="example2a"><thead><tr></tr></thead><tbody><tr><td>1</td></tr></tbody></table>`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				table, ok := ExtractTable(docFrom(t, tt.html))
				assert.False(t, ok)
				assert.Nil(t, table)
			})
		}
	})

	t.Run("Nil document", func(t *testing.T) {
		_, ok := ExtractTable(nil)
		assert.False(t, ok)
	})
}
