package surveilans

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	fake "github.com/ShroXd/surveilans/internal/mock"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) WriteMonth(ctx context.Context, identifier string, month Month, records []Record) (string, error) {
	args := m.Called(ctx, identifier, month, records)
	return args.String(0), args.Error(1)
}

type harvestFixture struct {
	portal  *fake.Portal
	store   *Store
	logs    *observer.ObservedLogs
	metrics *Metrics
	h       *Harvester
}

// newHarvestFixture crawls two regencies, one status, one age group and both
// sexes, which keeps every month at six queries.
func newHarvestFixture(t *testing.T) *harvestFixture {
	t.Helper()

	fp := fake.NewPortal()
	fp.Diseases = fake.SampleDiseases()
	fp.Districts["1"] = []fake.Option{{Code: "101", Name: "GAMBIR"}, {Code: "102", Name: "SAWAH BESAR"}}
	fp.Districts["2"] = []fake.Option{{Code: "201", Name: "PENJARINGAN"}}

	f := &harvestFixture{portal: fp, metrics: NewMetrics()}
	p, _ := newTestPortal(t, fp, WithPortalMetrics(f.metrics))

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	f.store = store

	core, logs := observer.New(zap.DebugLevel)
	f.logs = logs

	f.h, err = NewHarvester(p, store,
		ID("run-1"),
		WithLogger(NewZapLogger(zap.New(core))),
		WithMetrics(f.metrics),
		WithRegencies(RegencyCentral, RegencyNorth),
		WithStatuses(StatusInCare),
		WithAgeGroups(AgeGroup("1")),
		WithSexes(SexMale, SexFemale),
	)
	require.NoError(t, err)
	return f
}

func gambirFemaleTable(q fake.Query) string {
	if q.District != "101" || q.Sex != "P" {
		return ""
	}
	return fake.RenderTable(
		[]string{"No", "Nama", "1", "2", "3"},
		[][]string{
			{"1", "CIDENG", "0", "2", "0"},
			{"2", "PETOJO UTARA", "1", "", "3"},
		},
	)
}

func TestNewHarvester(t *testing.T) {
	client, err := NewClient()
	require.NoError(t, err)
	p, err := NewPortal(client)
	require.NoError(t, err)
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = NewHarvester(nil, store)
	assert.ErrorIs(t, err, errMissingPortal)
	_, err = NewHarvester(p, nil)
	assert.ErrorIs(t, err, errMissingStore)

	h, err := NewHarvester(p, store)
	require.NoError(t, err)
	assert.NotEmpty(t, h.ID)
	assert.Len(t, h.regencies, 6)
	assert.Len(t, h.statuses, 3)
	assert.Len(t, h.ageGroups, 10)
	assert.Len(t, h.sexes, 2)
}

func TestHarvesterRun(t *testing.T) {
	jan := Month{2025, time.January}
	params := Params{DiseaseCode: "12", DiseaseName: "12. DEMAM BERDARAH DENGUE", From: jan, To: jan}

	t.Run("Writes the month's records", func(t *testing.T) {
		f := newHarvestFixture(t)
		f.portal.Table = gambirFemaleTable

		summary, err := f.h.Run(context.Background(), params)

		require.NoError(t, err)
		require.Len(t, summary.Months, 1)
		report := summary.Months[0]
		assert.Equal(t, "run-1", summary.RunID)
		assert.Equal(t, 6, report.Queries)
		assert.Equal(t, 3, report.Rows)
		assert.Empty(t, report.Skipped)
		assert.Equal(t, filepath.Join(f.store.Dir(), "jakarta_health_data_12__DEMAM_BERDARAH_DENGUE_2025-01.csv"), report.Path)
		assert.Equal(t, 1, f.portal.Handshakes())

		rows, err := f.store.readExtract(report.Path)
		require.NoError(t, err)
		assert.Equal(t, [][]string{
			{"Jakarta Pusat", "GAMBIR", "Masih Dirawat", "< 1 TH", "Perempuan", "PETOJO UTARA", "2025-01-01", "1"},
			{"Jakarta Pusat", "GAMBIR", "Masih Dirawat", "< 1 TH", "Perempuan", "CIDENG", "2025-01-02", "2"},
			{"Jakarta Pusat", "GAMBIR", "Masih Dirawat", "< 1 TH", "Perempuan", "PETOJO UTARA", "2025-01-03", "3"},
		}, rows)
		assert.Equal(t, 3.0, counterValue(t, f.metrics, "surveilans_records_total", nil))
		assert.Equal(t, 1.0, counterValue(t, f.metrics, "surveilans_queries_total", map[string]string{"outcome": OutcomeOK}))
		assert.Equal(t, 5.0, counterValue(t, f.metrics, "surveilans_queries_total", map[string]string{"outcome": OutcomeEmpty}))
	})

	t.Run("Visits every combination in nesting order", func(t *testing.T) {
		f := newHarvestFixture(t)

		_, err := f.h.Run(context.Background(), params)
		require.NoError(t, err)

		var got []string
		for _, q := range f.portal.Queries() {
			assert.Equal(t, "12", q.Disease)
			assert.Equal(t, 1, q.Month)
			assert.Equal(t, 2025, q.Year)
			got = append(got, q.Key())
		}
		assert.Equal(t, []string{
			"1/101/SAKIT/1/L", "1/101/SAKIT/1/P",
			"1/102/SAKIT/1/L", "1/102/SAKIT/1/P",
			"2/201/SAKIT/1/L", "2/201/SAKIT/1/P",
		}, got)
	})

	t.Run("An empty month writes no file and says so", func(t *testing.T) {
		f := newHarvestFixture(t)

		summary, err := f.h.Run(context.Background(), params)

		require.NoError(t, err)
		report := summary.Months[0]
		assert.True(t, report.Empty())
		assert.Empty(t, report.Path)
		assert.Equal(t, 1, f.logs.FilterMessage("No data was found").Len())
		entries, err := os.ReadDir(f.store.Dir())
		require.NoError(t, err)
		assert.Empty(t, entries)
		assert.Equal(t, 1.0, counterValue(t, f.metrics, "surveilans_months_total", map[string]string{"result": "empty"}))
	})

	t.Run("Each month gets its own file", func(t *testing.T) {
		f := newHarvestFixture(t)
		f.portal.Table = func(q fake.Query) string {
			if q.Month == 2 {
				return ""
			}
			return gambirFemaleTable(q)
		}
		p := params
		p.To = Month{2025, time.March}

		summary, err := f.h.Run(context.Background(), p)

		require.NoError(t, err)
		require.Len(t, summary.Months, 3)
		assert.False(t, summary.Months[0].Empty())
		assert.True(t, summary.Months[1].Empty())
		assert.False(t, summary.Months[2].Empty())
		assert.FileExists(t, f.store.Path(ExtractFileName("12__DEMAM_BERDARAH_DENGUE", Month{2025, time.March})))
		assert.NoFileExists(t, f.store.Path(ExtractFileName("12__DEMAM_BERDARAH_DENGUE", Month{2025, time.February})))
	})

	t.Run("Failed and rejected queries are skipped", func(t *testing.T) {
		f := newHarvestFixture(t)
		f.portal.Table = gambirFemaleTable
		f.portal.Drop["1/102/SAKIT/1/L"] = 3
		f.portal.Reject["2/201/SAKIT/1/P"] = http.StatusForbidden

		summary, err := f.h.Run(context.Background(), params)

		require.NoError(t, err)
		report := summary.Months[0]
		assert.Equal(t, 3, report.Rows)
		require.Len(t, report.Skipped, 2)
		assert.Equal(t, "no response", report.Skipped[0].Reason)
		assert.Equal(t, "102", report.Skipped[0].Key.District.Code)
		assert.Equal(t, "status 403", report.Skipped[1].Reason)
		assert.Equal(t, 1, f.logs.FilterMessage("Failed to fetch data for this combination, skipping").Len())
		assert.Equal(t, 1, f.logs.FilterMessage("Query rejected, skipping").Len())
		assert.Equal(t, 1, f.logs.FilterMessage("Some combinations were skipped").Len())
		assert.Equal(t, 2.0, counterValue(t, f.metrics, "surveilans_query_retries_total", nil))
	})

	t.Run("A regency without a district list is skipped", func(t *testing.T) {
		f := newHarvestFixture(t)
		f.portal.Table = gambirFemaleTable
		f.portal.BrokenDistricts = map[string]bool{"2": true}

		summary, err := f.h.Run(context.Background(), params)

		require.NoError(t, err)
		report := summary.Months[0]
		assert.Equal(t, []Regency{RegencyNorth}, report.SkippedRegencies)
		assert.Equal(t, 4, report.Queries)
		assert.Equal(t, 3, report.Rows)
		assert.Equal(t, 1, f.logs.FilterMessage("District list response carried no options, skipping regency").Len())
		assert.Equal(t, 1.0, counterValue(t, f.metrics, "surveilans_skipped_regencies_total", nil))
	})

	t.Run("A regency with no districts is skipped", func(t *testing.T) {
		f := newHarvestFixture(t)
		delete(f.portal.Districts, "2")

		summary, err := f.h.Run(context.Background(), params)

		require.NoError(t, err)
		assert.Equal(t, []Regency{RegencyNorth}, summary.Months[0].SkippedRegencies)
		assert.Equal(t, 1, f.logs.FilterMessage("Regency has no districts, skipping").Len())
	})

	t.Run("A failed handshake stops the run", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()
		client, err := NewClient(WithBaseURL(server.URL))
		require.NoError(t, err)
		p, err := NewPortal(client, WithPortalClock(newFakeClock()))
		require.NoError(t, err)
		sink := new(mockSink)
		h, err := NewHarvester(p, sink)
		require.NoError(t, err)

		summary, err := h.Run(context.Background(), params)

		assert.Nil(t, summary)
		var sessErr *SessionError
		assert.ErrorAs(t, err, &sessErr)
		sink.AssertNotCalled(t, "WriteMonth", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("A failed extract write stops the run", func(t *testing.T) {
		f := newHarvestFixture(t)
		f.portal.Table = gambirFemaleTable
		sink := new(mockSink)
		sink.On("WriteMonth", mock.Anything, "12__DEMAM_BERDARAH_DENGUE", jan, mock.Anything).Return("", errors.New("disk full"))
		f.h.sink = sink
		p := params
		p.To = Month{2025, time.February}

		summary, err := f.h.Run(context.Background(), p)

		assert.EqualError(t, err, "disk full")
		require.NotNil(t, summary)
		assert.Len(t, summary.Months, 1, "no month after the failed one is attempted")
	})

	t.Run("Invalid parameters", func(t *testing.T) {
		f := newHarvestFixture(t)

		_, err := f.h.Run(context.Background(), Params{DiseaseCode: "12", From: Month{2025, time.March}, To: jan})
		assert.ErrorIs(t, err, errInvalidRange)

		_, err = f.h.Run(context.Background(), Params{From: jan, To: jan})
		assert.Error(t, err)
		assert.Equal(t, 0, f.portal.Handshakes())
	})

	t.Run("Cancellation stops the crawl", func(t *testing.T) {
		f := newHarvestFixture(t)
		ctx, cancel := context.WithCancel(context.Background())
		f.portal.Table = func(q fake.Query) string {
			cancel()
			return ""
		}

		_, err := f.h.Run(ctx, params)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Len(t, f.portal.Queries(), 1)
	})
}
