package report

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/crashclean/internal/etl"
	"github.com/BartekS5/crashclean/pkg/database"
	"github.com/BartekS5/crashclean/pkg/models"
)

var (
	s = models.String
	n = models.Int64
)

func fixture() []models.Record {
	return []models.Record{
		{RowID: 1, Date: s("1945-01-01"), Operator: s("Aeroflot"), Location: s("Moscow, Russia"),
			AboardTotal: n(10), FatalitiesAboard: n(5), FatalitiesPassengers: n(4), FatalitiesCrew: n(1),
			Ground: n(0), FatalitiesTotal: n(5)},
		{RowID: 2, Date: s("1948-06-01"), Operator: s("Aeroflot"), Location: s("Kiev, Ukraine"),
			AboardTotal: n(10), FatalitiesAboard: n(10), FatalitiesPassengers: n(8), FatalitiesCrew: n(2),
			Ground: n(3), FatalitiesTotal: n(13)},
		{RowID: 3, Date: s("1951-03-01"), Operator: s("Pan Am"), Location: s("Tōkyō, Japan")},
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, fixture(), nil))
	out := buf.String()

	assert.Contains(t, out, "Total rows: 3")
	assert.Contains(t, out, "Fatality rate : 75.0%")
	assert.Contains(t, out, "Survival rate : 25.0%")
	assert.Contains(t, out, "Crashes with ground fatalities : 1")
	assert.Contains(t, out, "Max ground fatalities (single) : 3")
	assert.Contains(t, out, "Passenger fatalities : 12  (80.0%)")
	assert.Contains(t, out, "1940s  2       18")
	assert.Contains(t, out, "1950s  1       N/A")
	assert.Contains(t, out, "Aeroflot 2       18")
	assert.Contains(t, out, "Japan            1")

	deadliest := out[strings.Index(out, "deadliest"):]
	assert.Less(t, strings.Index(deadliest, "1948-06-01"), strings.Index(deadliest, "1945-01-01"))
}

func TestTableUsesDisplayWidth(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf}
	p.table([]string{"Loc", "N"}, [][]string{{"東京", "1"}, {"Oslo", "2"}})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "  東京 1", lines[2])
	assert.Equal(t, "  Oslo 2", lines[3])
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRenderWriteError(t *testing.T) {
	assert.EqualError(t, Render(failingWriter{}, fixture(), nil), "disk full")
}

func TestLoadRecords(t *testing.T) {
	ctx := context.Background()
	store, err := database.ConnectSQL(ctx, database.DriverSQLite, filepath.Join(t.TempDir(), "c.db"), false)
	require.NoError(t, err)
	defer store.Close()

	loader := &etl.SQLLoader{Store: store, Table: "data", BatchSize: 10, Overwrite: true}
	require.NoError(t, loader.Load(ctx, fixture()))

	got, err := LoadRecords(ctx, store, "data")
	require.NoError(t, err)
	assert.Equal(t, fixture(), got)

	_, err = LoadRecords(ctx, store, "missing")
	var se *etl.StoreError
	assert.ErrorAs(t, err, &se)
}
