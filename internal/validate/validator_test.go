package validate

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/crashclean/internal/config"
	"github.com/BartekS5/crashclean/internal/etl"
	"github.com/BartekS5/crashclean/pkg/database"
	"github.com/BartekS5/crashclean/pkg/models"
)

var (
	s = models.String
	n = models.Int64
)

func record(id int64, date string, aboard, pass, crew int64) models.Record {
	return models.Record{
		RowID:            id,
		Date:             s(date),
		Time:             s("12:00"),
		Operator:         s("Aeroflot"),
		Route:            s("Moscow - Kiev"),
		AboardTotal:      n(aboard),
		AboardPassengers: n(pass),
		AboardCrew:       n(crew),
		FatalitiesAboard: n(0),
		Ground:           n(0),
		FatalitiesTotal:  n(0),
	}
}

func loadTable(t *testing.T, records []models.Record) *database.Store {
	t.Helper()
	ctx := context.Background()
	store, err := database.ConnectSQL(ctx, database.DriverSQLite, filepath.Join(t.TempDir(), "clean.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	loader := &etl.SQLLoader{Store: store, Table: "data", BatchSize: 100, Overwrite: true}
	require.NoError(t, loader.Load(ctx, records))
	return store
}

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator(config.Default().Validation)
	require.NoError(t, err)
	return v
}

func TestValidateCleanTable(t *testing.T) {
	store := loadTable(t, []models.Record{
		record(1, "1950-03-01", 20, 17, 3),
		record(2, "1951-03-01", 5, 3, 2),
	})

	report, err := newValidator(t).Validate(context.Background(), store, "data")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Rows)
	assert.Empty(t, report.Findings)
	assert.True(t, report.Passed())
	assert.Contains(t, report.Summarize(), "Result: PASS")
}

func TestValidateCrossTotals(t *testing.T) {
	bad := record(2, "1951-03-01", 20, 18, 3)
	bad.FatalitiesAboard = n(25)
	bad.FatalitiesPassengers = n(20)
	bad.FatalitiesCrew = n(3)
	bad.Ground = n(2)
	bad.FatalitiesTotal = n(30)

	partial := record(3, "1952-03-01", 20, 18, 3)
	partial.AboardCrew = nil

	store := loadTable(t, []models.Record{record(1, "1950-03-01", 20, 17, 3), bad, partial})
	report, err := newValidator(t).Validate(context.Background(), store, "data")
	require.NoError(t, err)

	found := report.ByCategory(CategoryCrossTotal)
	var msgs []string
	for _, f := range found {
		assert.Equal(t, SeverityWarning, f.Severity)
		assert.Equal(t, []int64{2}, f.RowIDs)
		msgs = append(msgs, f.Message)
	}
	assert.Equal(t, []string{
		"aboard mismatch: 18+3≠20",
		"fatalities mismatch: 20+3≠25",
		"fatalities exceed aboard: 25>20",
		"fatalities_total mismatch: 25+2≠30",
	}, msgs)
	assert.True(t, report.Passed(), "cross-total findings are warnings")
}

func TestValidateDuplicates(t *testing.T) {
	a := record(1, "1950-03-01", 20, 17, 3)
	b := record(2, "1950-03-01", 20, 17, 3)
	c := record(3, "1950-03-02", 20, 17, 3)
	d := record(4, "1950-03-01", 20, 17, 3)
	noRoute := record(5, "1950-03-01", 20, 17, 3)
	noRoute.Route = nil

	store := loadTable(t, []models.Record{a, b, c, d, noRoute})
	report, err := newValidator(t).Validate(context.Background(), store, "data")
	require.NoError(t, err)

	dups := report.ByCategory(CategoryDuplicate)
	require.Len(t, dups, 1)
	assert.Equal(t, []int64{1, 2, 4}, dups[0].RowIDs)
	assert.Equal(t, SeverityWarning, dups[0].Severity)
	assert.Contains(t, dups[0].Message, "1950-03-01, Aeroflot, Moscow - Kiev")
}

func TestValidateRangesAndFormats(t *testing.T) {
	early := record(1, "1900-01-01", 20, 17, 3)
	late := record(2, "2019-06-01", 20, 17, 3)
	store := loadTable(t, []models.Record{early, late, record(3, "1960-01-01", 20, 17, 3)})

	ctx := context.Background()
	_, err := store.ExecContext(ctx, `UPDATE data SET ground = -4 WHERE row_id = 3`)
	require.NoError(t, err)
	_, err = store.ExecContext(ctx, `UPDATE data SET "time" = '7:5' WHERE row_id = 1`)
	require.NoError(t, err)
	_, err = store.ExecContext(ctx, `UPDATE data SET "time" = '24:00' WHERE row_id = 2`)
	require.NoError(t, err)

	report, err := newValidator(t).Validate(ctx, store, "data")
	require.NoError(t, err)

	ranges := report.ByCategory(CategoryRange)
	require.Len(t, ranges, 3)
	assert.Equal(t, SeverityWarning, ranges[0].Severity)
	assert.Equal(t, []int64{1}, ranges[0].RowIDs)
	assert.Equal(t, []int64{2}, ranges[1].RowIDs)
	assert.Equal(t, SeverityError, ranges[2].Severity)
	assert.Equal(t, "ground is negative: -4", ranges[2].Message)

	formats := report.ByCategory(CategoryFormat)
	require.Len(t, formats, 2)
	assert.Equal(t, `time "7:5" is not HH:MM`, formats[0].Message)
	assert.Equal(t, []int64{2}, formats[1].RowIDs)

	assert.False(t, report.Passed())
}

func TestValidateTypes(t *testing.T) {
	store := loadTable(t, []models.Record{record(1, "1950-03-01", 20, 17, 3), record(2, "1951-03-01", 20, 17, 3)})
	ctx := context.Background()
	_, err := store.ExecContext(ctx, `UPDATE data SET aboard_crew = 'three' WHERE row_id = 1`)
	require.NoError(t, err)
	_, err = store.ExecContext(ctx, `UPDATE data SET "date" = '03/01/1951' WHERE row_id = 2`)
	require.NoError(t, err)

	report, err := newValidator(t).Validate(ctx, store, "data")
	require.NoError(t, err)

	types := report.ByCategory(CategoryType)
	require.Len(t, types, 2)
	assert.Equal(t, models.ColDate, types[0].Column)
	assert.Equal(t, []int64{2}, types[0].RowIDs)
	assert.Equal(t, models.ColAboardCrew, types[1].Column)
	assert.Equal(t, `aboard_crew: non-integer value "three"`, types[1].Message)
	assert.False(t, report.Passed())
}

func TestValidateSchema(t *testing.T) {
	ctx := context.Background()
	store, err := database.ConnectSQL(ctx, database.DriverSQLite, filepath.Join(t.TempDir(), "odd.db"), false)
	require.NoError(t, err)
	defer store.Close()

	var defs []string
	for _, c := range models.NormalizedColumns {
		switch c.Name {
		case models.ColSummary:
			continue
		case models.ColGround:
			defs = append(defs, `"ground" TEXT`)
		case models.ColAboardTotal:
			defs = append(defs, `"aboard_total" BIGINT`)
		case models.ColLocation:
			defs = append(defs, `"location" NVARCHAR(200)`)
		default:
			defs = append(defs, `"`+c.Name+`" `+string(c.Type))
		}
	}
	defs = append(defs, `"notes" TEXT`)
	_, err = store.ExecContext(ctx, "CREATE TABLE data ("+strings.Join(defs, ", ")+")")
	require.NoError(t, err)

	report, err := newValidator(t).Validate(ctx, store, "data")
	require.NoError(t, err)

	schema := report.ByCategory(CategorySchema)
	require.Len(t, schema, 3)
	assert.Equal(t, `column "ground" declared as TEXT, expected INTEGER`, schema[0].Message)
	assert.Equal(t, `column "summary" is missing`, schema[1].Message)
	assert.Equal(t, SeverityWarning, schema[2].Severity)
	assert.Equal(t, "notes", schema[2].Column)
}

func TestValidateMissingTable(t *testing.T) {
	store := loadTable(t, nil)
	_, err := newValidator(t).Validate(context.Background(), store, "nope")

	var se *etl.StoreError
	require.True(t, errors.As(err, &se))
}
