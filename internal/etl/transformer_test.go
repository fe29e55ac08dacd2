package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/crashclean/pkg/models"
)

func rawFixture() models.RawRecord {
	return models.RawRecord{
		RowID:        1,
		Date:         s("17-Sep-08"),
		Time:         s("c 1718"),
		Location:     s(" Fort Myer, Virginia "),
		Operator:     s("Military - U.S. Army"),
		FlightNo:     s("?"),
		Route:        s("Demonstration"),
		ACType:       s("Wright Flyer III"),
		Registration: s("?"),
		CnLn:         s("1"),
		Aboard:       s("2 (passengers:1 crew:1)"),
		Fatalities:   s("1 (passengers:1 crew:0)"),
		Ground:       s("0"),
		Summary:      s("  During a demonstration flight, a U.S. Army flyer flown by Orville Wright nose-dived.  "),
	}
}

func TestCleanRow(t *testing.T) {
	rec, anomalies := NewTransformer(2018).CleanRow(rawFixture())

	assert.Empty(t, anomalies)
	assert.Equal(t, int64(1), rec.RowID)
	assert.Equal(t, "2008-09-17", *rec.Date)
	assert.Equal(t, "17:18", *rec.Time)
	assert.Equal(t, "Fort Myer, Virginia", *rec.Location)
	assert.Nil(t, rec.FlightNo)
	assert.Nil(t, rec.Registration)
	assert.Equal(t, int64(2), *rec.AboardTotal)
	assert.Equal(t, int64(1), *rec.AboardPassengers)
	assert.Equal(t, int64(1), *rec.AboardCrew)
	assert.Equal(t, int64(1), *rec.FatalitiesAboard)
	assert.Equal(t, int64(0), *rec.FatalitiesCrew)
	assert.Equal(t, int64(0), *rec.Ground)
	assert.Equal(t, int64(1), *rec.FatalitiesTotal)
	assert.Equal(t, "During a demonstration flight, a U.S. Army flyer flown by Orville Wright nose-dived.", *rec.Summary)
}

func TestCleanRowDegradesFieldByField(t *testing.T) {
	raw := rawFixture()
	raw.RowID = 9
	raw.Date = s("sometime in 1950")
	raw.Time = s("afternoon")
	raw.Ground = s("-1")
	raw.Aboard = s("12 (passengers:10 crew:x)")

	rec, anomalies := NewTransformer(2018).CleanRow(raw)

	require.Len(t, anomalies, 4)
	fields := make([]string, len(anomalies))
	for i, a := range anomalies {
		fields[i] = a.Field
		assert.Equal(t, int64(9), a.RowID)
		assert.NotEmpty(t, a.Reason)
	}
	assert.ElementsMatch(t, []string{"date", "time", "aboard", "ground"}, fields)
	assert.Equal(t, "sometime in 1950", anomalies[0].Raw)

	assert.Nil(t, rec.Date)
	assert.Nil(t, rec.Time)
	assert.Nil(t, rec.Ground)
	assert.Equal(t, int64(12), *rec.AboardTotal)
	assert.Equal(t, int64(10), *rec.AboardPassengers)
	assert.Nil(t, rec.AboardCrew)
	assert.Equal(t, "Military - U.S. Army", *rec.Operator)
	assert.Equal(t, int64(1), *rec.FatalitiesTotal)
}

func TestCleanRowFatalitiesTotal(t *testing.T) {
	raw := models.RawRecord{RowID: 1}
	rec, _ := NewTransformer(2018).CleanRow(raw)
	assert.Nil(t, rec.FatalitiesTotal)

	raw.Ground = s("71")
	rec, _ = NewTransformer(2018).CleanRow(raw)
	assert.Equal(t, int64(71), *rec.FatalitiesTotal)

	raw.Fatalities = s("5")
	rec, _ = NewTransformer(2018).CleanRow(raw)
	assert.Equal(t, int64(76), *rec.FatalitiesTotal)
}

func TestCleanRowIsIdempotent(t *testing.T) {
	tr := NewTransformer(2018)
	inputs := []models.RawRecord{
		rawFixture(),
		{RowID: 2, Date: s("01-Aug-85"), Aboard: s("? (passengers:18 crew:?)"), Fatalities: s("20 (passengers:18 crew:3)")},
		{RowID: 3, Time: s("930"), Aboard: s("7"), Ground: s("?")},
		{RowID: 4},
	}

	for _, raw := range inputs {
		first, _ := tr.CleanRow(raw)
		second, anomalies := tr.CleanRow(first.Raw())
		assert.Empty(t, anomalies)
		assert.Equal(t, first, second, "row %d", raw.RowID)
	}
}
