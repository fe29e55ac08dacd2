package etl

import (
	"errors"

	"github.com/BartekS5/crashclean/pkg/models"
)

// Transformer cleans raw incident rows. It holds only configuration, so one
// value can be shared by any number of runs.
type Transformer struct {
	CutoffYear int
}

func NewTransformer(cutoffYear int) *Transformer {
	return &Transformer{CutoffYear: cutoffYear}
}

// CleanRow applies every field rule to its field. Fields are independent:
// a failure in one never affects the others. Failures are returned as
// anomalies and the affected values are NULL.
func (t *Transformer) CleanRow(raw models.RawRecord) (models.Record, []Anomaly) {
	var anomalies []Anomaly
	note := func(field string, value *string, err error) {
		if err == nil {
			return
		}
		a := Anomaly{RowID: raw.RowID, Field: field, Reason: err.Error()}
		var fe *FormatError
		if errors.As(err, &fe) {
			a.Reason = fe.Reason
		}
		if value != nil {
			a.Raw = *value
		}
		anomalies = append(anomalies, a)
	}

	rec := models.Record{
		RowID:        raw.RowID,
		Location:     NormalizeText(raw.Location),
		Operator:     NormalizeText(raw.Operator),
		FlightNo:     NormalizeText(raw.FlightNo),
		Route:        NormalizeText(raw.Route),
		ACType:       NormalizeText(raw.ACType),
		Registration: NormalizeText(raw.Registration),
		CnLn:         NormalizeText(raw.CnLn),
		Summary:      NormalizeText(raw.Summary),
	}

	var err error
	rec.Date, err = NormalizeDate(raw.Date, t.CutoffYear)
	note(models.ColDate, raw.Date, err)

	rec.Time, err = NormalizeTime(raw.Time)
	note(models.ColTime, raw.Time, err)

	aboard, err := NormalizeCounts(raw.Aboard)
	note(models.RawAboard, raw.Aboard, err)
	rec.AboardTotal, rec.AboardPassengers, rec.AboardCrew = aboard.Total, aboard.Passengers, aboard.Crew

	fatalities, err := NormalizeCounts(raw.Fatalities)
	note(models.RawFatalities, raw.Fatalities, err)
	rec.FatalitiesAboard, rec.FatalitiesPassengers, rec.FatalitiesCrew = fatalities.Total, fatalities.Passengers, fatalities.Crew

	rec.Ground, err = NormalizeInt(raw.Ground)
	note(models.ColGround, raw.Ground, err)

	// Unknown on both sides stays NULL rather than 0: a row with no casualty
	// data must not count as a zero-fatality crash.
	rec.FatalitiesTotal = sumCounts(rec.FatalitiesAboard, rec.Ground)

	return rec, anomalies
}

// sumCounts adds counts, treating NULL as zero. All NULL gives NULL.
func sumCounts(vals ...*int64) *int64 {
	var total int64
	seen := false
	for _, v := range vals {
		if v != nil {
			total += *v
			seen = true
		}
	}
	if !seen {
		return nil
	}
	return &total
}
