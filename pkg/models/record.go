package models

import (
	"strconv"
	"strings"
)

// RawRecord is one incident row as stored in the source table. A nil field
// means the value was absent (NULL).
type RawRecord struct {
	RowID        int64
	Date         *string
	Time         *string
	Location     *string
	Operator     *string
	FlightNo     *string
	Route        *string
	ACType       *string
	Registration *string
	CnLn         *string
	Aboard       *string
	Fatalities   *string
	Ground       *string
	Summary      *string
}

// Record is a normalized incident row. Nil fields are stored as NULL.
type Record struct {
	RowID                int64   `db:"row_id"`
	Date                 *string `db:"date"`
	Time                 *string `db:"time"`
	Location             *string `db:"location"`
	Operator             *string `db:"operator"`
	FlightNo             *string `db:"flight_no"`
	Route                *string `db:"route"`
	ACType               *string `db:"ac_type"`
	Registration         *string `db:"registration"`
	CnLn                 *string `db:"cn_ln"`
	AboardTotal          *int64  `db:"aboard_total"`
	AboardPassengers     *int64  `db:"aboard_passengers"`
	AboardCrew           *int64  `db:"aboard_crew"`
	FatalitiesAboard     *int64  `db:"fatalities_aboard"`
	FatalitiesPassengers *int64  `db:"fatalities_passengers"`
	FatalitiesCrew       *int64  `db:"fatalities_crew"`
	Ground               *int64  `db:"ground"`
	FatalitiesTotal      *int64  `db:"fatalities_total"`
	Summary              *string `db:"summary"`
}

// Values returns the record's column values in NormalizedColumns order.
func (r *Record) Values() []interface{} {
	return []interface{}{
		r.RowID,
		textValue(r.Date), textValue(r.Time), textValue(r.Location),
		textValue(r.Operator), textValue(r.FlightNo), textValue(r.Route),
		textValue(r.ACType), textValue(r.Registration), textValue(r.CnLn),
		intValue(r.AboardTotal), intValue(r.AboardPassengers), intValue(r.AboardCrew),
		intValue(r.FatalitiesAboard), intValue(r.FatalitiesPassengers), intValue(r.FatalitiesCrew),
		intValue(r.Ground), intValue(r.FatalitiesTotal),
		textValue(r.Summary),
	}
}

// Raw renders the record back into the textual form of the source table.
// Cleaning the result yields the same record.
func (r *Record) Raw() RawRecord {
	return RawRecord{
		RowID:        r.RowID,
		Date:         r.Date,
		Time:         r.Time,
		Location:     r.Location,
		Operator:     r.Operator,
		FlightNo:     r.FlightNo,
		Route:        r.Route,
		ACType:       r.ACType,
		Registration: r.Registration,
		CnLn:         r.CnLn,
		Aboard:       FormatCounts(r.AboardTotal, r.AboardPassengers, r.AboardCrew),
		Fatalities:   FormatCounts(r.FatalitiesAboard, r.FatalitiesPassengers, r.FatalitiesCrew),
		Ground:       formatInt(r.Ground),
		Summary:      r.Summary,
	}
}

// FormatCounts renders a total/passengers/crew triple in the source
// notation "N (passengers:X crew:Y)", using "?" for unknown parts.
func FormatCounts(total, passengers, crew *int64) *string {
	if total == nil && passengers == nil && crew == nil {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(intOrUnknown(total))
	if passengers != nil || crew != nil {
		sb.WriteString(" (passengers:")
		sb.WriteString(intOrUnknown(passengers))
		sb.WriteString(" crew:")
		sb.WriteString(intOrUnknown(crew))
		sb.WriteString(")")
	}
	s := sb.String()
	return &s
}

func intOrUnknown(v *int64) string {
	if v == nil {
		return "?"
	}
	return strconv.FormatInt(*v, 10)
}

func formatInt(v *int64) *string {
	if v == nil {
		return nil
	}
	s := strconv.FormatInt(*v, 10)
	return &s
}

func textValue(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func intValue(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// ColumnMetadata summarizes one column of the normalized table.
type ColumnMetadata struct {
	Field       string `json:"field" bson:"field"`
	DataType    string `json:"data_type" bson:"data_type"`
	TotalRows   int    `json:"total_rows" bson:"total_rows"`
	NullCount   int    `json:"num_na" bson:"num_na"`
	UniqueCount int    `json:"num_unique" bson:"num_unique"`
	Description string `json:"description" bson:"description"`
}

// String and Int64 return pointers to v. They keep test fixtures short.
func String(v string) *string { return &v }

func Int64(v int64) *int64 { return &v }
