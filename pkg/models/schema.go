// Package models holds the raw and normalized incident row types and the
// fixed table layout both stores are expected to follow.
package models

// LogicalType is the storage type a normalized column is declared with.
type LogicalType string

const (
	TypeInteger LogicalType = "INTEGER"
	TypeText    LogicalType = "TEXT"
)

// ColumnSpec describes one column of the normalized incident table.
type ColumnSpec struct {
	Name        string
	Type        LogicalType
	Description string
}

// Column names of the normalized table.
const (
	ColRowID                = "row_id"
	ColDate                 = "date"
	ColTime                 = "time"
	ColLocation             = "location"
	ColOperator             = "operator"
	ColFlightNo             = "flight_no"
	ColRoute                = "route"
	ColACType               = "ac_type"
	ColRegistration         = "registration"
	ColCnLn                 = "cn_ln"
	ColAboardTotal          = "aboard_total"
	ColAboardPassengers     = "aboard_passengers"
	ColAboardCrew           = "aboard_crew"
	ColFatalitiesAboard     = "fatalities_aboard"
	ColFatalitiesPassengers = "fatalities_passengers"
	ColFatalitiesCrew       = "fatalities_crew"
	ColGround               = "ground"
	ColFatalitiesTotal      = "fatalities_total"
	ColSummary              = "summary"
)

// Raw-only column names. Text columns share their names with the
// normalized table.
const (
	RawAboard     = "aboard"
	RawFatalities = "fatalities"
)

// NormalizedColumns is the normalized table layout, in storage order.
var NormalizedColumns = []ColumnSpec{
	{ColRowID, TypeInteger, "Position of the row in the source table (1-based)"},
	{ColDate, TypeText, "Date of the crash (ISO format YYYY-MM-DD)"},
	{ColTime, TypeText, "Time of the crash (HH:MM, 24-hour format)"},
	{ColLocation, TypeText, "Location of the crash"},
	{ColOperator, TypeText, "Airline or operator"},
	{ColFlightNo, TypeText, "Flight number assigned by the aircraft operator"},
	{ColRoute, TypeText, "Complete or partial route flown prior to the accident"},
	{ColACType, TypeText, "Aircraft type"},
	{ColRegistration, TypeText, "ICAO registration of the aircraft"},
	{ColCnLn, TypeText, "Construction or serial number / Line or fuselage number"},
	{ColAboardTotal, TypeInteger, "Total number of people aboard"},
	{ColAboardPassengers, TypeInteger, "Number of passengers aboard"},
	{ColAboardCrew, TypeInteger, "Number of crew aboard"},
	{ColFatalitiesAboard, TypeInteger, "Total number of fatalities aboard"},
	{ColFatalitiesPassengers, TypeInteger, "Number of passenger fatalities"},
	{ColFatalitiesCrew, TypeInteger, "Number of crew fatalities"},
	{ColGround, TypeInteger, "Number of ground fatalities (people killed on the ground)"},
	{ColFatalitiesTotal, TypeInteger, "Total number of fatalities"},
	{ColSummary, TypeText, "Brief description of the accident and cause if known"},
}

// RawColumns lists the columns the source table must provide.
var RawColumns = []string{
	ColDate, ColTime, ColLocation, ColOperator, ColFlightNo, ColRoute,
	ColACType, ColRegistration, ColCnLn, RawAboard, RawFatalities, ColGround,
	ColSummary,
}

// ColumnNames returns the normalized column names in storage order.
func ColumnNames() []string {
	names := make([]string, len(NormalizedColumns))
	for i, c := range NormalizedColumns {
		names[i] = c.Name
	}
	return names
}

// LookupColumn returns the declaration of a normalized column.
func LookupColumn(name string) (ColumnSpec, bool) {
	for _, c := range NormalizedColumns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

// Describe returns the field description for a column, or "".
func Describe(name string) string {
	c, _ := LookupColumn(name)
	return c.Description
}
