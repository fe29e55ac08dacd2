package etl

import (
	"fmt"
)

// StoreError is a fatal failure to read the source store or write the
// destination store. It aborts the run.
type StoreError struct {
	Store string // store label, e.g. "sqlite3:rawdata/plane_crashes_data.db"
	Op    string // operation that failed, e.g. "read rows"
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %s: %v", e.Store, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// FormatError reports a raw value that does not follow its field grammar.
type FormatError struct {
	Value  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("cannot parse %q: %s", e.Value, e.Reason)
}

// Anomaly is a non-fatal parse failure of one field of one row. The
// normalized value of that field is NULL (or partially filled for composite
// count fields).
type Anomaly struct {
	RowID  int64  `json:"row_id" bson:"row_id"`
	Field  string `json:"field" bson:"field"`
	Raw    string `json:"raw" bson:"raw"`
	Reason string `json:"reason" bson:"reason"`
}

func (a Anomaly) String() string {
	return fmt.Sprintf("row %d %s=%q: %s", a.RowID, a.Field, a.Raw, a.Reason)
}
