// Package validate checks a normalized incident table and reports what it
// finds. It never modifies the table.
package validate

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/BartekS5/crashclean/internal/config"
	"github.com/BartekS5/crashclean/internal/etl"
	"github.com/BartekS5/crashclean/pkg/database"
	"github.com/BartekS5/crashclean/pkg/models"
	"github.com/BartekS5/crashclean/pkg/utils"
)

var clockRe = regexp.MustCompile(`^(\d{2}):(\d{2})$`)

// Declared column types accepted for each logical type, per driver.
var typeAliases = map[string]models.LogicalType{
	"INTEGER":           models.TypeInteger,
	"INT":               models.TypeInteger,
	"BIGINT":            models.TypeInteger,
	"SMALLINT":          models.TypeInteger,
	"TINYINT":           models.TypeInteger,
	"INT2":              models.TypeInteger,
	"INT4":              models.TypeInteger,
	"INT8":              models.TypeInteger,
	"TEXT":              models.TypeText,
	"NTEXT":             models.TypeText,
	"VARCHAR":           models.TypeText,
	"NVARCHAR":          models.TypeText,
	"CHAR":              models.TypeText,
	"NCHAR":             models.TypeText,
	"BPCHAR":            models.TypeText,
	"CHARACTER VARYING": models.TypeText,
}

// Validator runs the quality checks over a normalized table.
type Validator struct {
	DateMin   time.Time
	DateMax   time.Time
	MaxListed int
}

func NewValidator(opts config.ValidateOptions) (*Validator, error) {
	lo, hi, err := opts.DateRange()
	if err != nil {
		return nil, err
	}
	return &Validator{DateMin: lo, DateMax: hi, MaxListed: opts.MaxListed}, nil
}

type row struct {
	id     int64
	values map[string]interface{}
}

// Validate reads the table once and runs every check over the rows held in
// memory. Only a failure to read the table is returned as an error.
func (v *Validator) Validate(ctx context.Context, store *database.Store, table string) (*Report, error) {
	fail := func(op string, err error) error {
		return &etl.StoreError{Store: store.Label, Op: op, Err: err}
	}

	cols, err := store.Columns(ctx, table)
	if err != nil {
		return nil, fail(fmt.Sprintf("open table %s", table), err)
	}
	present := make(map[string]bool, len(cols))
	for _, c := range cols {
		present[c.Name] = true
	}

	query := fmt.Sprintf("SELECT * FROM %s", store.Quote(table))
	if present[models.ColRowID] {
		query += " ORDER BY " + store.Quote(models.ColRowID)
	} else {
		query += store.OrderClause()
	}
	rs, err := store.QueryxContext(ctx, query)
	if err != nil {
		return nil, fail("read rows", err)
	}
	defer rs.Close()

	var rows []row
	for rs.Next() {
		values := make(map[string]interface{}, len(cols))
		if err := rs.MapScan(values); err != nil {
			return nil, fail("scan row", err)
		}
		id := int64(len(rows) + 1)
		if rid, ok := values[models.ColRowID]; ok && utils.IsInteger(rid) {
			id, _ = utils.ConvertToInt(rid)
		}
		rows = append(rows, row{id: id, values: values})
	}
	if err := rs.Err(); err != nil {
		return nil, fail("read rows", err)
	}

	report := &Report{Table: table, Rows: len(rows), MaxListed: v.MaxListed}
	v.checkSchema(report, cols)
	v.checkTypes(report, rows, present)
	v.checkRanges(report, rows, present)
	v.checkFormats(report, rows, present)
	v.checkCrossTotals(report, rows)
	v.checkDuplicates(report, rows)
	return report, nil
}

func logicalType(declared string) (models.LogicalType, bool) {
	t := strings.ToUpper(strings.TrimSpace(declared))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	lt, ok := typeAliases[t]
	return lt, ok
}

func (v *Validator) checkSchema(r *Report, cols []database.ColumnInfo) {
	declared := make(map[string]string, len(cols))
	for _, c := range cols {
		declared[c.Name] = c.DatabaseType
	}

	for _, spec := range models.NormalizedColumns {
		dt, ok := declared[spec.Name]
		if !ok {
			r.add(Finding{Category: CategorySchema, Severity: SeverityError, Column: spec.Name,
				Message: fmt.Sprintf("column %q is missing", spec.Name)})
			continue
		}
		if lt, known := logicalType(dt); !known || lt != spec.Type {
			r.add(Finding{Category: CategorySchema, Severity: SeverityError, Column: spec.Name,
				Message: fmt.Sprintf("column %q declared as %s, expected %s", spec.Name, dt, spec.Type)})
		}
	}

	for _, c := range cols {
		if _, ok := models.LookupColumn(c.Name); !ok {
			r.add(Finding{Category: CategorySchema, Severity: SeverityWarning, Column: c.Name,
				Message: fmt.Sprintf("unexpected column %q (%s)", c.Name, c.DatabaseType)})
		}
	}
}

func (v *Validator) checkTypes(r *Report, rows []row, present map[string]bool) {
	for _, spec := range models.NormalizedColumns {
		if !present[spec.Name] {
			continue
		}
		for _, rw := range rows {
			val := rw.values[spec.Name]
			if val == nil {
				continue
			}
			var problem string
			switch {
			case spec.Type == models.TypeInteger && !utils.IsInteger(val):
				problem = "non-integer"
			case spec.Type == models.TypeText && !utils.IsText(val):
				problem = "non-text"
			case spec.Name == models.ColDate:
				if _, err := utils.ConvertDateTime(val); err != nil {
					problem = "non-ISO date"
				}
			}
			if problem != "" {
				r.add(Finding{Category: CategoryType, Severity: SeverityError, Column: spec.Name,
					RowIDs:  []int64{rw.id},
					Message: fmt.Sprintf("%s: %s value %s", spec.Name, problem, display(val))})
			}
		}
	}
}

func (v *Validator) checkRanges(r *Report, rows []row, present map[string]bool) {
	if present[models.ColDate] {
		for _, rw := range rows {
			val := rw.values[models.ColDate]
			if val == nil || !utils.IsText(val) {
				continue
			}
			d, err := utils.ConvertDateTime(val)
			if err != nil {
				continue
			}
			if d.Before(v.DateMin) || d.After(v.DateMax) {
				r.add(Finding{Category: CategoryRange, Severity: SeverityWarning, Column: models.ColDate,
					RowIDs: []int64{rw.id},
					Message: fmt.Sprintf("date %s outside %s..%s", d.Format("2006-01-02"),
						v.DateMin.Format("2006-01-02"), v.DateMax.Format("2006-01-02"))})
			}
		}
	}

	for _, spec := range models.NormalizedColumns {
		if spec.Type != models.TypeInteger || spec.Name == models.ColRowID || !present[spec.Name] {
			continue
		}
		for _, rw := range rows {
			n := intValue(rw, spec.Name)
			if n != nil && *n < 0 {
				r.add(Finding{Category: CategoryRange, Severity: SeverityError, Column: spec.Name,
					RowIDs:  []int64{rw.id},
					Message: fmt.Sprintf("%s is negative: %d", spec.Name, *n)})
			}
		}
	}
}

func (v *Validator) checkFormats(r *Report, rows []row, present map[string]bool) {
	if !present[models.ColTime] {
		return
	}
	for _, rw := range rows {
		val := rw.values[models.ColTime]
		if val == nil || !utils.IsText(val) {
			continue
		}
		s := *utils.ConvertToText(val)
		if !validClock(s) {
			r.add(Finding{Category: CategoryFormat, Severity: SeverityError, Column: models.ColTime,
				RowIDs:  []int64{rw.id},
				Message: fmt.Sprintf("time %q is not HH:MM", s)})
		}
	}
}

func validClock(s string) bool {
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	// two digits each, so only the upper bounds matter
	return m[1] < "24" && m[2] < "60"
}

func (v *Validator) checkCrossTotals(r *Report, rows []row) {
	warn := func(rw row, msg string, args ...interface{}) {
		r.add(Finding{Category: CategoryCrossTotal, Severity: SeverityWarning,
			RowIDs: []int64{rw.id}, Message: fmt.Sprintf(msg, args...)})
	}

	for _, rw := range rows {
		aTotal := intValue(rw, models.ColAboardTotal)
		aPass := intValue(rw, models.ColAboardPassengers)
		aCrew := intValue(rw, models.ColAboardCrew)
		fAboard := intValue(rw, models.ColFatalitiesAboard)
		fPass := intValue(rw, models.ColFatalitiesPassengers)
		fCrew := intValue(rw, models.ColFatalitiesCrew)
		ground := intValue(rw, models.ColGround)
		fTotal := intValue(rw, models.ColFatalitiesTotal)

		if aTotal != nil && aPass != nil && aCrew != nil && *aPass+*aCrew != *aTotal {
			warn(rw, "aboard mismatch: %d+%d≠%d", *aPass, *aCrew, *aTotal)
		}
		if fAboard != nil && fPass != nil && fCrew != nil && *fPass+*fCrew != *fAboard {
			warn(rw, "fatalities mismatch: %d+%d≠%d", *fPass, *fCrew, *fAboard)
		}
		if fAboard != nil && aTotal != nil && *fAboard > *aTotal {
			warn(rw, "fatalities exceed aboard: %d>%d", *fAboard, *aTotal)
		}
		if fTotal != nil && fAboard != nil && ground != nil && *fAboard+*ground != *fTotal {
			warn(rw, "fatalities_total mismatch: %d+%d≠%d", *fAboard, *ground, *fTotal)
		}
	}
}

func (v *Validator) checkDuplicates(r *Report, rows []row) {
	groups := make(map[string][]int64)
	var order []string
	for _, rw := range rows {
		parts := make([]string, 0, 3)
		for _, col := range []string{models.ColDate, models.ColOperator, models.ColRoute} {
			val := rw.values[col]
			if val == nil || !utils.IsText(val) {
				break
			}
			parts = append(parts, *utils.ConvertToText(val))
		}
		if len(parts) < 3 {
			continue
		}
		key := strings.Join(parts, "\x00")
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], rw.id)
	}

	for _, key := range order {
		ids := groups[key]
		if len(ids) < 2 {
			continue
		}
		parts := strings.Split(key, "\x00")
		r.add(Finding{Category: CategoryDuplicate, Severity: SeverityWarning, RowIDs: ids,
			Message: fmt.Sprintf("possible duplicate (date, operator, route) = (%s, %s, %s)", parts[0], parts[1], parts[2])})
	}
}

// intValue returns the integer in the named column, or nil when it is NULL,
// absent or not an integer.
func intValue(rw row, col string) *int64 {
	val := rw.values[col]
	if val == nil || !utils.IsInteger(val) {
		return nil
	}
	n, err := utils.ConvertToInt(val)
	if err != nil {
		return nil
	}
	return &n
}

func display(val interface{}) string {
	if utils.IsText(val) {
		return fmt.Sprintf("%q", *utils.ConvertToText(val))
	}
	return fmt.Sprintf("%v (%T)", val, val)
}
