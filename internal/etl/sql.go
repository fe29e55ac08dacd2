package etl

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/BartekS5/crashclean/pkg/database"
	"github.com/BartekS5/crashclean/pkg/models"
	"github.com/BartekS5/crashclean/pkg/utils"
)

// SQLExtractor reads raw incident rows from a relational table.
type SQLExtractor struct {
	Store *database.Store
	Table string
}

func (e *SQLExtractor) fail(op string, err error) error {
	return &StoreError{Store: e.Store.Label, Op: op, Err: err}
}

// sourceColumns maps each required raw column to its actual name in the
// table. Matching is case-insensitive.
func (e *SQLExtractor) sourceColumns(ctx context.Context) ([]string, error) {
	cols, err := e.Store.Columns(ctx, e.Table)
	if err != nil {
		return nil, e.fail(fmt.Sprintf("open table %s", e.Table), err)
	}
	actual := make(map[string]string, len(cols))
	for _, c := range cols {
		actual[strings.ToLower(c.Name)] = c.Name
	}

	var names, missing []string
	for _, want := range models.RawColumns {
		name, ok := actual[want]
		if !ok {
			missing = append(missing, want)
			continue
		}
		names = append(names, name)
	}
	if len(missing) > 0 {
		return nil, e.fail(fmt.Sprintf("check table %s", e.Table),
			fmt.Errorf("missing required columns: %s", strings.Join(missing, ", ")))
	}
	return names, nil
}

// Extract verifies the table layout, then reads all rows in one pass.
// Row ids are assigned 1..N in the order the store returns them.
func (e *SQLExtractor) Extract(ctx context.Context) ([]models.RawRecord, error) {
	names, err := e.sourceColumns(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s",
		e.Store.QuoteAll(names), e.Store.Quote(e.Table), e.Store.OrderClause())
	rows, err := e.Store.QueryContext(ctx, query)
	if err != nil {
		return nil, e.fail("read rows", err)
	}
	defer rows.Close()

	var records []models.RawRecord
	vals := make([]interface{}, len(names))
	ptrs := make([]interface{}, len(names))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, e.fail("scan row", err)
		}
		text := make([]*string, len(vals))
		for i, v := range vals {
			text[i] = utils.ConvertToText(v)
		}
		records = append(records, models.RawRecord{
			RowID:        int64(len(records) + 1),
			Date:         text[0],
			Time:         text[1],
			Location:     text[2],
			Operator:     text[3],
			FlightNo:     text[4],
			Route:        text[5],
			ACType:       text[6],
			Registration: text[7],
			CnLn:         text[8],
			Aboard:       text[9],
			Fatalities:   text[10],
			Ground:       text[11],
			Summary:      text[12],
		})
	}
	if err := rows.Err(); err != nil {
		return nil, e.fail("read rows", err)
	}
	return records, nil
}

// ValueCount is one distinct raw value and how many rows hold it.
type ValueCount struct {
	Value string
	Count int
}

// DistinctValues returns the distinct raw values of one source column with
// their row counts, sorted by value. NULL is rendered as "".
func (e *SQLExtractor) DistinctValues(ctx context.Context, column string) ([]ValueCount, error) {
	if !database.ValidIdent(column) {
		return nil, fmt.Errorf("invalid column name %q", column)
	}
	col := e.Store.Quote(column)
	query := fmt.Sprintf("SELECT %s, COUNT(*) FROM %s GROUP BY %s", col, e.Store.Quote(e.Table), col)
	rows, err := e.Store.QueryContext(ctx, query)
	if err != nil {
		return nil, e.fail(fmt.Sprintf("read column %s", column), err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var v interface{}
		var n int
		if err := rows.Scan(&v, &n); err != nil {
			return nil, e.fail("scan value", err)
		}
		text := ""
		if p := utils.ConvertToText(v); p != nil {
			text = *p
		}
		// '' and NULL both render as ""
		counts[text] += n
	}
	if err := rows.Err(); err != nil {
		return nil, e.fail(fmt.Sprintf("read column %s", column), err)
	}

	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out, nil
}

// SQLLoader writes normalized records into a new relational table.
type SQLLoader struct {
	Store     *database.Store
	Table     string
	BatchSize int
	Overwrite bool
}

func (l *SQLLoader) fail(op string, err error) error {
	return &StoreError{Store: l.Store.Label, Op: op, Err: err}
}

func (l *SQLLoader) Prepare(ctx context.Context) error {
	if !database.ValidIdent(l.Table) {
		return l.fail("prepare", fmt.Errorf("invalid table name %q", l.Table))
	}
	if l.Store.TableExists(ctx, l.Table) && !l.Overwrite {
		return l.fail(fmt.Sprintf("create table %s", l.Table),
			fmt.Errorf("table already exists and overwrite is disabled"))
	}
	return nil
}

// Load replaces the destination table and inserts all records in order,
// in a single transaction.
func (l *SQLLoader) Load(ctx context.Context, records []models.Record) error {
	tx, err := l.Store.BeginTxx(ctx, nil)
	if err != nil {
		return l.fail("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", l.Store.Quote(l.Table))); err != nil {
		return l.fail(fmt.Sprintf("drop table %s", l.Table), err)
	}
	if _, err := tx.ExecContext(ctx, l.createTableSQL()); err != nil {
		return l.fail(fmt.Sprintf("create table %s", l.Table), err)
	}

	batch := l.BatchSize
	if batch <= 0 {
		batch = 100
	}
	cols := models.ColumnNames()
	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"

	for start := 0; start < len(records); start += batch {
		end := start + batch
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		placeholders := make([]string, len(chunk))
		args := make([]interface{}, 0, len(chunk)*len(cols))
		for i := range chunk {
			placeholders[i] = rowPlaceholder
			args = append(args, chunk[i].Values()...)
		}
		query := tx.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			l.Store.Quote(l.Table), l.Store.QuoteAll(cols), strings.Join(placeholders, ", ")))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return l.fail(fmt.Sprintf("insert rows %d-%d", chunk[0].RowID, chunk[len(chunk)-1].RowID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return l.fail("commit", err)
	}
	return nil
}

// Metadata scans the written table once and summarizes every column.
func (l *SQLLoader) Metadata(ctx context.Context) ([]models.ColumnMetadata, error) {
	rows, err := l.Store.QueryxContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY %s",
		l.Store.Quote(l.Table), l.Store.Quote(models.ColRowID)))
	if err != nil {
		return nil, l.fail("read metadata", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, l.fail("read metadata", err)
	}
	collector := NewMetadataCollector(cols)
	for rows.Next() {
		row := make(map[string]interface{}, len(cols))
		if err := rows.MapScan(row); err != nil {
			return nil, l.fail("scan metadata row", err)
		}
		collector.Add(row)
	}
	if err := rows.Err(); err != nil {
		return nil, l.fail("read metadata", err)
	}
	return collector.Result(), nil
}

func (l *SQLLoader) createTableSQL() string {
	defs := make([]string, len(models.NormalizedColumns))
	for i, c := range models.NormalizedColumns {
		defs[i] = fmt.Sprintf("%s %s", l.Store.Quote(c.Name), columnType(l.Store.Driver, c.Type))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", l.Store.Quote(l.Table), strings.Join(defs, ",\n\t"))
}

func columnType(driver string, t models.LogicalType) string {
	switch {
	case t == models.TypeInteger && driver == database.DriverSQLite:
		return "INTEGER"
	case t == models.TypeInteger:
		return "BIGINT"
	case driver == database.DriverSQLServer:
		return "NVARCHAR(MAX)"
	default:
		return "TEXT"
	}
}
