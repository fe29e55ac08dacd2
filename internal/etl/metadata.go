package etl

import (
	"fmt"
	"regexp"

	"github.com/BartekS5/crashclean/pkg/models"
	"github.com/BartekS5/crashclean/pkg/utils"
)

// Inferred data types reported in column metadata.
const (
	DataTypeInteger = "INTEGER"
	DataTypeDate    = "DATE"
	DataTypeTime    = "TIME"
	DataTypeText    = "TEXT"
)

var (
	storedDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	storedTimeRe = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

type columnStats struct {
	nulls    int
	distinct map[string]struct{}
	ints     int
	dates    int
	times    int
	other    int
}

// MetadataCollector accumulates per-column statistics over a stream of rows.
type MetadataCollector struct {
	columns []string
	total   int
	stats   map[string]*columnStats
}

func NewMetadataCollector(columns []string) *MetadataCollector {
	c := &MetadataCollector{
		columns: columns,
		stats:   make(map[string]*columnStats, len(columns)),
	}
	for _, col := range columns {
		c.stats[col] = &columnStats{distinct: make(map[string]struct{})}
	}
	return c
}

func (c *MetadataCollector) Add(row map[string]interface{}) {
	c.total++
	for _, col := range c.columns {
		st := c.stats[col]
		v := row[col]
		if v == nil {
			st.nulls++
			continue
		}
		switch {
		case utils.IsInteger(v):
			st.ints++
			st.distinct[fmt.Sprintf("i|%v", v)] = struct{}{}
		case utils.IsText(v):
			s := *utils.ConvertToText(v)
			switch {
			case storedDateRe.MatchString(s):
				st.dates++
			case storedTimeRe.MatchString(s):
				st.times++
			default:
				st.other++
			}
			st.distinct["s|"+s] = struct{}{}
		default:
			st.other++
			st.distinct[fmt.Sprintf("o|%v", v)] = struct{}{}
		}
	}
}

// Result returns one entry per column in the collector's column order.
func (c *MetadataCollector) Result() []models.ColumnMetadata {
	out := make([]models.ColumnMetadata, 0, len(c.columns))
	for _, col := range c.columns {
		st := c.stats[col]
		out = append(out, models.ColumnMetadata{
			Field:       col,
			DataType:    st.inferType(col),
			TotalRows:   c.total,
			NullCount:   st.nulls,
			UniqueCount: len(st.distinct),
			Description: models.Describe(col),
		})
	}
	return out
}

// inferType picks the type shared by every non-NULL value. An all-NULL
// column falls back to its declared type.
func (st *columnStats) inferType(col string) string {
	nonNull := st.ints + st.dates + st.times + st.other
	switch {
	case nonNull == 0:
		if spec, ok := models.LookupColumn(col); ok && spec.Type == models.TypeInteger {
			return DataTypeInteger
		}
		return DataTypeText
	case st.ints == nonNull:
		return DataTypeInteger
	case st.dates == nonNull:
		return DataTypeDate
	case st.times == nonNull:
		return DataTypeTime
	default:
		return DataTypeText
	}
}

// MetadataFromRecords summarizes records that were never written to a store.
func MetadataFromRecords(records []models.Record) []models.ColumnMetadata {
	cols := models.ColumnNames()
	c := NewMetadataCollector(cols)
	for i := range records {
		vals := records[i].Values()
		row := make(map[string]interface{}, len(cols))
		for j, col := range cols {
			row[col] = vals[j]
		}
		c.Add(row)
	}
	return c.Result()
}
