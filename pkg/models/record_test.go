package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCounts(t *testing.T) {
	tests := []struct {
		name                    string
		total, passengers, crew *int64
		want                    *string
	}{
		{"all unknown", nil, nil, nil, nil},
		{"total only", Int64(5), nil, nil, String("5")},
		{"full breakdown", Int64(20), Int64(17), Int64(3), String("20 (passengers:17 crew:3)")},
		{"missing parts", nil, Int64(18), nil, String("? (passengers:18 crew:?)")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCounts(tt.total, tt.passengers, tt.crew))
		})
	}
}

func TestValuesFollowColumnOrder(t *testing.T) {
	r := Record{RowID: 3, Date: String("1950-01-01"), Ground: Int64(2), Summary: String("s")}
	vals := r.Values()

	cols := ColumnNames()
	assert.Len(t, vals, len(cols))
	byName := make(map[string]interface{}, len(cols))
	for i, c := range cols {
		byName[c] = vals[i]
	}
	assert.Equal(t, int64(3), byName[ColRowID])
	assert.Equal(t, "1950-01-01", byName[ColDate])
	assert.Equal(t, int64(2), byName[ColGround])
	assert.Equal(t, "s", byName[ColSummary])
	assert.Nil(t, byName[ColTime])
	assert.Nil(t, byName[ColFatalitiesTotal])
}

func TestDescribe(t *testing.T) {
	assert.NotEmpty(t, Describe(ColFatalitiesTotal))
	_, ok := LookupColumn("aboard")
	assert.False(t, ok, "raw-only columns are not part of the normalized schema")
}
