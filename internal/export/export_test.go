package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/BartekS5/crashclean/internal/etl"
	"github.com/BartekS5/crashclean/pkg/models"
)

var meta = []models.ColumnMetadata{
	{Field: "date", DataType: "DATE", TotalRows: 3, NullCount: 1, UniqueCount: 2, Description: "Date of the crash, with a comma"},
	{Field: "ground", DataType: "INTEGER", TotalRows: 3, NullCount: 0, UniqueCount: 1, Description: "Ground fatalities"},
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteMetadataCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "metadata.csv")
	require.NoError(t, WriteMetadataCSV(path, meta))

	assert.Equal(t, [][]string{
		{"field", "data_type", "total_rows", "num_na", "num_unique", "description"},
		{"date", "DATE", "3", "1", "2", "Date of the crash, with a comma"},
		{"ground", "INTEGER", "3", "0", "1", "Ground fatalities"},
	}, readCSV(t, path))
}

func TestWriteMetadataXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.xlsx")
	require.NoError(t, WriteMetadataXLSX(path, meta))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"metadata"}, f.GetSheetList())
	rows, err := f.GetRows("metadata")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, MetadataHeader, rows[0])
	assert.Equal(t, []string{"ground", "INTEGER", "3", "0", "1", "Ground fatalities"}, rows[2])
}

func TestWriteUniqueCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "unique")
	path := UniquePath(dir, "operator")
	assert.Equal(t, filepath.Join(dir, "unique_operator.csv"), path)

	values := []etl.ValueCount{{Value: "", Count: 4}, {Value: "Aeroflot", Count: 2}, {Value: "Pan Am, Inc.", Count: 1}}
	require.NoError(t, WriteUniqueCSV(path, "operator", values))
	assert.Equal(t, [][]string{{"operator", "count"}, {"", "4"}, {"Aeroflot", "2"}, {"Pan Am, Inc.", "1"}}, readCSV(t, path))
}
