// Package export writes column metadata and value listings to files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/BartekS5/crashclean/internal/etl"
	"github.com/BartekS5/crashclean/pkg/models"
)

// MetadataHeader is the header row of metadata exports.
var MetadataHeader = []string{"field", "data_type", "total_rows", "num_na", "num_unique", "description"}

const metadataSheet = "metadata"

func metadataRow(m models.ColumnMetadata) []string {
	return []string{
		m.Field, m.DataType,
		strconv.Itoa(m.TotalRows), strconv.Itoa(m.NullCount), strconv.Itoa(m.UniqueCount),
		m.Description,
	}
}

// WriteMetadataCSV writes one row per column, creating parent directories.
func WriteMetadataCSV(path string, meta []models.ColumnMetadata) error {
	rows := make([][]string, 0, len(meta)+1)
	rows = append(rows, MetadataHeader)
	for _, m := range meta {
		rows = append(rows, metadataRow(m))
	}
	return writeCSV(path, rows)
}

// WriteMetadataXLSX writes the same table as WriteMetadataCSV to a workbook
// with numeric cells for the counts.
func WriteMetadataXLSX(path string, meta []models.ColumnMetadata) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), metadataSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(MetadataHeader))
	for i, h := range MetadataHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(metadataSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, m := range meta {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{m.Field, m.DataType, m.TotalRows, m.NullCount, m.UniqueCount, m.Description}
		if err := f.SetSheetRow(metadataSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

// WriteUniqueCSV writes the distinct values of one field with their row
// counts, under a header naming the field.
func WriteUniqueCSV(path, field string, values []etl.ValueCount) error {
	rows := make([][]string, 0, len(values)+1)
	rows = append(rows, []string{field, "count"})
	for _, v := range values {
		rows = append(rows, []string{v.Value, strconv.Itoa(v.Count)})
	}
	return writeCSV(path, rows)
}

// UniquePath returns the file a unique-values dump for field is written to.
func UniquePath(dir, field string) string {
	return filepath.Join(dir, "unique_"+field+".csv")
}

func writeCSV(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}
