// Package importer reads equipment batches from spreadsheets. Supported are
// .xlsx (first sheet) and .csv files with the columns
// serial_number, name, image_url, status, category, location. A header row
// naming the columns is optional; without one the columns are taken in
// that order.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/equiplookup/internal/client/models"
	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

const (
	colSerial = iota
	colName
	colImage
	colStatus
	colCategory
	colLocation
	numColumns
)

var headerNames = map[string]int{
	"serial_number": colSerial,
	"serial":        colSerial,
	"name":          colName,
	"image_url":     colImage,
	"image":         colImage,
	"status":        colStatus,
	"category":      colCategory,
	"location":      colLocation,
}

// ReadFile picks the reader by file extension.
func ReadFile(path string) ([]models.EquipmentInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(f)
	case ".csv":
		return ReadCSV(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ReadXLSX reads the first sheet of a workbook.
func ReadXLSX(r io.Reader) ([]models.EquipmentInput, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return fromRows(rows), nil
}

func ReadCSV(r io.Reader) ([]models.EquipmentInput, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return fromRows(rows), nil
}

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// headerIndex maps column kinds to cell positions when row is a header.
func headerIndex(row []string) ([]int, bool) {
	idx := make([]int, numColumns)
	for i := range idx {
		idx[i] = -1
	}
	found := false
	for pos, cell := range row {
		if col, ok := headerNames[normalizeHeader(cell)]; ok && idx[col] == -1 {
			idx[col] = pos
			found = true
		}
	}
	return idx, found
}

// fromRows skips blank rows but keeps rows without a serial number so the
// gateway can report them.
func fromRows(rows [][]string) []models.EquipmentInput {
	out := make([]models.EquipmentInput, 0, len(rows))
	if len(rows) == 0 {
		return out
	}

	idx := []int{colSerial, colName, colImage, colStatus, colCategory, colLocation}
	if h, ok := headerIndex(rows[0]); ok {
		idx = h
		rows = rows[1:]
	}

	cell := func(row []string, col int) string {
		pos := idx[col]
		if pos < 0 || pos >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[pos])
	}

	for _, row := range rows {
		if blank(row) {
			continue
		}
		out = append(out, models.EquipmentInput{
			SerialNumber: cell(row, colSerial),
			Name:         cell(row, colName),
			ImageURL:     cell(row, colImage),
			Status:       models.Status(cell(row, colStatus)),
			Category:     cell(row, colCategory),
			Location:     cell(row, colLocation),
		})
	}
	return out
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
