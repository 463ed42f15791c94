// Package source reads biomarker rows from tabular input files.
//
// Both CSV and XLSX inputs are supported; the format is picked by file
// extension. Columns are matched by header name: "category",
// "Biomarkers_en" and "Biomarkers_cn". A missing column yields empty
// strings rather than an error, matching how the marker list has
// historically been maintained.
package source

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/raphaelgruber/markerdocs/internal/models"
)

// Header names recognized in the source file.
const (
	colCategory = "category"
	colNameEN   = "biomarkers_en"
	colNameCN   = "biomarkers_cn"
)

// ReadMarkers reads all markers from path, assigning each data row its
// 1-based position as the marker index (header excluded). Rows with
// index < start are dropped; the remaining rows keep their original
// indices, so resuming from a later row never renames output files.
func ReadMarkers(path string, start int) ([]models.Marker, error) {
	if start < 1 {
		start = 1
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path, start)
	default:
		return readCSV(path, start)
	}
}

func readCSV(path string, start int) ([]models.Marker, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("source %s is empty", path)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := mapColumns(header)

	var markers []models.Marker
	for idx := 1; ; idx++ {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", idx, err)
		}
		if idx < start {
			continue
		}
		markers = append(markers, rowToMarker(idx, rec, cols))
	}

	return markers, nil
}

func readXLSX(path string, start int) ([]models.Marker, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("source %s has no sheets", path)
	}

	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("source %s is empty", path)
	}
	cols := mapColumns(rows[0])

	var markers []models.Marker
	for i, rec := range rows[1:] {
		idx := i + 1
		if idx < start {
			continue
		}
		markers = append(markers, rowToMarker(idx, rec, cols))
	}

	return markers, nil
}

// columnIndex maps the recognized columns to their positions.
// A value of -1 means the column is absent.
type columnIndex struct {
	category int
	nameEN   int
	nameCN   int
}

func mapColumns(header []string) columnIndex {
	cols := columnIndex{category: -1, nameEN: -1, nameCN: -1}
	for i, h := range header {
		// The first header cell may carry a UTF-8 BOM.
		h = strings.TrimPrefix(h, "\ufeff")
		switch strings.ToLower(strings.TrimSpace(h)) {
		case colCategory:
			cols.category = i
		case colNameEN:
			cols.nameEN = i
		case colNameCN:
			cols.nameCN = i
		}
	}
	return cols
}

func rowToMarker(idx int, rec []string, cols columnIndex) models.Marker {
	cell := func(i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	return models.Marker{
		Index:    idx,
		Category: cell(cols.category),
		NameEN:   cell(cols.nameEN),
		NameCN:   cell(cols.nameCN),
	}
}
