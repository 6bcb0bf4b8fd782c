// Package pointfile reads and writes labeled coordinate files.
//
// Two formats are supported: CSV and XLSX workbooks. Input files may
// carry a header row (label/name, lat/latitude, lon/lng/longitude in any
// order) or be positional (label,lat,lon or bare lat,lon). Rows whose
// coordinates do not parse or fall outside valid ranges are dropped and
// counted rather than failing the whole file.
package pointfile

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Record is one labeled coordinate row.
type Record struct {
	Label string
	Lat   float64
	Lon   float64
}

// Parse dispatches on the file name's extension. Anything that is not
// .xlsx is treated as CSV.
func Parse(name string, data []byte) ([]Record, int, error) {
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return ParseXLSX(bytes.NewReader(data))
	}
	return ParseCSV(bytes.NewReader(data))
}

// ParseCSV reads labeled coordinates from CSV input. The returned count
// is the number of rows dropped for unparseable or out-of-range values.
func ParseCSV(r io.Reader) ([]Record, int, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	badRows := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			badRows++
			continue
		}
		rows = append(rows, row)
	}

	records, skipped, err := parseRows(rows)
	return records, skipped + badRows, err
}

// ParseXLSX reads labeled coordinates from the first sheet of a workbook.
func ParseXLSX(r io.Reader) ([]Record, int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, 0, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, 0, err
	}
	return parseRows(rows)
}

// WriteXLSX streams records to w as a single-sheet workbook with a
// Label/Latitude/Longitude header.
func WriteXLSX(w io.Writer, sheetName string, records []Record) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return err
	}

	headers := []interface{}{"Label", "Latitude", "Longitude"}
	if err := sw.SetRow("A1", headers); err != nil {
		return err
	}

	for i, rec := range records {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{rec.Label, rec.Lat, rec.Lon}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}

	f.SetActiveSheet(index)
	if sheetName != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}

	return f.Write(w)
}

// Coords flattens records into the alternating lat/lon layout the
// pairing engine consumes.
func Coords(records []Record) []float64 {
	out := make([]float64, 0, 2*len(records))
	for _, rec := range records {
		out = append(out, rec.Lat, rec.Lon)
	}
	return out
}

func parseRows(rows [][]string) ([]Record, int, error) {
	records := []Record{}
	skipped := 0

	headered := false
	labelCol, latCol, lonCol := -1, -1, -1
	first := true

	for _, row := range rows {
		if blank(row) {
			continue
		}

		if first {
			first = false
			if !looksPositional(row) {
				var ok bool
				labelCol, latCol, lonCol, ok = headerColumns(row)
				if !ok {
					return nil, 0, fmt.Errorf("no coordinate columns in header")
				}
				headered = true
				continue
			}
		}

		var rec Record
		var errLat, errLon error
		if headered {
			rec.Lat, errLat = parseCoord(cell(row, latCol))
			rec.Lon, errLon = parseCoord(cell(row, lonCol))
			rec.Label = strings.TrimSpace(cell(row, labelCol))
		} else {
			switch {
			case len(row) >= 3:
				rec.Label = strings.TrimSpace(row[0])
				rec.Lat, errLat = parseCoord(row[1])
				rec.Lon, errLon = parseCoord(row[2])
			case len(row) == 2:
				rec.Lat, errLat = parseCoord(row[0])
				rec.Lon, errLon = parseCoord(row[1])
			default:
				skipped++
				continue
			}
		}

		if errLat != nil || errLon != nil ||
			rec.Lat < -90 || rec.Lat > 90 || rec.Lon < -180 || rec.Lon > 180 {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	return records, skipped, nil
}

// parseCoord tolerates decimal commas from locale-formatted exports.
func parseCoord(val string) (float64, error) {
	val = strings.TrimSpace(strings.ReplaceAll(val, ",", "."))
	if val == "" {
		return 0, fmt.Errorf("empty")
	}
	return strconv.ParseFloat(val, 64)
}

// looksPositional reports whether a first row is already data, which
// means there is no header to read column names from.
func looksPositional(row []string) bool {
	switch {
	case len(row) >= 3:
		_, errLat := parseCoord(row[1])
		_, errLon := parseCoord(row[2])
		return errLat == nil && errLon == nil
	case len(row) == 2:
		_, errLat := parseCoord(row[0])
		_, errLon := parseCoord(row[1])
		return errLat == nil && errLon == nil
	}
	return false
}

func headerColumns(row []string) (label, lat, lon int, ok bool) {
	label, lat, lon = -1, -1, -1
	for i, col := range row {
		if i == 0 {
			// Strip BOM from first column
			col = strings.TrimPrefix(col, "\xef\xbb\xbf")
		}
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "label", "name":
			label = i
		case "lat", "latitude":
			lat = i
		case "lon", "lng", "longitude":
			lon = i
		}
	}
	return label, lat, lon, lat >= 0 && lon >= 0
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
