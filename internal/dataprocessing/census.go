package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	apperrors "emsrates/internal/errors"
	"emsrates/pkg/contracts/domain"
)

// Census extract column names. Extracts arrive either as CSV or as an xlsx
// workbook (see workbook.go); both carry the same columns.
const (
	censusColState = "State"
	censusColSex   = "Sex"
	censusColRace  = "Race"
	censusColAge   = "Age"
	censusColCount = "Count"
	censusColTotal = "Total"
)

// LoadCensusExtract reads per-state, per-race, per-sex, per-age-line-item
// population counts from a CSV file.
func LoadCensusExtract(path string) ([]domain.CensusExtractRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open census extract: %w", err)
	}
	defer f.Close()

	rows, err := ParseCensusExtract(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}

// ParseCensusExtract reads the census extract from r.
func ParseCensusExtract(r io.Reader) ([]domain.CensusExtractRow, error) {
	table, err := readTable(r, []string{censusColState, censusColSex, censusColRace, censusColAge, censusColCount})
	if err != nil {
		return nil, err
	}

	rows := make([]domain.CensusExtractRow, 0, len(table))
	for i, cells := range table {
		count, err := parseCount(cells[4])
		if err != nil {
			return nil, apperrors.NewSchemaError(
				fmt.Sprintf("column %q has a non-numeric value at row %d", censusColCount, i+2), err)
		}
		rows = append(rows, domain.CensusExtractRow{
			State:    cells[0],
			Sex:      cells[1],
			Race:     cells[2],
			AgeLabel: cells[3],
			Count:    count,
		})
	}
	slog.Info("loaded census extract", slog.Int("rows", len(rows)))
	return rows, nil
}

// LoadSexTotals reads the independently reported all-ages totals from a CSV
// file.
func LoadSexTotals(path string) ([]domain.SexTotalRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sex totals: %w", err)
	}
	defer f.Close()

	rows, err := ParseSexTotals(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}

// ParseSexTotals reads the sex-total table from r.
func ParseSexTotals(r io.Reader) ([]domain.SexTotalRow, error) {
	table, err := readTable(r, []string{censusColState, censusColSex, censusColRace, censusColTotal})
	if err != nil {
		return nil, err
	}

	rows := make([]domain.SexTotalRow, 0, len(table))
	for i, cells := range table {
		total, err := parseCount(cells[3])
		if err != nil {
			return nil, apperrors.NewSchemaError(
				fmt.Sprintf("column %q has a non-numeric value at row %d", censusColTotal, i+2), err)
		}
		rows = append(rows, domain.SexTotalRow{
			State: cells[0],
			Sex:   cells[1],
			Race:  cells[2],
			Total: total,
		})
	}
	return rows, nil
}

// readTable reads a CSV and projects it onto the wanted columns, in order.
// Missing columns fail with the column named.
func readTable(r io.Reader, wanted []string) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.NewSchemaError("file has no header row", err)
	}

	positions := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")
		positions[strings.ToLower(name)] = i
	}

	indexes := make([]int, len(wanted))
	for i, name := range wanted {
		idx, ok := positions[strings.ToLower(name)]
		if !ok {
			return nil, apperrors.NewSchemaError(
				fmt.Sprintf("missing required column %q", name), nil)
		}
		indexes[i] = idx
	}

	var out [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError("read row", err)
		}
		cells := make([]string, len(indexes))
		for i, idx := range indexes {
			if idx < len(row) {
				cells[i] = strings.TrimSpace(row[idx])
			}
		}
		out = append(out, cells)
	}
	return out, nil
}

// parseCount parses a population count, tolerating thousands separators that
// census extracts sometimes carry.
func parseCount(s string) (int64, error) {
	s = strings.ReplaceAll(s, ",", "")
	return strconv.ParseInt(s, 10, 64)
}
