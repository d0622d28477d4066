package dataprocessing

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "emsrates/internal/errors"
	"emsrates/pkg/contracts/domain"
)

// ReadCensusWorkbook loads a census xlsx workbook carrying both the
// age-line-item extract and the sex totals.
func ReadCensusWorkbook(path string) ([]domain.CensusExtractRow, []domain.SexTotalRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read workbook: %w", err)
	}
	extract, totals, err := ParseCensusWorkbook(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return extract, totals, nil
}

// ParseCensusWorkbook reads a census xlsx workbook from r. Sheets are
// discovered by header content rather than by name, since ACS downloads name
// sheets inconsistently.
func ParseCensusWorkbook(r io.Reader) ([]domain.CensusExtractRow, []domain.SexTotalRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var extract []domain.CensusExtractRow
	var totals []domain.SexTotalRow

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil || len(rows) < 2 {
			continue
		}
		headerText := strings.ToLower(strings.Join(rows[0], " "))
		switch {
		case containsAll(headerText, "state", "sex", "race", "age", "count"):
			sheetExtract, err := censusRowsFromSheet(name, rows)
			if err != nil {
				return nil, nil, err
			}
			extract = append(extract, sheetExtract...)
			slog.Info("found census extract sheet",
				slog.String("sheet", name), slog.Int("rows", len(sheetExtract)))
		case containsAll(headerText, "state", "sex", "race", "total"):
			sheetTotals, err := totalRowsFromSheet(name, rows)
			if err != nil {
				return nil, nil, err
			}
			totals = append(totals, sheetTotals...)
			slog.Info("found sex totals sheet",
				slog.String("sheet", name), slog.Int("rows", len(sheetTotals)))
		}
	}

	if len(extract) == 0 {
		return nil, nil, apperrors.NewSchemaError("no census extract sheet found in workbook", nil)
	}
	return extract, totals, nil
}

func containsAll(s string, words ...string) bool {
	for _, w := range words {
		if !strings.Contains(s, w) {
			return false
		}
	}
	return true
}

func censusRowsFromSheet(sheet string, rows [][]string) ([]domain.CensusExtractRow, error) {
	cols, err := sheetColumns(sheet, rows[0], []string{censusColState, censusColSex, censusColRace, censusColAge, censusColCount})
	if err != nil {
		return nil, err
	}

	out := make([]domain.CensusExtractRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		count, err := parseCount(sheetCell(row, cols[4]))
		if err != nil {
			return nil, apperrors.NewSchemaError(
				fmt.Sprintf("sheet %q column %q has a non-numeric value at row %d", sheet, censusColCount, i+2), err)
		}
		out = append(out, domain.CensusExtractRow{
			State:    sheetCell(row, cols[0]),
			Sex:      sheetCell(row, cols[1]),
			Race:     sheetCell(row, cols[2]),
			AgeLabel: sheetCell(row, cols[3]),
			Count:    count,
		})
	}
	return out, nil
}

func totalRowsFromSheet(sheet string, rows [][]string) ([]domain.SexTotalRow, error) {
	cols, err := sheetColumns(sheet, rows[0], []string{censusColState, censusColSex, censusColRace, censusColTotal})
	if err != nil {
		return nil, err
	}

	out := make([]domain.SexTotalRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		total, err := parseCount(sheetCell(row, cols[3]))
		if err != nil {
			return nil, apperrors.NewSchemaError(
				fmt.Sprintf("sheet %q column %q has a non-numeric value at row %d", sheet, censusColTotal, i+2), err)
		}
		out = append(out, domain.SexTotalRow{
			State: sheetCell(row, cols[0]),
			Sex:   sheetCell(row, cols[1]),
			Race:  sheetCell(row, cols[2]),
			Total: total,
		})
	}
	return out, nil
}

func sheetColumns(sheet string, header []string, wanted []string) ([]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		positions[strings.ToLower(strings.TrimSpace(name))] = i
	}
	indexes := make([]int, len(wanted))
	for i, name := range wanted {
		idx, ok := positions[strings.ToLower(name)]
		if !ok {
			return nil, apperrors.NewSchemaError(
				fmt.Sprintf("sheet %q missing required column %q", sheet, name), nil)
		}
		indexes[i] = idx
	}
	return indexes, nil
}

func sheetCell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
