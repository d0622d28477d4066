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

// Column names of the incident extract. The file is comma-delimited UTF-8
// (an optional leading BOM is tolerated); header names are matched
// case-insensitively.
const (
	ColPcrKey      = "PcrKey"
	ColAgeGroup    = "AgeGroup"
	ColAgeInYears  = "ageinyear"
	ColGender      = "Gender"
	ColRace        = "Race"
	ColDivision    = "USCensusDivision"
	ColUrbanicity  = "Urbanicity"
	ColYear        = "Year"
	ColCallTimeMin = "EMSTotalCallTimeMin"
	ColInjured     = "Injured"
)

var requiredIncidentColumns = []string{
	ColPcrKey, ColAgeGroup, ColAgeInYears, ColGender, ColRace,
	ColDivision, ColUrbanicity, ColYear, ColCallTimeMin, ColInjured,
}

// LoadIncidents reads the incident table from a CSV file.
func LoadIncidents(path string) ([]domain.IncidentRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open incident file: %w", err)
	}
	defer f.Close()

	records, err := ParseIncidents(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

// ParseIncidents reads the incident table from r. Schema problems (missing
// required column, unparseable cell in a typed column) fail fast with the
// offending column named.
func ParseIncidents(r io.Reader) ([]domain.IncidentRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.NewSchemaError("incident file has no header row", err)
	}

	cols, err := mapIncidentColumns(header)
	if err != nil {
		return nil, err
	}

	var records []domain.IncidentRecord
	rowNum := 1
	unknownAgeGroups := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("read row %d", rowNum+1), err)
		}
		rowNum++

		rec, unknownBin, err := parseIncidentRow(row, cols, rowNum)
		if err != nil {
			return nil, err
		}
		if unknownBin {
			unknownAgeGroups++
		}
		records = append(records, rec)
	}

	if unknownAgeGroups > 0 {
		slog.Warn("unrecognized AgeGroup labels treated as missing",
			slog.Int("rows", unknownAgeGroups))
	}
	slog.Info("loaded incident table", slog.Int("rows", len(records)))
	return records, nil
}

// mapIncidentColumns resolves header names to positions, failing on the first
// missing required column.
func mapIncidentColumns(header []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")
		positions[strings.ToLower(name)] = i
	}

	cols := make(map[string]int, len(requiredIncidentColumns))
	for _, name := range requiredIncidentColumns {
		idx, ok := positions[strings.ToLower(name)]
		if !ok {
			return nil, apperrors.NewSchemaError(
				fmt.Sprintf("missing required column %q", name), nil)
		}
		cols[name] = idx
	}
	return cols, nil
}

func parseIncidentRow(row []string, cols map[string]int, rowNum int) (domain.IncidentRecord, bool, error) {
	cell := func(col string) string {
		idx := cols[col]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	rec := domain.IncidentRecord{
		PcrKey:           cell(ColPcrKey),
		Gender:           cell(ColGender),
		Race:             cell(ColRace),
		USCensusDivision: cell(ColDivision),
	}

	// AgeGroup is categorical: recognized bins pass through, anything else is
	// treated as missing the way the source dashboard's categorical coercion
	// did. The bin gets recomputed from age after imputation anyway.
	unknownBin := false
	if raw := cell(ColAgeGroup); raw != "" {
		g := domain.AgeGroup(raw)
		if g.IsValid() {
			rec.AgeGroup = g
		} else {
			unknownBin = true
		}
	}

	var err error
	if rec.AgeInYears, err = parseOptFloat(cell(ColAgeInYears)); err != nil {
		return rec, false, typedCellError(ColAgeInYears, rowNum, err)
	}
	if rec.Urbanicity, err = parseOptInt(cell(ColUrbanicity)); err != nil {
		return rec, false, typedCellError(ColUrbanicity, rowNum, err)
	}
	if rec.Year, err = parseOptInt(cell(ColYear)); err != nil {
		return rec, false, typedCellError(ColYear, rowNum, err)
	}
	if rec.CallTimeMin, err = parseOptFloat(cell(ColCallTimeMin)); err != nil {
		return rec, false, typedCellError(ColCallTimeMin, rowNum, err)
	}
	if rec.Injured, err = parseFlag(cell(ColInjured)); err != nil {
		return rec, false, typedCellError(ColInjured, rowNum, err)
	}

	return rec, unknownBin, nil
}

func typedCellError(col string, rowNum int, err error) error {
	return apperrors.NewSchemaError(
		fmt.Sprintf("column %q has a non-numeric value at row %d", col, rowNum), err).
		WithContext("column", col).
		WithContext("row", rowNum)
}

func parseOptFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseOptInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// Some extracts encode integers as "2021.0".
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return nil, err
		}
		v = int(f)
	}
	return &v, nil
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y":
		return true, nil
	case "", "0", "false", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("unrecognized flag value %q", s)
}
