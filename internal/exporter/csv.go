// Package exporter writes the pipeline's output tables to CSV for the
// visualization layer and for offline inspection.
package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"emsrates/pkg/contracts/domain"
)

// WriteOptions configures CSV writing behavior.
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // add a UTF-8 BOM so Excel detects the encoding
}

// WriteCSV writes one table to filePath, creating parent directories as
// needed.
func WriteCSV(filePath string, options WriteOptions) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	slog.Info("wrote CSV file",
		slog.String("path", filePath),
		slog.Int("rows", len(options.Records)))
	return nil
}

// WriteIncidents exports the cleaned, imputed incident table.
func WriteIncidents(path string, records []domain.IncidentRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.PcrKey,
			string(r.AgeGroup),
			optFloat(r.AgeInYears),
			r.Gender,
			r.Race,
			r.USCensusDivision,
			optInt(r.Urbanicity),
			optInt(r.Year),
			optFloat(r.CallTimeMin),
			strconv.FormatBool(r.Injured),
		})
	}
	return WriteCSV(path, WriteOptions{
		Headers: []string{"PcrKey", "AgeGroup", "ageinyear", "Gender", "Race",
			"USCensusDivision", "Urbanicity", "Year", "EMSTotalCallTimeMin", "Injured"},
		Records:   rows,
		BOMPrefix: true,
	})
}

// WritePopulation exports the population denominator table.
func WritePopulation(path string, table *domain.PopulationTable) error {
	cells := table.Cells()
	rows := make([][]string, 0, len(cells))
	for _, c := range cells {
		rows = append(rows, []string{
			c.Division,
			c.Sex,
			c.Race,
			string(c.AgeGroup),
			strconv.FormatInt(c.Count, 10),
		})
	}
	return WriteCSV(path, WriteOptions{
		Headers:   []string{"Division", "Sex", "Race", "AgeGroup", "Population"},
		Records:   rows,
		BOMPrefix: true,
	})
}

// WriteRates exports the joined rate table. Undefined rates export as empty
// cells, never as zero.
func WriteRates(path string, records []domain.RateRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Division,
			r.Sex,
			r.Race,
			string(r.AgeGroup),
			strconv.FormatInt(r.InjuryCount, 10),
			optInt64(r.Population),
			optFloat(r.RatePer100k),
			optFloat(r.Offset),
		})
	}
	return WriteCSV(path, WriteOptions{
		Headers: []string{"Division", "Sex", "Race", "AgeGroup", "InjuryCount",
			"Population", "Rate_per_100k", "Offset"},
		Records:   rows,
		BOMPrefix: true,
	})
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optInt64(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
