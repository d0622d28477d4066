package dataprocessing

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"emsrates/internal/config"
	"emsrates/pkg/contracts/domain"
)

// Inputs holds the fully loaded source data plus the raw bytes it was parsed
// from. The raw bytes feed the memoization fingerprint; everything is read
// into memory once per run, per the batch model.
type Inputs struct {
	IncidentData []byte
	CensusData   []byte
	SexTotalData []byte

	Incidents []domain.IncidentRecord
	Census    []domain.CensusExtractRow
	SexTotals []domain.SexTotalRow
}

// LoadInputs reads and parses all source tables. The incident file falls back
// to the configured Google Drive link when the local path is absent. A census
// path ending in .xlsx is treated as a workbook that may carry the sex totals
// alongside the extract; otherwise the extract and totals are separate CSVs.
func LoadInputs(ctx context.Context, paths config.PathsConfig, driveLink string) (*Inputs, error) {
	in := &Inputs{}

	incidentData, err := os.ReadFile(paths.IncidentFile)
	switch {
	case err == nil:
		in.IncidentData = incidentData
	case os.IsNotExist(err) && driveLink != "":
		slog.Info("incident file absent, fetching from Drive",
			slog.String("path", paths.IncidentFile))
		in.IncidentData, err = FetchDriveCSV(ctx, driveLink)
		if err != nil {
			return nil, fmt.Errorf("fetch incident data: %w", err)
		}
	default:
		return nil, fmt.Errorf("read incident file: %w", err)
	}

	in.Incidents, err = ParseIncidents(bytes.NewReader(in.IncidentData))
	if err != nil {
		return nil, fmt.Errorf("parse incidents: %w", err)
	}

	in.CensusData, err = os.ReadFile(paths.CensusFile)
	if err != nil {
		return nil, fmt.Errorf("read census file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(paths.CensusFile), ".xlsx") {
		in.Census, in.SexTotals, err = ParseCensusWorkbook(bytes.NewReader(in.CensusData))
		if err != nil {
			return nil, fmt.Errorf("parse census workbook: %w", err)
		}
	} else {
		in.Census, err = ParseCensusExtract(bytes.NewReader(in.CensusData))
		if err != nil {
			return nil, fmt.Errorf("parse census extract: %w", err)
		}
	}

	// A separate totals file wins over workbook-embedded totals.
	if data, err := os.ReadFile(paths.SexTotalsFile); err == nil {
		in.SexTotalData = data
		in.SexTotals, err = ParseSexTotals(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse sex totals: %w", err)
		}
	} else if len(in.SexTotals) == 0 {
		return nil, fmt.Errorf("read sex totals file: %w", err)
	}

	return in, nil
}
