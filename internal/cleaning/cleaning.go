// Package cleaning implements the pre-statistical hygiene pass over the
// incident table: semantic-null normalization of string columns and
// deterministic resolution of data-entry duplicates.
package cleaning

import (
	"log/slog"
	"sort"
	"strings"

	"emsrates/pkg/contracts/domain"
)

// sentinelValues are string cell contents that mean "missing" in the source
// system. Matched case-insensitively after trimming.
var sentinelValues = map[string]bool{
	"unknown":        true,
	"not recorded":   true,
	"not applicable": true,
	"n/a":            true,
	"na":             true,
	"unk":            true,
	"missing":        true,
}

// NullColumnReport is the before/after missingness audit for one column.
type NullColumnReport struct {
	Column            string `json:"column"`
	NullsBefore       int    `json:"nulls_before"`
	NullsAfter        int    `json:"nulls_after"`
	SentinelsReplaced int    `json:"sentinels_replaced"`
}

// NullReport is the audit produced by NormalizeNulls, retrievable by callers
// rather than just logged.
type NullReport struct {
	Rows    int                `json:"rows"`
	Columns []NullColumnReport `json:"columns"`
}

// DedupReport summarizes what Deduplicate dropped and why.
type DedupReport struct {
	InputRows            int `json:"input_rows"`
	KeyCollisionsDropped int `json:"key_collisions_dropped"`
	DuplicatesDropped    int `json:"duplicates_dropped"`
	AmbiguousGroups      int `json:"ambiguous_groups"`
	AmbiguousRowsDropped int `json:"ambiguous_rows_dropped"`
	OutputRows           int `json:"output_rows"`
}

// NormalizeNulls replaces recognized sentinel strings in the designated
// string-typed columns (Gender, Race, USCensusDivision) with the empty-string
// null marker, and reports per-column null counts before and after.
func NormalizeNulls(records []domain.IncidentRecord) ([]domain.IncidentRecord, NullReport) {
	out := make([]domain.IncidentRecord, len(records))
	copy(out, records)

	reports := []NullColumnReport{
		{Column: "Gender"},
		{Column: "Race"},
		{Column: "USCensusDivision"},
	}

	for i := range out {
		out[i].Gender = normalizeCell(out[i].Gender, &reports[0])
		out[i].Race = normalizeCell(out[i].Race, &reports[1])
		out[i].USCensusDivision = normalizeCell(out[i].USCensusDivision, &reports[2])
	}

	report := NullReport{Rows: len(out), Columns: reports}
	for _, c := range report.Columns {
		slog.Info("null normalization",
			slog.String("column", c.Column),
			slog.Int("nulls_before", c.NullsBefore),
			slog.Int("nulls_after", c.NullsAfter),
			slog.Int("sentinels_replaced", c.SentinelsReplaced))
	}
	return out, report
}

func normalizeCell(value string, report *NullColumnReport) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		report.NullsBefore++
		report.NullsAfter++
		return ""
	}
	if sentinelValues[strings.ToLower(trimmed)] {
		report.SentinelsReplaced++
		report.NullsAfter++
		return ""
	}
	return trimmed
}

// IsSentinel reports whether a raw cell value is one of the recognized
// semantic nulls.
func IsSentinel(value string) bool {
	return sentinelValues[strings.ToLower(strings.TrimSpace(value))]
}

// Deduplicate enforces PcrKey uniqueness and resolves data-entry duplicate
// groups. Rows are grouped on every field except PcrKey and Race; a group
// whose members all report the same Race is an exact re-entry and the member
// with the smallest PcrKey survives, while a group whose members disagree on
// Race is ambiguous and is excluded entirely. Both policies are deterministic
// regardless of input order.
func Deduplicate(records []domain.IncidentRecord) ([]domain.IncidentRecord, DedupReport) {
	report := DedupReport{InputRows: len(records)}

	// PcrKey collisions first: first occurrence wins, so the uniqueness
	// invariant holds before group analysis.
	seen := make(map[string]bool, len(records))
	unique := make([]domain.IncidentRecord, 0, len(records))
	for _, r := range records {
		if seen[r.PcrKey] {
			report.KeyCollisionsDropped++
			continue
		}
		seen[r.PcrKey] = true
		unique = append(unique, r)
	}

	groups := make(map[string][]int, len(unique))
	for i, r := range unique {
		key := r.IdentityKey()
		groups[key] = append(groups[key], i)
	}

	drop := make(map[int]bool)
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}

		races := make(map[string]bool)
		for _, idx := range members {
			races[unique[idx].Race] = true
		}

		if len(races) > 1 {
			// Race disagreement: the true race is unknowable.
			report.AmbiguousGroups++
			for _, idx := range members {
				drop[idx] = true
				report.AmbiguousRowsDropped++
			}
			continue
		}

		// Identical rows re-keyed: keep the smallest PcrKey.
		sorted := make([]int, len(members))
		copy(sorted, members)
		sort.Slice(sorted, func(a, b int) bool {
			return unique[sorted[a]].PcrKey < unique[sorted[b]].PcrKey
		})
		for _, idx := range sorted[1:] {
			drop[idx] = true
			report.DuplicatesDropped++
		}
	}

	out := make([]domain.IncidentRecord, 0, len(unique)-len(drop))
	for i, r := range unique {
		if !drop[i] {
			out = append(out, r)
		}
	}
	report.OutputRows = len(out)

	slog.Info("deduplication complete",
		slog.Int("input_rows", report.InputRows),
		slog.Int("key_collisions_dropped", report.KeyCollisionsDropped),
		slog.Int("duplicates_dropped", report.DuplicatesDropped),
		slog.Int("ambiguous_rows_dropped", report.AmbiguousRowsDropped),
		slog.Int("output_rows", report.OutputRows))
	return out, report
}
