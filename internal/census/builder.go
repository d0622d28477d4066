// Package census builds the Division × Sex × Race × AgeGroup population
// denominator table from per-state census extracts and reconciles it against
// independently reported sex totals.
package census

import (
	"fmt"
	"log/slog"
	"sort"

	apperrors "emsrates/internal/errors"
	"emsrates/pkg/contracts/domain"
)

// GroupKey identifies one (Division, Race, Sex) reconciliation group.
type GroupKey struct {
	Division string `json:"division"`
	Race     string `json:"race"`
	Sex      string `json:"sex"`
}

// Mismatch is one failed reconciliation: the aggregated bins do not sum to
// the reported sex total.
type Mismatch struct {
	GroupKey
	BinSum        int64 `json:"bin_sum"`
	ReportedTotal int64 `json:"reported_total"`
	Diff          int64 `json:"diff"`
}

// ReconciliationReport is the structured outcome of the zero-difference
// check, retrievable by callers rather than just logged.
type ReconciliationReport struct {
	GroupsChecked int        `json:"groups_checked"`
	Mismatches    []Mismatch `json:"mismatches"`
	MissingTotals []GroupKey `json:"missing_totals"`
}

// OK reports whether every group reconciled exactly.
func (r ReconciliationReport) OK() bool {
	return len(r.Mismatches) == 0 && len(r.MissingTotals) == 0
}

// Builder aggregates census extracts into the denominator table. Strict mode
// turns any reconciliation defect into an error; either way the defect is in
// the report.
type Builder struct {
	strict bool
	logger *slog.Logger
}

// NewBuilder creates a builder. strict makes reconciliation defects fatal.
func NewBuilder(strict bool, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{strict: strict, logger: logger}
}

// Build maps states to divisions, folds the fine-grained age line items into
// the target bins, reconciles against the sex totals, and returns the
// immutable lookup table. The table and report are returned even when strict
// mode raises the defect as an error, so callers can inspect what failed.
func (b *Builder) Build(extract []domain.CensusExtractRow, totals []domain.SexTotalRow) (*domain.PopulationTable, *ReconciliationReport, error) {
	cellCounts := make(map[domain.PopulationKey]int64)
	for _, row := range extract {
		division, err := DivisionForState(row.State)
		if err != nil {
			return nil, nil, err
		}
		low, high, err := ParseAgeLabel(row.AgeLabel)
		if err != nil {
			return nil, nil, err
		}
		bin, err := BinForBounds(row.AgeLabel, low, high)
		if err != nil {
			return nil, nil, err
		}
		key := domain.PopulationKey{
			Division: division,
			Sex:      row.Sex,
			Race:     row.Race,
			AgeGroup: bin,
		}
		cellCounts[key] += row.Count
	}

	divisionTotals := make(map[GroupKey]int64)
	for _, row := range totals {
		division, err := DivisionForState(row.State)
		if err != nil {
			return nil, nil, err
		}
		divisionTotals[GroupKey{Division: division, Race: row.Race, Sex: row.Sex}] += row.Total
	}

	report := b.reconcile(cellCounts, divisionTotals)

	cells := make([]domain.PopulationCell, 0, len(cellCounts))
	for key, count := range cellCounts {
		cells = append(cells, domain.PopulationCell{PopulationKey: key, Count: count})
	}
	table := domain.NewPopulationTable(cells)

	b.logger.Info("population table built",
		slog.Int("cells", table.Len()),
		slog.Int("groups_checked", report.GroupsChecked),
		slog.Int("mismatches", len(report.Mismatches)),
		slog.Int("missing_totals", len(report.MissingTotals)))

	if b.strict && !report.OK() {
		return table, report, apperrors.NewDataQualityError(
			fmt.Sprintf("census reconciliation failed for %d group(s)",
				len(report.Mismatches)+len(report.MissingTotals)), nil).
			WithContext("mismatches", len(report.Mismatches)).
			WithContext("missing_totals", len(report.MissingTotals))
	}
	return table, report, nil
}

// reconcile checks, for every (Division, Race, Sex) group, that the bin
// counts sum exactly to the reported sex total. Totals with no corresponding
// bins are checked too (as a zero bin sum).
func (b *Builder) reconcile(cells map[domain.PopulationKey]int64, totals map[GroupKey]int64) *ReconciliationReport {
	binSums := make(map[GroupKey]int64)
	for key, count := range cells {
		binSums[GroupKey{Division: key.Division, Race: key.Race, Sex: key.Sex}] += count
	}

	groups := make(map[GroupKey]bool, len(binSums)+len(totals))
	for g := range binSums {
		groups[g] = true
	}
	for g := range totals {
		groups[g] = true
	}

	report := &ReconciliationReport{GroupsChecked: len(groups)}
	for g := range groups {
		total, hasTotal := totals[g]
		if !hasTotal {
			report.MissingTotals = append(report.MissingTotals, g)
			continue
		}
		sum := binSums[g]
		if sum != total {
			report.Mismatches = append(report.Mismatches, Mismatch{
				GroupKey:      g,
				BinSum:        sum,
				ReportedTotal: total,
				Diff:          sum - total,
			})
			b.logger.Warn("census reconciliation mismatch",
				slog.String("division", g.Division),
				slog.String("race", g.Race),
				slog.String("sex", g.Sex),
				slog.Int64("bin_sum", sum),
				slog.Int64("reported_total", total))
		}
	}

	sortGroupKeys(report.MissingTotals)
	sort.Slice(report.Mismatches, func(i, j int) bool {
		return lessGroupKey(report.Mismatches[i].GroupKey, report.Mismatches[j].GroupKey)
	})
	return report
}

func sortGroupKeys(keys []GroupKey) {
	sort.Slice(keys, func(i, j int) bool { return lessGroupKey(keys[i], keys[j]) })
}

func lessGroupKey(a, b GroupKey) bool {
	if a.Division != b.Division {
		return a.Division < b.Division
	}
	if a.Race != b.Race {
		return a.Race < b.Race
	}
	return a.Sex < b.Sex
}
