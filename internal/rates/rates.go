// Package rates aligns EMS aggregate labels to the population table's
// vocabulary, joins injury counts onto population denominators, and computes
// per-100k rates with an explicit null for cells that cannot be normalized.
package rates

import (
	"log/slog"
	"math"
	"sort"
	"strings"

	"emsrates/pkg/contracts/domain"
)

// RateScale is the population basis for the reported rates.
const RateScale = 100_000

// Join-gap reasons.
const (
	GapUnmappedGender   = "unmapped gender label"
	GapNoPopulationCell = "no population cell"
	GapZeroPopulation   = "zero population"
)

// Alignment maps the EMS aggregate vocabulary onto the population table's.
// The two sources name the same concepts differently (Gender vs Sex codes,
// slightly different race wording), so the mapping is explicit rather than
// inferred.
type Alignment struct {
	GenderToSex map[string]string
	RaceMap     map[string]string
}

// DefaultAlignment returns the standard NEMSIS-to-ACS label mapping.
func DefaultAlignment() Alignment {
	return Alignment{
		GenderToSex: map[string]string{
			"male":   "M",
			"female": "F",
			"m":      "M",
			"f":      "F",
		},
		// Race labels are mostly shared between the vocabularies; only the
		// short forms need translating. Unlisted labels pass through.
		RaceMap: map[string]string{
			"black":            "Black or African American",
			"african american": "Black or African American",
			"hispanic":         "Hispanic or Latino",
			"pacific islander": "Native Hawaiian or Other Pacific Islander",
			"american indian":  "American Indian or Alaska Native",
		},
	}
}

// Sex returns the sex code for an EMS gender label, matched
// case-insensitively.
func (a Alignment) Sex(gender string) (string, bool) {
	sex, ok := a.GenderToSex[strings.ToLower(strings.TrimSpace(gender))]
	return sex, ok
}

// Race returns the census race label for an EMS race label; labels without a
// mapping pass through unchanged.
func (a Alignment) Race(race string) string {
	race = strings.TrimSpace(race)
	if mapped, ok := a.RaceMap[strings.ToLower(race)]; ok {
		return mapped
	}
	return race
}

// JoinGap records one aggregate cell whose rate is undefined, and why.
type JoinGap struct {
	Division string          `json:"division"`
	Sex      string          `json:"sex"`
	Race     string          `json:"race"`
	AgeGroup domain.AgeGroup `json:"age_group"`
	Reason   string          `json:"reason"`
}

// JoinGapReport is the structured record of every undefined-rate cell plus
// the incident rows that could not enter the aggregation at all.
type JoinGapReport struct {
	AggregatedRows int       `json:"aggregated_rows"`
	ExcludedRows   int       `json:"excluded_rows"`
	Gaps           []JoinGap `json:"gaps"`
}

// Normalizer computes population-adjusted injury rates.
type Normalizer struct {
	alignment Alignment
	logger    *slog.Logger
}

// NewNormalizer creates a normalizer with the given label alignment.
func NewNormalizer(alignment Alignment, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{alignment: alignment, logger: logger}
}

// Compute aggregates injury counts by demographic cell, left-joins them onto
// the population table, and fills Rate_per_100k and offset = log(Population).
// Cells with no usable denominator keep a nil rate and are listed in the
// report; they are never coerced to zero and never divide by zero.
func (n *Normalizer) Compute(incidents []domain.IncidentRecord, pop *domain.PopulationTable) ([]domain.RateRecord, *JoinGapReport) {
	type aggKey struct {
		division  string
		sex       string
		sexMapped bool
		race      string
		ageGroup  domain.AgeGroup
	}

	report := &JoinGapReport{}
	counts := make(map[aggKey]int64)
	for _, r := range incidents {
		if r.USCensusDivision == "" || r.Gender == "" || r.Race == "" || !r.AgeGroup.IsValid() {
			report.ExcludedRows++
			continue
		}
		report.AggregatedRows++

		// Alignment happens before aggregation, so distinct EMS labels that
		// share a census label ("Black" and "African American", "Male" and
		// "M") land in one cell with the full count.
		key := aggKey{
			division: r.USCensusDivision,
			race:     n.alignment.Race(r.Race),
			ageGroup: r.AgeGroup,
		}
		if sex, ok := n.alignment.Sex(r.Gender); ok {
			key.sex = sex
			key.sexMapped = true
		} else {
			key.sex = r.Gender
		}

		if !r.Injured {
			// The cell still exists so zero-injury cells get a defined rate.
			counts[key] += 0
			continue
		}
		counts[key]++
	}

	records := make([]domain.RateRecord, 0, len(counts))
	for key, injuries := range counts {
		rec := domain.RateRecord{
			Division:    key.division,
			Sex:         key.sex,
			Race:        key.race,
			AgeGroup:    key.ageGroup,
			InjuryCount: injuries,
		}

		if !key.sexMapped {
			records = append(records, rec)
			report.Gaps = append(report.Gaps, gapFor(rec, GapUnmappedGender))
			continue
		}

		population, found := pop.Lookup(domain.PopulationKey{
			Division: rec.Division,
			Sex:      rec.Sex,
			Race:     rec.Race,
			AgeGroup: rec.AgeGroup,
		})
		switch {
		case !found:
			report.Gaps = append(report.Gaps, gapFor(rec, GapNoPopulationCell))
		case population <= 0:
			report.Gaps = append(report.Gaps, gapFor(rec, GapZeroPopulation))
		default:
			rate := float64(RateScale) * float64(injuries) / float64(population)
			offset := math.Log(float64(population))
			rec.Population = &population
			rec.RatePer100k = &rate
			rec.Offset = &offset
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Division != b.Division {
			return a.Division < b.Division
		}
		if a.Sex != b.Sex {
			return a.Sex < b.Sex
		}
		if a.Race != b.Race {
			return a.Race < b.Race
		}
		return a.AgeGroup.Index() < b.AgeGroup.Index()
	})
	sort.Slice(report.Gaps, func(i, j int) bool {
		a, b := report.Gaps[i], report.Gaps[j]
		if a.Division != b.Division {
			return a.Division < b.Division
		}
		if a.Sex != b.Sex {
			return a.Sex < b.Sex
		}
		if a.Race != b.Race {
			return a.Race < b.Race
		}
		return a.AgeGroup.Index() < b.AgeGroup.Index()
	})

	n.logger.Info("rate join complete",
		slog.Int("cells", len(records)),
		slog.Int("join_gaps", len(report.Gaps)),
		slog.Int("excluded_rows", report.ExcludedRows))
	return records, report
}

func gapFor(rec domain.RateRecord, reason string) JoinGap {
	return JoinGap{
		Division: rec.Division,
		Sex:      rec.Sex,
		Race:     rec.Race,
		AgeGroup: rec.AgeGroup,
		Reason:   reason,
	}
}
