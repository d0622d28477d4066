package rates

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emsrates/pkg/contracts/domain"
)

func incident(division, gender, race string, ageGroup domain.AgeGroup, injured bool) domain.IncidentRecord {
	return domain.IncidentRecord{
		PcrKey:           "x",
		USCensusDivision: division,
		Gender:           gender,
		Race:             race,
		AgeGroup:         ageGroup,
		Injured:          injured,
	}
}

func populationOf(cells ...domain.PopulationCell) *domain.PopulationTable {
	return domain.NewPopulationTable(cells)
}

func TestComputeExactRate(t *testing.T) {
	var incidents []domain.IncidentRecord
	for i := 0; i < 50; i++ {
		incidents = append(incidents, incident("Pacific", "Male", "White", domain.AgeGroup25To34, true))
	}
	pop := populationOf(domain.PopulationCell{
		PopulationKey: domain.PopulationKey{
			Division: "Pacific", Sex: "M", Race: "White", AgeGroup: domain.AgeGroup25To34,
		},
		Count: 100_000,
	})

	records, report := NewNormalizer(DefaultAlignment(), nil).Compute(incidents, pop)

	require.Len(t, records, 1)
	r := records[0]
	require.True(t, r.HasRate())
	assert.Equal(t, 50.0, *r.RatePer100k)
	assert.Equal(t, int64(50), r.InjuryCount)
	assert.Equal(t, int64(100_000), *r.Population)
	assert.InDelta(t, math.Log(100_000), *r.Offset, 1e-12)
	assert.Empty(t, report.Gaps)
}

func TestComputeJoinGapYieldsNullRate(t *testing.T) {
	incidents := []domain.IncidentRecord{
		incident("Mountain", "Female", "Asian", domain.AgeGroup45To54, true),
	}
	pop := populationOf() // empty table: no matching cell anywhere

	records, report := NewNormalizer(DefaultAlignment(), nil).Compute(incidents, pop)

	require.Len(t, records, 1)
	r := records[0]
	assert.False(t, r.HasRate())
	assert.Nil(t, r.RatePer100k)
	assert.Nil(t, r.Population)
	assert.Nil(t, r.Offset)
	assert.Equal(t, int64(1), r.InjuryCount)

	require.Len(t, report.Gaps, 1)
	assert.Equal(t, GapNoPopulationCell, report.Gaps[0].Reason)
}

func TestComputeZeroPopulationIsUndefined(t *testing.T) {
	incidents := []domain.IncidentRecord{
		incident("Pacific", "Male", "White", domain.AgeGroup65To74, true),
	}
	pop := populationOf(domain.PopulationCell{
		PopulationKey: domain.PopulationKey{
			Division: "Pacific", Sex: "M", Race: "White", AgeGroup: domain.AgeGroup65To74,
		},
		Count: 0,
	})

	records, report := NewNormalizer(DefaultAlignment(), nil).Compute(incidents, pop)

	require.Len(t, records, 1)
	assert.False(t, records[0].HasRate())
	require.Len(t, report.Gaps, 1)
	assert.Equal(t, GapZeroPopulation, report.Gaps[0].Reason)
}

func TestComputeUnmappedGender(t *testing.T) {
	incidents := []domain.IncidentRecord{
		incident("Pacific", "Nonbinary", "White", domain.AgeGroup25To34, true),
	}
	pop := populationOf(domain.PopulationCell{
		PopulationKey: domain.PopulationKey{
			Division: "Pacific", Sex: "M", Race: "White", AgeGroup: domain.AgeGroup25To34,
		},
		Count: 1000,
	})

	records, report := NewNormalizer(DefaultAlignment(), nil).Compute(incidents, pop)

	require.Len(t, records, 1)
	assert.False(t, records[0].HasRate())
	require.Len(t, report.Gaps, 1)
	assert.Equal(t, GapUnmappedGender, report.Gaps[0].Reason)
}

func TestComputeRaceAlignment(t *testing.T) {
	incidents := []domain.IncidentRecord{
		incident("Pacific", "Female", "Black", domain.AgeGroup35To44, true),
	}
	pop := populationOf(domain.PopulationCell{
		PopulationKey: domain.PopulationKey{
			Division: "Pacific", Sex: "F",
			Race:     "Black or African American",
			AgeGroup: domain.AgeGroup35To44,
		},
		Count: 2000,
	})

	records, report := NewNormalizer(DefaultAlignment(), nil).Compute(incidents, pop)

	require.Len(t, records, 1)
	require.True(t, records[0].HasRate())
	assert.Equal(t, "Black or African American", records[0].Race)
	assert.Empty(t, report.Gaps)
}

func TestComputeMergesLabelsSharingCensusVocabulary(t *testing.T) {
	// "Black" and "African American" both align to the census label, and
	// "Male" and "M" both align to sex code M: all four rows are one
	// demographic cell and must not split its injury count.
	incidents := []domain.IncidentRecord{
		incident("Pacific", "Male", "Black", domain.AgeGroup35To44, true),
		incident("Pacific", "M", "African American", domain.AgeGroup35To44, true),
		incident("Pacific", "male", "Black or African American", domain.AgeGroup35To44, true),
		incident("Pacific", "Male", "Black", domain.AgeGroup35To44, false),
	}
	pop := populationOf(domain.PopulationCell{
		PopulationKey: domain.PopulationKey{
			Division: "Pacific", Sex: "M",
			Race:     "Black or African American",
			AgeGroup: domain.AgeGroup35To44,
		},
		Count: 100_000,
	})

	records, report := NewNormalizer(DefaultAlignment(), nil).Compute(incidents, pop)

	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, int64(3), r.InjuryCount)
	require.True(t, r.HasRate())
	assert.Equal(t, 3.0, *r.RatePer100k)
	assert.Empty(t, report.Gaps)
	assert.Equal(t, 4, report.AggregatedRows)
}

func TestComputeZeroInjuryCellGetsDefinedRate(t *testing.T) {
	incidents := []domain.IncidentRecord{
		incident("Pacific", "Male", "White", domain.AgeGroup25To34, false),
	}
	pop := populationOf(domain.PopulationCell{
		PopulationKey: domain.PopulationKey{
			Division: "Pacific", Sex: "M", Race: "White", AgeGroup: domain.AgeGroup25To34,
		},
		Count: 5000,
	})

	records, _ := NewNormalizer(DefaultAlignment(), nil).Compute(incidents, pop)

	require.Len(t, records, 1)
	require.True(t, records[0].HasRate())
	assert.Equal(t, 0.0, *records[0].RatePer100k)
}

func TestComputeExcludesRowsWithMissingLabels(t *testing.T) {
	incidents := []domain.IncidentRecord{
		incident("", "Male", "White", domain.AgeGroup25To34, true),
		incident("Pacific", "", "White", domain.AgeGroup25To34, true),
		{PcrKey: "x", USCensusDivision: "Pacific", Gender: "Male", Race: "White", Injured: true}, // no AgeGroup
	}

	records, report := NewNormalizer(DefaultAlignment(), nil).Compute(incidents, populationOf())

	assert.Empty(t, records)
	assert.Equal(t, 3, report.ExcludedRows)
	assert.Equal(t, 0, report.AggregatedRows)
}
