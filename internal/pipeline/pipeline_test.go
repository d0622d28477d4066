package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emsrates/internal/census"
	"emsrates/pkg/contracts/domain"
)

// testIncidents builds ten rows with three missing ages. Training ages are
// linear in the predictors plus an alternating disturbance, so the fitted
// model has genuine residual variance.
func testIncidents() []domain.IncidentRecord {
	var records []domain.IncidentRecord
	for i := 0; i < 7; i++ {
		urb := i % 4
		year := 2018 + i%3
		ct := 20.0 + float64(i)*5
		age := 25 + 2*float64(urb) + 1.5*float64(year-2018) + 0.2*ct
		if i%2 == 0 {
			age += 4
		} else {
			age -= 4
		}
		records = append(records, domain.IncidentRecord{
			PcrKey:           fmt.Sprintf("T%02d", i),
			AgeInYears:       &age,
			Gender:           "Male",
			Race:             "White",
			USCensusDivision: census.DivisionPacific,
			Urbanicity:       &urb,
			Year:             &year,
			CallTimeMin:      &ct,
			Injured:          i%2 == 0,
		})
	}
	for i := 0; i < 3; i++ {
		urb := i % 4
		year := 2019 + i
		ct := 60.0 + float64(i)*7
		records = append(records, domain.IncidentRecord{
			PcrKey:           fmt.Sprintf("M%02d", i),
			Gender:           "Male",
			Race:             "White",
			USCensusDivision: census.DivisionPacific,
			Urbanicity:       &urb,
			Year:             &year,
			CallTimeMin:      &ct,
			Injured:          true,
		})
	}
	return records
}

func testCensus() ([]domain.CensusExtractRow, []domain.SexTotalRow) {
	labels := []string{
		"0 to 24 years", "25 to 34 years", "35 to 44 years", "45 to 54 years",
		"55 to 64 years", "65 to 74 years", "75 to 84 years", "85 years and over",
	}
	var extract []domain.CensusExtractRow
	for _, label := range labels {
		extract = append(extract, domain.CensusExtractRow{
			State: "California", Sex: "M", Race: "White", AgeLabel: label, Count: 10_000,
		})
	}
	totals := []domain.SexTotalRow{
		{State: "California", Sex: "M", Race: "White", Total: 80_000},
	}
	return extract, totals
}

func TestRunEndToEnd(t *testing.T) {
	extract, totals := testCensus()
	ds := Dataset{Incidents: testIncidents(), Census: extract, SexTotals: totals}

	result, err := New(Params{Seed: 11, Strict: true}, nil).Run(context.Background(), ds)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.RunID)

	// Every row leaves the pipeline with a populated, bounded age and a
	// matching bin.
	require.Len(t, result.Incidents, 10)
	for _, r := range result.Incidents {
		require.NotNil(t, r.AgeInYears, "row %s has no age", r.PcrKey)
		assert.GreaterOrEqual(t, *r.AgeInYears, 0.0)
		assert.LessOrEqual(t, *r.AgeInYears, float64(domain.MaxAgeYears))
		assert.Equal(t, domain.AgeGroupFor(*r.AgeInYears), r.AgeGroup)
	}

	imp := result.Diagnostics.Imputation
	require.NotNil(t, imp)
	assert.Equal(t, 7, imp.TrainingRows)
	assert.Equal(t, 3, imp.ImputedRows)
	assert.Greater(t, imp.ResidualStdDev, 0.0)
	assert.Len(t, imp.Coefficients, 3)

	recon := result.Diagnostics.Reconciliation
	require.NotNil(t, recon)
	assert.True(t, recon.OK())

	require.NotNil(t, result.Population)
	assert.Equal(t, 8, result.Population.Len())

	// Every bin has a denominator cell, so every aggregate cell gets a rate.
	require.NotEmpty(t, result.Rates)
	for _, r := range result.Rates {
		assert.True(t, r.HasRate(), "cell %s/%s/%s/%s has no rate",
			r.Division, r.Sex, r.Race, r.AgeGroup)
		assert.Equal(t, census.DivisionPacific, r.Division)
		assert.Equal(t, "M", r.Sex)
	}
	require.NotNil(t, result.Diagnostics.JoinGaps)
	assert.Empty(t, result.Diagnostics.JoinGaps.Gaps)
}

func TestRunReproducibleForSameSeed(t *testing.T) {
	extract, totals := testCensus()
	ds := Dataset{Incidents: testIncidents(), Census: extract, SexTotals: totals}

	r1, err := New(Params{Seed: 5, Strict: true}, nil).Run(context.Background(), ds)
	require.NoError(t, err)
	r2, err := New(Params{Seed: 5, Strict: true}, nil).Run(context.Background(), ds)
	require.NoError(t, err)

	require.Len(t, r2.Incidents, len(r1.Incidents))
	for i := range r1.Incidents {
		assert.Equal(t, *r1.Incidents[i].AgeInYears, *r2.Incidents[i].AgeInYears)
	}
}

func TestRunImputationFailureIsTerminal(t *testing.T) {
	extract, totals := testCensus()
	records := testIncidents()[:4] // below the minimum complete-case count
	ds := Dataset{Incidents: records, Census: extract, SexTotals: totals}

	_, err := New(Params{Seed: 1, Strict: true}, nil).Run(context.Background(), ds)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "imputation stage")
}

func TestRunStrictReconciliationFailure(t *testing.T) {
	extract, _ := testCensus()
	totals := []domain.SexTotalRow{
		{State: "California", Sex: "M", Race: "White", Total: 75_000},
	}
	ds := Dataset{Incidents: testIncidents(), Census: extract, SexTotals: totals}

	_, err := New(Params{Seed: 1, Strict: true}, nil).Run(context.Background(), ds)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "census stage")
}

func TestRunLenientReconciliationProceeds(t *testing.T) {
	extract, _ := testCensus()
	totals := []domain.SexTotalRow{
		{State: "California", Sex: "M", Race: "White", Total: 75_000},
	}
	ds := Dataset{Incidents: testIncidents(), Census: extract, SexTotals: totals}

	result, err := New(Params{Seed: 1, Strict: false}, nil).Run(context.Background(), ds)
	require.NoError(t, err)
	require.NotNil(t, result.Diagnostics.Reconciliation)
	assert.False(t, result.Diagnostics.Reconciliation.OK())
	assert.NotEmpty(t, result.Rates)
}
