package cleaning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emsrates/pkg/contracts/domain"
)

func record(pcr, gender, race, division string, year int, injured bool) domain.IncidentRecord {
	y := year
	return domain.IncidentRecord{
		PcrKey:           pcr,
		Gender:           gender,
		Race:             race,
		USCensusDivision: division,
		Year:             &y,
		Injured:          injured,
	}
}

func TestNormalizeNulls(t *testing.T) {
	records := []domain.IncidentRecord{
		record("1", "Male", "Unknown", "Pacific", 2020, true),
		record("2", "NOT RECORDED", "White", "", 2020, false),
		record("3", "Female", "n/a", "Mountain", 2021, true),
		record("4", "Female", "White", "Mountain", 2021, false),
	}

	cleaned, report := NormalizeNulls(records)

	// Sentinels are gone from the designated columns.
	for _, r := range cleaned {
		assert.False(t, IsSentinel(r.Gender), "sentinel left in Gender: %q", r.Gender)
		assert.False(t, IsSentinel(r.Race), "sentinel left in Race: %q", r.Race)
		assert.False(t, IsSentinel(r.USCensusDivision))
	}
	assert.Equal(t, "", cleaned[0].Race)
	assert.Equal(t, "", cleaned[1].Gender)
	assert.Equal(t, "", cleaned[2].Race)

	// Input is untouched.
	assert.Equal(t, "Unknown", records[0].Race)

	require.Len(t, report.Columns, 3)
	byColumn := map[string]NullColumnReport{}
	for _, c := range report.Columns {
		byColumn[c.Column] = c
	}
	assert.Equal(t, 1, byColumn["Gender"].SentinelsReplaced)
	assert.Equal(t, 0, byColumn["Gender"].NullsBefore)
	assert.Equal(t, 1, byColumn["Gender"].NullsAfter)
	assert.Equal(t, 2, byColumn["Race"].SentinelsReplaced)
	assert.Equal(t, 2, byColumn["Race"].NullsAfter)
	assert.Equal(t, 1, byColumn["USCensusDivision"].NullsBefore)
	assert.Equal(t, 1, byColumn["USCensusDivision"].NullsAfter)
	assert.Equal(t, 4, report.Rows)
}

func TestDeduplicateKeyCollisions(t *testing.T) {
	records := []domain.IncidentRecord{
		record("1", "Male", "White", "Pacific", 2020, true),
		record("1", "Female", "Asian", "Mountain", 2021, false),
		record("2", "Female", "White", "Pacific", 2020, false),
	}

	out, report := Deduplicate(records)

	require.Len(t, out, 2)
	assert.Equal(t, 1, report.KeyCollisionsDropped)

	seen := map[string]bool{}
	for _, r := range out {
		assert.False(t, seen[r.PcrKey], "PcrKey %q not unique", r.PcrKey)
		seen[r.PcrKey] = true
	}
	// First occurrence wins.
	assert.Equal(t, "Male", out[0].Gender)
}

func TestDeduplicateSameRaceGroupKeepsSmallestPcrKey(t *testing.T) {
	records := []domain.IncidentRecord{
		record("B2", "Male", "White", "Pacific", 2020, true),
		record("A1", "Male", "White", "Pacific", 2020, true),
		record("C3", "Female", "White", "Pacific", 2020, true),
	}

	out, report := Deduplicate(records)

	require.Len(t, out, 2)
	keys := []string{out[0].PcrKey, out[1].PcrKey}
	assert.Contains(t, keys, "A1")
	assert.Contains(t, keys, "C3")
	assert.NotContains(t, keys, "B2")
	assert.Equal(t, 1, report.DuplicatesDropped)
	assert.Equal(t, 0, report.AmbiguousRowsDropped)
}

func TestDeduplicateAmbiguousGroupExcluded(t *testing.T) {
	records := []domain.IncidentRecord{
		record("A1", "Male", "White", "Pacific", 2020, true),
		record("B2", "Male", "Asian", "Pacific", 2020, true),
		record("C3", "Female", "White", "Mountain", 2021, false),
	}

	out, report := Deduplicate(records)

	require.Len(t, out, 1)
	assert.Equal(t, "C3", out[0].PcrKey)
	assert.Equal(t, 1, report.AmbiguousGroups)
	assert.Equal(t, 2, report.AmbiguousRowsDropped)
	assert.Equal(t, 1, report.OutputRows)
}

func TestDeduplicateDeterministicAcrossOrderings(t *testing.T) {
	a := record("A1", "Male", "White", "Pacific", 2020, true)
	b := record("B2", "Male", "White", "Pacific", 2020, true)
	c := record("C3", "Male", "Asian", "Mountain", 2021, true)
	d := record("D4", "Male", "Black or African American", "Mountain", 2021, true)

	out1, _ := Deduplicate([]domain.IncidentRecord{a, b, c, d})
	out2, _ := Deduplicate([]domain.IncidentRecord{d, c, b, a})

	keys := func(rs []domain.IncidentRecord) map[string]bool {
		m := map[string]bool{}
		for _, r := range rs {
			m[r.PcrKey] = true
		}
		return m
	}
	assert.Equal(t, keys(out1), keys(out2))
	// a/b collapse to A1; c and d disagree on race only, so both go.
	assert.Equal(t, map[string]bool{"A1": true}, keys(out1))
}
