package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgeGroupFor(t *testing.T) {
	tests := []struct {
		name string
		age  float64
		want AgeGroup
	}{
		{"infant", 0, AgeGroup0To24},
		{"upper edge of first bin", 24, AgeGroup0To24},
		{"fractional year truncates down", 24.9, AgeGroup0To24},
		{"lower edge of second bin", 25, AgeGroup25To34},
		{"mid bin", 40, AgeGroup35To44},
		{"edge 54", 54, AgeGroup45To54},
		{"edge 55", 55, AgeGroup55To64},
		{"edge 84", 84, AgeGroup75To84},
		{"edge 85", 85, AgeGroup85Plus},
		{"clip ceiling", 110, AgeGroup85Plus},
		{"above ceiling still terminal bin", 130, AgeGroup85Plus},
		{"negative clamps to first bin", -3, AgeGroup0To24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AgeGroupFor(tt.age))
		})
	}
}

func TestAgeGroupOrdering(t *testing.T) {
	// Bins must tile [0, MaxAgeYears] contiguously and in order.
	prevHigh := -1
	for i, g := range AgeGroups {
		low, high := g.Bounds()
		assert.Equal(t, prevHigh+1, low, "bin %s does not start where the previous ended", g)
		assert.GreaterOrEqual(t, high, low)
		assert.Equal(t, i, g.Index())
		assert.True(t, g.IsValid())
		prevHigh = high
	}
	assert.Equal(t, MaxAgeYears, prevHigh)
}

func TestAgeGroupInvalid(t *testing.T) {
	g := AgeGroup("18-30")
	assert.False(t, g.IsValid())
	assert.Equal(t, -1, g.Index())
}

func TestIdentityKeyIgnoresRaceAndPcrKey(t *testing.T) {
	age := 33.0
	urb := 2
	year := 2020
	ct := 41.5

	base := IncidentRecord{
		PcrKey:           "A1",
		AgeGroup:         AgeGroup25To34,
		AgeInYears:       &age,
		Gender:           "Male",
		Race:             "White",
		USCensusDivision: "Pacific",
		Urbanicity:       &urb,
		Year:             &year,
		CallTimeMin:      &ct,
		Injured:          true,
	}

	other := base
	other.PcrKey = "B9"
	other.Race = "Asian"
	assert.Equal(t, base.IdentityKey(), other.IdentityKey())

	changed := base
	changed.Gender = "Female"
	assert.NotEqual(t, base.IdentityKey(), changed.IdentityKey())

	nilAge := base
	nilAge.AgeInYears = nil
	assert.NotEqual(t, base.IdentityKey(), nilAge.IdentityKey())
}
