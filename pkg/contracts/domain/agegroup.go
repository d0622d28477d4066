package domain

// AgeGroup is the ordered categorical partition of age in years used across the
// incident, population, and rate tables. The bin boundaries are fixed; every
// age in [0,110] maps to exactly one bin.
type AgeGroup string

const (
	AgeGroup0To24  AgeGroup = "0-24"
	AgeGroup25To34 AgeGroup = "25-34"
	AgeGroup35To44 AgeGroup = "35-44"
	AgeGroup45To54 AgeGroup = "45-54"
	AgeGroup55To64 AgeGroup = "55-64"
	AgeGroup65To74 AgeGroup = "65-74"
	AgeGroup75To84 AgeGroup = "75-84"
	AgeGroup85Plus AgeGroup = "85+"
)

// MaxAgeYears is the upper clip bound for imputed ages and the open upper
// boundary of the terminal bin.
const MaxAgeYears = 110

// AgeGroups lists the bins in ascending order. The ordering is load-bearing:
// chart axes and report rows follow it.
var AgeGroups = []AgeGroup{
	AgeGroup0To24,
	AgeGroup25To34,
	AgeGroup35To44,
	AgeGroup45To54,
	AgeGroup55To64,
	AgeGroup65To74,
	AgeGroup75To84,
	AgeGroup85Plus,
}

var ageGroupBounds = map[AgeGroup][2]int{
	AgeGroup0To24:  {0, 24},
	AgeGroup25To34: {25, 34},
	AgeGroup35To44: {35, 44},
	AgeGroup45To54: {45, 54},
	AgeGroup55To64: {55, 64},
	AgeGroup65To74: {65, 74},
	AgeGroup75To84: {75, 84},
	AgeGroup85Plus: {85, MaxAgeYears},
}

// AgeGroupFor returns the bin containing age. Ages are truncated to whole
// years before binning, matching how the source dataset reports ageinyear.
func AgeGroupFor(age float64) AgeGroup {
	years := int(age)
	if years < 0 {
		years = 0
	}
	if years > MaxAgeYears {
		years = MaxAgeYears
	}
	for _, g := range AgeGroups {
		b := ageGroupBounds[g]
		if years >= b[0] && years <= b[1] {
			return g
		}
	}
	return AgeGroup85Plus
}

// Bounds returns the inclusive [low, high] year boundaries of the bin.
func (g AgeGroup) Bounds() (low, high int) {
	b := ageGroupBounds[g]
	return b[0], b[1]
}

// IsValid reports whether g is one of the fixed bins.
func (g AgeGroup) IsValid() bool {
	_, ok := ageGroupBounds[g]
	return ok
}

// Index returns the position of g in the bin ordering, or -1 if g is not a
// valid bin.
func (g AgeGroup) Index() int {
	for i, bin := range AgeGroups {
		if bin == g {
			return i
		}
	}
	return -1
}
