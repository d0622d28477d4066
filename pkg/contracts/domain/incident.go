package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// IncidentRecord is one EMS-attended crash encounter. Nullable columns use
// pointers: nil means the value was missing in the source (or was a recognized
// sentinel string that the cleaning stage normalized away).
type IncidentRecord struct {
	PcrKey           string   `json:"pcr_key"`
	AgeGroup         AgeGroup `json:"age_group,omitempty"`
	AgeInYears       *float64 `json:"age_in_years,omitempty"`
	Gender           string   `json:"gender,omitempty"`
	Race             string   `json:"race,omitempty"`
	USCensusDivision string   `json:"us_census_division,omitempty"`
	Urbanicity       *int     `json:"urbanicity,omitempty"`
	Year             *int     `json:"year,omitempty"`
	CallTimeMin      *float64 `json:"call_time_min,omitempty"`
	Injured          bool     `json:"injured"`
}

// IdentityKey returns a deterministic key over every field except PcrKey and
// Race. Rows sharing this key are candidate data-entry duplicates: the same
// encounter re-keyed, possibly with a different Race value.
func (r IncidentRecord) IdentityKey() string {
	var b strings.Builder
	b.WriteString(string(r.AgeGroup))
	b.WriteByte('|')
	writeOptFloat(&b, r.AgeInYears)
	b.WriteByte('|')
	b.WriteString(r.Gender)
	b.WriteByte('|')
	b.WriteString(r.USCensusDivision)
	b.WriteByte('|')
	writeOptInt(&b, r.Urbanicity)
	b.WriteByte('|')
	writeOptInt(&b, r.Year)
	b.WriteByte('|')
	writeOptFloat(&b, r.CallTimeMin)
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(r.Injured))
	return b.String()
}

func writeOptFloat(b *strings.Builder, v *float64) {
	if v == nil {
		b.WriteString("<nil>")
		return
	}
	fmt.Fprintf(b, "%g", *v)
}

func writeOptInt(b *strings.Builder, v *int) {
	if v == nil {
		b.WriteString("<nil>")
		return
	}
	b.WriteString(strconv.Itoa(*v))
}
