package census

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	apperrors "emsrates/internal/errors"
	"emsrates/pkg/contracts/domain"
)

// ACS age line-item label forms. Labels are matched after lowercasing and
// whitespace trimming.
var (
	reUnder   = regexp.MustCompile(`^under (\d+) years?$`)
	reRange   = regexp.MustCompile(`^(\d+) to (\d+) years?$`)
	reAndOver = regexp.MustCompile(`^(\d+) years? and over$`)
	reSingle  = regexp.MustCompile(`^(\d+) years?$`)
)

// ParseAgeLabel parses an ACS age line-item label ("Under 5 years",
// "22 to 24 years", "21 years", "85 years and over") into its inclusive
// [low, high] year bounds.
func ParseAgeLabel(label string) (low, high int, err error) {
	s := strings.ToLower(strings.TrimSpace(label))

	if m := reUnder.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n < 1 {
			return 0, 0, badAgeLabel(label)
		}
		return 0, n - 1, nil
	}
	if m := reRange.FindStringSubmatch(s); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		if b < a {
			return 0, 0, badAgeLabel(label)
		}
		return a, b, nil
	}
	if m := reAndOver.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, domain.MaxAgeYears, nil
	}
	if m := reSingle.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, n, nil
	}
	return 0, 0, badAgeLabel(label)
}

func badAgeLabel(label string) error {
	return apperrors.NewSchemaError(
		fmt.Sprintf("unrecognized age line-item label %q", label), nil).
		WithContext("age_label", label)
}

// BinForBounds returns the target AgeGroup bin that fully contains
// [low, high]. A line item straddling a bin boundary cannot be aggregated and
// is a schema defect in the extract.
func BinForBounds(label string, low, high int) (domain.AgeGroup, error) {
	for _, g := range domain.AgeGroups {
		bLow, bHigh := g.Bounds()
		if low >= bLow && high <= bHigh {
			return g, nil
		}
	}
	return "", apperrors.NewSchemaError(
		fmt.Sprintf("age line item %q (%d-%d) straddles the target bin boundaries", label, low, high), nil).
		WithContext("age_label", label)
}
