package census

import (
	"fmt"
	"strings"

	apperrors "emsrates/internal/errors"
)

// The nine U.S. Census Bureau divisions.
const (
	DivisionNewEngland       = "New England"
	DivisionMiddleAtlantic   = "Middle Atlantic"
	DivisionEastNorthCentral = "East North Central"
	DivisionWestNorthCentral = "West North Central"
	DivisionSouthAtlantic    = "South Atlantic"
	DivisionEastSouthCentral = "East South Central"
	DivisionWestSouthCentral = "West South Central"
	DivisionMountain         = "Mountain"
	DivisionPacific          = "Pacific"
)

// stateDivisions maps every state (and DC) to its census division, keyed by
// both the full name and the USPS code.
var stateDivisions = map[string]string{
	"connecticut": DivisionNewEngland, "ct": DivisionNewEngland,
	"maine": DivisionNewEngland, "me": DivisionNewEngland,
	"massachusetts": DivisionNewEngland, "ma": DivisionNewEngland,
	"new hampshire": DivisionNewEngland, "nh": DivisionNewEngland,
	"rhode island": DivisionNewEngland, "ri": DivisionNewEngland,
	"vermont": DivisionNewEngland, "vt": DivisionNewEngland,

	"new jersey": DivisionMiddleAtlantic, "nj": DivisionMiddleAtlantic,
	"new york": DivisionMiddleAtlantic, "ny": DivisionMiddleAtlantic,
	"pennsylvania": DivisionMiddleAtlantic, "pa": DivisionMiddleAtlantic,

	"illinois": DivisionEastNorthCentral, "il": DivisionEastNorthCentral,
	"indiana": DivisionEastNorthCentral, "in": DivisionEastNorthCentral,
	"michigan": DivisionEastNorthCentral, "mi": DivisionEastNorthCentral,
	"ohio": DivisionEastNorthCentral, "oh": DivisionEastNorthCentral,
	"wisconsin": DivisionEastNorthCentral, "wi": DivisionEastNorthCentral,

	"iowa": DivisionWestNorthCentral, "ia": DivisionWestNorthCentral,
	"kansas": DivisionWestNorthCentral, "ks": DivisionWestNorthCentral,
	"minnesota": DivisionWestNorthCentral, "mn": DivisionWestNorthCentral,
	"missouri": DivisionWestNorthCentral, "mo": DivisionWestNorthCentral,
	"nebraska": DivisionWestNorthCentral, "ne": DivisionWestNorthCentral,
	"north dakota": DivisionWestNorthCentral, "nd": DivisionWestNorthCentral,
	"south dakota": DivisionWestNorthCentral, "sd": DivisionWestNorthCentral,

	"delaware": DivisionSouthAtlantic, "de": DivisionSouthAtlantic,
	"district of columbia": DivisionSouthAtlantic, "dc": DivisionSouthAtlantic,
	"florida": DivisionSouthAtlantic, "fl": DivisionSouthAtlantic,
	"georgia": DivisionSouthAtlantic, "ga": DivisionSouthAtlantic,
	"maryland": DivisionSouthAtlantic, "md": DivisionSouthAtlantic,
	"north carolina": DivisionSouthAtlantic, "nc": DivisionSouthAtlantic,
	"south carolina": DivisionSouthAtlantic, "sc": DivisionSouthAtlantic,
	"virginia": DivisionSouthAtlantic, "va": DivisionSouthAtlantic,
	"west virginia": DivisionSouthAtlantic, "wv": DivisionSouthAtlantic,

	"alabama": DivisionEastSouthCentral, "al": DivisionEastSouthCentral,
	"kentucky": DivisionEastSouthCentral, "ky": DivisionEastSouthCentral,
	"mississippi": DivisionEastSouthCentral, "ms": DivisionEastSouthCentral,
	"tennessee": DivisionEastSouthCentral, "tn": DivisionEastSouthCentral,

	"arkansas": DivisionWestSouthCentral, "ar": DivisionWestSouthCentral,
	"louisiana": DivisionWestSouthCentral, "la": DivisionWestSouthCentral,
	"oklahoma": DivisionWestSouthCentral, "ok": DivisionWestSouthCentral,
	"texas": DivisionWestSouthCentral, "tx": DivisionWestSouthCentral,

	"arizona": DivisionMountain, "az": DivisionMountain,
	"colorado": DivisionMountain, "co": DivisionMountain,
	"idaho": DivisionMountain, "id": DivisionMountain,
	"montana": DivisionMountain, "mt": DivisionMountain,
	"nevada": DivisionMountain, "nv": DivisionMountain,
	"new mexico": DivisionMountain, "nm": DivisionMountain,
	"utah": DivisionMountain, "ut": DivisionMountain,
	"wyoming": DivisionMountain, "wy": DivisionMountain,

	"alaska": DivisionPacific, "ak": DivisionPacific,
	"california": DivisionPacific, "ca": DivisionPacific,
	"hawaii": DivisionPacific, "hi": DivisionPacific,
	"oregon": DivisionPacific, "or": DivisionPacific,
	"washington": DivisionPacific, "wa": DivisionPacific,
}

// DivisionForState returns the census division for a state given by full name
// or USPS code.
func DivisionForState(state string) (string, error) {
	div, ok := stateDivisions[strings.ToLower(strings.TrimSpace(state))]
	if !ok {
		return "", apperrors.NewSchemaError(
			fmt.Sprintf("unknown state %q in census extract", state), nil).
			WithContext("state", state)
	}
	return div, nil
}
