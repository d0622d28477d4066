package domain

import (
	"sort"
)

// CensusExtractRow is one fine-grained line item from a census population
// extract: the population of one (state, sex, race, age line item) cell.
// AgeLabel carries the source's age wording (e.g. "Under 5 years",
// "22 to 24 years", "85 years and over").
type CensusExtractRow struct {
	State    string `json:"state"`
	Sex      string `json:"sex"`
	Race     string `json:"race"`
	AgeLabel string `json:"age_label"`
	Count    int64  `json:"count"`
}

// SexTotalRow is the independently reported all-ages population for one
// (state, sex, race) cell, used to reconcile the aggregated bins.
type SexTotalRow struct {
	State string `json:"state"`
	Sex   string `json:"sex"`
	Race  string `json:"race"`
	Total int64  `json:"total"`
}

// PopulationKey identifies one cell of the population denominator table.
type PopulationKey struct {
	Division string   `json:"division"`
	Sex      string   `json:"sex"`
	Race     string   `json:"race"`
	AgeGroup AgeGroup `json:"age_group"`
}

// PopulationCell is one row of the denominator table.
type PopulationCell struct {
	PopulationKey
	Count int64 `json:"count"`
}

// PopulationTable is the immutable Division × Sex × Race × AgeGroup lookup
// built once per run from census extracts. It is reference data for the rate
// join and is never mutated after construction.
type PopulationTable struct {
	cells map[PopulationKey]int64
}

// NewPopulationTable builds a table from cells. Later duplicates of the same
// key accumulate, so callers may feed partial sums.
func NewPopulationTable(cells []PopulationCell) *PopulationTable {
	t := &PopulationTable{cells: make(map[PopulationKey]int64, len(cells))}
	for _, c := range cells {
		t.cells[c.PopulationKey] += c.Count
	}
	return t
}

// Lookup returns the population for key and whether the cell exists.
func (t *PopulationTable) Lookup(key PopulationKey) (int64, bool) {
	n, ok := t.cells[key]
	return n, ok
}

// Len returns the number of cells.
func (t *PopulationTable) Len() int {
	return len(t.cells)
}

// Cells returns all cells in a deterministic order (division, sex, race, then
// bin order). The slice is a copy; mutating it does not affect the table.
func (t *PopulationTable) Cells() []PopulationCell {
	out := make([]PopulationCell, 0, len(t.cells))
	for k, n := range t.cells {
		out = append(out, PopulationCell{PopulationKey: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
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
	return out
}
