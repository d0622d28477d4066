package domain

// RateRecord is one EMS aggregate cell joined against the population table.
// Population, RatePer100k and Offset are nil when the join found no usable
// denominator; a nil rate is the defined result for such cells, never zero.
type RateRecord struct {
	Division    string   `json:"division"`
	Sex         string   `json:"sex"`
	Race        string   `json:"race"`
	AgeGroup    AgeGroup `json:"age_group"`
	InjuryCount int64    `json:"injury_count"`
	Population  *int64   `json:"population,omitempty"`
	RatePer100k *float64 `json:"rate_per_100k,omitempty"`
	Offset      *float64 `json:"offset,omitempty"`
}

// HasRate reports whether the cell carries a defined rate.
func (r RateRecord) HasRate() bool {
	return r.RatePer100k != nil
}
