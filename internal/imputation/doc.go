// Package imputation fills missing ageinyear values by stochastic regression
// imputation: an ordinary least-squares model fitted on complete cases, with
// Gaussian noise matching the model's residual standard deviation added to
// each prediction. Mean imputation is deliberately not offered — it collapses
// the variance of the age distribution and biases the downstream binning.
//
// The predictor set is fixed to {Urbanicity, Year, EMSTotalCallTimeMin}.
// Missing predictor values are filled with the column median; the target is
// never median-filled. Imputed ages are clipped to [0, 110] and the AgeGroup
// bin is recomputed from the final age for every row that carries one.
package imputation
