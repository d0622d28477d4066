package imputation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	apperrors "emsrates/internal/errors"
	"emsrates/pkg/contracts/domain"
)

// Predictor names, in design-matrix column order (after the intercept).
const (
	PredictorUrbanicity  = "urbanicity"
	PredictorYear        = "year"
	PredictorCallTimeMin = "call_time_min"
)

const numPredictors = 3

// minTrainingRows keeps at least two residual degrees of freedom
// (predictors + intercept + 2).
const minTrainingRows = numPredictors + 3

// minResidualStdDev separates a genuinely degenerate fit from QR round-off:
// below this the "noise" would be numerically zero and imputation collapses
// to mean imputation.
const minResidualStdDev = 1e-9

// Report exposes what the imputer fitted and did, so callers and tests can
// inspect the model instead of trusting it blindly.
type Report struct {
	TrainingRows     int                `json:"training_rows"`
	ImputedRows      int                `json:"imputed_rows"`
	Intercept        float64            `json:"intercept"`
	Coefficients     map[string]float64 `json:"coefficients"`
	ResidualStdDev   float64            `json:"residual_std_dev"`
	PredictorMedians map[string]float64 `json:"predictor_medians"`
}

// Imputer fits and applies the stochastic age model. The noise source is
// seeded so repeated runs over the same inputs produce the same table.
type Imputer struct {
	seed   uint64
	logger *slog.Logger
}

// NewImputer creates an imputer with the given noise seed.
func NewImputer(seed uint64, logger *slog.Logger) *Imputer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Imputer{seed: seed, logger: logger}
}

// Impute returns a copy of records with every missing AgeInYears filled and
// every AgeGroup recomputed from the final age. The input slice is not
// modified.
func (im *Imputer) Impute(ctx context.Context, records []domain.IncidentRecord) ([]domain.IncidentRecord, *Report, error) {
	out := make([]domain.IncidentRecord, len(records))
	copy(out, records)

	medians, err := predictorMedians(out)
	if err != nil {
		return nil, nil, err
	}

	var trainIdx, missingIdx []int
	for i, r := range out {
		if r.AgeInYears != nil {
			trainIdx = append(trainIdx, i)
		} else {
			missingIdx = append(missingIdx, i)
		}
	}

	if len(trainIdx) < minTrainingRows {
		return nil, nil, apperrors.NewDataQualityError(
			fmt.Sprintf("insufficient complete cases to fit the age model: have %d, need %d",
				len(trainIdx), minTrainingRows), nil).
			WithContext("complete_cases", len(trainIdx))
	}

	intercept, coefs, sigma, err := fitModel(out, trainIdx, medians)
	if err != nil {
		return nil, nil, err
	}

	im.logger.InfoContext(ctx, "fitted age imputation model",
		slog.Int("training_rows", len(trainIdx)),
		slog.Int("missing_rows", len(missingIdx)),
		slog.Float64("intercept", intercept),
		slog.Float64("residual_std_dev", sigma))

	normal := distuv.Normal{
		Mu:    0,
		Sigma: sigma,
		Src:   rand.NewSource(im.seed),
	}

	for _, i := range missingIdx {
		x := predictors(out[i], medians)
		pred := intercept
		for j, c := range coefs {
			pred += c * x[j]
		}
		age := clampAge(pred + normal.Rand())
		out[i].AgeInYears = &age
	}

	// Bin recompute covers observed ages too, so the bin/age invariant holds
	// for the whole table, not just imputed rows.
	for i := range out {
		if out[i].AgeInYears != nil {
			out[i].AgeGroup = domain.AgeGroupFor(*out[i].AgeInYears)
		}
	}

	report := &Report{
		TrainingRows: len(trainIdx),
		ImputedRows:  len(missingIdx),
		Intercept:    intercept,
		Coefficients: map[string]float64{
			PredictorUrbanicity:  coefs[0],
			PredictorYear:        coefs[1],
			PredictorCallTimeMin: coefs[2],
		},
		ResidualStdDev:   sigma,
		PredictorMedians: medians,
	}
	return out, report, nil
}

// fitModel solves the OLS normal problem by QR factorization and returns the
// intercept, the predictor coefficients, and the residual standard deviation
// over the training rows.
func fitModel(records []domain.IncidentRecord, trainIdx []int, medians map[string]float64) (float64, []float64, float64, error) {
	n := len(trainIdx)
	p := numPredictors + 1

	xData := make([]float64, 0, n*p)
	yData := make([]float64, 0, n)
	for _, i := range trainIdx {
		x := predictors(records[i], medians)
		xData = append(xData, 1)
		xData = append(xData, x...)
		yData = append(yData, *records[i].AgeInYears)
	}

	X := mat.NewDense(n, p, xData)
	y := mat.NewDense(n, 1, yData)

	var qr mat.QR
	qr.Factorize(X)

	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, y); err != nil {
		return 0, nil, 0, apperrors.NewDataQualityError(
			"age model design matrix is singular; predictors carry no usable variation", err)
	}

	// Residual standard deviation with p parameters consumed.
	var fitted mat.Dense
	fitted.Mul(X, &beta)
	var ssr float64
	for i := 0; i < n; i++ {
		r := yData[i] - fitted.At(i, 0)
		ssr += r * r
	}
	sigma := math.Sqrt(ssr / float64(n-p))

	if math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		return 0, nil, 0, apperrors.NewDataQualityError(
			"age model residual variance is not finite", nil)
	}
	if sigma < minResidualStdDev {
		return 0, nil, 0, apperrors.NewDataQualityError(
			"age model has zero residual variance; stochastic imputation would degenerate to mean imputation", nil)
	}

	coefs := make([]float64, numPredictors)
	for j := 0; j < numPredictors; j++ {
		coefs[j] = beta.At(j+1, 0)
	}
	return beta.At(0, 0), coefs, sigma, nil
}

// predictors builds the feature vector for one row, median-filling missing
// predictor values. The target is never filled here.
func predictors(r domain.IncidentRecord, medians map[string]float64) []float64 {
	x := make([]float64, numPredictors)
	if r.Urbanicity != nil {
		x[0] = float64(*r.Urbanicity)
	} else {
		x[0] = medians[PredictorUrbanicity]
	}
	if r.Year != nil {
		x[1] = float64(*r.Year)
	} else {
		x[1] = medians[PredictorYear]
	}
	if r.CallTimeMin != nil {
		x[2] = *r.CallTimeMin
	} else {
		x[2] = medians[PredictorCallTimeMin]
	}
	return x
}

func predictorMedians(records []domain.IncidentRecord) (map[string]float64, error) {
	var urb, year, ct []float64
	for _, r := range records {
		if r.Urbanicity != nil {
			urb = append(urb, float64(*r.Urbanicity))
		}
		if r.Year != nil {
			year = append(year, float64(*r.Year))
		}
		if r.CallTimeMin != nil {
			ct = append(ct, *r.CallTimeMin)
		}
	}

	medians := make(map[string]float64, numPredictors)
	for name, values := range map[string][]float64{
		PredictorUrbanicity:  urb,
		PredictorYear:        year,
		PredictorCallTimeMin: ct,
	} {
		if len(values) == 0 {
			return nil, apperrors.NewDataQualityError(
				fmt.Sprintf("predictor column %q has no observed values; median fill is impossible", name), nil)
		}
		sort.Float64s(values)
		medians[name] = stat.Quantile(0.5, stat.Empirical, values, nil)
	}
	return medians, nil
}

func clampAge(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > domain.MaxAgeYears {
		return domain.MaxAgeYears
	}
	return v
}
