package footcast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// NumClasses is the number of match outcomes (home, draw, away)
const NumClasses = 3

const (
	probaSumTolerance = 1e-6
	logLossEps        = 1e-15
)

// ErrMalformedProba is returned when a probability matrix or label vector cannot be scored
var ErrMalformedProba = errors.New("malformed probability matrix")

// Metrics scores a batch of probabilistic predictions
type Metrics struct {
	Accuracy float64 `json:"accuracy"`
	MacroF1  float64 `json:"macroF1"`
	LogLoss  float64 `json:"logLoss"`
	Brier    float64 `json:"brier"`
	N        int     `json:"n"`
}

// Argmax returns the most probable class, the lowest index on ties
func Argmax(row []float64) int {
	return floats.MaxIdx(row)
}

// EvaluateProbs scores an N x 3 probability matrix against labels in {0,1,2}.
// Rows must sum to 1 within 1e-6, nothing is renormalised.
// Log-loss clips probabilities to [1e-15, 1-1e-15], Brier averages over all N x 3 cells
// and macro-F1 averages over the classes that occur in either labels or predictions.
func EvaluateProbs(yTrue []int, proba [][]float64) (Metrics, error) {
	if err := validateProba(yTrue, proba); err != nil {
		return Metrics{}, err
	}
	n := len(yTrue)

	var correct int
	var logLoss, brier float64
	var tp, fp, fn [NumClasses]int

	for i, row := range proba {
		label := yTrue[i]
		pred := Argmax(row)
		if pred == label {
			correct++
			tp[label]++
		} else {
			fp[pred]++
			fn[label]++
		}

		p := math.Min(math.Max(row[label], logLossEps), 1-logLossEps)
		logLoss -= math.Log(p)

		for c, pc := range row {
			target := 0.0
			if c == label {
				target = 1.0
			}
			brier += (pc - target) * (pc - target)
		}
	}

	var f1Sum float64
	var present int
	for c := 0; c < NumClasses; c++ {
		if tp[c]+fp[c]+fn[c] == 0 {
			continue
		}
		present++
		// tp+fp+fn > 0 so the denominator is never zero
		f1Sum += 2 * float64(tp[c]) / float64(2*tp[c]+fp[c]+fn[c])
	}

	return Metrics{
		Accuracy: float64(correct) / float64(n),
		MacroF1:  f1Sum / float64(present),
		LogLoss:  logLoss / float64(n),
		Brier:    brier / float64(n*NumClasses),
		N:        n,
	}, nil
}

func validateProba(yTrue []int, proba [][]float64) error {
	if len(yTrue) == 0 {
		return fmt.Errorf("%w: empty batch", ErrMalformedProba)
	}
	if len(yTrue) != len(proba) {
		return fmt.Errorf("%w: %d labels but %d rows", ErrMalformedProba, len(yTrue), len(proba))
	}
	for i, row := range proba {
		if len(row) != NumClasses {
			return fmt.Errorf("%w: row %d has width %d", ErrMalformedProba, i, len(row))
		}
		for _, p := range row {
			if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
				return fmt.Errorf("%w: row %d holds %v", ErrMalformedProba, i, p)
			}
		}
		if sum := floats.Sum(row); math.Abs(sum-1) > probaSumTolerance {
			return fmt.Errorf("%w: row %d sums to %.9f", ErrMalformedProba, i, sum)
		}
		if y := yTrue[i]; y < 0 || y >= NumClasses {
			return fmt.Errorf("%w: label %d at row %d", ErrMalformedProba, y, i)
		}
	}
	return nil
}
