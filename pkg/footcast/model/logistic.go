package model

import (
	"fmt"
	"math"

	"github.com/richard-senior/footcast/internal/logger"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Logistic is a one-vs-rest L2 logistic regression over features scaled to unit variance.
// Features are divided by their standard deviation but not centred.
type Logistic struct {
	C       float64 // inverse regularisation strength
	MaxIter int

	scale   []float64
	weights [NumClasses][]float64
	bias    [NumClasses]float64
	fitted  bool
}

func NewLogistic(maxIter int) *Logistic {
	if maxIter < 1 {
		maxIter = 500
	}
	return &Logistic{C: 1.0, MaxIter: maxIter}
}

func (l *Logistic) Name() string { return "lr" }

func (l *Logistic) Fit(ds Dataset, y []int) error {
	width, err := validateFit(ds, y)
	if err != nil {
		return fmt.Errorf("lr: %w", err)
	}
	n := ds.Len()

	// population std per column, constant columns are left unscaled
	l.scale = make([]float64, width)
	col := make([]float64, n)
	for j := 0; j < width; j++ {
		for i, row := range ds.X {
			col[i] = row[j]
		}
		_, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		l.scale[j] = std
	}
	xs := l.transform(ds.X)

	// step size from a bound on the loss curvature: 1/4 of the mean squared row norm
	// (bias included) plus the penalty term
	var sq float64
	for _, row := range xs {
		sq += floats.Dot(row, row) + 1
	}
	penalty := 1 / (l.C * float64(n))
	step := 1 / (0.25*sq/float64(n) + penalty)

	gw := make([]float64, width)
	for k := 0; k < NumClasses; k++ {
		w := make([]float64, width)
		var b float64
		for iter := 0; iter < l.MaxIter; iter++ {
			for j := range gw {
				gw[j] = 0
			}
			var gb float64
			for i, row := range xs {
				target := 0.0
				if y[i] == k {
					target = 1.0
				}
				e := sigmoid(floats.Dot(w, row)+b) - target
				floats.AddScaled(gw, e, row)
				gb += e
			}
			floats.Scale(1/float64(n), gw)
			floats.AddScaled(gw, penalty, w)
			floats.AddScaled(w, -step, gw)
			b -= step * gb / float64(n)
		}
		l.weights[k] = w
		l.bias[k] = b
	}
	l.fitted = true
	logger.Debug("Fitted logistic regression", n, "rows", l.MaxIter, "iterations")
	return nil
}

// PredictProba normalises the three one-vs-rest scores so each row sums to 1
func (l *Logistic) PredictProba(ds Dataset) ([][]float64, error) {
	if !l.fitted {
		return nil, ErrNotFitted
	}
	if _, err := validateX(ds.X, len(l.scale)); err != nil {
		return nil, fmt.Errorf("lr: %w", err)
	}
	xs := l.transform(ds.X)
	out := make([][]float64, len(xs))
	for i, row := range xs {
		p := make([]float64, NumClasses)
		for k := 0; k < NumClasses; k++ {
			p[k] = sigmoid(floats.Dot(l.weights[k], row) + l.bias[k])
		}
		if sum := floats.Sum(p); sum > 0 {
			floats.Scale(1/sum, p)
		} else {
			for k := range p {
				p[k] = 1.0 / NumClasses
			}
		}
		out[i] = p
	}
	return out, nil
}

func (l *Logistic) transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		r := make([]float64, len(row))
		floats.DivTo(r, row, l.scale)
		out[i] = r
	}
	return out
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	ez := math.Exp(z)
	return ez / (1 + ez)
}
