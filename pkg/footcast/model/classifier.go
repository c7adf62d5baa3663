package model

import (
	"errors"
	"fmt"
)

// NumClasses is the width of every probability row: home, draw, away
const NumClasses = 3

// ErrNotFitted is returned by PredictProba before a successful Fit
var ErrNotFitted = errors.New("model has not been fitted")

// Dataset is a feature matrix with the team identities of each row carried alongside.
// Home and Away may be nil for models that do not use them.
type Dataset struct {
	X    [][]float64
	Home []string
	Away []string
}

// Len returns the number of rows
func (d Dataset) Len() int {
	return len(d.X)
}

// Classifier is a three way outcome model
type Classifier interface {
	Name() string
	Fit(ds Dataset, y []int) error
	// PredictProba returns one row per sample, each summing to 1
	PredictProba(ds Dataset) ([][]float64, error)
}

// Options configures the candidate models
type Options struct {
	Seed         int64
	Epochs       int
	BatchSize    int
	LearningRate float64
	LRMaxIter    int
}

// DefaultOptions mirrors the defaults of the pipeline configuration
func DefaultOptions() Options {
	return Options{Seed: 42, Epochs: 10, BatchSize: 512, LearningRate: 1e-3, LRMaxIter: 500}
}

// Candidates returns the models the pipeline compares, in tie break order
func Candidates(opts Options) []Classifier {
	return []Classifier{
		NewLogistic(opts.LRMaxIter),
		NewMLP(opts),
		NewTeamEmbed(opts),
	}
}

func validateFit(ds Dataset, y []int) (int, error) {
	if ds.Len() == 0 {
		return 0, fmt.Errorf("cannot fit on an empty dataset")
	}
	if ds.Len() != len(y) {
		return 0, fmt.Errorf("%d rows but %d labels", ds.Len(), len(y))
	}
	width, err := validateX(ds.X, -1)
	if err != nil {
		return 0, err
	}
	for i, label := range y {
		if label < 0 || label >= NumClasses {
			return 0, fmt.Errorf("label %d at row %d is outside 0..%d", label, i, NumClasses-1)
		}
	}
	return width, nil
}

// validateX checks every row has the same width, which must equal want unless want is -1
func validateX(X [][]float64, want int) (int, error) {
	width := want
	for i, row := range X {
		if width == -1 {
			width = len(row)
		}
		if len(row) != width {
			return 0, fmt.Errorf("row %d has %d features, expected %d", i, len(row), width)
		}
	}
	return width, nil
}
