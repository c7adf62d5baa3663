package model

import (
	"fmt"
	"math/rand"

	"github.com/richard-senior/footcast/internal/logger"
)

// MLP is Dense(128, relu) -> Dropout(0.2) -> Dense(64, relu) -> Dropout(0.2) -> Dense(3, softmax)
// trained with Adam on sparse cross entropy
type MLP struct {
	Hidden       []int
	DropoutRate  float64
	Epochs       int
	BatchSize    int
	LearningRate float64
	Seed         int64

	net   sequential
	width int
}

func NewMLP(opts Options) *MLP {
	return &MLP{
		Hidden:       []int{128, 64},
		DropoutRate:  0.2,
		Epochs:       opts.Epochs,
		BatchSize:    opts.BatchSize,
		LearningRate: opts.LearningRate,
		Seed:         opts.Seed,
	}
}

func (m *MLP) Name() string { return "mlp" }

func (m *MLP) Fit(ds Dataset, y []int) error {
	width, err := validateFit(ds, y)
	if err != nil {
		return fmt.Errorf("mlp: %w", err)
	}
	rng := rand.New(rand.NewSource(m.Seed))

	m.width = width
	m.net = nil
	in := width
	for _, h := range m.Hidden {
		m.net = append(m.net, newDense(in, h, rng), &relu{}, &dropout{rate: m.DropoutRate, rng: rng})
		in = h
	}
	m.net = append(m.net, newDense(in, NumClasses, rng))

	opt := newAdam(m.LearningRate)
	params := m.net.params()
	for epoch := 0; epoch < m.Epochs; epoch++ {
		var total float64
		for _, idx := range batches(rng, ds.Len(), m.BatchSize) {
			probs := softmax(m.net.forward(gatherRows(ds.X, idx), true))
			loss, grad := crossEntropyGrad(probs, gatherInts(y, idx))
			m.net.backward(grad)
			opt.step(params)
			total += loss * float64(len(idx))
		}
		logger.Debug("mlp epoch", epoch+1, "loss", total/float64(ds.Len()))
	}
	return nil
}

func (m *MLP) PredictProba(ds Dataset) ([][]float64, error) {
	if m.net == nil {
		return nil, ErrNotFitted
	}
	if _, err := validateX(ds.X, m.width); err != nil {
		return nil, fmt.Errorf("mlp: %w", err)
	}
	if ds.Len() == 0 {
		return [][]float64{}, nil
	}
	return softmax(m.net.forward(ds.X, false)), nil
}
