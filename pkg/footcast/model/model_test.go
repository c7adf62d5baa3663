package model

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var teams = []string{"Arsenal", "Chelsea", "Everton", "Fulham", "Leeds", "Wolves"}

// clusters draws n rows around three well separated centres, one per class
func clusters(n int, seed int64) (Dataset, []int) {
	rng := rand.New(rand.NewSource(seed))
	centres := [NumClasses][2]float64{{-3, 0}, {0, 3}, {3, 0}}
	ds := Dataset{}
	y := make([]int, n)
	for i := 0; i < n; i++ {
		c := i % NumClasses
		ds.X = append(ds.X, []float64{
			centres[c][0] + rng.NormFloat64()*0.5,
			centres[c][1] + rng.NormFloat64()*0.5,
			1, // constant column
		})
		ds.Home = append(ds.Home, teams[rng.Intn(len(teams))])
		ds.Away = append(ds.Away, teams[rng.Intn(len(teams))])
		y[i] = c
	}
	return ds, y
}

func accuracy(proba [][]float64, y []int) float64 {
	correct := 0
	for i, row := range proba {
		best := 0
		for k := range row {
			if row[k] > row[best] {
				best = k
			}
		}
		if best == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y))
}

func assertProbaRows(t *testing.T, proba [][]float64, n int) {
	t.Helper()
	require.Len(t, proba, n)
	for _, row := range proba {
		require.Len(t, row, NumClasses)
		var sum float64
		for _, p := range row {
			assert.False(t, math.IsNaN(p))
			assert.GreaterOrEqual(t, p, 0.0)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func testOptions() Options {
	return Options{Seed: 7, Epochs: 30, BatchSize: 32, LearningRate: 1e-2, LRMaxIter: 200}
}

func TestCandidatesOrder(t *testing.T) {
	var names []string
	for _, c := range Candidates(DefaultOptions()) {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"lr", "mlp", "team_embed"}, names)
}

func TestClassifiersLearnSeparableData(t *testing.T) {
	train, yTrain := clusters(300, 1)
	test, yTest := clusters(90, 2)

	for _, c := range Candidates(testOptions()) {
		t.Run(c.Name(), func(t *testing.T) {
			require.NoError(t, c.Fit(train, yTrain))
			proba, err := c.PredictProba(test)
			require.NoError(t, err)
			assertProbaRows(t, proba, test.Len())
			assert.Greater(t, accuracy(proba, yTest), 0.85)
		})
	}
}

func TestClassifiersNotFitted(t *testing.T) {
	ds, _ := clusters(3, 1)
	for _, c := range Candidates(testOptions()) {
		_, err := c.PredictProba(ds)
		assert.ErrorIs(t, err, ErrNotFitted, c.Name())
	}
}

func TestClassifiersRejectBadInput(t *testing.T) {
	ds, y := clusters(30, 1)
	for _, c := range Candidates(testOptions()) {
		assert.Error(t, c.Fit(Dataset{}, nil), c.Name())
		assert.Error(t, c.Fit(ds, y[:10]), c.Name())

		bad := append([]int(nil), y...)
		bad[0] = 3
		assert.Error(t, c.Fit(ds, bad), c.Name())

		require.NoError(t, c.Fit(ds, y))
		_, err := c.PredictProba(Dataset{X: [][]float64{{1, 2}}, Home: []string{"A"}, Away: []string{"B"}})
		assert.Error(t, err, c.Name())
	}
}

func TestSeededTrainingIsDeterministic(t *testing.T) {
	ds, y := clusters(120, 3)
	opts := testOptions()
	opts.Epochs = 3

	for _, build := range []func(Options) Classifier{
		func(o Options) Classifier { return NewMLP(o) },
		func(o Options) Classifier { return NewTeamEmbed(o) },
	} {
		a, b := build(opts), build(opts)
		require.NoError(t, a.Fit(ds, y))
		require.NoError(t, b.Fit(ds, y))
		pa, err := a.PredictProba(ds)
		require.NoError(t, err)
		pb, err := b.PredictProba(ds)
		require.NoError(t, err)
		assert.Equal(t, pa, pb, a.Name())

		other := opts
		other.Seed = 8
		c := build(other)
		require.NoError(t, c.Fit(ds, y))
		pc, err := c.PredictProba(ds)
		require.NoError(t, err)
		assert.NotEqual(t, pa, pc, a.Name())
	}
}

func TestTeamEmbedVocabulary(t *testing.T) {
	ds, y := clusters(60, 4)
	m := NewTeamEmbed(testOptions())
	m.Epochs = 1
	require.NoError(t, m.Fit(ds, y))

	vocab := m.Vocabulary()
	assert.Equal(t, teams, vocab)
	assert.Equal(t, []int{1, 6, 0}, m.ids([]string{"Arsenal", "Wolves", "Newly Promoted"}))

	// unseen teams share the reserved row
	proba, err := m.PredictProba(Dataset{
		X:    [][]float64{{0, 3, 1}, {0, 3, 1}},
		Home: []string{"Newly Promoted", "Also New"},
		Away: []string{"Arsenal", "Arsenal"},
	})
	require.NoError(t, err)
	assertProbaRows(t, proba, 2)
	assert.Equal(t, proba[0], proba[1])

	_, err = m.PredictProba(Dataset{X: [][]float64{{0, 3, 1}}})
	assert.Error(t, err)
}

func TestLogisticConstantColumnUnscaled(t *testing.T) {
	ds, y := clusters(30, 5)
	l := NewLogistic(0)
	assert.Equal(t, 500, l.MaxIter)
	l.MaxIter = 10
	require.NoError(t, l.Fit(ds, y))
	assert.Equal(t, 1.0, l.scale[2])
}

// numerical check of the dense/relu backward pass against the softmax cross entropy loss
func TestDenseGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	net := sequential{newDense(3, 4, rng), &relu{}, newDense(4, NumClasses, rng)}
	x := [][]float64{{0.5, -1.2, 2.0}, {1.5, 0.3, -0.7}}
	y := []int{2, 0}

	loss := func() float64 {
		l, _ := crossEntropyGrad(softmax(net.forward(x, false)), y)
		return l
	}
	_, grad := crossEntropyGrad(softmax(net.forward(x, true)), y)
	net.backward(grad)

	const h = 1e-6
	for _, p := range net.params() {
		for i := range p.w {
			orig := p.w[i]
			p.w[i] = orig + h
			up := loss()
			p.w[i] = orig - h
			down := loss()
			p.w[i] = orig
			assert.InDelta(t, (up-down)/(2*h), p.g[i], 1e-5)
		}
	}
}

func TestAdamStepMovesAgainstGradient(t *testing.T) {
	p := newParam(2)
	p.g[0], p.g[1] = 1, -1
	newAdam(0.1).step([]*param{p})
	assert.InDelta(t, -0.1, p.w[0], 1e-6)
	assert.InDelta(t, 0.1, p.w[1], 1e-6)
	assert.Equal(t, []float64{0, 0}, p.g)
}

func TestBatchesCoverEveryRow(t *testing.T) {
	got := batches(rand.New(rand.NewSource(1)), 10, 4)
	require.Len(t, got, 3)
	assert.Len(t, got[2], 2)
	seen := make(map[int]bool)
	for _, b := range got {
		for _, i := range b {
			seen[i] = true
		}
	}
	assert.Len(t, seen, 10)
}
