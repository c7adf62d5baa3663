package model

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/richard-senior/footcast/internal/logger"
)

// TeamEmbed joins a tabular tower with a team embedding shared by home and away sides.
// Tower: Dense(128, relu) -> Dropout(0.2) -> Dense(64, relu). The tower output, the home
// embedding and the away embedding are concatenated into Dense(3, softmax).
// Id 0 is reserved for teams not seen in training.
type TeamEmbed struct {
	EmbeddingDim int
	DropoutRate  float64
	Epochs       int
	BatchSize    int
	LearningRate float64
	Seed         int64

	vocab map[string]int
	tower sequential
	emb   *embedding
	head  *dense
	width int
}

func NewTeamEmbed(opts Options) *TeamEmbed {
	return &TeamEmbed{
		EmbeddingDim: 16,
		DropoutRate:  0.2,
		Epochs:       opts.Epochs,
		BatchSize:    opts.BatchSize,
		LearningRate: opts.LearningRate,
		Seed:         opts.Seed,
	}
}

func (t *TeamEmbed) Name() string { return "team_embed" }

// Vocabulary returns the known teams in id order
func (t *TeamEmbed) Vocabulary() []string {
	names := make([]string, len(t.vocab))
	for name, id := range t.vocab {
		names[id-1] = name
	}
	return names
}

func (t *TeamEmbed) Fit(ds Dataset, y []int) error {
	width, err := validateFit(ds, y)
	if err != nil {
		return fmt.Errorf("team_embed: %w", err)
	}
	if len(ds.Home) != ds.Len() || len(ds.Away) != ds.Len() {
		return fmt.Errorf("team_embed: need home and away teams for every row")
	}
	rng := rand.New(rand.NewSource(t.Seed))

	t.buildVocab(ds.Home, ds.Away)
	t.width = width
	t.tower = sequential{
		newDense(width, 128, rng), &relu{},
		&dropout{rate: t.DropoutRate, rng: rng},
		newDense(128, 64, rng), &relu{},
	}
	t.emb = newEmbedding(len(t.vocab)+1, t.EmbeddingDim, rng)
	t.head = newDense(64+2*t.EmbeddingDim, NumClasses, rng)

	opt := newAdam(t.LearningRate)
	params := append(t.tower.params(), t.emb.table)
	params = append(params, t.head.params()...)

	homeIDs := t.ids(ds.Home)
	awayIDs := t.ids(ds.Away)
	for epoch := 0; epoch < t.Epochs; epoch++ {
		var total float64
		for _, idx := range batches(rng, ds.Len(), t.BatchSize) {
			hIDs, aIDs := gatherInts(homeIDs, idx), gatherInts(awayIDs, idx)
			logits := t.forward(gatherRows(ds.X, idx), hIDs, aIDs, true)
			loss, grad := crossEntropyGrad(softmax(logits), gatherInts(y, idx))

			gcat := t.head.backward(grad)
			gTower := make([][]float64, len(gcat))
			gHome := make([][]float64, len(gcat))
			gAway := make([][]float64, len(gcat))
			for n, g := range gcat {
				gTower[n] = g[:64]
				gHome[n] = g[64 : 64+t.EmbeddingDim]
				gAway[n] = g[64+t.EmbeddingDim:]
			}
			t.tower.backward(gTower)
			t.emb.accumulate(hIDs, gHome)
			t.emb.accumulate(aIDs, gAway)
			opt.step(params)
			total += loss * float64(len(idx))
		}
		logger.Debug("team_embed epoch", epoch+1, "loss", total/float64(ds.Len()))
	}
	return nil
}

func (t *TeamEmbed) forward(X [][]float64, home, away []int, train bool) [][]float64 {
	tower := t.tower.forward(X, train)
	hv := t.emb.lookup(home)
	av := t.emb.lookup(away)
	cat := make([][]float64, len(tower))
	for n := range tower {
		row := make([]float64, 0, 64+2*t.EmbeddingDim)
		row = append(row, tower[n]...)
		row = append(row, hv[n]...)
		row = append(row, av[n]...)
		cat[n] = row
	}
	return t.head.forward(cat, train)
}

func (t *TeamEmbed) PredictProba(ds Dataset) ([][]float64, error) {
	if t.head == nil {
		return nil, ErrNotFitted
	}
	if _, err := validateX(ds.X, t.width); err != nil {
		return nil, fmt.Errorf("team_embed: %w", err)
	}
	if len(ds.Home) != ds.Len() || len(ds.Away) != ds.Len() {
		return nil, fmt.Errorf("team_embed: need home and away teams for every row")
	}
	if ds.Len() == 0 {
		return [][]float64{}, nil
	}
	return softmax(t.forward(ds.X, t.ids(ds.Home), t.ids(ds.Away), false)), nil
}

func (t *TeamEmbed) buildVocab(home, away []string) {
	set := make(map[string]bool)
	for _, n := range home {
		set[n] = true
	}
	for _, n := range away {
		set[n] = true
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	t.vocab = make(map[string]int, len(names))
	for i, n := range names {
		t.vocab[n] = i + 1
	}
}

// ids maps team names to embedding rows, unknown teams to 0
func (t *TeamEmbed) ids(names []string) []int {
	out := make([]int, len(names))
	for i, n := range names {
		out[i] = t.vocab[n]
	}
	return out
}
