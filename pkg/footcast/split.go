package footcast

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/richard-senior/footcast/internal/logger"
)

// Split strategies
const (
	StrategySeason   = "season"
	StrategyQuantile = "quantile"
)

const (
	trainQuantile = 0.70
	valQuantile   = 0.85
	minSeasons    = 3
)

// ErrInvalidSeasons is returned when the validation season is not strictly before the test season
var ErrInvalidSeasons = errors.New("validation season must be earlier than test season")

// SplitBundle holds mutually exclusive train, validation and test partitions
type SplitBundle struct {
	XTrain, XVal, XTest          [][]float64
	YTrain, YVal, YTest          []int
	MetaTrain, MetaVal, MetaTest []RowMeta

	Strategy   string
	ValSeason  int // 0 for the quantile strategy
	TestSeason int
}

type partition int

const (
	partNone partition = iota
	partTrain
	partVal
	partTest
)

// TimeSafeSplit partitions rows by season: test is testSeason (latest when 0), validation is
// valSeason (second latest when 0) and train is every season before validation.
// With fewer than three seasons it falls back to date quantiles: train up to the 70th
// percentile date, validation up to the 85th, test after. Overrides are ignored in that mode.
func TimeSafeSplit(meta []RowMeta, X [][]float64, y []int, valSeason, testSeason int) (*SplitBundle, error) {
	if len(meta) != len(X) || len(X) != len(y) {
		return nil, fmt.Errorf("meta, X and y lengths differ: %d, %d, %d", len(meta), len(X), len(y))
	}

	seasons := distinctSeasons(meta)
	var assign func(i int) partition
	bundle := &SplitBundle{}

	if len(seasons) < minSeasons {
		if valSeason != 0 || testSeason != 0 {
			logger.Warn("Season overrides ignored, too few seasons for a season split", len(seasons))
		}
		bundle.Strategy = StrategyQuantile
		nanos := make([]int64, len(meta))
		for i, m := range meta {
			nanos[i] = m.Date.UnixNano()
		}
		sorted := append([]int64(nil), nanos...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		q70 := quantileLinear(sorted, trainQuantile)
		q85 := quantileLinear(sorted, valQuantile)
		assign = func(i int) partition {
			switch {
			case nanos[i] <= q70:
				return partTrain
			case nanos[i] <= q85:
				return partVal
			default:
				return partTest
			}
		}
	} else {
		if testSeason == 0 {
			testSeason = seasons[len(seasons)-1]
		}
		if valSeason == 0 {
			valSeason = seasons[len(seasons)-2]
		}
		if valSeason >= testSeason {
			return nil, fmt.Errorf("%w: val %d, test %d", ErrInvalidSeasons, valSeason, testSeason)
		}
		bundle.Strategy = StrategySeason
		bundle.ValSeason = valSeason
		bundle.TestSeason = testSeason
		assign = func(i int) partition {
			switch s := meta[i].Season; {
			case s == testSeason:
				return partTest
			case s == valSeason:
				return partVal
			case s < valSeason:
				return partTrain
			default:
				return partNone
			}
		}
	}

	for i := range meta {
		switch assign(i) {
		case partTrain:
			bundle.XTrain = append(bundle.XTrain, X[i])
			bundle.YTrain = append(bundle.YTrain, y[i])
			bundle.MetaTrain = append(bundle.MetaTrain, meta[i])
		case partVal:
			bundle.XVal = append(bundle.XVal, X[i])
			bundle.YVal = append(bundle.YVal, y[i])
			bundle.MetaVal = append(bundle.MetaVal, meta[i])
		case partTest:
			bundle.XTest = append(bundle.XTest, X[i])
			bundle.YTest = append(bundle.YTest, y[i])
			bundle.MetaTest = append(bundle.MetaTest, meta[i])
		}
	}

	logger.Info("Split", bundle.Strategy, "train", len(bundle.YTrain), "val", len(bundle.YVal), "test", len(bundle.YTest))
	return bundle, nil
}

func distinctSeasons(meta []RowMeta) []int {
	set := make(map[int]bool)
	for _, m := range meta {
		set[m.Season] = true
	}
	seasons := make([]int, 0, len(set))
	for s := range set {
		seasons = append(seasons, s)
	}
	sort.Ints(seasons)
	return seasons
}

// quantileLinear interpolates between the two closest ranks of an ascending slice
func quantileLinear(sorted []int64, q float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + int64(float64(sorted[hi]-sorted[lo])*frac)
}
