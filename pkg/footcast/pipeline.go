package footcast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/richard-senior/footcast/internal/logger"
	"github.com/richard-senior/footcast/pkg/footcast/model"
	"github.com/richard-senior/footcast/pkg/transport"
)

// Evaluation partitions
const (
	PartVal  = "val"
	PartTest = "test"
)

// ErrEmptyPartition is returned when training or test rows are missing after the split
var ErrEmptyPartition = errors.New("split produced an empty partition")

// FixtureSource supplies upcoming fixtures, *LiveClient satisfies it
type FixtureSource interface {
	ScheduledFixtures(ctx context.Context) ([]Fixture, error)
}

// ModelResult holds one candidate's scores. Val is nil when the validation partition was empty.
type ModelResult struct {
	Name string
	Val  *Metrics
	Test Metrics
}

// RunResult summarises a pipeline run
type RunResult struct {
	RunID       string
	Features    *FeatureSet
	Split       *SplitBundle
	Results     []ModelResult
	Best        string
	Predictions []*Prediction // nil when no fixtures were scored
}

// Pipeline loads history, trains and compares the candidate models and scores upcoming fixtures
type Pipeline struct {
	Config    *Config
	Store     *Store        // optional
	Fixtures  FixtureSource // optional
	Aliases   *Aliases
	Telemetry *Telemetry
	Models    []model.Classifier
}

// NewPipeline wires the candidate models from cfg. store and fixtures may be nil.
func NewPipeline(cfg *Config, store *Store, fixtures FixtureSource, aliases *Aliases) *Pipeline {
	return &Pipeline{
		Config:    cfg,
		Store:     store,
		Fixtures:  fixtures,
		Aliases:   aliases,
		Telemetry: NewTelemetry(),
		Models: model.Candidates(model.Options{
			Seed:         cfg.Seed,
			Epochs:       cfg.MLPEpochs,
			BatchSize:    cfg.MLPBatchSize,
			LearningRate: cfg.MLPLearningRate,
			LRMaxIter:    cfg.LRMaxIter,
		}),
	}
}

// Run executes load, feature build, split, training, selection and fixture scoring
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	cfg := p.Config
	result := &RunResult{RunID: uuid.NewString()}
	logger.Highlight("Starting run", result.RunID)

	table, err := LoadMatches(ctx, cfg.RawDir, cfg.Divisions)
	if err != nil {
		return nil, err
	}
	p.Telemetry.MatchesLoaded.Set(float64(len(table.Matches)))
	if p.Store != nil {
		if err := p.Store.SaveMatches(ctx, table.Matches); err != nil {
			return nil, fmt.Errorf("failed to persist matches: %w", err)
		}
	}

	fs, enriched := BuildFeatures(table, cfg.FormWindow)
	result.Features = fs
	missing := MissingOddsRows(enriched)
	p.Telemetry.MissingOdds.Set(float64(missing))
	if missing > 0 {
		logger.Info("Rows using the neutral odds prior", missing)
	}

	split, err := TimeSafeSplit(fs.Meta, fs.X, fs.Y, cfg.ValSeason, cfg.TestSeason)
	if err != nil {
		return nil, err
	}
	result.Split = split
	p.Telemetry.SplitRows.WithLabelValues("train").Set(float64(len(split.YTrain)))
	p.Telemetry.SplitRows.WithLabelValues(PartVal).Set(float64(len(split.YVal)))
	p.Telemetry.SplitRows.WithLabelValues(PartTest).Set(float64(len(split.YTest)))
	if len(split.YTrain) == 0 || len(split.YTest) == 0 {
		return nil, fmt.Errorf("%w: train %d, test %d", ErrEmptyPartition, len(split.YTrain), len(split.YTest))
	}

	best, err := p.trainAndSelect(ctx, split, result)
	if err != nil {
		return nil, err
	}

	if err := p.scoreFixtures(ctx, table, fs.Columns, best, result); err != nil {
		return nil, err
	}

	if cfg.MetricsTextfile != "" {
		if err := p.Telemetry.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Warn("Could not write metrics", err)
		}
	}
	logger.Highlight("Run complete", result.RunID, "best", result.Best)
	return result, nil
}

// trainAndSelect fits every candidate on the training rows and keeps the highest test macro-F1.
// Ties go to the earlier candidate.
func (p *Pipeline) trainAndSelect(ctx context.Context, split *SplitBundle, result *RunResult) (model.Classifier, error) {
	train := datasetFor(split.XTrain, split.MetaTrain)
	val := datasetFor(split.XVal, split.MetaVal)
	test := datasetFor(split.XTest, split.MetaTest)

	var best model.Classifier
	bestF1 := -1.0
	var scores []Persistable

	for _, m := range p.Models {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		if err := m.Fit(train, split.YTrain); err != nil {
			return nil, fmt.Errorf("failed to fit %s: %w", m.Name(), err)
		}
		p.Telemetry.ObserveTraining(m.Name(), time.Since(start))

		res := ModelResult{Name: m.Name()}
		if val.Len() > 0 {
			vm, err := evaluateModel(m, val, split.YVal)
			if err != nil {
				return nil, err
			}
			res.Val = &vm
			p.Telemetry.ObserveMetrics(m.Name(), PartVal, vm)
			scores = append(scores, NewRunScore(result.RunID, m.Name(), PartVal, split.Strategy, vm))
			logger.Info(m.Name()+" val", vm)
		}
		tm, err := evaluateModel(m, test, split.YTest)
		if err != nil {
			return nil, err
		}
		res.Test = tm
		p.Telemetry.ObserveMetrics(m.Name(), PartTest, tm)
		scores = append(scores, NewRunScore(result.RunID, m.Name(), PartTest, split.Strategy, tm))
		logger.Info(m.Name()+" test", tm)

		result.Results = append(result.Results, res)
		if tm.MacroF1 > bestF1 {
			best, bestF1 = m, tm.MacroF1
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no candidate models configured")
	}
	result.Best = best.Name()
	logger.Highlight("Best model", result.Best, "test macro F1", bestF1)

	if p.Store != nil {
		for _, s := range scores {
			rs := s.(*RunScore)
			rs.Best = rs.Model == result.Best
		}
		if err := p.Store.BulkSave(ctx, scores); err != nil {
			return nil, fmt.Errorf("failed to persist run scores: %w", err)
		}
	}
	return best, nil
}

func evaluateModel(m model.Classifier, ds model.Dataset, y []int) (Metrics, error) {
	proba, err := m.PredictProba(ds)
	if err != nil {
		return Metrics{}, fmt.Errorf("%s failed to predict: %w", m.Name(), err)
	}
	metrics, err := EvaluateProbs(y, proba)
	if err != nil {
		return Metrics{}, fmt.Errorf("%s: %w", m.Name(), err)
	}
	return metrics, nil
}

// scoreFixtures predicts upcoming fixtures with the best model.
// A missing or failing fixture feed skips scoring without failing the run.
func (p *Pipeline) scoreFixtures(ctx context.Context, table *MatchTable, columns []string, best model.Classifier, result *RunResult) error {
	if p.Fixtures == nil {
		logger.Info("No fixture source configured, skipping fixture scoring")
		return nil
	}
	fixtures, err := p.Fixtures.ScheduledFixtures(ctx)
	if err != nil {
		logger.Error("Fixture feed unavailable, skipping fixture scoring", err)
		return nil
	}
	if len(fixtures) == 0 {
		logger.Info("No fixtures scored (no API key or none scheduled)")
		return nil
	}

	history := NewHistory(table.Matches, p.Config.FormWindow)
	fx, err := FixtureFeatures(fixtures, history, p.Aliases, columns)
	if err != nil {
		return err
	}
	if unknown := UnknownTeams(fx.Fixtures, table.Matches); len(unknown) > 0 {
		logger.Warn("Fixture teams missing from history, check the alias file", unknown)
	}
	ds := model.Dataset{X: fx.X}
	for _, f := range fx.Fixtures {
		ds.Home = append(ds.Home, f.HomeTeam)
		ds.Away = append(ds.Away, f.AwayTeam)
	}
	proba, err := best.PredictProba(ds)
	if err != nil {
		return fmt.Errorf("failed to score fixtures: %w", err)
	}
	preds, err := BuildPredictions(result.RunID, best.Name(), fx.Fixtures, proba)
	if err != nil {
		return err
	}
	if err := SavePredictionsCSV(p.Config.OutputPath, preds); err != nil {
		return err
	}
	if p.Store != nil {
		objects := make([]Persistable, len(preds))
		for i, pr := range preds {
			objects[i] = pr
		}
		if err := p.Store.BulkSave(ctx, objects); err != nil {
			return fmt.Errorf("failed to persist predictions: %w", err)
		}
	}
	p.Telemetry.FixturesScored.Add(float64(len(preds)))
	result.Predictions = preds
	return nil
}

func datasetFor(X [][]float64, meta []RowMeta) model.Dataset {
	ds := model.Dataset{X: X, Home: make([]string, len(meta)), Away: make([]string, len(meta))}
	for i, m := range meta {
		ds.Home[i] = m.HomeTeam
		ds.Away[i] = m.AwayTeam
	}
	return ds
}

/////////////////////////////////////////////////////////////////////////
////// Wiring helpers used by the CLI
/////////////////////////////////////////////////////////////////////////

// NewHTTPClient builds the shared transport from configuration
func NewHTTPClient(cfg *Config) *transport.Client {
	return transport.NewClient(transport.Options{
		Timeout:           cfg.HTTPTimeout,
		RequestsPerMinute: cfg.RequestsPerMinute,
	})
}

// Download fetches the configured number of recent seasons into cfg.RawDir
func Download(ctx context.Context, cfg *Config, client transport.Getter) ([]string, error) {
	d := NewDownloader(client, cfg.DownloadIndexURL, cfg.RawDir)
	return d.Download(ctx, cfg.Divisions, cfg.DownloadSeasons)
}
