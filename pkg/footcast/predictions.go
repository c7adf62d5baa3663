package footcast

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/richard-senior/footcast/internal/logger"
)

// Compile-time checks to ensure records implement Persistable interface
var (
	_ Persistable = (*Prediction)(nil)
	_ Persistable = (*RunScore)(nil)
)

// PredictionColumns is the header of the predictions csv, consumers depend on the order
var PredictionColumns = []string{"date", "home", "away", "predicted_label", "pH", "pD", "pA"}

// Prediction is the best model's forecast for one upcoming fixture
type Prediction struct {
	RunID          string    `json:"runId" column:"run_id" dbtype:"TEXT" primary:"true" index:"true"`
	FixtureID      int       `json:"fixtureId" column:"fixture_id" dbtype:"INTEGER" primary:"true"`
	Date           time.Time `json:"date" column:"date" dbtype:"DATETIME"`
	Home           string    `json:"home" column:"home" dbtype:"TEXT"`
	Away           string    `json:"away" column:"away" dbtype:"TEXT"`
	PredictedLabel string    `json:"predictedLabel" column:"predicted_label" dbtype:"TEXT"`
	PH             float64   `json:"pH" column:"p_home" dbtype:"REAL"`
	PD             float64   `json:"pD" column:"p_draw" dbtype:"REAL"`
	PA             float64   `json:"pA" column:"p_away" dbtype:"REAL"`
	Model          string    `json:"model" column:"model" dbtype:"TEXT"`
	Rank           int       `json:"rank" column:"rank" dbtype:"INTEGER"`
}

// Confidence is the probability of the predicted outcome
func (p *Prediction) Confidence() float64 {
	return max(p.PH, p.PD, p.PA)
}

func (p *Prediction) GetTableName() string { return "prediction" }

func (p *Prediction) GetPrimaryKey() map[string]interface{} {
	return map[string]any{"run_id": p.RunID, "fixture_id": p.FixtureID}
}

func (p *Prediction) SetPrimaryKey(pk map[string]interface{}) error {
	runID, ok := pk["run_id"].(string)
	if !ok {
		return fmt.Errorf("primary key 'run_id' must be a string")
	}
	fixtureID, ok := pk["fixture_id"].(int)
	if !ok {
		return fmt.Errorf("primary key 'fixture_id' must be an int")
	}
	p.RunID, p.FixtureID = runID, fixtureID
	return nil
}

func (p *Prediction) BeforeSave() error {
	if p.RunID == "" {
		return fmt.Errorf("prediction has no run id")
	}
	return nil
}

func (p *Prediction) AfterSave() error    { return nil }
func (p *Prediction) BeforeDelete() error { return nil }
func (p *Prediction) AfterDelete() error  { return nil }

// BuildPredictions turns probability rows into predictions ranked by confidence, most confident first
func BuildPredictions(runID, model string, fixtures []Fixture, proba [][]float64) ([]*Prediction, error) {
	if len(fixtures) != len(proba) {
		return nil, fmt.Errorf("%d fixtures but %d probability rows", len(fixtures), len(proba))
	}
	preds := make([]*Prediction, len(fixtures))
	for i, f := range fixtures {
		row := proba[i]
		if len(row) != NumClasses {
			return nil, fmt.Errorf("%w: row %d has width %d", ErrMalformedProba, i, len(row))
		}
		preds[i] = &Prediction{
			RunID:          runID,
			FixtureID:      f.ID,
			Date:           f.UTCDate,
			Home:           f.HomeTeam,
			Away:           f.AwayTeam,
			PredictedLabel: LabelNames[Argmax(row)],
			PH:             row[LabelHome],
			PD:             row[LabelDraw],
			PA:             row[LabelAway],
			Model:          model,
		}
	}
	sort.SliceStable(preds, func(i, j int) bool { return preds[i].Confidence() > preds[j].Confidence() })
	for i, p := range preds {
		p.Rank = i + 1
	}
	return preds, nil
}

// PredictionFrame lays predictions out in the published column order
func PredictionFrame(preds []*Prediction) dataframe.DataFrame {
	n := len(preds)
	dates := make([]string, n)
	homes := make([]string, n)
	aways := make([]string, n)
	labels := make([]string, n)
	pH := make([]float64, n)
	pD := make([]float64, n)
	pA := make([]float64, n)
	for i, p := range preds {
		dates[i] = p.Date.UTC().Format(time.RFC3339)
		homes[i] = p.Home
		aways[i] = p.Away
		labels[i] = p.PredictedLabel
		pH[i], pD[i], pA[i] = p.PH, p.PD, p.PA
	}
	return dataframe.New(
		series.New(dates, series.String, "date"),
		series.New(homes, series.String, "home"),
		series.New(aways, series.String, "away"),
		series.New(labels, series.String, "predicted_label"),
		series.New(pH, series.Float, "pH"),
		series.New(pD, series.Float, "pD"),
		series.New(pA, series.Float, "pA"),
	)
}

// WritePredictionsCSV writes predictions with the header date,home,away,predicted_label,pH,pD,pA
func WritePredictionsCSV(w io.Writer, preds []*Prediction) error {
	df := PredictionFrame(preds)
	if df.Err != nil {
		return fmt.Errorf("failed to build predictions frame: %w", df.Err)
	}
	if err := df.WriteCSV(w); err != nil {
		return fmt.Errorf("failed to write predictions: %w", err)
	}
	return nil
}

// SavePredictionsCSV writes the predictions csv to path, creating parent directories
func SavePredictionsCSV(path string, preds []*Prediction) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WritePredictionsCSV(f, preds); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	logger.Info("Saved predictions", path, len(preds))
	return nil
}

/////////////////////////////////////////////////////////////////////////
////// Run scores
/////////////////////////////////////////////////////////////////////////

// RunScore records one model's metrics on one partition of a pipeline run
type RunScore struct {
	RunID     string    `json:"runId" column:"run_id" dbtype:"TEXT" primary:"true" index:"true"`
	Model     string    `json:"model" column:"model" dbtype:"TEXT" primary:"true"`
	Partition string    `json:"partition" column:"part" dbtype:"TEXT" primary:"true"`
	Strategy  string    `json:"strategy" column:"strategy" dbtype:"TEXT"`
	Accuracy  float64   `json:"accuracy" column:"accuracy" dbtype:"REAL"`
	MacroF1   float64   `json:"macroF1" column:"macro_f1" dbtype:"REAL"`
	LogLoss   float64   `json:"logLoss" column:"log_loss" dbtype:"REAL"`
	Brier     float64   `json:"brier" column:"brier" dbtype:"REAL"`
	N         int       `json:"n" column:"n" dbtype:"INTEGER"`
	Best      bool      `json:"best" column:"best" dbtype:"BOOLEAN DEFAULT 0"`
	CreatedAt time.Time `json:"createdAt" column:"created_at" dbtype:"DATETIME DEFAULT CURRENT_TIMESTAMP"`
}

// NewRunScore copies metrics into a storable record
func NewRunScore(runID, model, partition, strategy string, m Metrics) *RunScore {
	return &RunScore{
		RunID:     runID,
		Model:     model,
		Partition: partition,
		Strategy:  strategy,
		Accuracy:  m.Accuracy,
		MacroF1:   m.MacroF1,
		LogLoss:   m.LogLoss,
		Brier:     m.Brier,
		N:         m.N,
	}
}

func (r *RunScore) GetTableName() string { return "run_score" }

func (r *RunScore) GetPrimaryKey() map[string]interface{} {
	return map[string]any{"run_id": r.RunID, "model": r.Model, "part": r.Partition}
}

func (r *RunScore) SetPrimaryKey(pk map[string]interface{}) error {
	runID, ok1 := pk["run_id"].(string)
	model, ok2 := pk["model"].(string)
	partition, ok3 := pk["part"].(string)
	if !ok1 || !ok2 || !ok3 {
		return fmt.Errorf("primary key needs string run_id, model and part")
	}
	r.RunID, r.Model, r.Partition = runID, model, partition
	return nil
}

func (r *RunScore) BeforeSave() error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	return nil
}

func (r *RunScore) AfterSave() error    { return nil }
func (r *RunScore) BeforeDelete() error { return nil }
func (r *RunScore) AfterDelete() error  { return nil }
