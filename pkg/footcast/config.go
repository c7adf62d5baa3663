package footcast

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/richard-senior/footcast/internal/logger"
)

// Config contains every parameter that influences loading, training and prediction.
// Fields are populated from the environment (and an optional .env file) by LoadConfig.
type Config struct {
	// === Paths ===
	RawDir     string `envconfig:"RAW_DIR" default:"data/raw"`                             // directory scanned recursively for season csv files
	DbPath     string `envconfig:"DB_PATH" default:"data/footcast.db"`                     // sqlite database, empty disables persistence
	OutputPath string `envconfig:"OUTPUT_PATH" default:"outputs/fixtures_predictions.csv"` // ranked fixture predictions

	// === Data ===
	Divisions  []string `envconfig:"DIVISIONS" default:"E0,E1,E2,E3"` // football-data division codes to keep
	FormWindow int      `envconfig:"FORM_WINDOW" default:"5"`         // matches in the rolling form window
	ValSeason  int      `envconfig:"VAL_SEASON"`                      // 0 selects the second latest season
	TestSeason int      `envconfig:"TEST_SEASON"`                     // 0 selects the latest season

	// === Live fixtures (football-data.org) ===
	APIKey            string        `envconfig:"FOOTBALL_DATA_API_KEY"`
	Competition       string        `envconfig:"COMPETITION" default:"PL"`
	BaseURL           string        `envconfig:"FOOTBALL_DATA_BASE_URL" default:"https://api.football-data.org/v4"`
	HTTPTimeout       time.Duration `envconfig:"HTTP_TIMEOUT" default:"20s"`
	RequestsPerMinute int           `envconfig:"API_REQUESTS_PER_MINUTE" default:"10"`
	TeamAliasesPath   string        `envconfig:"TEAM_ALIASES_PATH"` // yaml merged over the built in aliases

	// === Season downloader ===
	DownloadSeasons  int    `envconfig:"DOWNLOAD_SEASONS" default:"5"`
	DownloadIndexURL string `envconfig:"DOWNLOAD_INDEX_URL" default:"https://www.football-data.co.uk/englandm.php"`

	// === Models ===
	Seed            int64   `envconfig:"SEED" default:"42"`
	MLPEpochs       int     `envconfig:"MLP_EPOCHS" default:"10"`
	MLPBatchSize    int     `envconfig:"MLP_BATCH_SIZE" default:"512"`
	MLPLearningRate float64 `envconfig:"MLP_LEARNING_RATE" default:"0.001"`
	LRMaxIter       int     `envconfig:"LR_MAX_ITER" default:"500"`

	// === Ambient ===
	MetricsTextfile string `envconfig:"METRICS_TEXTFILE"` // prometheus text exposition written at the end of a run
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`
}

// DefaultConfig returns the configuration used when the environment sets nothing
func DefaultConfig() *Config {
	return &Config{
		RawDir:            "data/raw",
		DbPath:            "data/footcast.db",
		OutputPath:        "outputs/fixtures_predictions.csv",
		Divisions:         []string{"E0", "E1", "E2", "E3"},
		FormWindow:        5,
		Competition:       "PL",
		BaseURL:           "https://api.football-data.org/v4",
		HTTPTimeout:       20 * time.Second,
		RequestsPerMinute: 10,
		DownloadSeasons:   5,
		DownloadIndexURL:  "https://www.football-data.co.uk/englandm.php",
		Seed:              42,
		MLPEpochs:         10,
		MLPBatchSize:      512,
		MLPLearningRate:   1e-3,
		LRMaxIter:         500,
		LogLevel:          "info",
	}
}

// LoadConfig reads an optional .env file and then the process environment.
// A missing .env file is not an error, a malformed one is.
func LoadConfig(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
		logger.Debug("No env file found", envFile)
	}

	cfg := DefaultConfig()
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// === CONFIGURATION VALIDATION ===

// ValidateConfig ensures all configuration values are within reasonable ranges
func ValidateConfig(config *Config) error {
	if config.RawDir == "" {
		return fmt.Errorf("RawDir must be set")
	}
	if config.FormWindow < 1 {
		return fmt.Errorf("FormWindow must be at least 1, got: %d", config.FormWindow)
	}
	if len(config.Divisions) == 0 {
		return fmt.Errorf("at least one division is required")
	}
	if config.ValSeason != 0 && config.ValSeason == config.TestSeason {
		return fmt.Errorf("ValSeason and TestSeason must differ, both are %d", config.ValSeason)
	}
	if config.MLPEpochs < 1 {
		return fmt.Errorf("MLPEpochs must be at least 1, got: %d", config.MLPEpochs)
	}
	if config.MLPBatchSize < 1 {
		return fmt.Errorf("MLPBatchSize must be at least 1, got: %d", config.MLPBatchSize)
	}
	if config.MLPLearningRate <= 0 || config.MLPLearningRate > 1 {
		return fmt.Errorf("MLPLearningRate should be in (0, 1], got: %f", config.MLPLearningRate)
	}
	if config.LRMaxIter < 1 {
		return fmt.Errorf("LRMaxIter must be at least 1, got: %d", config.LRMaxIter)
	}
	if config.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTPTimeout must be positive, got: %s", config.HTTPTimeout)
	}
	if config.DownloadSeasons < 1 {
		return fmt.Errorf("DownloadSeasons must be at least 1, got: %d", config.DownloadSeasons)
	}
	return nil
}

// HasLiveFeed reports whether fixtures can be fetched
func (c *Config) HasLiveFeed() bool {
	return c.APIKey != ""
}
