package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all pipeline settings, populated from environment variables.
type Config struct {
	DataDir    string
	OutputDir  string
	ParamsFile string
	LogLevel   string
	LogFormat  string
	RunTimeout time.Duration

	// MetricsFile receives a Prometheus textfile snapshot at the end of a run.
	MetricsFile string

	// HTTPAddr serves /healthz, /readyz, /status and /metrics while the run
	// is in progress. Empty disables the server.
	HTTPAddr        string
	ShutdownTimeout time.Duration

	XLSXEnabled bool

	// Kafka artifact sink configuration.
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaSinkTopic   string
	KafkaMaxAttempts int

	Sources Sources
}

// Sources names the raw table files, relative to DataDir.
type Sources struct {
	PopulationAge       string
	Households          string
	Income              string
	LabourForce         string
	LabourParticipation string
	HospitalDischarges  string
	// Deaths holds one file per year; the first candidate that exists wins.
	Deaths map[int][]string
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is applied first if present.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional; absent .env is the normal case

	runTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("RUN_TIMEOUT", "5m"))
	if err != nil || runTimeout <= 0 {
		return nil, errors.New("invalid RUN_TIMEOUT")
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	kafkaAttempts, err := strconv.Atoi(sharedcfg.EnvOrDefault("KAFKA_MAX_ATTEMPTS", "3"))
	if err != nil || kafkaAttempts < 1 {
		return nil, errors.New("invalid KAFKA_MAX_ATTEMPTS")
	}

	kafkaEnabled := os.Getenv("KAFKA_ENABLED") == "true"

	cfg := &Config{
		DataDir:          sharedcfg.EnvOrDefault("DATA_DIR", "data"),
		OutputDir:        sharedcfg.EnvOrDefault("OUTPUT_DIR", "outputs"),
		ParamsFile:       os.Getenv("PARAMS_FILE"),
		LogLevel:         sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		RunTimeout:       runTimeout,
		MetricsFile:      os.Getenv("METRICS_FILE"),
		HTTPAddr:         os.Getenv("HTTP_ADDR"),
		ShutdownTimeout:  shutdownTimeout,
		XLSXEnabled:      os.Getenv("XLSX_ENABLED") == "true",
		KafkaEnabled:     kafkaEnabled,
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic:   sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "gerontech-demand"),
		KafkaMaxAttempts: kafkaAttempts,
		Sources:          DefaultSources(),
	}

	if cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_SINK_TOPIC is empty")
	}

	return cfg, nil
}

// DefaultSources returns the file names used by the statistics bureau exports.
func DefaultSources() Sources {
	deaths := make(map[int][]string)
	for _, year := range []int{2020, 2021, 2022, 2023, 2024} {
		deaths[year] = []string{
			"Number of registered deaths by leading cause of death by sex by age group, " + strconv.Itoa(year) + ".csv",
			"deaths_" + strconv.Itoa(year) + ".csv",
			"Deaths_" + strconv.Itoa(year) + ".csv",
		}
	}
	return Sources{
		PopulationAge:       "Table 1.2 _ Proportion of land-based non-institutional population by District Council district and age.csv",
		Households:          "Table 3.1 _ Domestic households by District Council district and type of households.csv",
		Income:              "Table 3.2 _ Median monthly household income by District Council district and type of households.csv",
		LabourForce:         "Table 2.1 _ Labour force by District Council district and sex.csv",
		LabourParticipation: "Table 2.2 _ Labour force participation rate by District Council district and sex.csv",
		HospitalDischarges:  "IPDPDD by disease group-en.xlsx",
		Deaths:              deaths,
	}
}

// Path joins a source file name onto the data directory.
func (c *Config) Path(name string) string {
	return filepath.Join(c.DataDir, name)
}

// DeathFiles resolves, per year, the first death-record candidate that exists.
// Years with no existing candidate are omitted.
func (c *Config) DeathFiles() map[int]string {
	out := make(map[int]string)
	for year, names := range c.Sources.Deaths {
		for _, name := range names {
			p := c.Path(name)
			if _, err := os.Stat(p); err == nil {
				out[year] = p
				break
			}
		}
	}
	return out
}
