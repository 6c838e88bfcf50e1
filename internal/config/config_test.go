package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "outputs", cfg.OutputDir)
	assert.Empty(t, cfg.ParamsFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 5*time.Minute, cfg.RunTimeout)
	assert.Empty(t, cfg.MetricsFile)
	assert.Empty(t, cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 3, cfg.KafkaMaxAttempts)
	assert.False(t, cfg.XLSXEnabled)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "gerontech-demand", cfg.KafkaSinkTopic)
	assert.Len(t, cfg.Sources.Deaths, 5)
	assert.Contains(t, cfg.Sources.Income, "Table 3.2")
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/raw")
	t.Setenv("OUTPUT_DIR", "/srv/out")
	t.Setenv("PARAMS_FILE", "/etc/gerontech/params.yaml")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("RUN_TIMEOUT", "30s")
	t.Setenv("METRICS_FILE", "/var/lib/node_exporter/gerontech.prom")
	t.Setenv("XLSX_ENABLED", "true")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_MAX_ATTEMPTS", "5")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/raw", cfg.DataDir)
	assert.Equal(t, "/srv/out", cfg.OutputDir)
	assert.Equal(t, "/etc/gerontech/params.yaml", cfg.ParamsFile)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.RunTimeout)
	assert.Equal(t, "/var/lib/node_exporter/gerontech.prom", cfg.MetricsFile)
	assert.True(t, cfg.XLSXEnabled)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, 5, cfg.KafkaMaxAttempts)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"KAFKA_MAX_ATTEMPTS", "0"},
		{"KAFKA_MAX_ATTEMPTS", "many"},
		{"SHUTDOWN_TIMEOUT", "soon"},
		{"SHUTDOWN_TIMEOUT", "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_InvalidRunTimeout(t *testing.T) {
	t.Setenv("RUN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RUN_TIMEOUT")
}

func TestLoad_NegativeRunTimeout(t *testing.T) {
	t.Setenv("RUN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RUN_TIMEOUT")
}

func TestConfig_DeathFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deaths_2021.csv"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Deaths_2023.csv"), []byte("x"), 0o600))

	cfg := &Config{DataDir: dir, Sources: DefaultSources()}
	files := cfg.DeathFiles()

	assert.Equal(t, map[int]string{
		2021: filepath.Join(dir, "deaths_2021.csv"),
		2023: filepath.Join(dir, "Deaths_2023.csv"),
	}, files)
}
