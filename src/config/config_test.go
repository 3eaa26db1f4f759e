package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigs(t *testing.T, cfg, dcfg string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(cfg), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dataconfig.json"), []byte(dcfg), 0644))
	return dir
}

func TestLoadConfigs(t *testing.T) {
	dir := writeConfigs(t,
		`{"data_file": "appointments.csv", "log_name": "run.log", "encoding": "iso-8859-1", "check_interval": "5m", "watch": true}`,
		`{"rename": {"gender": "sex"}}`,
	)

	cfg, dcfg, err := loadConfigs(dir, "config.json", "dataconfig.json")
	require.NoError(t, err)

	assert.Equal(t, "appointments.csv", cfg.DataFile)
	assert.Equal(t, "run.log", cfg.LogName)
	assert.Equal(t, "iso-8859-1", cfg.Encoding)
	assert.Equal(t, "reports", cfg.ReportDir, "defaults survive partial files")
	assert.True(t, cfg.Watch)
	assert.Equal(t, 5*time.Minute, time.Duration(cfg.CheckInterval))

	// Rename entries merge with the fixed mapping.
	target, ok := dcfg.RenameFor("no-show")
	assert.True(t, ok)
	assert.Equal(t, "no_show", target)
	target, ok = dcfg.RenameFor("gender")
	assert.True(t, ok)
	assert.Equal(t, "sex", target)
	assert.Equal(t, []int{0, 17, 36, 56, 115}, dcfg.AgeBins)
}

func TestLoadConfigsErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  string
		dcfg string
	}{
		{"missing data file", `{"data_file": "", "log_name": "a.log"}`, `{}`},
		{"bad encoding", `{"data_file": "a.csv", "log_name": "a.log", "encoding": "utf-16"}`, `{}`},
		{"bad json", `{"data_file": `, `{}`},
		{"labels mismatch", `{"data_file": "a.csv", "log_name": "a.log"}`, `{"age_bins": [0, 10, 20], "age_labels": ["a"]}`},
		{"bins not increasing", `{"data_file": "a.csv", "log_name": "a.log"}`, `{"age_bins": [0, 20, 10], "age_labels": ["a", "b"]}`},
		{"no timestamp layouts", `{"data_file": "a.csv", "log_name": "a.log"}`, `{"timestamp_layouts": []}`},
		{"blank timestamp layout", `{"data_file": "a.csv", "log_name": "a.log"}`, `{"timestamp_layouts": [""]}`},
		{"bad duration", `{"data_file": "a.csv", "log_name": "a.log", "check_interval": "soon"}`, `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeConfigs(t, tt.cfg, tt.dcfg)
			_, _, err := loadConfigs(dir, "config.json", "dataconfig.json")
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigsMissingFile(t *testing.T) {
	_, _, err := loadConfigs(t.TempDir(), "config.json", "dataconfig.json")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultsAreValid(t *testing.T) {
	assert.NoError(t, validate.Struct(Default()))
	assert.NoError(t, DefaultDataConfig().check())
}

func TestMaxLogSize(t *testing.T) {
	tests := []struct {
		expr string
		want int64
	}{
		{"10 * 1024 * 1024", 10 * 1024 * 1024},
		{"2048", 2048},
		{"", 0},
		{"ten * 2", 0},
	}
	for _, tt := range tests {
		cfg := &Config{LogMaxSize: tt.expr}
		assert.Equal(t, tt.want, cfg.MaxLogSize(), tt.expr)
	}
}

func TestDurationJSON(t *testing.T) {
	d := Duration(90 * time.Second)
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(data))

	var back Duration
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, d, back)
}
