package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"NoShowInsights/src/config"
	"NoShowInsights/src/datasource/file"
	"NoShowInsights/src/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appointmentsCSV = "PatientId,AppointmentID,Gender,ScheduledDay,AppointmentDay,Age,Neighbourhood,Scholarship,Hipertension,Diabetes,Alcoholism,Handcap,SMS_received,No-show\n" +
	"29872499824296.0,5642903,F,2016-04-29T18:38:08Z,2016-04-29T00:00:00Z,62,JARDIM DA PENHA,0,1,0,0,0,0,No\n" +
	"558997776694438,5642503,M,2016-04-29T16:08:27Z,2016-04-29T00:00:00Z,56,JARDIM DA PENHA,0,0,0,0,0,0,No\n" +
	"4262962299951,5642549,F,2016-04-29T16:19:04Z,2016-04-29T00:00:00Z,-1,MATA DA PRAIA,0,0,0,0,0,0,No\n" +
	"867951213174,5642828,F,2016-04-29T17:29:31Z,2016-04-29T00:00:00Z,8,PONTAL DE CAMBURI,0,0,0,0,0,0,Yes\n" +
	"29872499824296,5642494,F,2016-04-29T16:07:23Z,2016-04-29T00:00:00Z,62,JARDIM DA PENHA,0,1,0,0,0,1,Yes\n"

func newTestApp(t *testing.T, csv string) (*app, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()

	dataFile := filepath.Join(dir, "appointments.csv")
	require.NoError(t, os.WriteFile(dataFile, []byte(csv), 0644))

	logFile := filepath.Join(dir, "logs", "app.log")
	logger, err := storage.NewLogger(logFile)
	require.NoError(t, err)
	t.Cleanup(func() { _ = logger.Close() })

	cfg := config.Default()
	cfg.DataFile = dataFile
	cfg.ReportDir = filepath.Join(dir, "reports")

	var out bytes.Buffer
	return newApp(cfg, config.DefaultDataConfig(), logger, &out), &out, logFile
}

func TestAppRun(t *testing.T) {
	a, out, logFile := newTestApp(t, appointmentsCSV)

	require.NoError(t, a.run())
	assert.Contains(t, out.String(), "Q1 age")
	assert.Contains(t, out.String(), "Q5 neighbourhood")

	reports, err := os.ReadDir(a.cfg.ReportDir)
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	logs, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(logs), "WARNING: 数据清洗: rows in 5, dropped 1 with invalid age, dropped 1 duplicate patients, rows out 3")
	assert.Contains(t, string(logs), "报告已保存到")
}

func TestAppRunMalformedInput(t *testing.T) {
	a, _, _ := newTestApp(t, "PatientId,Age\n1,2\n")

	err := a.run()
	require.Error(t, err)
	assert.ErrorIs(t, err, file.ErrMalformedInput)
}

func TestScheduleSpec(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "", scheduleSpec(cfg))

	cfg.CheckInterval = config.Duration(5 * time.Minute)
	assert.Equal(t, "@every 5m0s", scheduleSpec(cfg))

	cfg.Schedule = "0 0 6 * * *"
	assert.Equal(t, "0 0 6 * * *", scheduleSpec(cfg))
}

func TestLoadSettingsFallsBackToDefaults(t *testing.T) {
	cfg, dcfg, err := loadSettings(t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, config.DefaultDataConfig(), dcfg)
}
