package metrics

import (
	"encoding/csv"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// CSVLogger writes metrics to <dir>/<name>/<version>/metrics.csv and
// hyperparameters to hparams.yaml next to it.
//
// Rows are buffered; the CSV file is rewritten with the union of all metric
// columns on Save and Finalize, so metrics that first appear late in a run
// still get a column.
type CSVLogger struct {
	root    string
	name    string
	version string

	rows []csvRow
	keys map[string]struct{}
}

type csvRow struct {
	step   int
	values map[string]float64
}

// NewCSVLogger creates a logger whose version is a fresh random UUID.
func NewCSVLogger(dir, name string) *CSVLogger {
	return NewCSVLoggerWithVersion(dir, name, uuid.NewString())
}

// NewCSVLoggerWithVersion creates a logger with an explicit version.
func NewCSVLoggerWithVersion(dir, name, version string) *CSVLogger {
	if name == "" {
		name = "default"
	}
	return &CSVLogger{root: dir, name: name, version: version, keys: make(map[string]struct{})}
}

// Name returns "csv".
func (l *CSVLogger) Name() string { return "csv" }

// Version returns the run version.
func (l *CSVLogger) Version() string { return l.version }

// LogDir returns the directory the logger writes to.
func (l *CSVLogger) LogDir() string {
	return filepath.Join(l.root, l.name, l.version)
}

// LogHyperparams writes hparams.yaml.
func (l *CSVLogger) LogHyperparams(params map[string]any) error {
	if err := os.MkdirAll(l.LogDir(), 0o755); err != nil {
		return fmt.Errorf("csv logger: %w", err)
	}
	data, err := yaml.Marshal(params)
	if err != nil {
		return fmt.Errorf("csv logger: marshal hparams: %w", err)
	}
	if err := os.WriteFile(filepath.Join(l.LogDir(), "hparams.yaml"), data, 0o644); err != nil { //nolint:gosec // log output is world readable
		return fmt.Errorf("csv logger: %w", err)
	}
	return nil
}

// LogMetrics buffers a row.
func (l *CSVLogger) LogMetrics(values map[string]float64, step int) error {
	row := csvRow{step: step, values: maps.Clone(values)}
	for k := range values {
		l.keys[k] = struct{}{}
	}
	l.rows = append(l.rows, row)
	return nil
}

// Save rewrites metrics.csv from the buffered rows.
func (l *CSVLogger) Save() error {
	if err := os.MkdirAll(l.LogDir(), 0o755); err != nil {
		return fmt.Errorf("csv logger: %w", err)
	}
	f, err := os.Create(filepath.Join(l.LogDir(), "metrics.csv"))
	if err != nil {
		return fmt.Errorf("csv logger: %w", err)
	}

	keys := slices.Sorted(maps.Keys(l.keys))
	w := csv.NewWriter(f)
	_ = w.Write(append([]string{"step"}, keys...))
	record := make([]string, len(keys)+1)
	for _, row := range l.rows {
		record[0] = strconv.Itoa(row.step)
		for i, k := range keys {
			record[i+1] = ""
			if v, ok := row.values[k]; ok {
				record[i+1] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		_ = w.Write(record)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("csv logger: %w", err)
	}
	return f.Close()
}

// Finalize saves the metrics file.
func (l *CSVLogger) Finalize(_ string) error {
	return l.Save()
}
