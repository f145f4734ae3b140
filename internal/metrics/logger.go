package metrics

import (
	"context"
	"log/slog"
	"maps"
	"slices"
)

// Logger receives hyperparameters and metric values from a training run.
type Logger interface {
	// Name identifies the logger in messages.
	Name() string

	// LogHyperparams records the run's hyperparameters once.
	LogHyperparams(params map[string]any) error

	// LogMetrics records metric values at a global step.
	LogMetrics(values map[string]float64, step int) error

	// Finalize flushes pending output. status is "success" or "failed".
	Finalize(status string) error
}

// SlogLogger writes metrics as structured log records.
type SlogLogger struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogLogger wraps logger; records are emitted at Info level.
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger, level: slog.LevelInfo}
}

// Name returns "slog".
func (l *SlogLogger) Name() string { return "slog" }

// LogHyperparams logs every hyperparameter as an attribute.
func (l *SlogLogger) LogHyperparams(params map[string]any) error {
	attrs := make([]slog.Attr, 0, len(params))
	for _, k := range slices.Sorted(maps.Keys(params)) {
		attrs = append(attrs, slog.Any(k, params[k]))
	}
	l.logger.LogAttrs(context.Background(), l.level, "hyperparameters", attrs...)
	return nil
}

// LogMetrics logs the step and every value as attributes, sorted by name.
func (l *SlogLogger) LogMetrics(values map[string]float64, step int) error {
	attrs := make([]slog.Attr, 0, len(values)+1)
	attrs = append(attrs, slog.Int("step", step))
	for _, k := range slices.Sorted(maps.Keys(values)) {
		attrs = append(attrs, slog.Float64(k, values[k]))
	}
	l.logger.LogAttrs(context.Background(), l.level, "metrics", attrs...)
	return nil
}

// Finalize logs the final status.
func (l *SlogLogger) Finalize(status string) error {
	l.logger.Info("run finished", "status", status)
	return nil
}
