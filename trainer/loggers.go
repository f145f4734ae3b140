// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package trainer

import (
	"log/slog"

	"github.com/born-ml/helloworld/internal/metrics"
)

// Logger receives hyperparameters and metrics from the trainer.
type Logger = metrics.Logger

// CSVLogger writes metrics.csv and hparams.yaml under <dir>/<name>/<version>.
type CSVLogger = metrics.CSVLogger

// SlogLogger writes metrics as structured log records.
type SlogLogger = metrics.SlogLogger

// NewCSVLogger creates a CSV logger with a random run version.
func NewCSVLogger(dir, name string) *CSVLogger {
	return metrics.NewCSVLogger(dir, name)
}

// NewSlogLogger creates a logger writing to l.
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return metrics.NewSlogLogger(l)
}
