// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package trainer

import (
	"fmt"
	"math"
)

// State is the view of a running fit passed to callbacks.
type State struct {
	Epoch      int                // Current epoch, from 0
	Batch      int                // Index of the last training batch within the epoch
	GlobalStep int                // Optimizer steps taken so far
	Metrics    map[string]float64 // Most recent value of every logged metric
}

// Callback hooks into the training loop.
type Callback interface {
	Name() string
	OnFitStart(s State)
	OnTrainBatchEnd(s State)
	// OnEpochEnd runs after validation; returning true stops training.
	OnEpochEnd(s State) bool
	OnFitEnd(s State)
}

// NopCallback implements every Callback hook as a no-op. Embed it to
// implement only the hooks you need.
type NopCallback struct{}

func (NopCallback) OnFitStart(State)      {}
func (NopCallback) OnTrainBatchEnd(State) {}
func (NopCallback) OnEpochEnd(State) bool { return false }
func (NopCallback) OnFitEnd(State)        {}

// EarlyStopping stops training when a monitored metric stops improving.
type EarlyStopping struct {
	NopCallback

	Monitor  string  // Metric name, e.g. "valid/loss_epoch"
	MinDelta float64 // Minimum change that counts as an improvement
	Patience int     // Epochs without improvement before stopping
	Mode     string  // "min" or "max"

	best    float64
	wait    int
	stopped int
}

// NewEarlyStopping creates an EarlyStopping callback. Mode defaults to
// "min".
func NewEarlyStopping(monitor string, patience int, mode string) *EarlyStopping {
	if mode == "" {
		mode = "min"
	}
	e := &EarlyStopping{Monitor: monitor, Patience: patience, Mode: mode, stopped: -1}
	e.reset()
	return e
}

func (e *EarlyStopping) reset() {
	e.wait = 0
	e.best = math.Inf(1)
	if e.Mode == "max" {
		e.best = math.Inf(-1)
	}
}

// Name implements Callback.
func (e *EarlyStopping) Name() string {
	return fmt.Sprintf("EarlyStopping(%s)", e.Monitor)
}

// OnFitStart resets the patience counter.
func (e *EarlyStopping) OnFitStart(State) {
	e.reset()
	e.stopped = -1
}

// OnEpochEnd compares the monitored metric with the best value so far.
func (e *EarlyStopping) OnEpochEnd(s State) bool {
	current, ok := s.Metrics[e.Monitor]
	if !ok {
		return false
	}
	improved := current < e.best-e.MinDelta
	if e.Mode == "max" {
		improved = current > e.best+e.MinDelta
	}
	if improved {
		e.best = current
		e.wait = 0
		return false
	}
	e.wait++
	if e.wait > e.Patience {
		e.stopped = s.Epoch
		return true
	}
	return false
}

// StoppedEpoch returns the epoch training was stopped at, or -1.
func (e *EarlyStopping) StoppedEpoch() int { return e.stopped }

// Best returns the best monitored value seen.
func (e *EarlyStopping) Best() float64 { return e.best }
