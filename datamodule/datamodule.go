// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package datamodule wraps the standard image datasets into data modules:
// objects that download a dataset once, split it into train, validation and
// test sets, and hand out batch loaders for each.
//
// Lifecycle:
//
//	dm := datamodule.NewMNIST(datamodule.DefaultMNISTConfig(), backend)
//	if err := dm.PrepareData(ctx); err != nil { ... } // downloads, idempotent
//	if err := dm.Setup(datamodule.StageFit); err != nil { ... }
//	for _, batch := range dm.TrainBatches().All() { ... }
package datamodule

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/born-ml/helloworld/internal/dataset"
	"github.com/born-ml/helloworld/internal/tensor"
)

// Stage selects which splits Setup builds.
type Stage string

// Setup stages.
const (
	StageFit  Stage = "fit"  // train and validation splits
	StageTest Stage = "test" // test split
	StageAll  Stage = ""     // every split
)

func (s Stage) includes(want Stage) bool {
	return s == StageAll || s == want
}

func (s Stage) validate() error {
	switch s {
	case StageFit, StageTest, StageAll:
		return nil
	}
	return fmt.Errorf("datamodule: unknown stage %q", string(s))
}

// DataModule produces the train, validation and test batches of a dataset.
//
// PrepareData must run before Setup; Setup must run for a stage before the
// loaders of that stage are requested.
type DataModule[B tensor.Backend] interface {
	// PrepareData downloads the dataset into the data directory. Files
	// already present are not fetched again.
	PrepareData(ctx context.Context) error

	// Setup loads the splits for stage. It fails with an error wrapping
	// dataset.ErrNotPrepared when PrepareData has not run.
	Setup(stage Stage) error

	TrainBatches() *dataset.Loader[B]
	ValidationBatches() *dataset.Loader[B]
	TestBatches() *dataset.Loader[B]

	// BatchSize returns the training batch size.
	BatchSize() int

	// TrainSize returns the number of training samples, 0 before Setup.
	TrainSize() int
}

// ErrNotPrepared is returned by Setup before PrepareData.
var ErrNotPrepared = dataset.ErrNotPrepared

func mustSetUp[B tensor.Backend](l *dataset.Loader[B], name string, stage Stage) *dataset.Loader[B] {
	if l == nil {
		panic(fmt.Sprintf("datamodule: %s requested before Setup(%q)", name, string(stage)))
	}
	return l
}

func orDefaultClient(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}

func orDefaultLogger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
