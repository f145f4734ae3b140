// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package datamodule

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/born-ml/helloworld/internal/dataset"
	"github.com/born-ml/helloworld/internal/tensor"
	"github.com/born-ml/helloworld/internal/transform"
)

// MNIST split sizes. The 60,000 training images are split at random into
// these two sets.
const (
	MNISTTrainSplit = 55000
	MNISTValSplit   = 5000
)

// MNISTConfig configures the MNIST data module.
type MNISTConfig struct {
	DataDir      string              // Root data directory; files go to <DataDir>/MNIST/raw
	BatchSize    int                 // Training batch size; evaluation batches are 10x larger
	NumWorkers   int                 // Loader workers; 0 means runtime.NumCPU()
	Mirror       string              // Base URL of the gzip IDX files
	Seed         uint64              // Seeds the split and the per-epoch shuffle
	Transform    transform.Transform // Per-sample transform for every split
	SkipChecksum bool                // Accept downloads without MD5 verification
	Client       *http.Client        // HTTP client for downloads (default http.DefaultClient)
	Logger       *slog.Logger        // Progress logger (default slog.Default())
}

// DefaultMNISTConfig returns the default configuration.
func DefaultMNISTConfig() MNISTConfig {
	return MNISTConfig{
		DataDir:   "./data",
		BatchSize: 128,
		Mirror:    dataset.MNISTMirror,
		Transform: transform.MNIST(),
	}
}

// MNIST is the data module for handwritten digits (1x28x28, 10 classes).
type MNIST[B tensor.Backend] struct {
	cfg     MNISTConfig
	backend B
	logger  *slog.Logger

	train *dataset.Subset
	val   *dataset.Subset
	test  *dataset.InMemory

	trainLoader *dataset.Loader[B]
	valLoader   *dataset.Loader[B]
	testLoader  *dataset.Loader[B]
}

// Compile-time check that MNIST implements DataModule.
var _ DataModule[tensor.Backend] = (*MNIST[tensor.Backend])(nil)

// NewMNIST creates an MNIST data module producing batches on backend.
// Zero-valued fields of cfg take their DefaultMNISTConfig values.
func NewMNIST[B tensor.Backend](cfg MNISTConfig, backend B) *MNIST[B] {
	def := DefaultMNISTConfig()
	if cfg.DataDir == "" {
		cfg.DataDir = def.DataDir
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Mirror == "" {
		cfg.Mirror = def.Mirror
	}
	if cfg.Transform == nil {
		cfg.Transform = def.Transform
	}
	if cfg.BatchSize < 0 {
		panic(fmt.Sprintf("mnist: invalid batch size %d", cfg.BatchSize))
	}
	return &MNIST[B]{
		cfg:     cfg,
		backend: backend,
		logger:  orDefaultLogger(cfg.Logger).With("datamodule", "mnist"),
	}
}

// RawDir returns the directory holding the decompressed IDX files.
func (m *MNIST[B]) RawDir() string {
	return filepath.Join(m.cfg.DataDir, "MNIST", "raw")
}

// PrepareData downloads the training and test sets.
func (m *MNIST[B]) PrepareData(ctx context.Context) error {
	m.logger.Info("preparing data", "dir", m.RawDir(), "mirror", m.cfg.Mirror)
	return dataset.PrepareMNIST(ctx, orDefaultClient(m.cfg.Client), m.cfg.Mirror, m.RawDir(), !m.cfg.SkipChecksum)
}

// Setup loads the splits of stage: for "fit" the training set is split at
// random into MNISTTrainSplit and MNISTValSplit samples, for "test" the test
// set is loaded.
func (m *MNIST[B]) Setup(stage Stage) error {
	if err := stage.validate(); err != nil {
		return err
	}
	if stage.includes(StageFit) {
		full, err := dataset.LoadMNIST(m.RawDir(), true)
		if err != nil {
			return fmt.Errorf("setup fit: %w", err)
		}
		splits, err := dataset.RandomSplit(full, []int{MNISTTrainSplit, MNISTValSplit}, m.cfg.Seed)
		if err != nil {
			return fmt.Errorf("mnist: setup fit: %w", err)
		}
		m.train, m.val = splits[0], splits[1]
		m.trainLoader = dataset.NewLoader(m.train, m.loaderConfig(m.cfg.BatchSize, true), m.backend)
		m.valLoader = dataset.NewLoader(m.val, m.loaderConfig(10*m.cfg.BatchSize, false), m.backend)
		m.logger.Debug("setup", "stage", StageFit, "train", m.train.Len(), "val", m.val.Len())
	}
	if stage.includes(StageTest) {
		test, err := dataset.LoadMNIST(m.RawDir(), false)
		if err != nil {
			return fmt.Errorf("setup test: %w", err)
		}
		m.test = test
		m.testLoader = dataset.NewLoader(m.test, m.loaderConfig(10*m.cfg.BatchSize, false), m.backend)
		m.logger.Debug("setup", "stage", StageTest, "test", m.test.Len())
	}
	return nil
}

func (m *MNIST[B]) loaderConfig(batchSize int, shuffle bool) dataset.LoaderConfig {
	return dataset.LoaderConfig{
		BatchSize:  batchSize,
		Shuffle:    shuffle,
		NumWorkers: m.cfg.NumWorkers,
		Seed:       m.cfg.Seed,
		Transform:  m.cfg.Transform,
	}
}

// TrainBatches returns the shuffled training loader.
func (m *MNIST[B]) TrainBatches() *dataset.Loader[B] {
	return mustSetUp(m.trainLoader, "train batches", StageFit)
}

// ValidationBatches returns the sequential validation loader.
func (m *MNIST[B]) ValidationBatches() *dataset.Loader[B] {
	return mustSetUp(m.valLoader, "validation batches", StageFit)
}

// TestBatches returns the sequential test loader.
func (m *MNIST[B]) TestBatches() *dataset.Loader[B] {
	return mustSetUp(m.testLoader, "test batches", StageTest)
}

// BatchSize returns the training batch size.
func (m *MNIST[B]) BatchSize() int { return m.cfg.BatchSize }

// TrainSize returns the size of the training split.
func (m *MNIST[B]) TrainSize() int {
	if m.train == nil {
		return 0
	}
	return m.train.Len()
}

// ValSize returns the size of the validation split.
func (m *MNIST[B]) ValSize() int {
	if m.val == nil {
		return 0
	}
	return m.val.Len()
}

// TestSize returns the size of the test split.
func (m *MNIST[B]) TestSize() int {
	if m.test == nil {
		return 0
	}
	return m.test.Len()
}

// InputShape returns the per-sample input shape.
func (m *MNIST[B]) InputShape() tensor.Shape { return tensor.Shape{1, 28, 28} }
