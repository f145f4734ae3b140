// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package datamodule

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/born-ml/helloworld/internal/dataset"
	"github.com/born-ml/helloworld/internal/tensor"
	"github.com/born-ml/helloworld/internal/transform"
)

// CIFAR10Config configures the CIFAR10 data module.
type CIFAR10Config struct {
	DataDir    string  // Root data directory; batches go to <DataDir>/cifar-10-batches-bin
	ValSplit   float64 // Validation fraction in [0, 1), or an absolute count when >= 1
	NumWorkers int     // Loader workers; 0 means runtime.NumCPU()
	BatchSize  int     // Batch size of all three loaders
	Seed       uint64  // Seeds the split, the shuffle and random augmentation
	Shuffle    bool    // Reshuffle the training set every epoch
	DropLast   bool    // Drop short final batches

	// Normalize selects CIFAR10 normalization for the fallback pipelines
	// built by DefaultCIFAR10Transforms. The pipelines NewCIFAR10 installs
	// for nil transforms always normalize.
	Normalize bool

	TrainTransforms transform.Transform // Default: crop + flip + ToTensor + normalization
	ValTransforms   transform.Transform // Default: ToTensor + normalization
	TestTransforms  transform.Transform // Default: ToTensor + normalization

	Mirror       string       // Base URL of cifar-10-binary.tar.gz
	SkipChecksum bool         // Accept the archive without MD5 verification
	Client       *http.Client // HTTP client for downloads (default http.DefaultClient)
	Logger       *slog.Logger // Progress logger (default slog.Default())
}

// DefaultCIFAR10Config returns the default configuration.
func DefaultCIFAR10Config() CIFAR10Config {
	return CIFAR10Config{
		DataDir:   "./data",
		ValSplit:  0.2,
		BatchSize: 32,
		Seed:      42,
		Shuffle:   true,
		Mirror:    dataset.CIFAR10Mirror,
	}
}

// DefaultCIFAR10Transforms returns the train and evaluation pipelines
// without user overrides.
func DefaultCIFAR10Transforms(normalize bool) (train, eval transform.Transform) {
	return transform.CIFAR10Train(normalize), transform.CIFAR10Eval(normalize)
}

// CIFAR10 is the data module for 32x32 color images in 10 classes.
//
// It composes a dataset provider with transform pipelines: the training and
// validation sets are views over the same 50,000 images with disjoint
// indices and different transforms.
type CIFAR10[B tensor.Backend] struct {
	cfg      CIFAR10Config
	provider dataset.CIFAR10
	backend  B
	logger   *slog.Logger

	train *dataset.Subset
	val   *dataset.Subset
	test  *dataset.InMemory

	trainLoader *dataset.Loader[B]
	valLoader   *dataset.Loader[B]
	testLoader  *dataset.Loader[B]
}

// Compile-time check that CIFAR10 implements DataModule.
var _ DataModule[tensor.Backend] = (*CIFAR10[tensor.Backend])(nil)

// NewCIFAR10 creates a CIFAR10 data module producing batches on backend.
// Empty DataDir and Mirror and a zero BatchSize take their defaults; nil
// transforms are replaced by the normalizing defaults.
func NewCIFAR10[B tensor.Backend](cfg CIFAR10Config, backend B) *CIFAR10[B] {
	def := DefaultCIFAR10Config()
	if cfg.DataDir == "" {
		cfg.DataDir = def.DataDir
	}
	if cfg.Mirror == "" {
		cfg.Mirror = def.Mirror
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.BatchSize < 0 {
		panic(fmt.Sprintf("cifar10: invalid batch size %d", cfg.BatchSize))
	}

	train, eval := DefaultCIFAR10Transforms(true)
	if cfg.TrainTransforms == nil {
		cfg.TrainTransforms = train
	}
	if cfg.ValTransforms == nil {
		cfg.ValTransforms = eval
	}
	if cfg.TestTransforms == nil {
		cfg.TestTransforms = eval
	}

	return &CIFAR10[B]{
		cfg:      cfg,
		provider: dataset.CIFAR10{Root: cfg.DataDir},
		backend:  backend,
		logger:   orDefaultLogger(cfg.Logger).With("datamodule", "cifar10"),
	}
}

// Config returns the effective configuration.
func (m *CIFAR10[B]) Config() CIFAR10Config { return m.cfg }

// PrepareData downloads and extracts the binary distribution.
func (m *CIFAR10[B]) PrepareData(ctx context.Context) error {
	m.logger.Info("preparing data", "dir", m.cfg.DataDir, "mirror", m.cfg.Mirror)
	return dataset.PrepareCIFAR10(ctx, orDefaultClient(m.cfg.Client), m.cfg.Mirror, m.cfg.DataDir, !m.cfg.SkipChecksum)
}

// Setup loads the splits of stage. For "fit" the five training batches are
// split with the seeded generator into training and validation views.
func (m *CIFAR10[B]) Setup(stage Stage) error {
	if err := stage.validate(); err != nil {
		return err
	}
	if stage.includes(StageFit) {
		full, err := m.provider.Load(true)
		if err != nil {
			return fmt.Errorf("setup fit: %w", err)
		}
		nTrain, nVal, err := dataset.SplitSizes(full.Len(), m.cfg.ValSplit)
		if err != nil {
			return fmt.Errorf("cifar10: setup fit: %w", err)
		}
		splits, err := dataset.RandomSplit(full, []int{nTrain, nVal}, m.cfg.Seed)
		if err != nil {
			return fmt.Errorf("cifar10: setup fit: %w", err)
		}
		m.train, m.val = splits[0], splits[1]
		m.trainLoader = dataset.NewLoader(m.train, m.loaderConfig(m.cfg.Shuffle, m.cfg.TrainTransforms), m.backend)
		m.valLoader = dataset.NewLoader(m.val, m.loaderConfig(false, m.cfg.ValTransforms), m.backend)
		m.logger.Debug("setup", "stage", StageFit, "train", nTrain, "val", nVal)
	}
	if stage.includes(StageTest) {
		test, err := m.provider.Load(false)
		if err != nil {
			return fmt.Errorf("setup test: %w", err)
		}
		m.test = test
		m.testLoader = dataset.NewLoader(m.test, m.loaderConfig(false, m.cfg.TestTransforms), m.backend)
		m.logger.Debug("setup", "stage", StageTest, "test", test.Len())
	}
	return nil
}

func (m *CIFAR10[B]) loaderConfig(shuffle bool, t transform.Transform) dataset.LoaderConfig {
	return dataset.LoaderConfig{
		BatchSize:  m.cfg.BatchSize,
		Shuffle:    shuffle,
		DropLast:   m.cfg.DropLast,
		NumWorkers: m.cfg.NumWorkers,
		Seed:       m.cfg.Seed,
		Transform:  t,
	}
}

// TrainBatches returns the training loader.
func (m *CIFAR10[B]) TrainBatches() *dataset.Loader[B] {
	return mustSetUp(m.trainLoader, "train batches", StageFit)
}

// ValidationBatches returns the validation loader.
func (m *CIFAR10[B]) ValidationBatches() *dataset.Loader[B] {
	return mustSetUp(m.valLoader, "validation batches", StageFit)
}

// TestBatches returns the test loader.
func (m *CIFAR10[B]) TestBatches() *dataset.Loader[B] {
	return mustSetUp(m.testLoader, "test batches", StageTest)
}

// BatchSize returns the batch size.
func (m *CIFAR10[B]) BatchSize() int { return m.cfg.BatchSize }

// TrainSize returns len(dataset_train), the figure schedulers size their
// epochs with.
func (m *CIFAR10[B]) TrainSize() int {
	if m.train == nil {
		return 0
	}
	return m.train.Len()
}

// ValSize returns the size of the validation split.
func (m *CIFAR10[B]) ValSize() int {
	if m.val == nil {
		return 0
	}
	return m.val.Len()
}

// TestSize returns the size of the test split.
func (m *CIFAR10[B]) TestSize() int {
	if m.test == nil {
		return 0
	}
	return m.test.Len()
}

// TrainIndices returns the training view's indices into the training batches.
func (m *CIFAR10[B]) TrainIndices() []int {
	if m.train == nil {
		return nil
	}
	return m.train.Indices()
}

// ValIndices returns the validation view's indices into the training batches.
func (m *CIFAR10[B]) ValIndices() []int {
	if m.val == nil {
		return nil
	}
	return m.val.Indices()
}

// InputShape returns the per-sample input shape.
func (m *CIFAR10[B]) InputShape() tensor.Shape { return tensor.Shape{3, 32, 32} }
