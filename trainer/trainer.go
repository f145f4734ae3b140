// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package trainer runs classifiers against data modules.
//
// It plays the role of an external training framework in a minimal form:
// pull batches, call the classifier's step hooks, backpropagate, accumulate
// gradients, clip, step the optimizer and scheduler, and drive loggers and
// callbacks.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	clf := classifier.NewMLP(tensor.Shape{1, 28, 28}, classifier.DefaultMLPConfig(), backend)
//	dm := datamodule.NewMNIST(datamodule.DefaultMNISTConfig(), backend)
//
//	t, err := trainer.New(trainer.NewArgs(50, 5), backend)
//	if err != nil { ... }
//	if err := t.Fit(ctx, clf, dm); err != nil { ... }
package trainer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/born-ml/helloworld/classifier"
	"github.com/born-ml/helloworld/datamodule"
	"github.com/born-ml/helloworld/internal/accelerator"
	"github.com/born-ml/helloworld/internal/autodiff"
	"github.com/born-ml/helloworld/internal/metrics"
	"github.com/born-ml/helloworld/internal/nn"
	"github.com/born-ml/helloworld/internal/optim"
	"github.com/born-ml/helloworld/internal/tensor"
)

// Run statuses reported to loggers on Finalize.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Option configures a Trainer.
type Option func(*options)

type options struct {
	logger *slog.Logger
	gpu    func() bool
}

// WithLogger sets the logger for progress and warnings (default
// slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// withGPUProbe replaces GPU detection in tests.
func withGPUProbe(probe func() bool) Option {
	return func(o *options) { o.gpu = probe }
}

// Trainer runs fit and test loops on backend B.
type Trainer[B autodiff.BackwardCapable] struct {
	args    *Args
	backend B
	logger  *slog.Logger
	device  accelerator.Kind

	recorder   *metrics.Recorder
	epoch      int
	globalStep int
	batches    int
	warned     bool
}

// New validates args and resolves the accelerator.
func New[B autodiff.BackwardCapable](args *Args, backend B, opts ...Option) (*Trainer[B], error) {
	o := options{logger: slog.Default(), gpu: accelerator.GPUAvailable}
	for _, opt := range opts {
		opt(&o)
	}
	if err := args.Validate(); err != nil {
		return nil, err
	}

	device, err := accelerator.Resolve(accelerator.Kind(args.Accelerator), o.gpu(), o.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgs, err)
	}

	t := &Trainer[B]{
		args:     args,
		backend:  backend,
		logger:   o.logger,
		device:   device,
		recorder: metrics.NewRecorder(args.LogEveryNSteps, args.Loggers...),
	}
	t.logSetup()
	return t, nil
}

func (t *Trainer[B]) logSetup() {
	t.logger.Info("trainer ready",
		"device", t.device,
		"backend", t.backend.Name(),
		"cpu", accelerator.DescribeCPU(),
		"max_epochs", t.args.MaxEpochs,
		"accumulate_grad_batches", t.args.AccumulateGradBatches,
	)
	if t.args.AutoSelectGPUs || t.args.GPUs != nil {
		t.logger.Info("GPU selection ignored on CPU", "auto_select_gpus", t.args.AutoSelectGPUs, "gpus", t.args.GPUs)
	}
	if t.args.AutoScaleBatchSize != "" {
		t.logger.Info("batch size scaling is not performed", "auto_scale_batch_size", t.args.AutoScaleBatchSize)
	}
	if t.args.AutoLRFind {
		t.logger.Info("learning rate finding is not performed", "auto_lr_find", true)
	}
	if t.args.StochasticWeightAvg {
		t.logger.Info("stochastic weight averaging is not performed", "stochastic_weight_avg", true)
	}
	if t.args.Benchmark {
		t.logger.Debug("benchmark has no effect on CPU kernels")
	}
	if t.args.Deterministic {
		t.logger.Debug("CPU kernels are deterministic; seed initialization with SeedEverything")
	}
}

// SeedEverything seeds weight initialization. Data splits, shuffling and
// augmentation are seeded by the data module configuration.
func SeedEverything(seed uint64) {
	tensor.SetSeed(seed)
}

// Device returns the resolved accelerator.
func (t *Trainer[B]) Device() accelerator.Kind { return t.device }

// Args returns the trainer arguments.
func (t *Trainer[B]) Args() *Args { return t.args }

// GlobalStep returns the number of optimizer steps taken.
func (t *Trainer[B]) GlobalStep() int { return t.globalStep }

// Epoch returns the number of completed epochs.
func (t *Trainer[B]) Epoch() int { return t.epoch }

// Metrics returns the most recent value of every logged metric.
func (t *Trainer[B]) Metrics() map[string]float64 { return t.recorder.Metrics() }

func (t *Trainer[B]) state(batch int) State {
	return State{Epoch: t.epoch, Batch: batch, GlobalStep: t.globalStep, Metrics: t.recorder.Metrics()}
}

// Fit prepares the data module, configures the optimizer and runs
// MaxEpochs epochs of training and validation. Callbacks may stop it early.
func (t *Trainer[B]) Fit(ctx context.Context, clf *classifier.Classifier[B], dm datamodule.DataModule[B]) (err error) {
	if err := dm.PrepareData(ctx); err != nil {
		return fmt.Errorf("prepare data: %w", err)
	}
	if err := dm.Setup(datamodule.StageFit); err != nil {
		return err
	}

	opt, err := clf.ConfigureOptimizers(classifier.FitInfo{
		MaxEpochs: t.args.MaxEpochs,
		TrainSize: dm.TrainSize(),
		BatchSize: dm.BatchSize(),
	})
	if err != nil {
		return fmt.Errorf("configure optimizers: %w", err)
	}

	clf.SetRecorder(t.recorder)
	hparams := clf.Hyperparameters()
	maps.Copy(hparams, map[string]any{"batch_size": dm.BatchSize(), "train_size": dm.TrainSize()})
	if err := t.recorder.LogHyperparams(hparams); err != nil {
		return fmt.Errorf("log hyperparameters: %w", err)
	}
	defer func() {
		status := StatusSuccess
		if err != nil {
			status = StatusFailed
		}
		err = errors.Join(err, t.recorder.Finalize(status))
	}()

	for _, cb := range t.args.Callbacks {
		cb.OnFitStart(t.state(0))
	}
	for t.epoch < t.args.MaxEpochs {
		if err := t.trainEpoch(ctx, clf, dm, opt); err != nil {
			return err
		}
		values, err := t.validate(ctx, clf, dm)
		if err != nil {
			return err
		}
		train, _, _ := clf.Accuracies()
		t.logger.Info("epoch finished",
			"epoch", t.epoch,
			"global_step", t.globalStep,
			"train_accuracy", train,
			"valid_loss", values[classifier.MetricValidLoss],
			"valid_accuracy", values[classifier.MetricValidAccuracy],
		)
		clf.ResetAccuracies()

		stop := false
		for _, cb := range t.args.Callbacks {
			stop = cb.OnEpochEnd(t.state(0)) || stop
		}
		t.epoch++
		if stop {
			t.logger.Info("training stopped by callback", "epoch", t.epoch-1)
			break
		}
	}
	for _, cb := range t.args.Callbacks {
		cb.OnFitEnd(t.state(0))
	}
	return nil
}

func (t *Trainer[B]) trainEpoch(ctx context.Context, clf *classifier.Classifier[B], dm datamodule.DataModule[B], opt *classifier.Optimization[B]) error {
	clf.SetTraining(true)
	tape := t.backend.GetTape()
	loader := dm.TrainBatches()
	n := loader.Len()
	accum := t.args.AccumulateGradBatches

	for i, batch := range loader.All() {
		if err := ctx.Err(); err != nil {
			return err
		}

		tape.Clear()
		tape.StartRecording()
		out := clf.TrainingStep(batch, i)
		loss := out.Loss
		if accum > 1 {
			loss = loss.MulScalar(1 / float32(accum))
		}
		grads := autodiff.Backward(loss, t.backend)
		tape.StopRecording()
		tape.Clear()
		nn.AccumulateGrads(opt.Params, grads)

		clf.TrainingStepEnd(out)

		if (i+1)%accum == 0 || i+1 == n {
			if err := t.optimizerStep(opt); err != nil {
				return err
			}
		}
		if _, err := t.recorder.FlushStep(t.batches); err != nil {
			t.logger.Warn("logging metrics failed", "err", err)
		}
		t.batches++

		for _, cb := range t.args.Callbacks {
			cb.OnTrainBatchEnd(t.state(i))
		}
	}

	if opt.Scheduler != nil && opt.Interval == optim.IntervalEpoch {
		return t.stepScheduler(opt.Scheduler)
	}
	return nil
}

func (t *Trainer[B]) optimizerStep(opt *classifier.Optimization[B]) error {
	if v := float32(t.args.GradientClipVal); v > 0 {
		switch t.args.GradientClipAlgorithm {
		case ClipByNorm:
			optim.ClipGradNorm(opt.Params, v)
		default:
			optim.ClipGradValue(opt.Params, v)
		}
	}
	opt.Optimizer.Step()
	opt.Optimizer.ZeroGrad()
	t.globalStep++

	if opt.Scheduler != nil && opt.Interval != optim.IntervalEpoch {
		return t.stepScheduler(opt.Scheduler)
	}
	return nil
}

func (t *Trainer[B]) stepScheduler(s optim.Scheduler) error {
	err := s.Step()
	if errors.Is(err, optim.ErrScheduleExhausted) {
		if !t.warned {
			t.logger.Warn("learning rate schedule exhausted, keeping the last rate", "lr", s.LastLR(), "step", t.globalStep)
			t.warned = true
		}
		return nil
	}
	return err
}

func (t *Trainer[B]) validate(ctx context.Context, clf *classifier.Classifier[B], dm datamodule.DataModule[B]) (map[string]float64, error) {
	clf.SetTraining(false)
	for i, batch := range dm.ValidationBatches().All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		clf.ValidationStepEnd(clf.ValidationStep(batch, i))
	}
	values, err := t.recorder.EndEpoch(t.epoch, t.globalStep)
	if err != nil {
		t.logger.Warn("logging metrics failed", "err", err)
	}
	return values, nil
}

// Test prepares the test split and evaluates clf on it, returning the epoch
// test metrics. Loggers are finalized again afterwards.
func (t *Trainer[B]) Test(ctx context.Context, clf *classifier.Classifier[B], dm datamodule.DataModule[B]) (_ map[string]float64, err error) {
	if err := dm.PrepareData(ctx); err != nil {
		return nil, fmt.Errorf("prepare data: %w", err)
	}
	if err := dm.Setup(datamodule.StageTest); err != nil {
		return nil, err
	}
	defer func() {
		status := StatusSuccess
		if err != nil {
			status = StatusFailed
		}
		err = errors.Join(err, t.recorder.Finalize(status))
	}()

	clf.SetRecorder(t.recorder)
	clf.SetTraining(false)
	t.backend.GetTape().StopRecording()
	for _, batch := range dm.TestBatches().All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		clf.Evaluate(batch)
	}
	values, err := t.recorder.EndEpoch(t.epoch, t.globalStep)
	if err != nil {
		t.logger.Warn("logging metrics failed", "err", err)
	}
	_, _, acc := clf.Accuracies()
	t.logger.Info("test finished", "loss", values[classifier.MetricTestLoss], "accuracy", acc)
	clf.ResetAccuracies()
	return values, nil
}
