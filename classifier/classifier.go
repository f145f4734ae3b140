// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package classifier provides image classifiers sharing one training,
// validation and evaluation template.
//
// A Model only computes class logits and configures its optimizer; the
// Classifier wraps it with log-softmax, NLL loss, accuracy tracking and
// metric logging:
//
//	clf := classifier.NewMLP(tensor.Shape{1, 28, 28}, classifier.DefaultMLPConfig(), backend)
//	out := clf.TrainingStep(batch, 0)
//	clf.TrainingStepEnd(out)
package classifier

import (
	"maps"
	"math"
	"strconv"

	"github.com/born-ml/helloworld/internal/dataset"
	"github.com/born-ml/helloworld/internal/metrics"
	"github.com/born-ml/helloworld/internal/nn"
	"github.com/born-ml/helloworld/internal/optim"
	"github.com/born-ml/helloworld/internal/tensor"
)

// Logged metric names.
const (
	MetricTrainLoss         = "train/loss"
	MetricTrainAccuracy     = "train/accuracy"
	MetricTrainLearningRate = "train/learning_rate"
	MetricValidLoss         = "valid/loss_epoch"
	MetricValidAccuracy     = "valid/accuracy_epoch"
	MetricTestLoss          = "test/loss_epoch"
	MetricTestAccuracy      = "test/accuracy_epoch"
)

// Model is the architecture-specific part of a classifier.
type Model[B tensor.Backend] interface {
	// ComputeLogits maps a batch of inputs to unnormalized class scores
	// [N, classes].
	ComputeLogits(x *tensor.Tensor[B]) *tensor.Tensor[B]

	// Parameters returns the trainable parameters.
	Parameters() []*nn.Parameter[B]

	// ConfigureOptimizers builds the optimizer (and optional scheduler) for
	// params given the shape of the coming fit.
	ConfigureOptimizers(fit FitInfo, params []*nn.Parameter[B]) (*Optimization[B], error)
}

// FitInfo describes the training run an optimizer is configured for.
type FitInfo struct {
	MaxEpochs int // Epochs the trainer will run
	TrainSize int // Samples in the training split
	BatchSize int // Training batch size
}

// Optimization is what ConfigureOptimizers returns: the optimizer, the
// parameters it updates and an optional learning rate scheduler stepped
// every Interval.
type Optimization[B tensor.Backend] struct {
	Optimizer optim.Optimizer
	Params    []*nn.Parameter[B]
	Scheduler optim.Scheduler // nil for a constant learning rate
	Interval  optim.Interval  // IntervalStep or IntervalEpoch
}

// StepOutput is the per-batch result of a training or validation step.
type StepOutput[B tensor.Backend] struct {
	Loss   *tensor.Tensor[B] // Scalar mean NLL over the batch
	Preds  []int32           // Argmax class per sample
	Target []int32           // Ground-truth labels
}

// Classifier is the shared training template around a Model.
type Classifier[B tensor.Backend] struct {
	model    Model[B]
	hparams  map[string]any
	nll      *nn.NLLLoss[B]
	trainAcc metrics.Accuracy
	validAcc metrics.Accuracy
	testAcc  metrics.Accuracy
	recorder *metrics.Recorder
}

// New wraps model. hparams are the constructor arguments the model was built
// with; they are reported to loggers and read back by TrainingStepEnd ("lr").
func New[B tensor.Backend](model Model[B], hparams map[string]any) *Classifier[B] {
	return &Classifier[B]{
		model:    model,
		hparams:  maps.Clone(hparams),
		nll:      nn.NewNLLLoss[B](),
		recorder: metrics.NewRecorder(1),
	}
}

// Model returns the wrapped model.
func (c *Classifier[B]) Model() Model[B] { return c.model }

// Hyperparameters returns a copy of the saved constructor arguments.
func (c *Classifier[B]) Hyperparameters() map[string]any { return maps.Clone(c.hparams) }

// SetRecorder routes the classifier's logged values to r.
func (c *Classifier[B]) SetRecorder(r *metrics.Recorder) { c.recorder = r }

// Recorder returns the recorder logged values go to.
func (c *Classifier[B]) Recorder() *metrics.Recorder { return c.recorder }

// Parameters returns the model's trainable parameters.
func (c *Classifier[B]) Parameters() []*nn.Parameter[B] { return c.model.Parameters() }

// SetTraining switches layers with mode-dependent behavior (batch norm).
func (c *Classifier[B]) SetTraining(training bool) {
	if t, ok := c.model.(nn.Trainable); ok {
		t.SetTraining(training)
	}
}

// ConfigureOptimizers delegates to the model.
func (c *Classifier[B]) ConfigureOptimizers(fit FitInfo) (*Optimization[B], error) {
	return c.model.ConfigureOptimizers(fit, c.Parameters())
}

// Forward returns log-probabilities [N, classes] for x.
func (c *Classifier[B]) Forward(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	return c.model.ComputeLogits(x).LogSoftmax()
}

// Loss returns the log-probabilities of xs and their mean NLL against ys.
func (c *Classifier[B]) Loss(xs *tensor.Tensor[B], ys []int32) (logProbs, loss *tensor.Tensor[B]) {
	logProbs = c.Forward(xs)
	return logProbs, c.nll.Forward(logProbs, ys)
}

func (c *Classifier[B]) step(batch *dataset.Batch[B]) StepOutput[B] {
	logProbs, loss := c.Loss(batch.Inputs, batch.Labels)
	return StepOutput[B]{Loss: loss, Preds: logProbs.Argmax(), Target: batch.Labels}
}

// TrainingStep computes loss and predictions for a training batch.
func (c *Classifier[B]) TrainingStep(batch *dataset.Batch[B], _ int) StepOutput[B] {
	return c.step(batch)
}

// TrainingStepEnd updates training accuracy and logs loss, accuracy and the
// configured learning rate for the step.
func (c *Classifier[B]) TrainingStepEnd(out StepOutput[B]) {
	acc := c.trainAcc.Update(out.Preds, out.Target)

	c.recorder.Log(MetricTrainLoss, float64(out.Loss.Item()), metrics.Step)
	c.recorder.Log(MetricTrainAccuracy, acc, metrics.Step)
	if lr, ok := c.hparams["lr"].(float64); ok {
		c.recorder.Log(MetricTrainLearningRate, lr, metrics.Step)
	}
}

// ValidationStep computes loss and predictions for a validation batch.
func (c *Classifier[B]) ValidationStep(batch *dataset.Batch[B], _ int) StepOutput[B] {
	return c.step(batch)
}

// ValidationStepEnd updates validation accuracy and accumulates the epoch
// loss and accuracy.
func (c *Classifier[B]) ValidationStepEnd(out StepOutput[B]) {
	acc := c.validAcc.Update(out.Preds, out.Target)
	opts := metrics.LogOptions{OnEpoch: true, BatchSize: len(out.Target)}

	c.recorder.Log(MetricValidLoss, float64(out.Loss.Item()), opts)
	c.recorder.Log(MetricValidAccuracy, acc, opts)
}

// Evaluate computes test loss and accuracy for a batch and accumulates them
// for the epoch.
func (c *Classifier[B]) Evaluate(batch *dataset.Batch[B]) {
	out := c.step(batch)
	acc := c.testAcc.Update(out.Preds, out.Target)
	opts := metrics.LogOptions{OnEpoch: true, BatchSize: len(out.Target)}

	c.recorder.Log(MetricTestLoss, float64(out.Loss.Item()), opts)
	c.recorder.Log(MetricTestAccuracy, acc, opts)
}

// Accuracies returns the running train, validation and test accuracies
// since the last ResetAccuracies.
func (c *Classifier[B]) Accuracies() (train, valid, test float64) {
	return c.trainAcc.Compute(), c.validAcc.Compute(), c.testAcc.Compute()
}

// ResetAccuracies clears the accuracy accumulators at an epoch boundary.
func (c *Classifier[B]) ResetAccuracies() {
	c.trainAcc.Reset()
	c.validAcc.Reset()
	c.testAcc.Reset()
}

// StepsPerEpoch returns floor(trainSize / batchSize). Panics when batchSize
// is zero.
func StepsPerEpoch(trainSize, batchSize int) int {
	if batchSize == 0 {
		panic("classifier: steps per epoch with zero batch size")
	}
	return trainSize / batchSize
}

// widen converts a float32 hyperparameter to the float64 with the same
// shortest decimal form, so 1e-4 is reported as 0.0001.
func widen(f float32) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
