package classifier_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/helloworld/classifier"
	"github.com/born-ml/helloworld/internal/autodiff"
	"github.com/born-ml/helloworld/internal/backend/cpu"
	"github.com/born-ml/helloworld/internal/dataset"
	"github.com/born-ml/helloworld/internal/nn"
	"github.com/born-ml/helloworld/internal/optim"
	"github.com/born-ml/helloworld/internal/tensor"
)

type backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func newBackend() backend { return autodiff.New(cpu.New()) }

func assertLogProbs(t *testing.T, logProbs *tensor.Tensor[backend], rows, classes int) {
	t.Helper()
	require.Equal(t, tensor.Shape{rows, classes}, logProbs.Shape())
	data := logProbs.Data()
	for r := range rows {
		var sum float64
		for c := range classes {
			v := float64(data[r*classes+c])
			assert.LessOrEqual(t, v, 1e-6)
			sum += math.Exp(v)
		}
		assert.InDelta(t, 1.0, sum, 1e-4, "row %d", r)
	}
}

func TestMLP_Forward(t *testing.T) {
	b := newBackend()
	clf := classifier.NewMLP(tensor.Shape{1, 28, 28}, classifier.DefaultMLPConfig(), b)

	x := tensor.Zeros(tensor.Shape{4, 1, 28, 28}, b)
	assertLogProbs(t, clf.Forward(x), 4, 10)

	// 784*128+128 + 128*256+256 + 256*10+10
	assert.Equal(t, 136074, nn.CountParameters(clf.Parameters()))
	assert.Equal(t, map[string]any{
		"in_dims":   []int{1, 28, 28},
		"n_classes": 10,
		"n_layer_1": 128,
		"n_layer_2": 256,
		"lr":        0.0001,
	}, clf.Hyperparameters())
}

func TestResNet_Forward(t *testing.T) {
	b := newBackend()
	clf := classifier.NewResNet(classifier.DefaultResNetConfig(), b)
	clf.SetTraining(false)

	x := tensor.Zeros(tensor.Shape{1, 3, 8, 8}, b)
	assertLogProbs(t, clf.Forward(x), 1, 10)

	net := clf.Model().(*classifier.ResNet[backend]).Net()
	stem := net.Conv1.(*nn.Conv2D[backend])
	assert.Equal(t, 3, stem.KernelSize())
	assert.Equal(t, 1, stem.Stride())
	assert.Nil(t, stem.Bias())
	assert.IsType(t, &nn.Identity[backend]{}, net.MaxPool)
	assert.Equal(t, 0.05, clf.Hyperparameters()["lr"])
}

func randomBatch(b backend, n int, shape tensor.Shape) *dataset.Batch[backend] {
	labels := make([]int32, n)
	for i := range labels {
		labels[i] = int32(i % 10) //nolint:gosec // i%10 fits
	}
	return &dataset.Batch[backend]{
		Inputs: tensor.Randn(append(tensor.Shape{n}, shape...), b),
		Labels: labels,
	}
}

func TestTrainingStep(t *testing.T) {
	b := newBackend()
	clf := classifier.NewMLP(tensor.Shape{1, 28, 28}, classifier.MLPConfig{}, b)
	batch := randomBatch(b, 8, tensor.Shape{1, 28, 28})

	out := clf.TrainingStep(batch, 0)
	loss := float64(out.Loss.Item())
	assert.False(t, math.IsNaN(loss) || math.IsInf(loss, 0))
	assert.GreaterOrEqual(t, loss, 0.0)
	assert.Len(t, out.Preds, 8)
	assert.Equal(t, batch.Labels, out.Target)

	clf.TrainingStepEnd(out)
	logged := clf.Recorder().Metrics()
	assert.InDelta(t, loss, logged[classifier.MetricTrainLoss], 1e-6)
	assert.Contains(t, logged, classifier.MetricTrainAccuracy)
	assert.Equal(t, 0.0001, logged[classifier.MetricTrainLearningRate])
}

func TestValidationAndEvaluate_EpochMetrics(t *testing.T) {
	b := newBackend()
	clf := classifier.NewMLP(tensor.Shape{1, 4, 4}, classifier.MLPConfig{NLayer1: 8, NLayer2: 8}, b)

	for _, n := range []int{6, 2} {
		batch := randomBatch(b, n, tensor.Shape{1, 4, 4})
		clf.ValidationStepEnd(clf.ValidationStep(batch, 0))
		clf.Evaluate(batch)
	}
	_, valid, test := clf.Accuracies()
	assert.InDelta(t, valid, test, 1e-12)

	values, err := clf.Recorder().EndEpoch(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, valid, values[classifier.MetricValidAccuracy], 1e-9)
	assert.Contains(t, values, classifier.MetricValidLoss)
	assert.Contains(t, values, classifier.MetricTestLoss)
	assert.Contains(t, values, classifier.MetricTestAccuracy)

	clf.ResetAccuracies()
	train, valid, test := clf.Accuracies()
	assert.Zero(t, train+valid+test)
}

func TestStepsPerEpoch(t *testing.T) {
	assert.Equal(t, 14, classifier.StepsPerEpoch(100, 7))
	assert.Equal(t, 1250, classifier.StepsPerEpoch(40000, 32))
	assert.Zero(t, classifier.StepsPerEpoch(5, 32))
	assert.Panics(t, func() { classifier.StepsPerEpoch(100, 0) })
}

func TestMLP_ConfigureOptimizers(t *testing.T) {
	b := newBackend()
	clf := classifier.NewMLP(tensor.Shape{1, 28, 28}, classifier.DefaultMLPConfig(), b)

	opt, err := clf.ConfigureOptimizers(classifier.FitInfo{MaxEpochs: 1, TrainSize: 100, BatchSize: 10})
	require.NoError(t, err)
	assert.Nil(t, opt.Scheduler)
	assert.Equal(t, optim.IntervalStep, opt.Interval)
	assert.InDelta(t, 1e-4, opt.Optimizer.GetLR(), 1e-10)
	assert.Len(t, opt.Params, 6)
}

func TestResNet_ConfigureOptimizers(t *testing.T) {
	b := newBackend()
	clf := classifier.NewResNet(classifier.ResNetConfig{}, b)

	opt, err := clf.ConfigureOptimizers(classifier.FitInfo{MaxEpochs: 2, TrainSize: 100, BatchSize: 7})
	require.NoError(t, err)
	sched, ok := opt.Scheduler.(*optim.OneCycleLR)
	require.True(t, ok)
	assert.Equal(t, 28, sched.TotalSteps())
	assert.Equal(t, optim.IntervalStep, opt.Interval)
	assert.InDelta(t, 0.004, opt.Optimizer.GetLR(), 1e-7)

	adam, ok := opt.Optimizer.(*optim.Adam[backend])
	require.True(t, ok)
	assert.InDelta(t, 5e-4, adam.WeightDecay(), 1e-9)

	_, err = clf.ConfigureOptimizers(classifier.FitInfo{MaxEpochs: 2, TrainSize: 5, BatchSize: 7})
	assert.Error(t, err)
}

func TestMLP_LearnsFixedBatch(t *testing.T) {
	tensor.SetSeed(3)
	b := newBackend()
	clf := classifier.NewMLP(tensor.Shape{1, 4, 4}, classifier.MLPConfig{NLayer1: 16, NLayer2: 16, LR: 2e-2}, b)
	batch := randomBatch(b, 10, tensor.Shape{1, 4, 4})

	opt, err := clf.ConfigureOptimizers(classifier.FitInfo{MaxEpochs: 1, TrainSize: 10, BatchSize: 10})
	require.NoError(t, err)

	var first, last float32
	for i := range 60 {
		b.Tape().StartRecording()
		out := clf.TrainingStep(batch, i)
		grads := autodiff.Backward(out.Loss, b)
		b.Tape().StopRecording()
		b.Tape().Clear()

		require.Equal(t, len(opt.Params), nn.AccumulateGrads(opt.Params, grads))
		opt.Optimizer.Step()
		opt.Optimizer.ZeroGrad()

		if i == 0 {
			first = out.Loss.Item()
		}
		last = out.Loss.Item()
	}
	assert.Less(t, last, first*0.5)
}
