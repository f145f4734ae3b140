package trainer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/helloworld/classifier"
	"github.com/born-ml/helloworld/datamodule"
	"github.com/born-ml/helloworld/internal/autodiff"
	"github.com/born-ml/helloworld/internal/backend/cpu"
	"github.com/born-ml/helloworld/internal/dataset"
	"github.com/born-ml/helloworld/internal/nn"
	"github.com/born-ml/helloworld/internal/optim"
	"github.com/born-ml/helloworld/internal/tensor"
	"github.com/born-ml/helloworld/internal/transform"
)

type backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

// patterns are two linearly separable 2x2 images.
var patterns = [2][]uint8{{255, 0, 0, 255}, {0, 255, 255, 0}}

func separable(n int) *dataset.InMemory {
	pix := make([]uint8, 0, n*4)
	labels := make([]int32, n)
	for i := range n {
		labels[i] = int32(i % 2) //nolint:gosec // i%2 fits
		pix = append(pix, patterns[i%2]...)
	}
	ds, err := dataset.NewInMemory(1, 2, 2, pix, labels)
	if err != nil {
		panic(err)
	}
	return ds
}

// memoryDataModule serves the separable set from memory.
type memoryDataModule struct {
	b          backend
	batchSize  int
	prepareErr error
	prepared   int

	train, val, test *dataset.Loader[backend]
}

var _ datamodule.DataModule[backend] = (*memoryDataModule)(nil)

func newMemoryDataModule(b backend, batchSize int) *memoryDataModule {
	return &memoryDataModule{b: b, batchSize: batchSize}
}

func (m *memoryDataModule) PrepareData(context.Context) error {
	m.prepared++
	return m.prepareErr
}

func (m *memoryDataModule) Setup(stage datamodule.Stage) error {
	cfg := dataset.LoaderConfig{BatchSize: m.batchSize, NumWorkers: 1, Transform: transform.ToTensor{}}
	switch stage {
	case datamodule.StageFit:
		train := cfg
		train.Shuffle = true
		m.train = dataset.NewLoader(separable(40), train, m.b)
		m.val = dataset.NewLoader(separable(10), cfg, m.b)
	case datamodule.StageTest:
		m.test = dataset.NewLoader(separable(12), cfg, m.b)
	}
	return nil
}

func (m *memoryDataModule) TrainBatches() *dataset.Loader[backend]      { return m.train }
func (m *memoryDataModule) ValidationBatches() *dataset.Loader[backend] { return m.val }
func (m *memoryDataModule) TestBatches() *dataset.Loader[backend]       { return m.test }
func (m *memoryDataModule) BatchSize() int                              { return m.batchSize }
func (m *memoryDataModule) TrainSize() int                              { return 40 }

type memLogger struct {
	hparams map[string]any
	steps   []int
	rows    []map[string]float64
	status  string
}

func (l *memLogger) Name() string { return "memory" }

func (l *memLogger) LogHyperparams(p map[string]any) error {
	l.hparams = p
	return nil
}

func (l *memLogger) LogMetrics(v map[string]float64, step int) error {
	l.rows = append(l.rows, v)
	l.steps = append(l.steps, step)
	return nil
}

func (l *memLogger) Finalize(status string) error {
	l.status = status
	return nil
}

type countingCallback struct {
	NopCallback
	starts, batches, epochs, ends int
	stopAfter                     int
}

func (c *countingCallback) Name() string { return "counting" }

func (c *countingCallback) OnFitStart(State)      { c.starts++ }
func (c *countingCallback) OnTrainBatchEnd(State) { c.batches++ }
func (c *countingCallback) OnFitEnd(State)        { c.ends++ }

func (c *countingCallback) OnEpochEnd(State) bool {
	c.epochs++
	return c.stopAfter > 0 && c.epochs >= c.stopAfter
}

func newTrainer(t *testing.T, args *Args, b backend) (*Trainer[backend], *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tr, err := New(args, b, WithLogger(logger), withGPUProbe(func() bool { return false }))
	require.NoError(t, err)
	return tr, &buf
}

func smallMLP(b backend, lr float32) *classifier.Classifier[backend] {
	return classifier.NewMLP(tensor.Shape{1, 2, 2}, classifier.MLPConfig{NClasses: 2, NLayer1: 8, NLayer2: 8, LR: lr}, b)
}

func TestFit_LearnsSeparableData(t *testing.T) {
	SeedEverything(11)
	b := autodiff.New(cpu.New())
	clf := smallMLP(b, 0.05)
	dm := newMemoryDataModule(b, 4)

	tr, _ := newTrainer(t, NewArgs(5, 5, WithAccumulateGradBatches(1)), b)
	require.NoError(t, tr.Fit(context.Background(), clf, dm))

	assert.Equal(t, 5, tr.Epoch())
	assert.Equal(t, 50, tr.GlobalStep())
	assert.GreaterOrEqual(t, tr.Metrics()[classifier.MetricValidAccuracy], 0.9)
	assert.Less(t, tr.Metrics()[classifier.MetricValidLoss], 0.5)
}

func TestFit_AccumulatesAndLogs(t *testing.T) {
	b := autodiff.New(cpu.New())
	clf := smallMLP(b, 0.01)
	dm := newMemoryDataModule(b, 4)
	mem := &memLogger{}
	cb := &countingCallback{}

	args := NewArgs(2, 2, WithLoggers(mem), WithCallbacks(cb))
	tr, _ := newTrainer(t, args, b)
	require.NoError(t, tr.Fit(context.Background(), clf, dm))

	// 10 batches per epoch, steps after batches 3, 6, 9 and the last one.
	assert.Equal(t, 8, tr.GlobalStep())
	assert.Equal(t, 1, dm.prepared)

	assert.Equal(t, 0.01, mem.hparams["lr"])
	assert.Equal(t, 4, mem.hparams["batch_size"])
	assert.Equal(t, StatusSuccess, mem.status)

	// 20 batches logged every 2, plus one validation row per epoch.
	assert.Len(t, mem.rows, 12)
	assert.Equal(t, 1, mem.steps[0])
	assert.Contains(t, mem.rows[0], classifier.MetricTrainLoss)
	assert.Contains(t, mem.rows[5], classifier.MetricValidAccuracy)
	assert.Equal(t, 0.0, mem.rows[5]["epoch"])

	assert.Equal(t, []int{1, 20, 2, 1}, []int{cb.starts, cb.batches, cb.epochs, cb.ends})
}

func TestFit_CallbackStops(t *testing.T) {
	b := autodiff.New(cpu.New())
	dm := newMemoryDataModule(b, 10)
	cb := &countingCallback{stopAfter: 1}

	tr, buf := newTrainer(t, NewArgs(1, 5, WithCallbacks(cb)), b)
	require.NoError(t, tr.Fit(context.Background(), smallMLP(b, 0.01), dm))

	assert.Equal(t, 1, tr.Epoch())
	assert.Equal(t, 1, cb.ends)
	assert.Contains(t, buf.String(), "training stopped by callback")
}

func TestFit_EarlyStopping(t *testing.T) {
	b := autodiff.New(cpu.New())
	dm := newMemoryDataModule(b, 10)
	// A learning rate of ~0 keeps the validation loss flat.
	es := NewEarlyStopping(classifier.MetricValidLoss, 1, "min")
	es.MinDelta = 1

	tr, _ := newTrainer(t, NewArgs(1, 10, WithCallbacks(es)), b)
	require.NoError(t, tr.Fit(context.Background(), smallMLP(b, 1e-12), dm))

	assert.Equal(t, 2, es.StoppedEpoch())
	assert.Equal(t, 3, tr.Epoch())
}

// scheduledModel wraps an MLP with a one-cycle schedule that is too short
// for the run.
type scheduledModel struct {
	classifier.Model[backend]
	totalSteps int
}

func (m *scheduledModel) ConfigureOptimizers(_ classifier.FitInfo, params []*nn.Parameter[backend]) (*classifier.Optimization[backend], error) {
	opt := optim.NewAdam(params, optim.AdamConfig{})
	sched, err := optim.NewOneCycleLR(opt, optim.OneCycleConfig{MaxLR: 0.1, TotalSteps: m.totalSteps})
	if err != nil {
		return nil, err
	}
	return &classifier.Optimization[backend]{Optimizer: opt, Params: params, Scheduler: sched, Interval: optim.IntervalStep}, nil
}

func TestFit_ScheduleExhaustedWarnsOnce(t *testing.T) {
	b := autodiff.New(cpu.New())
	model := &scheduledModel{Model: smallMLP(b, 0.01).Model(), totalSteps: 3}
	clf := classifier.New[backend](model, map[string]any{"lr": 0.1})
	dm := newMemoryDataModule(b, 4)

	tr, buf := newTrainer(t, NewArgs(10, 1, WithAccumulateGradBatches(1)), b)
	require.NoError(t, tr.Fit(context.Background(), clf, dm))

	assert.Equal(t, 10, tr.GlobalStep())
	assert.Equal(t, 1, strings.Count(buf.String(), "schedule exhausted"))
}

func TestFit_Canceled(t *testing.T) {
	b := autodiff.New(cpu.New())
	mem := &memLogger{}
	tr, _ := newTrainer(t, NewArgs(1, 1, WithLoggers(mem)), b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tr.Fit(ctx, smallMLP(b, 0.01), newMemoryDataModule(b, 4))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusFailed, mem.status)
}

func TestFit_PrepareFailure(t *testing.T) {
	b := autodiff.New(cpu.New())
	dm := newMemoryDataModule(b, 4)
	dm.prepareErr = errors.New("mirror unreachable")

	tr, _ := newTrainer(t, NewArgs(1, 1), b)
	err := tr.Fit(context.Background(), smallMLP(b, 0.01), dm)
	assert.ErrorContains(t, err, "mirror unreachable")
}

func TestTest(t *testing.T) {
	b := autodiff.New(cpu.New())
	dm := newMemoryDataModule(b, 5)
	ml := &memLogger{}
	tr, buf := newTrainer(t, NewArgs(1, 1, WithLoggers(ml)), b)

	values, err := tr.Test(context.Background(), smallMLP(b, 0.01), dm)
	require.NoError(t, err)
	assert.Contains(t, values, classifier.MetricTestLoss)
	acc := values[classifier.MetricTestAccuracy]
	near := func(v float64) bool { return math.Abs(acc-v) < 1e-9 }
	assert.True(t, near(0) || near(0.5) || near(1), "two alternating classes give 0, 0.5 or 1, got %v", acc)
	assert.Contains(t, buf.String(), "test finished")
	assert.Equal(t, StatusSuccess, ml.status)
	require.Len(t, ml.rows, 1)
	assert.Contains(t, ml.rows[0], classifier.MetricTestAccuracy)
}

func TestNew(t *testing.T) {
	b := autodiff.New(cpu.New())

	_, err := New(NewArgs(0, 1), b)
	require.ErrorIs(t, err, ErrInvalidArgs)

	tr, buf := newTrainer(t, NewArgs(1, 1, WithAccelerator("gpu")), b)
	assert.Equal(t, "cpu", string(tr.Device()))
	assert.Contains(t, buf.String(), "falling back to CPU")
	assert.Contains(t, buf.String(), "learning rate finding is not performed")
}
