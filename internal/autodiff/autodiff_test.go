package autodiff

import (
	"math/rand"
	"testing"

	"github.com/born-ml/helloworld/internal/backend/cpu"
	"github.com/born-ml/helloworld/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lossFn func(b tensor.Backend, in []*tensor.RawTensor) *tensor.RawTensor

func randomRaw(rng *rand.Rand, shape tensor.Shape) *tensor.RawTensor {
	r := tensor.MustNewRaw(shape, tensor.CPU)
	for i := range r.Data() {
		r.Data()[i] = float32(rng.NormFloat64())
	}
	return r
}

// weighted reduces out to a scalar with fixed weights so every output
// element gets a distinct upstream gradient.
func weighted(b tensor.Backend, out *tensor.RawTensor) *tensor.RawTensor {
	w := tensor.MustNewRaw(out.Shape(), out.Device())
	for i := range w.Data() {
		w.Data()[i] = float32(i%7)*0.25 - 0.5
	}
	return b.Sum(b.Mul(out, w))
}

// checkGradients compares tape gradients against central finite differences.
func checkGradients(t *testing.T, inputs []*tensor.RawTensor, loss lossFn, tol float64) {
	t.Helper()

	plain := cpu.New()
	ad := New(cpu.New())
	ad.Tape().StartRecording()
	out := loss(ad, inputs)
	require.Equal(t, 1, out.NumElements())

	seed := tensor.MustNewRaw(out.Shape(), out.Device())
	seed.Fill(1)
	grads := ad.Tape().Backward(seed, ad)

	const eps = 1e-2
	for k, in := range inputs {
		grad, ok := grads[in]
		require.True(t, ok, "no gradient for input %d", k)
		require.True(t, grad.Shape().Equal(in.Shape()), "gradient shape %v for input %v", grad.Shape(), in.Shape())

		data := in.Data()
		for i := range data {
			orig := data[i]
			data[i] = orig + eps
			plus := loss(plain, inputs).Data()[0]
			data[i] = orig - eps
			minus := loss(plain, inputs).Data()[0]
			data[i] = orig

			numeric := float64(plus-minus) / (2 * eps)
			assert.InDelta(t, numeric, float64(grad.Data()[i]), tol, "input %d element %d", k, i)
		}
	}
}

func TestGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	tests := []struct {
		name   string
		inputs []*tensor.RawTensor
		loss   lossFn
		tol    float64
	}{
		{
			name:   "add broadcast",
			inputs: []*tensor.RawTensor{randomRaw(rng, tensor.Shape{3, 4}), randomRaw(rng, tensor.Shape{4})},
			loss: func(b tensor.Backend, in []*tensor.RawTensor) *tensor.RawTensor {
				return weighted(b, b.Add(in[0], in[1]))
			},
			tol: 1e-2,
		},
		{
			name:   "sub and mul",
			inputs: []*tensor.RawTensor{randomRaw(rng, tensor.Shape{2, 3}), randomRaw(rng, tensor.Shape{2, 1})},
			loss: func(b tensor.Backend, in []*tensor.RawTensor) *tensor.RawTensor {
				return weighted(b, b.Mul(b.Sub(in[0], in[1]), in[0]))
			},
			tol: 1e-2,
		},
		{
			name:   "linear layer",
			inputs: []*tensor.RawTensor{randomRaw(rng, tensor.Shape{4, 5}), randomRaw(rng, tensor.Shape{3, 5})},
			loss: func(b tensor.Backend, in []*tensor.RawTensor) *tensor.RawTensor {
				return weighted(b, b.MatMul(in[0], b.Transpose(in[1])))
			},
			tol: 1e-2,
		},
		{
			name:   "log softmax nll",
			inputs: []*tensor.RawTensor{randomRaw(rng, tensor.Shape{4, 3})},
			loss: func(b tensor.Backend, in []*tensor.RawTensor) *tensor.RawTensor {
				return b.NLLLoss(b.LogSoftmax(in[0]), []int32{0, 2, 1, 2})
			},
			tol: 1e-2,
		},
		{
			name:   "scaled reshape",
			inputs: []*tensor.RawTensor{randomRaw(rng, tensor.Shape{2, 6})},
			loss: func(b tensor.Backend, in []*tensor.RawTensor) *tensor.RawTensor {
				return weighted(b, b.MulScalar(b.Reshape(in[0], tensor.Shape{3, 4}), 3))
			},
			tol: 1e-2,
		},
		{
			name:   "conv2d",
			inputs: []*tensor.RawTensor{randomRaw(rng, tensor.Shape{2, 2, 5, 5}), randomRaw(rng, tensor.Shape{3, 2, 3, 3})},
			loss: func(b tensor.Backend, in []*tensor.RawTensor) *tensor.RawTensor {
				return weighted(b, b.Conv2D(in[0], in[1], 2, 1))
			},
			tol: 3e-2,
		},
		{
			name:   "global average pool",
			inputs: []*tensor.RawTensor{randomRaw(rng, tensor.Shape{2, 3, 2, 2})},
			loss: func(b tensor.Backend, in []*tensor.RawTensor) *tensor.RawTensor {
				return weighted(b, b.GlobalAvgPool2D(in[0]))
			},
			tol: 1e-2,
		},
		{
			name: "batch norm with batch statistics",
			inputs: []*tensor.RawTensor{
				randomRaw(rng, tensor.Shape{3, 2, 2, 2}),
				randomRaw(rng, tensor.Shape{2}),
				randomRaw(rng, tensor.Shape{2}),
			},
			loss: func(b tensor.Backend, in []*tensor.RawTensor) *tensor.RawTensor {
				mean, variance := b.ChannelMoments(in[0])
				return weighted(b, b.BatchNorm2D(in[0], in[1], in[2], mean, variance, 1e-5, true))
			},
			tol: 3e-2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkGradients(t, tt.inputs, tt.loss, tt.tol)
		})
	}
}

func TestGradients_MaxPool(t *testing.T) {
	// Well separated values keep finite differences away from ties.
	perm := rand.New(rand.NewSource(3)).Perm(32)
	input := tensor.MustNewRaw(tensor.Shape{1, 2, 4, 4}, tensor.CPU)
	for i, p := range perm {
		input.Data()[i] = float32(p) * 0.5
	}

	checkGradients(t, []*tensor.RawTensor{input}, func(b tensor.Backend, in []*tensor.RawTensor) *tensor.RawTensor {
		return weighted(b, b.MaxPool2D(in[0], 3, 2, 1))
	}, 1e-2)
}

func TestGradients_ReLU(t *testing.T) {
	input := tensor.MustNewRaw(tensor.Shape{2, 3}, tensor.CPU)
	copy(input.Data(), []float32{-1.5, 0.7, 2, -0.3, 1.1, -2})

	checkGradients(t, []*tensor.RawTensor{input}, func(b tensor.Backend, in []*tensor.RawTensor) *tensor.RawTensor {
		return weighted(b, b.ReLU(in[0]))
	}, 1e-3)
}

func TestBackward_SharedInputAccumulates(t *testing.T) {
	backend := New(cpu.New())
	backend.Tape().StartRecording()

	x, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	y := x.Mul(x).Add(x).Sum() // Σ x² + x
	grads := Backward(y, backend)

	assert.InDeltaSlice(t, []float32{3, 5, 7}, grads[x.Raw()].Data(), 1e-6)
}

func TestBackward_PanicsWithoutOps(t *testing.T) {
	backend := New(cpu.New())
	x := tensor.Ones(tensor.Shape{2}, backend)
	assert.Panics(t, func() { Backward(x, backend) })
}

func TestNoGrad(t *testing.T) {
	backend := New(cpu.New())
	backend.Tape().StartRecording()
	x := tensor.Ones(tensor.Shape{2, 2}, backend)

	backend.NoGrad(func() {
		_ = x.Add(x)
	})
	assert.Equal(t, 0, backend.Tape().NumOps())
	assert.True(t, backend.Tape().IsRecording())

	_ = x.Add(x)
	assert.Equal(t, 1, backend.Tape().NumOps())

	backend.Tape().Clear()
	assert.Equal(t, 0, backend.Tape().NumOps())
}

func TestDetach_StopsGradient(t *testing.T) {
	backend := New(cpu.New())
	backend.Tape().StartRecording()

	x := tensor.Full(tensor.Shape{2}, 3, backend)
	y := x.Mul(x.Detach()).Sum()
	grads := Backward(y, backend)

	assert.InDeltaSlice(t, []float32{3, 3}, grads[x.Raw()].Data(), 1e-6)
}

func TestName(t *testing.T) {
	assert.Equal(t, "Autodiff(CPU)", New(cpu.New()).Name())
}
