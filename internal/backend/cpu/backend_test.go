package cpu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/helloworld/internal/tensor"
)

func raw(t *testing.T, shape tensor.Shape, data ...float32) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.CPU)
	require.NoError(t, err)
	copy(r.Data(), data)
	return r
}

func TestCPUBackend_Add(t *testing.T) {
	backend := New()

	tests := []struct {
		name string
		a, b *tensor.RawTensor
		want []float32
	}{
		{
			name: "same shape",
			a:    raw(t, tensor.Shape{2, 2}, 1, 2, 3, 4),
			b:    raw(t, tensor.Shape{2, 2}, 10, 20, 30, 40),
			want: []float32{11, 22, 33, 44},
		},
		{
			name: "row broadcast",
			a:    raw(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6),
			b:    raw(t, tensor.Shape{1, 3}, 10, 20, 30),
			want: []float32{11, 22, 33, 14, 25, 36},
		},
		{
			name: "channel broadcast",
			a:    raw(t, tensor.Shape{1, 2, 1, 2}, 1, 2, 3, 4),
			b:    raw(t, tensor.Shape{1, 2, 1, 1}, 100, 200),
			want: []float32{101, 102, 203, 204},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, backend.Add(tt.a, tt.b).Data())
		})
	}
}

func TestCPUBackend_AddIncompatiblePanics(t *testing.T) {
	backend := New()
	assert.Panics(t, func() {
		backend.Add(raw(t, tensor.Shape{3, 4}), raw(t, tensor.Shape{3, 5}))
	})
}

func TestCPUBackend_MatMul(t *testing.T) {
	backend := New()
	a := raw(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	b := raw(t, tensor.Shape{3, 2}, 7, 8, 9, 10, 11, 12)

	result := backend.MatMul(a, b)

	assert.Equal(t, tensor.Shape{2, 2}, result.Shape())
	assert.Equal(t, []float32{58, 64, 139, 154}, result.Data())
	assert.Panics(t, func() { backend.MatMul(a, a) })
}

func TestCPUBackend_Transpose(t *testing.T) {
	backend := New()
	result := backend.Transpose(raw(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6))

	assert.Equal(t, tensor.Shape{3, 2}, result.Shape())
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, result.Data())
}

func TestCPUBackend_LogSoftmax(t *testing.T) {
	backend := New()
	x := raw(t, tensor.Shape{2, 3}, 1, 2, 3, 1000, 1000, 1000)

	out := backend.LogSoftmax(x).Data()

	for row := 0; row < 2; row++ {
		var sum float64
		for _, v := range out[row*3 : (row+1)*3] {
			sum += math.Exp(float64(v))
		}
		assert.InDelta(t, 1.0, sum, 1e-5)
	}
	assert.InDelta(t, -math.Log(3), out[3], 1e-5)
}

func TestCPUBackend_LogSoftmax_LargeLogits(t *testing.T) {
	backend := New()
	for _, v := range []float32{3e4, 1e5, -1e5} {
		x := raw(t, tensor.Shape{1, 3}, v, v, v)

		out := backend.LogSoftmax(x).Data()

		for _, lp := range out {
			assert.InDelta(t, -math.Log(3), lp, 1e-6, "logit %v", v)
		}
	}
}

func TestCPUBackend_NLLLoss(t *testing.T) {
	backend := New()
	logp := raw(t, tensor.Shape{2, 2}, -0.1, -2.0, -3.0, -0.5)

	loss := backend.NLLLoss(logp, []int32{0, 1})

	assert.Equal(t, tensor.Shape{}, loss.Shape())
	assert.InDelta(t, 0.3, loss.Data()[0], 1e-6)
	assert.Panics(t, func() { backend.NLLLoss(logp, []int32{0, 2}) })
	assert.Panics(t, func() { backend.NLLLoss(logp, []int32{0}) })
}

func TestCPUBackend_Argmax(t *testing.T) {
	backend := New()
	x := raw(t, tensor.Shape{3, 3}, 0, 5, 1, 9, 2, 3, 4, 4, 1)

	assert.Equal(t, []int32{1, 0, 0}, backend.Argmax(x))
}

// naiveConv2D is a direct reference implementation.
func naiveConv2D(in, k []float32, n, cin, h, w, cout, kh, kw, stride, pad int) []float32 {
	hOut := (h+2*pad-kh)/stride + 1
	wOut := (w+2*pad-kw)/stride + 1
	out := make([]float32, n*cout*hOut*wOut)
	for b := 0; b < n; b++ {
		for co := 0; co < cout; co++ {
			for oh := 0; oh < hOut; oh++ {
				for ow := 0; ow < wOut; ow++ {
					var sum float32
					for ci := 0; ci < cin; ci++ {
						for i := 0; i < kh; i++ {
							for j := 0; j < kw; j++ {
								ih, iw := oh*stride-pad+i, ow*stride-pad+j
								if ih < 0 || ih >= h || iw < 0 || iw >= w {
									continue
								}
								sum += in[((b*cin+ci)*h+ih)*w+iw] * k[((co*cin+ci)*kh+i)*kw+j]
							}
						}
					}
					out[((b*cout+co)*hOut+oh)*wOut+ow] = sum
				}
			}
		}
	}
	return out
}

func TestCPUBackend_Conv2D(t *testing.T) {
	backend := New()

	tests := []struct {
		name            string
		stride, padding int
		kernel          int
	}{
		{"3x3 stride 1 pad 1", 1, 1, 3},
		{"3x3 stride 2 pad 1", 2, 1, 3},
		{"1x1 stride 2", 2, 0, 1},
		{"7x7 stride 2 pad 3", 2, 3, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := tensor.Randn(tensor.Shape{2, 3, 9, 9}, backend).Raw()
			kernel := tensor.Randn(tensor.Shape{4, 3, tt.kernel, tt.kernel}, backend).Raw()

			got := backend.Conv2D(input, kernel, tt.stride, tt.padding)
			want := naiveConv2D(input.Data(), kernel.Data(), 2, 3, 9, 9, 4, tt.kernel, tt.kernel, tt.stride, tt.padding)

			require.Len(t, got.Data(), len(want))
			assert.InDeltaSlice(t, want, got.Data(), 1e-4)
		})
	}
}

func TestCPUBackend_MaxPool2D(t *testing.T) {
	backend := New()
	input := raw(t, tensor.Shape{1, 1, 4, 4},
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	)

	out := backend.MaxPool2D(input, 2, 2, 0)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, out.Shape())
	assert.Equal(t, []float32{6, 8, 14, 16}, out.Data())

	padded := backend.MaxPool2D(input, 3, 2, 1)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, padded.Shape())
	assert.Equal(t, []float32{6, 8, 14, 16}, padded.Data())

	grad := raw(t, tensor.Shape{1, 1, 2, 2}, 1, 1, 1, 1)
	dIn := backend.MaxPool2DBackward(input, grad, 2, 2, 0).Data()
	assert.Equal(t, float32(1), dIn[5])
	assert.Equal(t, float32(0), dIn[0])
}

func TestCPUBackend_GlobalAvgPool2D(t *testing.T) {
	backend := New()
	input := raw(t, tensor.Shape{1, 2, 2, 2}, 1, 2, 3, 4, 10, 10, 10, 10)

	out := backend.GlobalAvgPool2D(input)

	assert.Equal(t, tensor.Shape{1, 2}, out.Shape())
	assert.Equal(t, []float32{2.5, 10}, out.Data())
}

func TestCPUBackend_BatchNorm2D(t *testing.T) {
	backend := New()
	input := raw(t, tensor.Shape{2, 1, 1, 2}, 1, 2, 3, 4)
	gamma := raw(t, tensor.Shape{1}, 2)
	beta := raw(t, tensor.Shape{1}, 1)

	mean, variance := backend.ChannelMoments(input)
	require.Len(t, mean, 1)
	assert.InDelta(t, 2.5, mean[0], 1e-6)
	assert.InDelta(t, 1.25, variance[0], 1e-6)

	out := backend.BatchNorm2D(input, gamma, beta, mean, variance, 0, true).Data()
	var sum float32
	for _, v := range out {
		sum += v
	}
	// Normalized values have zero mean, so the output mean equals beta.
	assert.InDelta(t, 1.0, sum/4, 1e-5)
}
