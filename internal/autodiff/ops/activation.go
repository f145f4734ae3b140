package ops

import (
	"math"

	"github.com/born-ml/helloworld/internal/tensor"
)

// ReLUOp represents output = max(0, x).
//
// The gradient passes through where the input was positive and is zero
// elsewhere.
type ReLUOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(input, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{input: input, output: output}
}

// Backward masks the output gradient with x > 0.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := tensor.MustNewRaw(op.input.Shape(), op.input.Device())
	dst := grad.Data()
	src := outputGrad.Data()
	for i, x := range op.input.Data() {
		if x > 0 {
			dst[i] = src[i]
		}
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns [x].
func (op *ReLUOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns relu(x).
func (op *ReLUOp) Output() *tensor.RawTensor { return op.output }

// LogSoftmaxOp represents row-wise log-softmax over [N, C].
//
// With y = log_softmax(x) and p = exp(y):
//
//	dL/dx_i = g_i - p_i * Σ_j g_j
type LogSoftmaxOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewLogSoftmaxOp creates a new LogSoftmaxOp.
func NewLogSoftmaxOp(input, output *tensor.RawTensor) *LogSoftmaxOp {
	return &LogSoftmaxOp{input: input, output: output}
}

// Backward computes the log-softmax input gradient.
func (op *LogSoftmaxOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.output.Shape()
	n, c := shape[0], shape[1]
	grad := tensor.MustNewRaw(shape, op.input.Device())
	dst := grad.Data()
	g := outputGrad.Data()
	y := op.output.Data()

	for row := 0; row < n; row++ {
		base := row * c
		var sum float64
		for j := 0; j < c; j++ {
			sum += float64(g[base+j])
		}
		for j := 0; j < c; j++ {
			p := math.Exp(float64(y[base+j]))
			dst[base+j] = float32(float64(g[base+j]) - p*sum)
		}
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns [x].
func (op *LogSoftmaxOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns log_softmax(x).
func (op *LogSoftmaxOp) Output() *tensor.RawTensor { return op.output }

// NLLLossOp represents the mean negative log-likelihood over [N, C]
// log-probabilities.
//
// dL/dlogp[i, t_i] = -1/N, zero elsewhere.
type NLLLossOp struct {
	logProbs *tensor.RawTensor
	output   *tensor.RawTensor
	targets  []int32
}

// NewNLLLossOp creates a new NLLLossOp. targets is retained, not copied.
func NewNLLLossOp(logProbs, output *tensor.RawTensor, targets []int32) *NLLLossOp {
	return &NLLLossOp{logProbs: logProbs, output: output, targets: targets}
}

// Backward scatters the scaled scalar gradient onto the target positions.
func (op *NLLLossOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.logProbs.Shape()
	n, c := shape[0], shape[1]
	grad := tensor.MustNewRaw(shape, op.logProbs.Device())
	dst := grad.Data()
	scale := -outputGrad.Data()[0] / float32(n)
	for i, t := range op.targets {
		dst[i*c+int(t)] = scale
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns [logProbs].
func (op *NLLLossOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.logProbs} }

// Output returns the scalar loss.
func (op *NLLLossOp) Output() *tensor.RawTensor { return op.output }
