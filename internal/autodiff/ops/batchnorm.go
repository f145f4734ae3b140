package ops

import "github.com/born-ml/helloworld/internal/tensor"

// BatchNorm2DOp represents batch normalization over [N, C, H, W] with a
// per-channel affine transform.
//
// When batchStats is set the mean and variance were computed from the input
// itself and the gradient includes their dependence on it. Otherwise they are
// treated as constants (evaluation with running statistics).
type BatchNorm2DOp struct {
	input      *tensor.RawTensor
	gamma      *tensor.RawTensor
	beta       *tensor.RawTensor
	output     *tensor.RawTensor
	mean       []float32
	variance   []float32
	eps        float32
	batchStats bool
}

// NewBatchNorm2DOp creates a new BatchNorm2DOp.
func NewBatchNorm2DOp(
	input, gamma, beta, output *tensor.RawTensor,
	mean, variance []float32,
	eps float32,
	batchStats bool,
) *BatchNorm2DOp {
	return &BatchNorm2DOp{
		input:      input,
		gamma:      gamma,
		beta:       beta,
		output:     output,
		mean:       mean,
		variance:   variance,
		eps:        eps,
		batchStats: batchStats,
	}
}

// Backward computes gradients for input, gamma and beta.
func (op *BatchNorm2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	dx, dgamma, dbeta := backend.BatchNorm2DBackward(
		op.input, op.gamma, outputGrad, op.mean, op.variance, op.eps, op.batchStats)
	return []*tensor.RawTensor{dx, dgamma, dbeta}
}

// Inputs returns [input, gamma, beta].
func (op *BatchNorm2DOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input, op.gamma, op.beta}
}

// Output returns the normalized tensor.
func (op *BatchNorm2DOp) Output() *tensor.RawTensor { return op.output }
