// Package ops defines the differentiable operations recorded by the
// autodiff tape.
//
// Each operation keeps references to its inputs and output from the forward
// pass and computes input gradients from the output gradient:
//   - AddOp, SubOp, MulOp: element-wise with broadcast reduction
//   - MulScalarOp, SumOp: scalar scaling and total reduction
//   - MatMulOp: d(A@B)/dA = grad@Bᵀ, d(A@B)/dB = Aᵀ@grad
//   - ReshapeOp, TransposeOp: shape bookkeeping
//   - ReLUOp, LogSoftmaxOp, NLLLossOp: activations and loss
//   - Conv2DOp, MaxPool2DOp, GlobalAvgPool2DOp, BatchNorm2DOp: CNN layers
package ops

import "github.com/born-ml/helloworld/internal/tensor"

// Operation represents a differentiable operation in the computation graph.
type Operation interface {
	// Backward computes gradients for inputs given the output gradient.
	// Returns one gradient per input, in the order of Inputs(). A nil entry
	// means no gradient flows to that input.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the input tensors for this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.RawTensor
}
