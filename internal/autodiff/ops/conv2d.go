package ops

import "github.com/born-ml/helloworld/internal/tensor"

// Conv2DOp represents a 2D convolution.
//
// Forward:
//
//	output[n, c_out, h, w] = Σ input[n, c_in, h*s+kh-p, w*s+kw-p] * kernel[c_out, c_in, kh, kw]
//
// Both backward kernels are delegated to the backend (col2im and an
// accumulating gemm respectively).
type Conv2DOp struct {
	input   *tensor.RawTensor
	kernel  *tensor.RawTensor
	output  *tensor.RawTensor
	stride  int
	padding int
}

// NewConv2DOp creates a new Conv2DOp.
func NewConv2DOp(input, kernel, output *tensor.RawTensor, stride, padding int) *Conv2DOp {
	return &Conv2DOp{input: input, kernel: kernel, output: output, stride: stride, padding: padding}
}

// Backward computes gradients for the input and kernel.
func (op *Conv2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		backend.Conv2DInputBackward(op.input, op.kernel, outputGrad, op.stride, op.padding),
		backend.Conv2DKernelBackward(op.input, op.kernel, outputGrad, op.stride, op.padding),
	}
}

// Inputs returns [input, kernel].
func (op *Conv2DOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input, op.kernel}
}

// Output returns the convolution result.
func (op *Conv2DOp) Output() *tensor.RawTensor { return op.output }

// MaxPool2DOp represents 2D max pooling.
//
// The gradient is routed to the position that held the maximum of each
// window.
type MaxPool2DOp struct {
	input      *tensor.RawTensor
	output     *tensor.RawTensor
	kernelSize int
	stride     int
	padding    int
}

// NewMaxPool2DOp creates a new MaxPool2DOp.
func NewMaxPool2DOp(input, output *tensor.RawTensor, kernelSize, stride, padding int) *MaxPool2DOp {
	return &MaxPool2DOp{input: input, output: output, kernelSize: kernelSize, stride: stride, padding: padding}
}

// Backward routes gradients to the max positions.
func (op *MaxPool2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		backend.MaxPool2DBackward(op.input, outputGrad, op.kernelSize, op.stride, op.padding),
	}
}

// Inputs returns [input].
func (op *MaxPool2DOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the pooled tensor.
func (op *MaxPool2DOp) Output() *tensor.RawTensor { return op.output }

// GlobalAvgPool2DOp represents averaging each channel over H×W:
// [N, C, H, W] -> [N, C].
type GlobalAvgPool2DOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewGlobalAvgPool2DOp creates a new GlobalAvgPool2DOp.
func NewGlobalAvgPool2DOp(input, output *tensor.RawTensor) *GlobalAvgPool2DOp {
	return &GlobalAvgPool2DOp{input: input, output: output}
}

// Backward spreads grad[n, c] / (H*W) over the spatial positions.
func (op *GlobalAvgPool2DOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.input.Shape()
	hw := shape[2] * shape[3]
	grad := tensor.MustNewRaw(shape, op.input.Device())
	dst := grad.Data()
	inv := 1 / float32(hw)
	for nc, g := range outputGrad.Data() {
		v := g * inv
		plane := dst[nc*hw : (nc+1)*hw]
		for i := range plane {
			plane[i] = v
		}
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns [input].
func (op *GlobalAvgPool2DOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the pooled tensor.
func (op *GlobalAvgPool2DOp) Output() *tensor.RawTensor { return op.output }
