package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// All tensors are float32. Class labels travel as []int32 alongside tensors
// and are consumed only by NLLLoss and Argmax.
//
// Implementations:
//   - CPU: pure Go, parallelised over batch and channel (internal/backend/cpu)
//   - Autodiff: decorator recording operations on a gradient tape (internal/autodiff)
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor

	// Scalar operations.
	MulScalar(x *RawTensor, scalar float32) *RawTensor

	// MatMul multiplies 2D matrices: [M, K] @ [K, N] -> [M, N].
	MatMul(a, b *RawTensor) *RawTensor

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor) *RawTensor // 2D only

	// Activations.
	ReLU(x *RawTensor) *RawTensor
	LogSoftmax(x *RawTensor) *RawTensor // [N, C], along C

	// NLLLoss returns the mean negative log-likelihood of targets under
	// log-probabilities [N, C] as a scalar tensor.
	NLLLoss(logProbs *RawTensor, targets []int32) *RawTensor

	// Convolution and pooling over [N, C, H, W].
	Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor
	Conv2DInputBackward(input, kernel, grad *RawTensor, stride, padding int) *RawTensor
	Conv2DKernelBackward(input, kernel, grad *RawTensor, stride, padding int) *RawTensor
	MaxPool2D(input *RawTensor, kernelSize, stride, padding int) *RawTensor
	MaxPool2DBackward(input, grad *RawTensor, kernelSize, stride, padding int) *RawTensor
	GlobalAvgPool2D(input *RawTensor) *RawTensor // [N, C, H, W] -> [N, C]

	// Batch normalization over [N, C, H, W].
	//
	// ChannelMoments returns the per-channel mean and biased variance.
	// BatchNorm2D normalizes with the given statistics and applies the
	// affine transform gamma * x̂ + beta. When batchStats is true the
	// statistics were computed from input itself (training mode), which only
	// matters to gradient computation.
	ChannelMoments(input *RawTensor) (mean, variance []float32)
	BatchNorm2D(input, gamma, beta *RawTensor, mean, variance []float32, eps float32, batchStats bool) *RawTensor
	BatchNorm2DBackward(input, gamma, grad *RawTensor, mean, variance []float32, eps float32, batchStats bool) (inputGrad, gammaGrad, betaGrad *RawTensor)

	// Reductions.
	Sum(x *RawTensor) *RawTensor // scalar result
	Argmax(x *RawTensor) []int32 // [N, C] -> [N], along C

	// Metadata
	Name() string
	Device() Device
}
