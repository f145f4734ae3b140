package nn

import (
	"fmt"

	"github.com/born-ml/helloworld/internal/tensor"
)

// BatchNorm2D normalizes [N, C, H, W] activations per channel.
//
// In training mode the layer normalizes with the statistics of the current
// batch and updates exponential running estimates:
//
//	running = (1 - momentum) * running + momentum * batch
//
// using the unbiased batch variance. In evaluation mode the running
// estimates are used and left untouched.
type BatchNorm2D[B tensor.Backend] struct {
	numFeatures int
	eps         float32
	momentum    float32
	training    bool

	gamma *Parameter[B] // [C], initialized to 1
	beta  *Parameter[B] // [C], initialized to 0

	runningMean []float32
	runningVar  []float32
}

// NewBatchNorm2D creates a BatchNorm2D layer with eps=1e-5 and momentum=0.1
// in training mode.
func NewBatchNorm2D[B tensor.Backend](numFeatures int, backend B) *BatchNorm2D[B] {
	if numFeatures <= 0 {
		panic(fmt.Sprintf("batchnorm2d: invalid features %d", numFeatures))
	}
	runningVar := make([]float32, numFeatures)
	for i := range runningVar {
		runningVar[i] = 1
	}
	return &BatchNorm2D[B]{
		numFeatures: numFeatures,
		eps:         1e-5,
		momentum:    0.1,
		training:    true,
		gamma:       NewParameter("weight", Ones(tensor.Shape{numFeatures}, backend)),
		beta:        NewParameter("bias", Zeros(tensor.Shape{numFeatures}, backend)),
		runningMean: make([]float32, numFeatures),
		runningVar:  runningVar,
	}
}

// Forward normalizes the input.
func (bn *BatchNorm2D[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	shape := input.Shape()
	if len(shape) != 4 || shape[1] != bn.numFeatures {
		panic(fmt.Sprintf("batchnorm2d: expected [N,%d,H,W] input, got %v", bn.numFeatures, shape))
	}

	backend := input.Backend()
	mean, variance := bn.runningMean, bn.runningVar
	if bn.training {
		mean, variance = backend.ChannelMoments(input.Raw())
		bn.updateRunning(mean, variance, shape[0]*shape[2]*shape[3])
	}

	out := backend.BatchNorm2D(input.Raw(), bn.gamma.Tensor().Raw(), bn.beta.Tensor().Raw(),
		mean, variance, bn.eps, bn.training)
	return tensor.New(out, backend)
}

func (bn *BatchNorm2D[B]) updateRunning(mean, variance []float32, count int) {
	unbias := float32(1)
	if count > 1 {
		unbias = float32(count) / float32(count-1)
	}
	m := bn.momentum
	for c := range bn.runningMean {
		bn.runningMean[c] = (1-m)*bn.runningMean[c] + m*mean[c]
		bn.runningVar[c] = (1-m)*bn.runningVar[c] + m*variance[c]*unbias
	}
}

// Parameters returns [gamma, beta].
func (bn *BatchNorm2D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{bn.gamma, bn.beta}
}

// SetTraining switches between batch and running statistics.
func (bn *BatchNorm2D[B]) SetTraining(training bool) {
	bn.training = training
}

// Training reports whether the layer is in training mode.
func (bn *BatchNorm2D[B]) Training() bool { return bn.training }

// RunningMean returns the running mean estimate (shared, not copied).
func (bn *BatchNorm2D[B]) RunningMean() []float32 { return bn.runningMean }

// RunningVar returns the running variance estimate (shared, not copied).
func (bn *BatchNorm2D[B]) RunningVar() []float32 { return bn.runningVar }

// Gamma returns the scale parameter.
func (bn *BatchNorm2D[B]) Gamma() *Parameter[B] { return bn.gamma }
