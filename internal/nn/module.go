// Package nn implements the neural network modules used by the classifier
// models.
//
// This package provides:
//   - Module interface: Forward + Parameters
//   - Parameter: trainable tensors with gradient storage
//   - Layers: Linear, Conv2D, BatchNorm2D, MaxPool2D, GlobalAvgPool2D
//   - Activations and glue: ReLU, Identity, Flatten, Sequential
//   - Loss: NLLLoss over log-probabilities
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
package nn

import "github.com/born-ml/helloworld/internal/tensor"

// Module is the base interface for all neural network components.
//
// Modules can be composed to build complex architectures:
//
//	model := nn.NewSequential[B](
//	    nn.NewLinear(784, 128, backend),
//	    nn.NewReLU[B](),
//	    nn.NewLinear(128, 10, backend),
//	)
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[B]) *tensor.Tensor[B]

	// Parameters returns all trainable parameters of this module,
	// including those of nested modules.
	Parameters() []*Parameter[B]
}

// Trainable is implemented by modules whose behaviour differs between
// training and evaluation (BatchNorm2D and containers holding it).
type Trainable interface {
	SetTraining(training bool)
}

// SetTraining switches m into training or evaluation mode if it cares.
func SetTraining[B tensor.Backend](m Module[B], training bool) {
	if t, ok := m.(Trainable); ok {
		t.SetTraining(training)
	}
}
