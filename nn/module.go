// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/helloworld/internal/nn"
	"github.com/born-ml/helloworld/tensor"
)

// Module is the base interface for all neural network components.
//
// Every NN module must implement:
//   - Forward: Compute output from input
//   - Parameters: Return all trainable parameters
//
// Modules can be composed to build complex architectures:
//
//	model := nn.NewSequential(
//	    nn.NewLinear(784, 128, backend),
//	    nn.NewReLU[Backend](),
//	    nn.NewLinear(128, 10, backend),
//	)
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] = nn.Module[B]

// Trainable is implemented by modules that behave differently in training
// and evaluation, such as BatchNorm2D and the containers holding it.
type Trainable = nn.Trainable

// SetTraining switches m into training or evaluation mode. Modules that do
// not implement Trainable are left alone.
//
// Example:
//
//	nn.SetTraining(model, false) // BatchNorm2D uses running statistics
func SetTraining[B tensor.Backend](m Module[B], training bool) {
	nn.SetTraining(m, training)
}
