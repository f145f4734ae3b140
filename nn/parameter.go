// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/helloworld/internal/nn"
	"github.com/born-ml/helloworld/tensor"
)

// Parameter represents a trainable parameter in a neural network.
//
// Parameters are tensors that require gradient computation during training.
// They typically represent weights and biases of layers. Optimizers read
// the gradient stored on the parameter, so several backward passes can be
// accumulated before a single step.
//
// Example:
//
//	weight := nn.NewParameter("weight", weightTensor)
//	grads := autodiff.Backward(loss, backend)
//	nn.AccumulateGrads([]*nn.Parameter[B]{weight}, grads)
//	g := weight.Grad()
//
// Note: Parameter is implemented as a type alias because it is used as a return type
// in the Module interface. Go's type system requires exact type matches for interface
// implementations, so we cannot use an interface here.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// AccumulateGrads adds the gradients of a backward pass to the matching
// parameters and returns how many were updated.
func AccumulateGrads[B tensor.Backend](params []*Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) int {
	return nn.AccumulateGrads(params, grads)
}

// ZeroGrads clears the gradients of params.
func ZeroGrads[B tensor.Backend](params []*Parameter[B]) {
	nn.ZeroGrads(params)
}

// CountParameters returns the number of scalar weights in params.
func CountParameters[B tensor.Backend](params []*Parameter[B]) int {
	return nn.CountParameters(params)
}
