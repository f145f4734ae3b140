package nn

import (
	"fmt"

	"github.com/born-ml/helloworld/internal/tensor"
)

// Parameter represents a trainable parameter in a neural network.
//
// Example:
//
//	weight := nn.NewParameter("fc1.weight", weightTensor)
//	w := weight.Tensor()
//	grad := weight.Grad() // nil until gradients are assigned
type Parameter[B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[B]
	grad   *tensor.Tensor[B]
}

// NewParameter creates a new trainable parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[B]) *Parameter[B] {
	return &Parameter[B]{name: name, tensor: t}
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[B] {
	return p.tensor
}

// Grad returns the gradient tensor, or nil if none has been assigned.
func (p *Parameter[B]) Grad() *tensor.Tensor[B] {
	return p.grad
}

// SetGrad sets the gradient tensor.
func (p *Parameter[B]) SetGrad(grad *tensor.Tensor[B]) {
	p.grad = grad
}

// AccumulateGrad adds grad into the stored gradient, allocating it on first
// use. The incoming tensor is copied, never retained.
func (p *Parameter[B]) AccumulateGrad(grad *tensor.RawTensor) {
	if !grad.Shape().Equal(p.tensor.Shape()) {
		panic(fmt.Sprintf("parameter %s: gradient shape %v does not match %v", p.name, grad.Shape(), p.tensor.Shape()))
	}
	if p.grad == nil {
		p.grad = tensor.New(grad.Clone(), p.tensor.Backend())
		return
	}
	dst := p.grad.Data()
	for i, g := range grad.Data() {
		dst[i] += g
	}
}

// ZeroGrad clears the gradient tensor.
func (p *Parameter[B]) ZeroGrad() {
	p.grad = nil
}

// AccumulateGrads adds the gradients computed by a backward pass to every
// parameter that received one. Parameters missing from grads are untouched.
// Returns the number of parameters updated.
func AccumulateGrads[B tensor.Backend](params []*Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) int {
	n := 0
	for _, p := range params {
		if g, ok := grads[p.Tensor().Raw()]; ok {
			p.AccumulateGrad(g)
			n++
		}
	}
	return n
}

// ZeroGrads clears the gradients of all params.
func ZeroGrads[B tensor.Backend](params []*Parameter[B]) {
	for _, p := range params {
		p.ZeroGrad()
	}
}

// CountParameters returns the total number of scalar weights in params.
func CountParameters[B tensor.Backend](params []*Parameter[B]) int {
	total := 0
	for _, p := range params {
		total += p.Tensor().NumElements()
	}
	return total
}
