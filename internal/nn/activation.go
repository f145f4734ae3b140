package nn

import "github.com/born-ml/helloworld/internal/tensor"

// ReLU applies max(0, x) element-wise.
type ReLU[B tensor.Backend] struct{}

// NewReLU creates a ReLU activation.
func NewReLU[B tensor.Backend]() *ReLU[B] { return &ReLU[B]{} }

// Forward applies ReLU.
func (r *ReLU[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] { return input.ReLU() }

// Parameters returns nil.
func (r *ReLU[B]) Parameters() []*Parameter[B] { return nil }

// Identity returns its input unchanged. Used to disable a stage of a
// pretrained architecture (e.g. the ResNet stem max-pool).
type Identity[B tensor.Backend] struct{}

// NewIdentity creates an Identity module.
func NewIdentity[B tensor.Backend]() *Identity[B] { return &Identity[B]{} }

// Forward returns input.
func (i *Identity[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] { return input }

// Parameters returns nil.
func (i *Identity[B]) Parameters() []*Parameter[B] { return nil }

// Flatten collapses every dimension but the first: [N, ...] -> [N, prod(...)].
type Flatten[B tensor.Backend] struct{}

// NewFlatten creates a Flatten module.
func NewFlatten[B tensor.Backend]() *Flatten[B] { return &Flatten[B]{} }

// Forward flattens input.
func (f *Flatten[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] { return input.Flatten() }

// Parameters returns nil.
func (f *Flatten[B]) Parameters() []*Parameter[B] { return nil }
