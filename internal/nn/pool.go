package nn

import (
	"fmt"

	"github.com/born-ml/helloworld/internal/tensor"
)

// MaxPool2D is a 2D max pooling layer.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, channels, out_height, out_width]
//
// Where:
//
//	out_height = (height + 2*padding - kernelSize) / stride + 1
//
// Common configurations:
//   - 2x2 pool, stride 2: halves spatial dimensions
//   - 3x3 pool, stride 2, padding 1: the ResNet stem
type MaxPool2D[B tensor.Backend] struct {
	kernelSize int
	stride     int
	padding    int
}

// NewMaxPool2D creates a new 2D max pooling layer.
func NewMaxPool2D[B tensor.Backend](kernelSize, stride, padding int) *MaxPool2D[B] {
	if kernelSize <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid stride %d", stride))
	}
	if padding < 0 || 2*padding > kernelSize {
		panic(fmt.Sprintf("maxpool2d: invalid padding %d for kernel %d", padding, kernelSize))
	}
	return &MaxPool2D[B]{kernelSize: kernelSize, stride: stride, padding: padding}
}

// Forward applies max pooling.
func (m *MaxPool2D[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	backend := input.Backend()
	return tensor.New(backend.MaxPool2D(input.Raw(), m.kernelSize, m.stride, m.padding), backend)
}

// Parameters returns nil: pooling has no learnable parameters.
func (m *MaxPool2D[B]) Parameters() []*Parameter[B] { return nil }

// GlobalAvgPool2D averages every channel over its spatial extent:
// [N, C, H, W] -> [N, C]. It stands in for AdaptiveAvgPool2d((1, 1))
// followed by flatten.
type GlobalAvgPool2D[B tensor.Backend] struct{}

// NewGlobalAvgPool2D creates a global average pooling layer.
func NewGlobalAvgPool2D[B tensor.Backend]() *GlobalAvgPool2D[B] { return &GlobalAvgPool2D[B]{} }

// Forward applies global average pooling.
func (g *GlobalAvgPool2D[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	backend := input.Backend()
	return tensor.New(backend.GlobalAvgPool2D(input.Raw()), backend)
}

// Parameters returns nil.
func (g *GlobalAvgPool2D[B]) Parameters() []*Parameter[B] { return nil }
