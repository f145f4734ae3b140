package nn

import (
	"math"

	"github.com/born-ml/helloworld/internal/tensor"
)

// Xavier (Glorot) initialization for weights.
//
// Values are drawn from U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out))).
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[B] {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	return tensor.Uniform(shape, bound, backend)
}

// KaimingNormal (He) initialization for ReLU networks in fan-out mode.
//
// Values are drawn from N(0, 2/fan_out), the initialization torchvision
// applies to ResNet convolutions.
func KaimingNormal[B tensor.Backend](fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[B] {
	std := math.Sqrt(2.0 / float64(fanOut))
	t := tensor.Randn(shape, backend)
	data := t.Data()
	for i := range data {
		data[i] *= float32(std)
	}
	return t
}

// Zeros creates a tensor filled with zeros, commonly used for biases.
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[B] {
	return tensor.Zeros(shape, backend)
}

// Ones creates a tensor filled with ones.
func Ones[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[B] {
	return tensor.Ones(shape, backend)
}
