package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/helloworld/internal/backend/cpu"
	"github.com/born-ml/helloworld/internal/tensor"
)

func TestSetSeed_Reproducible(t *testing.T) {
	backend := cpu.New()

	tensor.SetSeed(7)
	a := tensor.Randn(tensor.Shape{4, 4}, backend).Data()
	u := tensor.Uniform(tensor.Shape{8}, 0.5, backend).Data()

	tensor.SetSeed(7)
	b := tensor.Randn(tensor.Shape{4, 4}, backend).Data()
	v := tensor.Uniform(tensor.Shape{8}, 0.5, backend).Data()

	assert.Equal(t, a, b)
	assert.Equal(t, u, v)
	for _, x := range u {
		assert.LessOrEqual(t, x, float32(0.5))
		assert.GreaterOrEqual(t, x, float32(-0.5))
	}
}

func TestReshape_Infer(t *testing.T) {
	backend := cpu.New()
	x := tensor.Zeros(tensor.Shape{2, 3, 4}, backend)

	assert.Equal(t, tensor.Shape{2, 12}, x.Flatten().Shape())
	assert.Equal(t, tensor.Shape{6, 4}, x.Reshape(-1, 4).Shape())
	assert.Panics(t, func() { x.Reshape(-1, -1) })
	assert.Panics(t, func() { x.Reshape(5, -1) })
}

func TestFromSlice(t *testing.T) {
	backend := cpu.New()
	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	assert.Equal(t, float32(10), x.Sum().Item())

	_, err = tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{2, 2}, backend)
	require.Error(t, err)
	assert.Panics(t, func() { x.Item() })
}
