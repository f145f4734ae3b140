// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/helloworld/backend/cpu"
	"github.com/born-ml/helloworld/tensor"
)

// TestBackendInterface verifies that the public CPU backend implements tensor.Backend.
func TestBackendInterface(_ *testing.T) {
	var _ tensor.Backend = (*cpu.Backend)(nil)
}

func TestRawTensorAPI(t *testing.T) {
	raw, err := tensor.NewRaw(tensor.Shape{2, 3}, tensor.CPU)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{2, 3}, raw.Shape())
	assert.Equal(t, tensor.CPU, raw.Device())
	assert.Equal(t, 6, raw.NumElements())

	raw.Fill(2)
	clone := raw.Clone()
	clone.Data()[0] = 5
	assert.InDelta(t, 2, raw.Data()[0], 1e-7)

	_, err = tensor.NewRaw(tensor.Shape{2, -1}, tensor.CPU)
	require.Error(t, err)
}

func TestTensorOps(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	y := tensor.Ones(tensor.Shape{2, 2}, backend)

	assert.Equal(t, []float32{2, 3, 4, 5}, x.Add(y).Data())
	assert.Equal(t, []float32{1, 3, 2, 4}, x.Transpose().Data())
	assert.Equal(t, []float32{3, 3, 7, 7}, x.MatMul(y).Data())
	assert.InDelta(t, 10, x.Sum().Item(), 1e-6)
	assert.Equal(t, []int32{1, 1}, x.Argmax())
	assert.Equal(t, "Tensor[2 2] on CPU", x.String())

	_, err = tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{2, 2}, backend)
	require.Error(t, err)
}

func TestSetSeed(t *testing.T) {
	backend := cpu.New()

	tensor.SetSeed(7)
	a := tensor.Randn(tensor.Shape{16}, backend).Data()
	tensor.SetSeed(7)
	b := tensor.Randn(tensor.Shape{16}, backend).Data()
	assert.Equal(t, a, b)

	u := tensor.Uniform(tensor.Shape{64}, 0.5, backend).Data()
	for _, v := range u {
		assert.LessOrEqual(t, v, float32(0.5))
		assert.GreaterOrEqual(t, v, float32(-0.5))
	}
}
