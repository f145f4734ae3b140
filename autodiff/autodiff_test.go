// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package autodiff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/helloworld/autodiff"
	"github.com/born-ml/helloworld/backend/cpu"
	"github.com/born-ml/helloworld/tensor"
)

func TestBackward(t *testing.T) {
	backend := autodiff.New(cpu.New())

	x, err := tensor.FromSlice([]float32{1, -2, 3}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	backend.Tape().StartRecording()
	y := x.Mul(x).Sum()
	grads := autodiff.Backward(y, backend)
	backend.Tape().Clear()

	require.Contains(t, grads, x.Raw())
	assert.InDeltaSlice(t, []float32{2, -4, 6}, grads[x.Raw()].Data(), 1e-6)
}

func TestBackward_PanicsWhenNotRecording(t *testing.T) {
	backend := autodiff.New(cpu.New())
	x := tensor.Ones(tensor.Shape{2}, backend)

	assert.Panics(t, func() { autodiff.Backward(x.Sum(), backend) })
}
