//go:build windows

package accelerator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbeGPU_Windows(t *testing.T) {
	// Without wgpu-native or an adapter the probe reports false instead of
	// failing.
	var available bool
	assert.NotPanics(t, func() { available = probeGPU() })
	assert.Equal(t, available, GPUAvailable())
}
