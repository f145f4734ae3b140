//go:build windows

package accelerator

import "github.com/go-webgpu/webgpu/wgpu"

func probeGPU() (available bool) {
	// wgpu-native panics when the shared library is missing.
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()

	return true
}
