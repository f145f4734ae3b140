//go:build !windows

package accelerator

func probeGPU() bool { return false }
