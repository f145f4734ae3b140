// Package accelerator resolves the trainer's accelerator setting against the
// hardware actually present.
//
// GPU detection probes for a WebGPU adapter (Windows builds only, where the
// wgpu-native library is loaded). Training kernels always run on the CPU
// backend; a detected GPU only affects the reported defaults.
package accelerator

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"

	"github.com/born-ml/helloworld/internal/parallel"
)

// Kind is an accelerator selection.
type Kind string

// Accelerator selections accepted in configuration.
const (
	Auto Kind = "auto"
	CPU  Kind = "cpu"
	GPU  Kind = "gpu"
)

// Valid reports whether k is a known selection.
func (k Kind) Valid() bool {
	switch k {
	case Auto, CPU, GPU:
		return true
	}
	return false
}

var gpuProbe = sync.OnceValue(probeGPU)

// GPUAvailable reports whether a GPU adapter can be acquired. The probe runs
// once per process.
func GPUAvailable() bool {
	return gpuProbe()
}

// Resolve maps the requested selection to the device training runs on.
// gpu is the result of GPUAvailable. Requests that cannot be honored degrade
// to CPU with a warning.
func Resolve(requested Kind, gpu bool, logger *slog.Logger) (Kind, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch requested {
	case CPU:
		return CPU, nil
	case Auto:
		if gpu {
			logger.Debug("GPU adapter detected, using CPU kernels")
		}
		return CPU, nil
	case GPU:
		if !gpu {
			logger.Warn("GPU requested but no adapter found, falling back to CPU")
		} else {
			logger.Warn("GPU requested but only CPU kernels are built, falling back to CPU")
		}
		return CPU, nil
	default:
		return "", fmt.Errorf("accelerator: unknown selection %q", requested)
	}
}

// CPUInfo describes the host processor.
type CPUInfo struct {
	Brand         string
	PhysicalCores int
	LogicalCores  int
	CacheLine     int
	Features      []string
}

// simdFeatures are the instruction sets worth reporting for float32 kernels.
var simdFeatures = []cpuid.FeatureID{
	cpuid.SSE4, cpuid.AVX, cpuid.AVX2, cpuid.FMA3, cpuid.AVX512F, cpuid.ASIMD,
}

// DescribeCPU reports the host processor as seen by cpuid.
func DescribeCPU() CPUInfo {
	info := CPUInfo{
		Brand:         cpuid.CPU.BrandName,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
		CacheLine:     cpuid.CPU.CacheLine,
	}
	if info.Brand == "" {
		info.Brand = runtime.GOARCH
	}
	if info.LogicalCores <= 0 {
		info.LogicalCores = runtime.NumCPU()
	}
	for _, f := range simdFeatures {
		if cpuid.CPU.Supports(f) {
			info.Features = append(info.Features, f.String())
		}
	}
	return info
}

// LogValue implements slog.LogValuer.
func (c CPUInfo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("brand", c.Brand),
		slog.Int("physical_cores", c.PhysicalCores),
		slog.Int("logical_cores", c.LogicalCores),
		slog.Any("features", c.Features),
	)
}

// KernelConfig sizes the CPU backend's worker pool for this host: one worker
// per physical core and chunks of at least 64 items, or one cache line's
// byte count on hosts with wider lines.
func KernelConfig(info CPUInfo) parallel.Config {
	workers := info.PhysicalCores
	if workers <= 0 {
		workers = info.LogicalCores
	}
	workers = max(workers, 1)

	return parallel.Config{
		Enabled:      workers > 1,
		NumWorkers:   workers,
		MinChunkSize: max(64, info.CacheLine),
	}
}
