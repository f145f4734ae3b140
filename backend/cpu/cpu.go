// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"github.com/born-ml/helloworld/internal/accelerator"
	internalcpu "github.com/born-ml/helloworld/internal/backend/cpu"
	"github.com/born-ml/helloworld/internal/parallel"
	"github.com/born-ml/helloworld/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Config controls how kernels split work across goroutines.
type Config = parallel.Config

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a CPU backend using all available cores.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros(tensor.Shape{2, 3}, backend)
func New() *Backend {
	return internalcpu.New()
}

// NewWithConfig creates a CPU backend with explicit parallelism settings.
func NewWithConfig(cfg Config) *Backend {
	return internalcpu.NewWithConfig(cfg)
}

// NewTuned creates a CPU backend sized to the host processor: one worker
// per physical core and chunks no smaller than a cache line.
func NewTuned() *Backend {
	return internalcpu.NewWithConfig(accelerator.KernelConfig(accelerator.DescribeCPU()))
}
