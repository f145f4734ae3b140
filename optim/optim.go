// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/born-ml/helloworld/internal/nn"
	"github.com/born-ml/helloworld/internal/optim"
	"github.com/born-ml/helloworld/internal/tensor"
)

// Optimizer interface defines the common interface for all optimizers.
type Optimizer = optim.Optimizer

// MomentumOptimizer is an optimizer whose momentum a scheduler can cycle.
type MomentumOptimizer = optim.MomentumOptimizer

// Config represents the base configuration for optimizers.
type Config = optim.Config

// Adam (Adaptive Moment Estimation)

// Adam represents the Adam optimizer.
type Adam[B tensor.Backend] = optim.Adam[B]

// AdamConfig contains configuration for Adam optimizer.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer with bias correction. Unset fields
// take the usual defaults.
//
// Example:
//
//	optimizer := optim.NewAdam(
//	    model.Parameters(),
//	    optim.AdamConfig{
//	        LR:          0.05,
//	        WeightDecay: 5e-4,
//	    },
//	)
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig) *Adam[B] {
	return optim.NewAdam(params, config)
}

// Schedulers

// Scheduler adjusts an optimizer's learning rate over training.
type Scheduler = optim.Scheduler

// Interval says whether a scheduler advances per optimizer step or per epoch.
type Interval = optim.Interval

// Scheduler intervals.
const (
	IntervalStep  Interval = optim.IntervalStep
	IntervalEpoch Interval = optim.IntervalEpoch
)

// ErrScheduleExhausted is returned when a scheduler is stepped past its end.
var ErrScheduleExhausted = optim.ErrScheduleExhausted

// OneCycleLR implements the one-cycle learning rate policy.
type OneCycleLR = optim.OneCycleLR

// OneCycleConfig configures OneCycleLR.
type OneCycleConfig = optim.OneCycleConfig

// NewOneCycleLR creates a one-cycle schedule and applies its first
// learning rate to opt.
//
// Example:
//
//	sched, err := optim.NewOneCycleLR(opt, optim.OneCycleConfig{
//	    MaxLR:         0.1,
//	    Epochs:        30,
//	    StepsPerEpoch: 1563,
//	})
func NewOneCycleLR(opt Optimizer, cfg OneCycleConfig) (*OneCycleLR, error) {
	return optim.NewOneCycleLR(opt, cfg)
}

// Gradient clipping

// ClipGradValue clamps every gradient element to [-clipValue, clipValue].
func ClipGradValue[B tensor.Backend](params []*nn.Parameter[B], clipValue float32) {
	optim.ClipGradValue(params, clipValue)
}

// ClipGradNorm rescales gradients so their global L2 norm is at most
// maxNorm and returns the norm before clipping.
func ClipGradNorm[B tensor.Backend](params []*nn.Parameter[B], maxNorm float32) float32 {
	return optim.ClipGradNorm(params, maxNorm)
}
