// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimization algorithms for training neural networks.
//
// # Overview
//
// This package contains:
//   - Adam: Adaptive Moment Estimation with bias correction and L2 weight decay
//   - OneCycleLR: the one-cycle learning rate policy
//   - ClipGradValue and ClipGradNorm: gradient clipping
//   - Optimizer interface for custom optimizers
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/helloworld/autodiff"
//	    "github.com/born-ml/helloworld/backend/cpu"
//	    "github.com/born-ml/helloworld/nn"
//	    "github.com/born-ml/helloworld/optim"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//	    model := nn.NewLinear(784, 10, backend)
//
//	    optimizer := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 0.001})
//	}
//
// # Training Loop Pattern
//
// Optimizers read gradients from the parameters, so accumulate them after
// every backward pass and step when enough batches were seen:
//
//	for epoch := range numEpochs {
//	    for batch := range batches {
//	        // 1. Forward pass on the tape
//	        backend.Tape().StartRecording()
//	        loss := criterion.Forward(model.Forward(batch.Input).LogSoftmax(), batch.Target)
//
//	        // 2. Backward pass
//	        nn.AccumulateGrads(model.Parameters(), autodiff.Backward(loss, backend))
//	        backend.Tape().StopRecording()
//	        backend.Tape().Clear()
//
//	        // 3. Clip and update parameters
//	        optim.ClipGradValue(model.Parameters(), 0.5)
//	        optimizer.Step()
//	        optimizer.ZeroGrad()
//	        _ = scheduler.Step()
//	    }
//	}
//
// # Schedules
//
// OneCycleLR warms the learning rate up from MaxLR/DivFactor to MaxLR and
// anneals it down to a minimum, both with cosine curves. Adam's beta1 is
// cycled inversely between 0.95 and 0.85.
package optim
