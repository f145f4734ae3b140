// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides neural network layers and building blocks.
//
// # Overview
//
// This package contains:
//   - Layers: Linear, Conv2D, BatchNorm2D, MaxPool2D, GlobalAvgPool2D
//   - Activations and glue: ReLU, Identity, Flatten
//   - Loss functions: NLLLoss
//   - Utilities: Sequential, Module interface, Parameter
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/helloworld/autodiff"
//	    "github.com/born-ml/helloworld/backend/cpu"
//	    "github.com/born-ml/helloworld/nn"
//	)
//
//	type Backend = *autodiff.Backend[*cpu.Backend]
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//
//	    // Build a simple MLP
//	    model := nn.NewSequential[Backend](
//	        nn.NewFlatten[Backend](),
//	        nn.NewLinear(784, 128, backend),
//	        nn.NewReLU[Backend](),
//	        nn.NewLinear(128, 10, backend),
//	    )
//
//	    // Forward pass
//	    logProbs := model.Forward(input).LogSoftmax()
//	}
//
// # Layers
//
// Linear: Fully connected layer with Xavier initialization
//
//	layer := nn.NewLinear(in, out, backend)
//	output := layer.Forward(input)  // [batch, in] -> [batch, out]
//
// Conv2D: 2D convolution over NCHW tensors
//
//	conv := nn.NewConv2D(3, 64, 3, 1, 1, false, backend)
//	output := conv.Forward(input)  // [N, 3, H, W] -> [N, 64, H, W]
//
// BatchNorm2D: per-channel normalization with running statistics
//
//	bn := nn.NewBatchNorm2D(64, backend)
//	nn.SetTraining(bn, false) // evaluate with running statistics
//
// # Training
//
// Gradients are accumulated into parameters after each backward pass:
//
//	backend.Tape().StartRecording()
//	loss := nn.NewNLLLoss[Backend]().Forward(model.Forward(x).LogSoftmax(), y)
//	nn.AccumulateGrads(model.Parameters(), autodiff.Backward(loss, backend))
//	backend.Tape().Clear()
package nn
