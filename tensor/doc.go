// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor exposes the float32 tensors the classifiers are built on.
//
// # Overview
//
// This package provides:
//   - Tensor[B]: a tensor bound to a compute backend
//   - RawTensor: backend-level storage, the key of gradient maps
//   - Backend: the operator set a compute backend implements
//   - Creation helpers and the seeded initialization generator
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/helloworld/autodiff"
//	    "github.com/born-ml/helloworld/backend/cpu"
//	    "github.com/born-ml/helloworld/tensor"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//
//	    x := tensor.Randn(tensor.Shape{32, 784}, backend)
//	    w := tensor.Randn(tensor.Shape{10, 784}, backend)
//	    logits := x.MatMul(w.Transpose())
//	    logProbs := logits.LogSoftmax()
//	}
//
// # Broadcasting
//
// Add, Sub and Mul follow NumPy broadcasting rules:
//
//	a := tensor.Zeros(tensor.Shape{3, 1}, backend)  // (3, 1)
//	b := tensor.Ones(tensor.Shape{3, 4}, backend)   // (3, 4)
//	c := a.Add(b)                                   // (3, 4)
//
// # Reproducibility
//
// Randn and Uniform draw from one package-level generator. SetSeed makes
// weight initialization repeatable across runs.
package tensor
