// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU backend.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go implementation (no CGO, no BLAS)
//   - Convolution, pooling and batch normalization over NCHW tensors
//   - NumPy-compatible broadcasting for element-wise operations
//   - Kernels parallelised over the batch, channel or row dimension
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/helloworld/autodiff"
//	    "github.com/born-ml/helloworld/backend/cpu"
//	    "github.com/born-ml/helloworld/classifier"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//	    model := classifier.NewResNet(classifier.DefaultResNetConfig(), backend)
//	}
//
// # Thread Safety
//
// The CPU backend is safe for concurrent use. Each tensor operation
// allocates its own output and does not share mutable state.
package cpu
