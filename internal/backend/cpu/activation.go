package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/helloworld/internal/tensor"
)

// ReLU applies max(0, x) element-wise.
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	result := cpu.alloc("relu", x.Shape())
	out := result.Data()
	for i, v := range x.Data() {
		if v > 0 {
			out[i] = v
		}
	}
	return result
}

// LogSoftmax computes x - logsumexp(x) along the class dimension of [N, C].
//
// The row maximum is subtracted before exponentiation for numerical stability.
func (cpu *CPUBackend) LogSoftmax(x *tensor.RawTensor) *tensor.RawTensor {
	n, c := rowsCols("log_softmax", x)
	result := cpu.alloc("log_softmax", x.Shape())
	src, dst := x.Data(), result.Data()

	for i := 0; i < n; i++ {
		row := src[i*c : (i+1)*c]
		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}
		var sum float64
		for _, v := range row {
			sum += math.Exp(float64(v - maxVal))
		}
		shift := float32(math.Log(sum))
		out := dst[i*c : (i+1)*c]
		for j, v := range row {
			out[j] = (v - maxVal) - shift
		}
	}
	return result
}

// NLLLoss returns -mean(logProbs[i, targets[i]]) as a scalar tensor.
// Panics if a target is outside [0, C).
func (cpu *CPUBackend) NLLLoss(logProbs *tensor.RawTensor, targets []int32) *tensor.RawTensor {
	n, c := rowsCols("nll_loss", logProbs)
	if len(targets) != n {
		panic(fmt.Sprintf("nll_loss: %d targets for batch of %d", len(targets), n))
	}
	data := logProbs.Data()
	var sum float64
	for i, t := range targets {
		if t < 0 || int(t) >= c {
			panic(fmt.Sprintf("nll_loss: target %d out of range [0, %d)", t, c))
		}
		sum -= float64(data[i*c+int(t)])
	}
	result := cpu.alloc("nll_loss", tensor.Shape{})
	result.Data()[0] = float32(sum / float64(n))
	return result
}

// Sum reduces all elements to a scalar.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	var sum float64
	for _, v := range x.Data() {
		sum += float64(v)
	}
	result := cpu.alloc("sum", tensor.Shape{})
	result.Data()[0] = float32(sum)
	return result
}

// Argmax returns, for every row of [N, C], the index of the largest value.
// Ties resolve to the lowest index.
func (cpu *CPUBackend) Argmax(x *tensor.RawTensor) []int32 {
	n, c := rowsCols("argmax", x)
	data := x.Data()
	out := make([]int32, n)
	for i := 0; i < n; i++ {
		row := data[i*c : (i+1)*c]
		best := 0
		for j := 1; j < c; j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		out[i] = int32(best)
	}
	return out
}

// rowsCols validates a [N, C] tensor and returns its dimensions.
func rowsCols(op string, x *tensor.RawTensor) (n, c int) {
	shape := x.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("%s: expected 2D input [N, C], got shape %v", op, shape))
	}
	return shape[0], shape[1]
}
