package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/helloworld/internal/parallel"
	"github.com/born-ml/helloworld/internal/tensor"
)

// poolGeometry validates a pooling call and returns output spatial dims.
func poolGeometry(input *tensor.RawTensor, kernelSize, stride, padding int) (n, c, h, w, hOut, wOut int) {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("maxpool2d: input must be 4D [N,C,H,W], got %dD", len(shape)))
	}
	if kernelSize <= 0 || stride <= 0 || padding < 0 || 2*padding > kernelSize {
		panic(fmt.Sprintf("maxpool2d: invalid kernel=%d stride=%d padding=%d", kernelSize, stride, padding))
	}
	n, c, h, w = shape[0], shape[1], shape[2], shape[3]
	hOut = (h+2*padding-kernelSize)/stride + 1
	wOut = (w+2*padding-kernelSize)/stride + 1
	if hOut <= 0 || wOut <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid output dimensions: out_h=%d, out_w=%d", hOut, wOut))
	}
	return n, c, h, w, hOut, wOut
}

// MaxPool2D applies max pooling over [N, C, H, W].
//
// Padded positions count as -Inf, so they never win the maximum.
func (cpu *CPUBackend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride, padding int) *tensor.RawTensor {
	n, c, h, w, hOut, wOut := poolGeometry(input, kernelSize, stride, padding)
	output := cpu.alloc("maxpool2d", tensor.Shape{n, c, hOut, wOut})
	in, out := input.Data(), output.Data()

	parallel.ForBatch(n, c, func(b, ch int) {
		plane := in[(b*c+ch)*h*w:][:h*w]
		dst := out[(b*c+ch)*hOut*wOut:][:hOut*wOut]
		for oh := 0; oh < hOut; oh++ {
			for ow := 0; ow < wOut; ow++ {
				_, best := windowMax(plane, h, w, oh*stride-padding, ow*stride-padding, kernelSize)
				dst[oh*wOut+ow] = best
			}
		}
	}, parallel.Workers(cpu.par.NumWorkers))

	return output
}

// MaxPool2DBackward routes each output gradient to the input position that
// produced the maximum.
func (cpu *CPUBackend) MaxPool2DBackward(input, grad *tensor.RawTensor, kernelSize, stride, padding int) *tensor.RawTensor {
	n, c, h, w, hOut, wOut := poolGeometry(input, kernelSize, stride, padding)
	inputGrad := cpu.alloc("maxpool2d_backward", input.Shape())
	in, gd, dIn := input.Data(), grad.Data(), inputGrad.Data()

	parallel.ForBatch(n, c, func(b, ch int) {
		plane := in[(b*c+ch)*h*w:][:h*w]
		dPlane := dIn[(b*c+ch)*h*w:][:h*w]
		src := gd[(b*c+ch)*hOut*wOut:][:hOut*wOut]
		for oh := 0; oh < hOut; oh++ {
			for ow := 0; ow < wOut; ow++ {
				idx, _ := windowMax(plane, h, w, oh*stride-padding, ow*stride-padding, kernelSize)
				if idx >= 0 {
					dPlane[idx] += src[oh*wOut+ow]
				}
			}
		}
	}, parallel.Workers(cpu.par.NumWorkers))

	return inputGrad
}

// windowMax scans a k×k window starting at (top, left) and returns the flat
// index and value of its maximum. Returns -1 if the window lies in padding.
func windowMax(plane []float32, h, w, top, left, k int) (int, float32) {
	bestIdx := -1
	best := float32(math.Inf(-1))
	for i := top; i < top+k; i++ {
		if i < 0 || i >= h {
			continue
		}
		for j := left; j < left+k; j++ {
			if j < 0 || j >= w {
				continue
			}
			if v := plane[i*w+j]; bestIdx < 0 || v > best {
				bestIdx, best = i*w+j, v
			}
		}
	}
	return bestIdx, best
}

// GlobalAvgPool2D averages every channel plane: [N, C, H, W] -> [N, C].
func (cpu *CPUBackend) GlobalAvgPool2D(input *tensor.RawTensor) *tensor.RawTensor {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("avgpool2d: input must be 4D [N,C,H,W], got %dD", len(shape)))
	}
	n, c, hw := shape[0], shape[1], shape[2]*shape[3]
	output := cpu.alloc("avgpool2d", tensor.Shape{n, c})
	in, out := input.Data(), output.Data()
	for i := 0; i < n*c; i++ {
		var sum float32
		for _, v := range in[i*hw : (i+1)*hw] {
			sum += v
		}
		out[i] = sum / float32(hw)
	}
	return output
}
