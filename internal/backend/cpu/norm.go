package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/helloworld/internal/parallel"
	"github.com/born-ml/helloworld/internal/tensor"
)

// normDims validates a [N, C, H, W] batch-norm input.
func normDims(input *tensor.RawTensor) (n, c, hw int) {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("batchnorm2d: input must be 4D [N,C,H,W], got %dD", len(shape)))
	}
	return shape[0], shape[1], shape[2] * shape[3]
}

// ChannelMoments returns per-channel mean and biased variance over N, H, W.
func (cpu *CPUBackend) ChannelMoments(input *tensor.RawTensor) (mean, variance []float32) {
	n, c, hw := normDims(input)
	data := input.Data()
	mean = make([]float32, c)
	variance = make([]float32, c)
	count := float64(n * hw)

	parallel.For(c, func(ch int) {
		var sum, sumSq float64
		for b := 0; b < n; b++ {
			for _, v := range data[(b*c+ch)*hw:][:hw] {
				sum += float64(v)
				sumSq += float64(v) * float64(v)
			}
		}
		m := sum / count
		mean[ch] = float32(m)
		variance[ch] = float32(math.Max(sumSq/count-m*m, 0))
	}, parallel.Workers(cpu.par.NumWorkers))

	return mean, variance
}

// BatchNorm2D computes gamma * (x - mean) / sqrt(variance + eps) + beta per channel.
func (cpu *CPUBackend) BatchNorm2D(input, gamma, beta *tensor.RawTensor, mean, variance []float32, eps float32, _ bool) *tensor.RawTensor {
	n, c, hw := normDims(input)
	output := cpu.alloc("batchnorm2d", input.Shape())
	in, out, gm, bt := input.Data(), output.Data(), gamma.Data(), beta.Data()

	parallel.ForBatch(n, c, func(b, ch int) {
		scale := gm[ch] * invStd(variance[ch], eps)
		shift := bt[ch] - mean[ch]*scale
		src := in[(b*c+ch)*hw:][:hw]
		dst := out[(b*c+ch)*hw:][:hw]
		for i, v := range src {
			dst[i] = v*scale + shift
		}
	}, parallel.Workers(cpu.par.NumWorkers))

	return output
}

// BatchNorm2DBackward computes gradients for input, gamma and beta.
//
// With batch statistics the mean and variance depend on the input:
//
//	dx = gamma * invStd / M * (M*dy - Σdy - x̂ * Σ(dy*x̂))
//
// With fixed (running) statistics the layer is affine: dx = gamma * invStd * dy.
func (cpu *CPUBackend) BatchNorm2DBackward(
	input, gamma, grad *tensor.RawTensor,
	mean, variance []float32,
	eps float32,
	batchStats bool,
) (inputGrad, gammaGrad, betaGrad *tensor.RawTensor) {
	n, c, hw := normDims(input)
	inputGrad = cpu.alloc("batchnorm2d_backward", input.Shape())
	gammaGrad = cpu.alloc("batchnorm2d_backward", gamma.Shape())
	betaGrad = cpu.alloc("batchnorm2d_backward", gamma.Shape())
	in, dy, dx := input.Data(), grad.Data(), inputGrad.Data()
	gm, dg, db := gamma.Data(), gammaGrad.Data(), betaGrad.Data()
	count := float32(n * hw)

	parallel.For(c, func(ch int) {
		is := invStd(variance[ch], eps)
		var sumDy, sumDyXhat float32
		for b := 0; b < n; b++ {
			off := (b*c + ch) * hw
			for i := off; i < off+hw; i++ {
				xhat := (in[i] - mean[ch]) * is
				sumDy += dy[i]
				sumDyXhat += dy[i] * xhat
			}
		}
		db[ch] = sumDy
		dg[ch] = sumDyXhat

		scale := gm[ch] * is
		for b := 0; b < n; b++ {
			off := (b*c + ch) * hw
			for i := off; i < off+hw; i++ {
				if !batchStats {
					dx[i] = scale * dy[i]
					continue
				}
				xhat := (in[i] - mean[ch]) * is
				dx[i] = scale / count * (count*dy[i] - sumDy - xhat*sumDyXhat)
			}
		}
	}, parallel.Workers(cpu.par.NumWorkers))

	return inputGrad, gammaGrad, betaGrad
}

func invStd(variance, eps float32) float32 {
	return float32(1.0 / math.Sqrt(float64(variance+eps)))
}
