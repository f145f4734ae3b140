package cpu

import (
	"fmt"

	"github.com/born-ml/helloworld/internal/parallel"
	"github.com/born-ml/helloworld/internal/tensor"
)

// convGeometry holds the dimensions of one Conv2D call.
type convGeometry struct {
	N, CIn, H, W    int
	COut, KH, KW    int
	HOut, WOut      int
	stride, padding int
}

// colRows is the im2col row count C_in * K_h * K_w.
func (g convGeometry) colRows() int { return g.CIn * g.KH * g.KW }

// colCols is the im2col column count H_out * W_out.
func (g convGeometry) colCols() int { return g.HOut * g.WOut }

func newConvGeometry(input, kernel *tensor.RawTensor, stride, padding int) convGeometry {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("conv2d: input must be 4D [N,C,H,W], got %dD", len(inputShape)))
	}
	if len(kernelShape) != 4 {
		panic(fmt.Sprintf("conv2d: kernel must be 4D [C_out,C_in,K_h,K_w], got %dD", len(kernelShape)))
	}
	if inputShape[1] != kernelShape[1] {
		panic(fmt.Sprintf("conv2d: input channels %d != kernel channels %d", inputShape[1], kernelShape[1]))
	}
	g := convGeometry{
		N: inputShape[0], CIn: inputShape[1], H: inputShape[2], W: inputShape[3],
		COut: kernelShape[0], KH: kernelShape[2], KW: kernelShape[3],
		stride: stride, padding: padding,
	}
	g.HOut = (g.H+2*padding-g.KH)/stride + 1
	g.WOut = (g.W+2*padding-g.KW)/stride + 1
	if g.HOut <= 0 || g.WOut <= 0 {
		panic(fmt.Sprintf("conv2d: invalid output dimensions: out_h=%d, out_w=%d (check stride/padding)", g.HOut, g.WOut))
	}
	return g
}

// Conv2D performs 2D convolution using the im2col algorithm.
//
// Input shape:  [N, C_in, H, W]
// Kernel shape: [C_out, C_in, K_h, K_w]
// Output shape: [N, C_out, H_out, W_out]
//
// Each sample is unfolded into a [C_in*K_h*K_w, H_out*W_out] column matrix
// and multiplied by the kernel viewed as [C_out, C_in*K_h*K_w]. Samples are
// processed in parallel.
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	g := newConvGeometry(input, kernel, stride, padding)
	output := cpu.alloc("conv2d", tensor.Shape{g.N, g.COut, g.HOut, g.WOut})

	in, k, out := input.Data(), kernel.Data(), output.Data()
	inSize := g.CIn * g.H * g.W
	outSize := g.COut * g.colCols()

	parallel.For(g.N, func(n int) {
		col := make([]float32, g.colRows()*g.colCols())
		im2col(col, in[n*inSize:(n+1)*inSize], g)
		gemm(out[n*outSize:(n+1)*outSize], k, col, g.COut, g.colRows(), g.colCols(), false, sequential)
	}, parallel.Workers(cpu.par.NumWorkers))

	return output
}

// Conv2DInputBackward computes ∂L/∂input for Conv2D.
//
// dcol = kernelᵀ @ grad, folded back into image space with col2im.
func (cpu *CPUBackend) Conv2DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	g := newConvGeometry(input, kernel, stride, padding)
	inputGrad := cpu.alloc("conv2d_backward", input.Shape())

	k, gd, dIn := kernel.Data(), grad.Data(), inputGrad.Data()
	inSize := g.CIn * g.H * g.W
	outSize := g.COut * g.colCols()

	parallel.For(g.N, func(n int) {
		dcol := make([]float32, g.colRows()*g.colCols())
		gemmTransA(dcol, k, gd[n*outSize:(n+1)*outSize], g.colRows(), g.COut, g.colCols(), false, sequential)
		col2im(dIn[n*inSize:(n+1)*inSize], dcol, g)
	}, parallel.Workers(cpu.par.NumWorkers))

	return inputGrad
}

// Conv2DKernelBackward computes ∂L/∂kernel for Conv2D.
//
// dK = Σ_n grad_n @ col_nᵀ. Samples are accumulated sequentially; each
// product is split across workers by output channel.
func (cpu *CPUBackend) Conv2DKernelBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	g := newConvGeometry(input, kernel, stride, padding)
	kernelGrad := cpu.alloc("conv2d_backward", kernel.Shape())

	in, gd, dK := input.Data(), grad.Data(), kernelGrad.Data()
	inSize := g.CIn * g.H * g.W
	outSize := g.COut * g.colCols()
	col := make([]float32, g.colRows()*g.colCols())

	for n := 0; n < g.N; n++ {
		im2col(col, in[n*inSize:(n+1)*inSize], g)
		gemmTransB(dK, gd[n*outSize:(n+1)*outSize], col, g.COut, g.colCols(), g.colRows(), true, cpu.rows())
	}

	return kernelGrad
}

// sequential disables nested parallelism inside per-sample workers.
var sequential = parallel.Config{Enabled: false}

// im2col unfolds one [C, H, W] image into col[C*KH*KW, HOut*WOut].
func im2col(col, img []float32, g convGeometry) {
	cols := g.colCols()
	for c := 0; c < g.CIn; c++ {
		for kh := 0; kh < g.KH; kh++ {
			for kw := 0; kw < g.KW; kw++ {
				row := col[((c*g.KH+kh)*g.KW+kw)*cols:][:cols]
				for oh := 0; oh < g.HOut; oh++ {
					ih := oh*g.stride - g.padding + kh
					for ow := 0; ow < g.WOut; ow++ {
						iw := ow*g.stride - g.padding + kw
						if ih < 0 || ih >= g.H || iw < 0 || iw >= g.W {
							row[oh*g.WOut+ow] = 0
							continue
						}
						row[oh*g.WOut+ow] = img[(c*g.H+ih)*g.W+iw]
					}
				}
			}
		}
	}
}

// col2im accumulates col[C*KH*KW, HOut*WOut] back into a [C, H, W] image.
func col2im(img, col []float32, g convGeometry) {
	cols := g.colCols()
	for c := 0; c < g.CIn; c++ {
		for kh := 0; kh < g.KH; kh++ {
			for kw := 0; kw < g.KW; kw++ {
				row := col[((c*g.KH+kh)*g.KW+kw)*cols:][:cols]
				for oh := 0; oh < g.HOut; oh++ {
					ih := oh*g.stride - g.padding + kh
					if ih < 0 || ih >= g.H {
						continue
					}
					for ow := 0; ow < g.WOut; ow++ {
						iw := ow*g.stride - g.padding + kw
						if iw < 0 || iw >= g.W {
							continue
						}
						img[(c*g.H+ih)*g.W+iw] += row[oh*g.WOut+ow]
					}
				}
			}
		}
	}
}
