package ops

import "github.com/born-ml/helloworld/internal/tensor"

// reduceBroadcast sums a gradient down to targetShape, undoing the
// broadcasting applied in the forward pass.
//
// Example:
//
//	Forward: a[3,1] + b[3,4] -> c[3,4]  (a was broadcast along dim 1)
//	Backward: grad_c[3,4] -> grad_a[3,1] (sum along dim 1)
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape) *tensor.RawTensor {
	gradShape := grad.Shape()
	if gradShape.Equal(targetShape) {
		return grad.Clone()
	}

	result := tensor.MustNewRaw(targetShape, grad.Device())
	out := result.Data()

	// Target strides aligned to the gradient's rank; broadcast dims get 0.
	own := targetShape.ComputeStrides()
	strides := make([]int, len(gradShape))
	offset := len(gradShape) - len(targetShape)
	for i, dim := range targetShape {
		if dim != 1 {
			strides[offset+i] = own[i]
		}
	}

	gradStrides := gradShape.ComputeStrides()
	for i, v := range grad.Data() {
		idx, rem := 0, i
		for d, s := range gradStrides {
			coord := rem / s
			rem -= coord * s
			idx += coord * strides[d]
		}
		out[idx] += v
	}
	return result
}
