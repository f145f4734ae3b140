package optim

import (
	"math"

	"github.com/born-ml/helloworld/internal/nn"
	"github.com/born-ml/helloworld/internal/tensor"
)

// ClipGradValue clamps every gradient element of params into
// [-clipValue, clipValue] in place.
func ClipGradValue[B tensor.Backend](params []*nn.Parameter[B], clipValue float32) {
	for _, p := range params {
		if p.Grad() == nil {
			continue
		}
		data := p.Grad().Data()
		for i, g := range data {
			data[i] = max(-clipValue, min(clipValue, g))
		}
	}
}

// ClipGradNorm rescales the gradients of params so that their joint L2 norm
// is at most maxNorm. Returns the norm before clipping.
func ClipGradNorm[B tensor.Backend](params []*nn.Parameter[B], maxNorm float32) float32 {
	var sq float64
	for _, p := range params {
		if p.Grad() == nil {
			continue
		}
		for _, g := range p.Grad().Data() {
			sq += float64(g) * float64(g)
		}
	}
	norm := math.Sqrt(sq)

	coef := float64(maxNorm) / (norm + 1e-6)
	if coef < 1 {
		for _, p := range params {
			if p.Grad() == nil {
				continue
			}
			data := p.Grad().Data()
			for i := range data {
				data[i] = float32(float64(data[i]) * coef)
			}
		}
	}
	return float32(norm)
}
