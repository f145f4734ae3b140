package transform

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(c, h, w int) Image {
	im := NewImage(c, h, w)
	for i := range im.Pix {
		im.Pix[i] = float32(i)
	}
	return im
}

func TestToTensorAndNormalize(t *testing.T) {
	im := Image{C: 1, H: 1, W: 2, Pix: []float32{0, 255}}
	out := MNIST().Apply(im, nil)
	assert.InDelta(t, -0.1307/0.3081, out.Pix[0], 1e-5)
	assert.InDelta(t, (1-0.1307)/0.3081, out.Pix[1], 1e-5)
}

func TestNormalize_PerChannel(t *testing.T) {
	n, err := NewNormalize([]float32{1, 2}, []float32{2, 4})
	require.NoError(t, err)
	im := Image{C: 2, H: 1, W: 1, Pix: []float32{3, 10}}
	out := n.Apply(im, nil)
	assert.Equal(t, []float32{1, 2}, out.Pix)

	_, err = NewNormalize([]float32{1}, []float32{1, 2})
	assert.Error(t, err)
	_, err = NewNormalize([]float32{1}, []float32{0})
	assert.Error(t, err)

	assert.Panics(t, func() { n.Apply(NewImage(3, 1, 1), nil) })
}

func TestRandomCrop(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 0))

	// Zero padding on a same-size crop is the identity.
	im := seq(3, 4, 4)
	out := RandomCrop{Size: 4}.Apply(im, rng)
	assert.Equal(t, im.Pix, out.Pix)

	// Padded crops keep the size and contain either zeros or source pixels.
	src := seq(1, 4, 4)
	for range 20 {
		out := RandomCrop{Size: 4, Padding: 2}.Apply(src, rng)
		assert.Equal(t, 4, out.H)
		assert.Equal(t, 4, out.W)
		for _, v := range out.Pix {
			assert.True(t, v >= 0 && v < 16)
		}
	}

	assert.Panics(t, func() { RandomCrop{Size: 9, Padding: 1}.Apply(seq(1, 4, 4), rng) })
}

func TestRandomHorizontalFlip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 0))

	im := seq(2, 2, 3)
	out := RandomHorizontalFlip{P: 1}.Apply(im, rng)
	assert.Equal(t, []float32{2, 1, 0, 5, 4, 3, 8, 7, 6, 11, 10, 9}, out.Pix)

	im = seq(1, 2, 2)
	out = RandomHorizontalFlip{P: 0}.Apply(im, rng)
	assert.Equal(t, []float32{0, 1, 2, 3}, out.Pix)
}

func TestCIFAR10Train_Shape(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))
	out := CIFAR10Train(true).Apply(NewImage(3, 32, 32), rng)
	assert.Equal(t, 3, out.C)
	assert.Len(t, out.Pix, 3*32*32)
	assert.Contains(t, CIFAR10Train(true).String(), "RandomCrop(size=32, padding=4)")
	assert.Len(t, CIFAR10Eval(false), 1)
}
