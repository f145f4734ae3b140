// Package transform implements per-sample image preprocessing applied by
// the data loaders: conversion to unit range, normalization and the light
// augmentations used for CIFAR10.
//
// Images are CHW float32. Loaders decode raw bytes to 0..255 values; ToTensor
// rescales them to [0, 1] the way torchvision's ToTensor does.
package transform

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Image is a single CHW image.
type Image struct {
	C, H, W int
	Pix     []float32 // len C*H*W, channel-major
}

// NewImage allocates a zero image.
func NewImage(c, h, w int) Image {
	return Image{C: c, H: h, W: w, Pix: make([]float32, c*h*w)}
}

// At returns the value at channel c, row y, column x.
func (im Image) At(c, y, x int) float32 {
	return im.Pix[(c*im.H+y)*im.W+x]
}

// Set assigns the value at channel c, row y, column x.
func (im Image) Set(c, y, x int, v float32) {
	im.Pix[(c*im.H+y)*im.W+x] = v
}

// Transform maps an image to a new image. Implementations may modify the
// input in place and return it. rng is the sample's private random source;
// deterministic transforms ignore it.
type Transform interface {
	Apply(im Image, rng *rand.Rand) Image
	String() string
}

// Compose chains transforms in order.
type Compose []Transform

// Apply runs every transform in sequence.
func (c Compose) Apply(im Image, rng *rand.Rand) Image {
	for _, t := range c {
		im = t.Apply(im, rng)
	}
	return im
}

func (c Compose) String() string {
	names := make([]string, len(c))
	for i, t := range c {
		names[i] = t.String()
	}
	return "Compose(" + strings.Join(names, ", ") + ")"
}

// ToTensor rescales 0..255 pixel values to [0, 1].
type ToTensor struct{}

// Apply rescales im in place.
func (ToTensor) Apply(im Image, _ *rand.Rand) Image {
	for i, v := range im.Pix {
		im.Pix[i] = v / 255
	}
	return im
}

func (ToTensor) String() string { return "ToTensor()" }

// Normalize standardizes each channel: (x - mean[c]) / std[c].
type Normalize struct {
	Mean []float32
	Std  []float32
}

// NewNormalize validates and returns a Normalize transform.
func NewNormalize(mean, std []float32) (Normalize, error) {
	if len(mean) == 0 || len(mean) != len(std) {
		return Normalize{}, fmt.Errorf("normalize: %d means for %d stds", len(mean), len(std))
	}
	for i, s := range std {
		if s == 0 {
			return Normalize{}, fmt.Errorf("normalize: std[%d] is zero", i)
		}
	}
	return Normalize{Mean: mean, Std: std}, nil
}

// Apply normalizes im in place. A single mean/std applies to every channel.
func (n Normalize) Apply(im Image, _ *rand.Rand) Image {
	if len(n.Mean) != 1 && len(n.Mean) != im.C {
		panic(fmt.Sprintf("normalize: %d channel statistics for %d channels", len(n.Mean), im.C))
	}
	plane := im.H * im.W
	for c := 0; c < im.C; c++ {
		k := min(c, len(n.Mean)-1)
		mean, inv := n.Mean[k], 1/n.Std[k]
		px := im.Pix[c*plane : (c+1)*plane]
		for i, v := range px {
			px[i] = (v - mean) * inv
		}
	}
	return im
}

func (n Normalize) String() string {
	return fmt.Sprintf("Normalize(mean=%v, std=%v)", n.Mean, n.Std)
}

// RandomCrop zero-pads the image by Padding on every side and crops a random
// Size×Size window.
type RandomCrop struct {
	Size    int
	Padding int
}

// Apply returns a new cropped image.
func (r RandomCrop) Apply(im Image, rng *rand.Rand) Image {
	ph, pw := im.H+2*r.Padding, im.W+2*r.Padding
	if r.Size > ph || r.Size > pw {
		panic(fmt.Sprintf("random_crop: crop %d larger than padded image %dx%d", r.Size, ph, pw))
	}
	top := rng.IntN(ph - r.Size + 1)
	left := rng.IntN(pw - r.Size + 1)

	out := NewImage(im.C, r.Size, r.Size)
	for c := 0; c < im.C; c++ {
		for y := 0; y < r.Size; y++ {
			sy := top + y - r.Padding
			if sy < 0 || sy >= im.H {
				continue
			}
			for x := 0; x < r.Size; x++ {
				sx := left + x - r.Padding
				if sx < 0 || sx >= im.W {
					continue
				}
				out.Set(c, y, x, im.At(c, sy, sx))
			}
		}
	}
	return out
}

func (r RandomCrop) String() string {
	return fmt.Sprintf("RandomCrop(size=%d, padding=%d)", r.Size, r.Padding)
}

// RandomHorizontalFlip mirrors the image left-right with probability P.
type RandomHorizontalFlip struct {
	P float64
}

// Apply flips im in place with probability P.
func (f RandomHorizontalFlip) Apply(im Image, rng *rand.Rand) Image {
	if rng.Float64() >= f.P {
		return im
	}
	for c := 0; c < im.C; c++ {
		for y := 0; y < im.H; y++ {
			row := im.Pix[(c*im.H+y)*im.W:][:im.W]
			for i, j := 0, len(row)-1; i < j; i, j = i+1, j-1 {
				row[i], row[j] = row[j], row[i]
			}
		}
	}
	return im
}

func (f RandomHorizontalFlip) String() string {
	return fmt.Sprintf("RandomHorizontalFlip(p=%g)", f.P)
}
