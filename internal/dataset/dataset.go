// Package dataset provides the image dataset plumbing behind the data
// modules: on-disk readers for MNIST (IDX) and CIFAR10 (binary batches),
// downloads, seeded random splits and batched loaders.
package dataset

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/helloworld/internal/transform"
)

// Sentinel errors.
var (
	// ErrNotPrepared is returned when dataset files are read before they were
	// downloaded.
	ErrNotPrepared = errors.New("dataset: data not prepared")

	// ErrChecksum is returned when a downloaded file does not match its
	// expected MD5 digest.
	ErrChecksum = errors.New("dataset: checksum mismatch")
)

// Dataset is a finite, indexable collection of labelled images.
type Dataset interface {
	// Len returns the number of samples.
	Len() int

	// Get returns a fresh copy of sample i with pixel values in 0..255.
	Get(i int) (transform.Image, int32)
}

// InMemory holds uint8 CHW images and their labels.
type InMemory struct {
	c, h, w int
	pix     []uint8
	labels  []int32
}

// NewInMemory wraps pixel data of len(labels) images of shape c×h×w.
func NewInMemory(c, h, w int, pix []uint8, labels []int32) (*InMemory, error) {
	if c <= 0 || h <= 0 || w <= 0 {
		return nil, fmt.Errorf("dataset: invalid image shape %dx%dx%d", c, h, w)
	}
	if len(pix) != len(labels)*c*h*w {
		return nil, fmt.Errorf("dataset: %d pixel bytes for %d images of %dx%dx%d", len(pix), len(labels), c, h, w)
	}
	return &InMemory{c: c, h: h, w: w, pix: pix, labels: labels}, nil
}

// Len returns the number of images.
func (d *InMemory) Len() int { return len(d.labels) }

// Get decodes image i.
func (d *InMemory) Get(i int) (transform.Image, int32) {
	size := d.c * d.h * d.w
	im := transform.NewImage(d.c, d.h, d.w)
	for j, b := range d.pix[i*size : (i+1)*size] {
		im.Pix[j] = float32(b)
	}
	return im, d.labels[i]
}

// Labels returns the label slice (shared, not copied).
func (d *InMemory) Labels() []int32 { return d.labels }

// Shape returns the per-image channel, height and width.
func (d *InMemory) Shape() (c, h, w int) { return d.c, d.h, d.w }

// Subset is a view of a dataset restricted to the given indices.
type Subset struct {
	ds      Dataset
	indices []int
}

// NewSubset creates a view over ds. Indices are not copied.
func NewSubset(ds Dataset, indices []int) *Subset {
	return &Subset{ds: ds, indices: indices}
}

// Len returns the number of indices.
func (s *Subset) Len() int { return len(s.indices) }

// Get returns the underlying sample at Indices()[i].
func (s *Subset) Get(i int) (transform.Image, int32) { return s.ds.Get(s.indices[i]) }

// Indices returns the underlying indices.
func (s *Subset) Indices() []int { return s.indices }

// RandomSplit partitions ds into non-overlapping subsets of the given
// lengths using a generator seeded with seed. The lengths must sum to
// ds.Len().
func RandomSplit(ds Dataset, lengths []int, seed uint64) ([]*Subset, error) {
	total := 0
	for _, n := range lengths {
		if n < 0 {
			return nil, fmt.Errorf("dataset: negative split length %d", n)
		}
		total += n
	}
	if total != ds.Len() {
		return nil, fmt.Errorf("dataset: split lengths %v sum to %d, dataset has %d samples", lengths, total, ds.Len())
	}

	perm := rand.New(rand.NewPCG(seed, 0)).Perm(total)
	subsets := make([]*Subset, len(lengths))
	offset := 0
	for i, n := range lengths {
		subsets[i] = NewSubset(ds, perm[offset:offset+n])
		offset += n
	}
	return subsets, nil
}

// SplitSizes converts a validation split into (train, val) sizes for n
// samples. Values in [0, 1) are a fraction of n, values >= 1 an absolute
// count.
func SplitSizes(n int, valSplit float64) (train, val int, err error) {
	switch {
	case valSplit < 0:
		return 0, 0, fmt.Errorf("dataset: negative validation split %v", valSplit)
	case valSplit < 1:
		val = int(float64(n) * valSplit)
	default:
		val = int(valSplit)
	}
	if val > n {
		return 0, 0, fmt.Errorf("dataset: validation split %d larger than dataset (%d)", val, n)
	}
	return n - val, val, nil
}
