package dataset

import (
	"fmt"
	"iter"
	"math/rand/v2"

	"github.com/born-ml/helloworld/internal/parallel"
	"github.com/born-ml/helloworld/internal/tensor"
	"github.com/born-ml/helloworld/internal/transform"
)

// Batch is a group of transformed samples stacked into one tensor.
type Batch[B tensor.Backend] struct {
	Inputs *tensor.Tensor[B] // [N, C, H, W]
	Labels []int32           // [N]
}

// Size returns the number of samples in the batch.
func (b *Batch[B]) Size() int { return len(b.Labels) }

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	BatchSize  int                 // Samples per batch (required)
	Shuffle    bool                // Reshuffle the order every epoch
	DropLast   bool                // Drop the final short batch
	NumWorkers int                 // Parallel sample decoding; 0 means runtime.NumCPU()
	Seed       uint64              // Seeds shuffling and random transforms
	Transform  transform.Transform // Per-sample transform; nil leaves pixels in 0..255
}

// Loader iterates a dataset in batches.
//
// Every call to All starts a new epoch. With Shuffle set the order is a
// permutation drawn from a generator seeded with (Seed, epoch); random
// transforms draw from a per-sample generator seeded with (Seed, epoch,
// index), so results do not depend on NumWorkers.
type Loader[B tensor.Backend] struct {
	ds      Dataset
	cfg     LoaderConfig
	backend B
	epoch   uint64
}

// NewLoader creates a loader over ds producing tensors on backend.
func NewLoader[B tensor.Backend](ds Dataset, cfg LoaderConfig, backend B) *Loader[B] {
	if cfg.BatchSize <= 0 {
		panic(fmt.Sprintf("loader: invalid batch size %d", cfg.BatchSize))
	}
	return &Loader[B]{ds: ds, cfg: cfg, backend: backend}
}

// Dataset returns the underlying dataset.
func (l *Loader[B]) Dataset() Dataset { return l.ds }

// BatchSize returns the configured batch size.
func (l *Loader[B]) BatchSize() int { return l.cfg.BatchSize }

// Len returns the number of batches in one epoch.
func (l *Loader[B]) Len() int {
	n := l.ds.Len()
	if l.cfg.DropLast {
		return n / l.cfg.BatchSize
	}
	return (n + l.cfg.BatchSize - 1) / l.cfg.BatchSize
}

// All returns the batches of the next epoch with their indices.
//
// Example:
//
//	for i, batch := range loader.All() {
//	    out := model.TrainingStep(batch)
//	}
func (l *Loader[B]) All() iter.Seq2[int, *Batch[B]] {
	epoch := l.epoch
	l.epoch++

	return func(yield func(int, *Batch[B]) bool) {
		order := l.order(epoch)
		bs := l.cfg.BatchSize
		for i := 0; i < l.Len(); i++ {
			end := min((i+1)*bs, len(order))
			if !yield(i, l.collate(order[i*bs:end], epoch)) {
				return
			}
		}
	}
}

func (l *Loader[B]) order(epoch uint64) []int {
	n := l.ds.Len()
	if l.cfg.Shuffle {
		return rand.New(rand.NewPCG(l.cfg.Seed, epoch)).Perm(n)
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// collate decodes, transforms and stacks the samples at indices.
func (l *Loader[B]) collate(indices []int, epoch uint64) *Batch[B] {
	images := make([]transform.Image, len(indices))
	labels := make([]int32, len(indices))

	parallel.For(len(indices), func(i int) {
		idx := indices[i]
		im, label := l.ds.Get(idx)
		if l.cfg.Transform != nil {
			rng := rand.New(rand.NewPCG(l.cfg.Seed^epoch<<32, uint64(idx))) //nolint:gosec // idx is non-negative
			im = l.cfg.Transform.Apply(im, rng)
		}
		images[i] = im
		labels[i] = label
	}, parallel.Workers(l.cfg.NumWorkers))

	first := images[0]
	size := first.C * first.H * first.W
	inputs := tensor.Zeros(tensor.Shape{len(images), first.C, first.H, first.W}, l.backend)
	data := inputs.Data()
	for i, im := range images {
		if len(im.Pix) != size {
			panic(fmt.Sprintf("loader: sample %d has %d values, want %d", indices[i], len(im.Pix), size))
		}
		copy(data[i*size:], im.Pix)
	}
	return &Batch[B]{Inputs: inputs, Labels: labels}
}
