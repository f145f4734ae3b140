package tensor

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

var (
	rngMu sync.Mutex
	//nolint:gosec // weight initialization is not security-critical
	rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
)

// SetSeed reseeds the generator used by Randn and Uniform.
func SetSeed(seed uint64) {
	rngMu.Lock()
	defer rngMu.Unlock()
	//nolint:gosec // weight initialization is not security-critical
	rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Zeros creates a tensor filled with zeros.
func Zeros[B Backend](shape Shape, b B) *Tensor[B] {
	raw, err := NewRaw(shape, b.Device())
	if err != nil {
		panic(fmt.Sprintf("zeros: %v", err))
	}
	return New(raw, b)
}

// Ones creates a tensor filled with ones.
func Ones[B Backend](shape Shape, b B) *Tensor[B] {
	return Full(shape, 1, b)
}

// Full creates a tensor filled with value.
func Full[B Backend](shape Shape, value float32, b B) *Tensor[B] {
	t := Zeros(shape, b)
	t.raw.Fill(value)
	return t
}

// Randn creates a tensor with values drawn from N(0, 1).
func Randn[B Backend](shape Shape, b B) *Tensor[B] {
	t := Zeros(shape, b)
	data := t.Data()
	rngMu.Lock()
	defer rngMu.Unlock()
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}
	return t
}

// Uniform creates a tensor with values drawn from U(-bound, bound).
func Uniform[B Backend](shape Shape, bound float64, b B) *Tensor[B] {
	t := Zeros(shape, b)
	data := t.Data()
	rngMu.Lock()
	defer rngMu.Unlock()
	for i := range data {
		data[i] = float32((rng.Float64()*2.0 - 1.0) * bound)
	}
	return t
}
