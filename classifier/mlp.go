// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package classifier

import (
	"github.com/born-ml/helloworld/internal/nn"
	"github.com/born-ml/helloworld/internal/optim"
	"github.com/born-ml/helloworld/internal/tensor"
)

// MLPConfig holds the MLP hyperparameters.
type MLPConfig struct {
	NClasses int     // Output classes (default: 10)
	NLayer1  int     // Width of the first hidden layer (default: 128)
	NLayer2  int     // Width of the second hidden layer (default: 256)
	LR       float32 // Adam learning rate (default: 1e-4)
}

// DefaultMLPConfig returns the default MLP hyperparameters.
func DefaultMLPConfig() MLPConfig {
	return MLPConfig{NClasses: 10, NLayer1: 128, NLayer2: 256, LR: 1e-4}
}

// MLP is a two-hidden-layer perceptron over flattened images, structured as
// stem (flatten), learner (two Linear+ReLU) and task (Linear to logits).
type MLP[B tensor.Backend] struct {
	cfg    MLPConfig
	layer1 *nn.Linear[B]
	layer2 *nn.Linear[B]
	layer3 *nn.Linear[B]
}

// NewMLP builds an MLP classifier for inputs of shape inDims (e.g. 1x28x28).
// Zero-valued config fields take their defaults.
func NewMLP[B tensor.Backend](inDims tensor.Shape, cfg MLPConfig, backend B) *Classifier[B] {
	def := DefaultMLPConfig()
	if cfg.NClasses == 0 {
		cfg.NClasses = def.NClasses
	}
	if cfg.NLayer1 == 0 {
		cfg.NLayer1 = def.NLayer1
	}
	if cfg.NLayer2 == 0 {
		cfg.NLayer2 = def.NLayer2
	}
	if cfg.LR == 0 {
		cfg.LR = def.LR
	}

	m := &MLP[B]{
		cfg:    cfg,
		layer1: nn.NewLinear(inDims.NumElements(), cfg.NLayer1, backend),
		layer2: nn.NewLinear(cfg.NLayer1, cfg.NLayer2, backend),
		layer3: nn.NewLinear(cfg.NLayer2, cfg.NClasses, backend),
	}
	return New[B](m, map[string]any{
		"in_dims":   []int(inDims.Clone()),
		"n_classes": cfg.NClasses,
		"n_layer_1": cfg.NLayer1,
		"n_layer_2": cfg.NLayer2,
		"lr":        widen(cfg.LR),
	})
}

// Config returns the hyperparameters the model was built with.
func (m *MLP[B]) Config() MLPConfig { return m.cfg }

// ComputeLogits flattens x and applies the three linear layers.
func (m *MLP[B]) ComputeLogits(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	x = x.Flatten()
	x = m.layer1.Forward(x).ReLU()
	x = m.layer2.Forward(x).ReLU()
	return m.layer3.Forward(x)
}

// Parameters returns the weights and biases of the three layers.
func (m *MLP[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	for _, l := range []*nn.Linear[B]{m.layer1, m.layer2, m.layer3} {
		params = append(params, l.Parameters()...)
	}
	return params
}

// ConfigureOptimizers returns Adam at the configured learning rate.
func (m *MLP[B]) ConfigureOptimizers(_ FitInfo, params []*nn.Parameter[B]) (*Optimization[B], error) {
	return &Optimization[B]{
		Optimizer: optim.NewAdam(params, optim.AdamConfig{LR: m.cfg.LR}),
		Params:    params,
		Interval:  optim.IntervalStep,
	}, nil
}
