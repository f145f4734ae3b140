// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package classifier

import (
	"fmt"

	"github.com/born-ml/helloworld/internal/nn"
	"github.com/born-ml/helloworld/internal/optim"
	"github.com/born-ml/helloworld/internal/tensor"
	"github.com/born-ml/helloworld/internal/zoo"
)

// ResNet training constants.
const (
	ResNetClasses     = 10
	ResNetWeightDecay = 5e-4
	ResNetMaxLR       = 0.1
)

// ResNetConfig holds the ResNet hyperparameters.
type ResNetConfig struct {
	LR float32 // Adam learning rate before the schedule takes over (default: 0.05)
}

// DefaultResNetConfig returns the default ResNet hyperparameters.
func DefaultResNetConfig() ResNetConfig {
	return ResNetConfig{LR: 0.05}
}

// ResNet is ResNet-18 adapted to 32x32 images: the 7x7/2 stem is replaced by
// a 3x3/1 convolution and the stem max-pool by the identity.
type ResNet[B tensor.Backend] struct {
	cfg ResNetConfig
	net *zoo.ResNet[B]
}

// NewResNet builds a ResNet-18 classifier with 10 outputs.
func NewResNet[B tensor.Backend](cfg ResNetConfig, backend B) *Classifier[B] {
	if cfg.LR == 0 {
		cfg.LR = DefaultResNetConfig().LR
	}

	net := zoo.ResNet18(ResNetClasses, backend)
	stem := nn.NewConv2D(3, 64, 3, 1, 1, false, backend)
	zoo.InitConv(stem, backend)
	net.Conv1 = stem
	net.MaxPool = nn.NewIdentity[B]()

	return New[B](&ResNet[B]{cfg: cfg, net: net}, map[string]any{
		"lr": widen(cfg.LR),
	})
}

// Net returns the underlying network.
func (r *ResNet[B]) Net() *zoo.ResNet[B] { return r.net }

// ComputeLogits runs the network.
func (r *ResNet[B]) ComputeLogits(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	return r.net.Forward(x)
}

// Parameters returns the network's trainable parameters.
func (r *ResNet[B]) Parameters() []*nn.Parameter[B] { return r.net.Parameters() }

// SetTraining switches the batch norms between batch and running statistics.
func (r *ResNet[B]) SetTraining(training bool) { r.net.SetTraining(training) }

// ConfigureOptimizers returns Adam with weight decay driven by a one-cycle
// schedule peaking at ResNetMaxLR, stepped after every optimizer step.
func (r *ResNet[B]) ConfigureOptimizers(fit FitInfo, params []*nn.Parameter[B]) (*Optimization[B], error) {
	opt := optim.NewAdam(params, optim.AdamConfig{LR: r.cfg.LR, WeightDecay: ResNetWeightDecay})
	sched, err := optim.NewOneCycleLR(opt, optim.OneCycleConfig{
		MaxLR:         ResNetMaxLR,
		Epochs:        fit.MaxEpochs,
		StepsPerEpoch: StepsPerEpoch(fit.TrainSize, fit.BatchSize),
	})
	if err != nil {
		return nil, fmt.Errorf("resnet: %w", err)
	}
	return &Optimization[B]{
		Optimizer: opt,
		Params:    params,
		Scheduler: sched,
		Interval:  optim.IntervalStep,
	}, nil
}
