// Package optim implements the optimizers, learning-rate schedules and
// gradient clipping used to train the classifiers.
//
// This package provides:
//   - Optimizer interface: Step, ZeroGrad and learning-rate access
//   - Adam: Adaptive Moment Estimation with optional L2 weight decay
//   - OneCycleLR: the one-cycle policy with cosine annealing
//   - ClipGradValue / ClipGradNorm: gradient clipping
//
// Gradients are read from nn.Parameter.Grad, so several backward passes can
// be accumulated into the parameters before a single Step.
//
// Example usage:
//
//	optimizer := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 0.001})
//
//	backend.Tape().StartRecording()
//	loss := lossFunc.Forward(model.Forward(input), targets)
//	nn.AccumulateGrads(model.Parameters(), autodiff.Backward(loss, backend))
//	backend.Tape().Clear()
//
//	optimizer.Step()
//	optimizer.ZeroGrad()
package optim

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies the accumulated parameter gradients.
	// Parameters without a gradient are skipped.
	Step()

	// ZeroGrad clears all parameter gradients.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float32

	// SetLR overrides the learning rate (used by schedulers).
	SetLR(lr float32)
}

// MomentumOptimizer is an optimizer whose momentum term can be cycled by a
// scheduler. For Adam the momentum is beta1.
type MomentumOptimizer interface {
	Optimizer
	Momentum() float32
	SetMomentum(m float32)
}

// Config is the base configuration for all optimizers.
type Config struct {
	LR float32 // Learning rate
}
