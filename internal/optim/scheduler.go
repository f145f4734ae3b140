package optim

import (
	"errors"
	"fmt"
	"math"
)

// ErrScheduleExhausted is returned by a scheduler stepped past its total
// number of steps.
var ErrScheduleExhausted = errors.New("optim: learning rate schedule exhausted")

// Interval says how often a scheduler is stepped by the training loop.
type Interval string

// Scheduler step intervals.
const (
	IntervalStep  Interval = "step"
	IntervalEpoch Interval = "epoch"
)

// Scheduler adjusts an optimizer's hyperparameters over training.
type Scheduler interface {
	// Step advances the schedule by one unit and applies the new values.
	Step() error

	// LastLR returns the learning rate applied by the most recent step.
	LastLR() float32
}

// OneCycleConfig configures OneCycleLR. Zero values take the defaults of
// torch.optim.lr_scheduler.OneCycleLR.
type OneCycleConfig struct {
	MaxLR          float32 // Peak learning rate (required)
	Epochs         int     // Number of epochs (required with StepsPerEpoch)
	StepsPerEpoch  int     // Optimizer steps per epoch
	TotalSteps     int     // Overrides Epochs*StepsPerEpoch when set
	PctStart       float64 // Fraction of the cycle spent increasing the LR (default: 0.3)
	DivFactor      float64 // initial_lr = MaxLR / DivFactor (default: 25)
	FinalDivFactor float64 // min_lr = initial_lr / FinalDivFactor (default: 1e4)
	BaseMomentum   float32 // Momentum at peak LR (default: 0.85)
	MaxMomentum    float32 // Momentum at the ends of the cycle (default: 0.95)
	// DisableCycleMomentum leaves the optimizer momentum untouched.
	DisableCycleMomentum bool
}

// OneCycleLR implements the 1cycle policy (Smith & Topin, 2017) with cosine
// annealing in two phases:
//
//	phase 1: lr initial -> max,  momentum max  -> base   (PctStart of the steps)
//	phase 2: lr max -> min,      momentum base -> max    (the rest)
//
// The schedule is applied on construction (step 0) and advanced by every
// call to Step. Stepping beyond TotalSteps returns ErrScheduleExhausted and
// leaves the optimizer unchanged.
type OneCycleLR struct {
	opt        Optimizer
	momentum   MomentumOptimizer // nil when momentum is not cycled
	totalSteps int
	phaseEnd   float64
	initialLR  float64
	maxLR      float64
	minLR      float64
	baseMom    float64
	maxMom     float64
	stepNum    int
	lastLR     float32
}

// NewOneCycleLR creates the scheduler and applies the step-0 values to opt.
func NewOneCycleLR(opt Optimizer, cfg OneCycleConfig) (*OneCycleLR, error) {
	if cfg.MaxLR <= 0 {
		return nil, fmt.Errorf("one cycle: max lr must be positive, got %v", cfg.MaxLR)
	}
	total := cfg.TotalSteps
	if total <= 0 {
		if cfg.Epochs <= 0 || cfg.StepsPerEpoch <= 0 {
			return nil, fmt.Errorf("one cycle: need total steps or positive epochs (%d) and steps per epoch (%d)",
				cfg.Epochs, cfg.StepsPerEpoch)
		}
		total = cfg.Epochs * cfg.StepsPerEpoch
	}
	if cfg.PctStart == 0 {
		cfg.PctStart = 0.3
	}
	if cfg.PctStart < 0 || cfg.PctStart > 1 {
		return nil, fmt.Errorf("one cycle: pct start must be in [0, 1], got %v", cfg.PctStart)
	}
	if cfg.DivFactor == 0 {
		cfg.DivFactor = 25
	}
	if cfg.FinalDivFactor == 0 {
		cfg.FinalDivFactor = 1e4
	}
	if cfg.BaseMomentum == 0 {
		cfg.BaseMomentum = 0.85
	}
	if cfg.MaxMomentum == 0 {
		cfg.MaxMomentum = 0.95
	}

	initial := float64(cfg.MaxLR) / cfg.DivFactor
	s := &OneCycleLR{
		opt:        opt,
		totalSteps: total,
		phaseEnd:   cfg.PctStart*float64(total) - 1,
		initialLR:  initial,
		maxLR:      float64(cfg.MaxLR),
		minLR:      initial / cfg.FinalDivFactor,
		baseMom:    float64(cfg.BaseMomentum),
		maxMom:     float64(cfg.MaxMomentum),
	}
	if m, ok := opt.(MomentumOptimizer); ok && !cfg.DisableCycleMomentum {
		s.momentum = m
	}
	s.apply()
	return s, nil
}

// Step advances the schedule by one optimizer step.
func (s *OneCycleLR) Step() error {
	if s.stepNum+1 > s.totalSteps {
		return fmt.Errorf("%w: step %d of %d", ErrScheduleExhausted, s.stepNum+1, s.totalSteps)
	}
	s.stepNum++
	s.apply()
	return nil
}

// LastLR returns the most recently applied learning rate.
func (s *OneCycleLR) LastLR() float32 { return s.lastLR }

// TotalSteps returns the length of the cycle.
func (s *OneCycleLR) TotalSteps() int { return s.totalSteps }

// StepNum returns the current position in the cycle.
func (s *OneCycleLR) StepNum() int { return s.stepNum }

func (s *OneCycleLR) apply() {
	lr, mom := s.values(float64(s.stepNum))
	s.lastLR = float32(lr)
	s.opt.SetLR(s.lastLR)
	if s.momentum != nil {
		s.momentum.SetMomentum(float32(mom))
	}
}

func (s *OneCycleLR) values(step float64) (lr, momentum float64) {
	if step <= s.phaseEnd {
		pct := ratio(step, s.phaseEnd)
		return cosineAnneal(s.initialLR, s.maxLR, pct), cosineAnneal(s.maxMom, s.baseMom, pct)
	}
	pct := ratio(step-s.phaseEnd, float64(s.totalSteps-1)-s.phaseEnd)
	return cosineAnneal(s.maxLR, s.minLR, pct), cosineAnneal(s.baseMom, s.maxMom, pct)
}

// ratio is num/den, with degenerate one-step phases counted as complete.
func ratio(num, den float64) float64 {
	if den <= 0 {
		return 1
	}
	return num / den
}

// cosineAnneal moves from start to end as pct goes from 0 to 1.
func cosineAnneal(start, end, pct float64) float64 {
	return end + (start-end)/2*(math.Cos(math.Pi*pct)+1)
}
