// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package trainer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/helloworld/internal/accelerator"
)

// ErrInvalidArgs is wrapped by every Args validation error.
var ErrInvalidArgs = errors.New("trainer: invalid args")

// Gradient clipping algorithms.
const (
	ClipByValue = "value"
	ClipByNorm  = "norm"
)

// Args is the curated set of tunable trainer parameters.
//
// Create it with NewArgs so that every instance owns its callback and
// logger slices; treat it as read-only once a Trainer has been built from
// it.
type Args struct {
	// Required.
	LogEveryNSteps int `yaml:"log_every_n_steps"` // Logging frequency in training batches
	MaxEpochs      int `yaml:"max_epochs"`        // Number of epochs

	Accelerator    string `yaml:"accelerator"`      // "auto", "cpu" or "gpu"
	AutoSelectGPUs bool   `yaml:"auto_select_gpus"` // Pick free GPUs automatically
	GPUs           *int   `yaml:"gpus"`             // GPUs to use; nil for none

	Deterministic         bool    `yaml:"deterministic"`           // Require reproducible kernels
	AutoScaleBatchSize    string  `yaml:"auto_scale_batch_size"`   // Batch size search mode, "" to disable
	Benchmark             bool    `yaml:"benchmark"`               // Let kernels autotune
	AccumulateGradBatches int     `yaml:"accumulate_grad_batches"` // Batches per optimizer step
	GradientClipVal       float64 `yaml:"gradient_clip_val"`       // 0 disables clipping
	GradientClipAlgorithm string  `yaml:"gradient_clip_algorithm"` // "value" or "norm"
	AutoLRFind            bool    `yaml:"auto_lr_find"`            // Run a learning rate finder
	StochasticWeightAvg   bool    `yaml:"stochastic_weight_avg"`   // Average weights late in training

	Callbacks []Callback `yaml:"-"`
	Loggers   []Logger   `yaml:"-"`
}

// ArgsOption customizes Args built by NewArgs.
type ArgsOption func(*Args)

// NewArgs returns Args with the required fields set and every optional
// field at its default. GPU-related defaults depend on whether a GPU
// adapter is detected.
//
// Example:
//
//	args := trainer.NewArgs(50, 10,
//	    trainer.WithAccumulateGradBatches(1),
//	    trainer.WithLoggers(trainer.NewCSVLogger("logs", "mnist")),
//	)
func NewArgs(logEveryNSteps, maxEpochs int, opts ...ArgsOption) *Args {
	gpu := accelerator.GPUAvailable()
	a := &Args{
		LogEveryNSteps:        logEveryNSteps,
		MaxEpochs:             maxEpochs,
		Accelerator:           string(accelerator.Auto),
		AutoSelectGPUs:        gpu,
		AutoScaleBatchSize:    "binsearch",
		Benchmark:             true,
		AccumulateGradBatches: 3,
		GradientClipVal:       0.5,
		GradientClipAlgorithm: ClipByValue,
		AutoLRFind:            true,
		StochasticWeightAvg:   true,
		Callbacks:             []Callback{},
		Loggers:               []Logger{},
	}
	if gpu {
		one := 1
		a.GPUs = &one
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WithAccelerator selects "auto", "cpu" or "gpu".
func WithAccelerator(name string) ArgsOption {
	return func(a *Args) { a.Accelerator = name }
}

// WithGPUs sets the GPU count; a negative n clears it.
func WithGPUs(n int) ArgsOption {
	return func(a *Args) {
		if n < 0 {
			a.GPUs = nil
			return
		}
		a.GPUs = &n
	}
}

// WithDeterministic requires reproducible execution.
func WithDeterministic(on bool) ArgsOption {
	return func(a *Args) { a.Deterministic = on }
}

// WithAccumulateGradBatches sets how many batches contribute to each
// optimizer step.
func WithAccumulateGradBatches(n int) ArgsOption {
	return func(a *Args) { a.AccumulateGradBatches = n }
}

// WithGradientClipping sets the clip threshold and algorithm.
func WithGradientClipping(val float64, algorithm string) ArgsOption {
	return func(a *Args) {
		a.GradientClipVal = val
		a.GradientClipAlgorithm = algorithm
	}
}

// WithTuning sets the tuning flags: batch size search mode ("" disables),
// learning rate finder and stochastic weight averaging.
func WithTuning(autoScaleBatchSize string, autoLRFind, swa bool) ArgsOption {
	return func(a *Args) {
		a.AutoScaleBatchSize = autoScaleBatchSize
		a.AutoLRFind = autoLRFind
		a.StochasticWeightAvg = swa
	}
}

// WithCallbacks appends callbacks.
func WithCallbacks(cbs ...Callback) ArgsOption {
	return func(a *Args) { a.Callbacks = append(a.Callbacks, cbs...) }
}

// WithLoggers appends metric loggers.
func WithLoggers(ls ...Logger) ArgsOption {
	return func(a *Args) { a.Loggers = append(a.Loggers, ls...) }
}

type field struct {
	key   string
	value any
}

// fields lists the options in declaration order.
func (a *Args) fields() []field {
	var gpus any
	if a.GPUs != nil {
		gpus = *a.GPUs
	}
	callbacks := make([]string, len(a.Callbacks))
	for i, cb := range a.Callbacks {
		callbacks[i] = cb.Name()
	}
	loggers := make([]string, len(a.Loggers))
	for i, l := range a.Loggers {
		loggers[i] = l.Name()
	}
	return []field{
		{"log_every_n_steps", a.LogEveryNSteps},
		{"max_epochs", a.MaxEpochs},
		{"accelerator", a.Accelerator},
		{"auto_select_gpus", a.AutoSelectGPUs},
		{"gpus", gpus},
		{"deterministic", a.Deterministic},
		{"auto_scale_batch_size", a.AutoScaleBatchSize},
		{"benchmark", a.Benchmark},
		{"accumulate_grad_batches", a.AccumulateGradBatches},
		{"gradient_clip_val", a.GradientClipVal},
		{"gradient_clip_algorithm", a.GradientClipAlgorithm},
		{"auto_lr_find", a.AutoLRFind},
		{"stochastic_weight_avg", a.StochasticWeightAvg},
		{"callbacks", callbacks},
		{"logger", loggers},
	}
}

// ToMap returns option name -> value. GPUs is nil when unset; callbacks and
// loggers are listed by name.
func (a *Args) ToMap() map[string]any {
	fs := a.fields()
	m := make(map[string]any, len(fs))
	for _, f := range fs {
		m[f.key] = f.value
	}
	return m
}

// String renders one "key = value" line per option.
func (a *Args) String() string {
	fs := a.fields()
	lines := make([]string, len(fs))
	for i, f := range fs {
		v := f.value
		if v == nil {
			v = "None"
		}
		lines[i] = fmt.Sprintf("%s = %v", f.key, v)
	}
	return strings.Join(lines, "\n")
}

// Validate checks required fields, enums and ranges. The returned error
// wraps ErrInvalidArgs and lists every problem.
func (a *Args) Validate() error {
	var problems []string
	if a.LogEveryNSteps <= 0 {
		problems = append(problems, fmt.Sprintf("log_every_n_steps must be positive, got %d", a.LogEveryNSteps))
	}
	if a.MaxEpochs <= 0 {
		problems = append(problems, fmt.Sprintf("max_epochs must be positive, got %d", a.MaxEpochs))
	}
	if !accelerator.Kind(a.Accelerator).Valid() {
		problems = append(problems, fmt.Sprintf("accelerator must be auto, cpu or gpu, got %q", a.Accelerator))
	}
	if a.GPUs != nil && *a.GPUs < 0 {
		problems = append(problems, fmt.Sprintf("gpus must be non-negative, got %d", *a.GPUs))
	}
	switch a.AutoScaleBatchSize {
	case "", "power", "binsearch":
	default:
		problems = append(problems, fmt.Sprintf("auto_scale_batch_size must be power or binsearch, got %q", a.AutoScaleBatchSize))
	}
	if a.AccumulateGradBatches < 1 {
		problems = append(problems, fmt.Sprintf("accumulate_grad_batches must be at least 1, got %d", a.AccumulateGradBatches))
	}
	if a.GradientClipVal < 0 {
		problems = append(problems, fmt.Sprintf("gradient_clip_val must be non-negative, got %v", a.GradientClipVal))
	}
	switch a.GradientClipAlgorithm {
	case ClipByValue, ClipByNorm:
	default:
		problems = append(problems, fmt.Sprintf("gradient_clip_algorithm must be value or norm, got %q", a.GradientClipAlgorithm))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidArgs, strings.Join(problems, "; "))
	}
	return nil
}

// LoadArgs reads Args from a YAML file. Keys absent from the file keep
// their defaults; unknown keys are an error.
func LoadArgs(path string) (*Args, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open args: %w", err)
	}
	defer f.Close()

	a := NewArgs(0, 0)
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(a); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse args %s: %w", path, err)
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// WriteYAML writes the YAML-representable options to w.
func (a *Args) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("encode args: %w", err)
	}
	return enc.Close()
}
