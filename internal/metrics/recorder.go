package metrics

import (
	"errors"
	"fmt"
	"maps"
)

// LogOptions controls how a logged value is aggregated.
type LogOptions struct {
	OnStep    bool // Emit the raw value with the current step
	OnEpoch   bool // Average over the epoch and emit at EndEpoch
	BatchSize int  // Weight of the value in the epoch average (default 1)
}

// Step and Epoch are the common option sets.
var (
	Step  = LogOptions{OnStep: true}
	Epoch = LogOptions{OnEpoch: true}
)

type weightedMean struct {
	sum    float64
	weight float64
}

// Recorder collects values logged by a model during a run and forwards
// them to loggers: step values every logEvery steps, epoch values as
// weighted means at the end of each epoch.
type Recorder struct {
	loggers  []Logger
	logEvery int

	step    map[string]float64
	epoch   map[string]*weightedMean
	latest  map[string]float64
	emitted int
}

// NewRecorder creates a recorder. logEvery < 1 is treated as 1.
func NewRecorder(logEvery int, loggers ...Logger) *Recorder {
	return &Recorder{
		loggers:  loggers,
		logEvery: max(logEvery, 1),
		step:     make(map[string]float64),
		epoch:    make(map[string]*weightedMean),
		latest:   make(map[string]float64),
	}
}

// Loggers returns the attached loggers.
func (r *Recorder) Loggers() []Logger { return r.loggers }

// Log records a value under name.
func (r *Recorder) Log(name string, value float64, opts LogOptions) {
	if !opts.OnStep && !opts.OnEpoch {
		panic(fmt.Sprintf("metrics: %s logged with neither step nor epoch aggregation", name))
	}
	if opts.OnStep {
		r.step[name] = value
		r.latest[name] = value
	}
	if opts.OnEpoch {
		w := float64(max(opts.BatchSize, 1))
		m, ok := r.epoch[name]
		if !ok {
			m = &weightedMean{}
			r.epoch[name] = m
		}
		m.sum += value * w
		m.weight += w
	}
}

// FlushStep forwards the pending step values to the loggers when
// (step+1) is a multiple of logEvery, then clears them. Returns whether
// values were emitted.
func (r *Recorder) FlushStep(step int) (bool, error) {
	if len(r.step) == 0 {
		return false, nil
	}
	defer clear(r.step)
	if (step+1)%r.logEvery != 0 {
		return false, nil
	}
	r.emitted++
	return true, r.emit(maps.Clone(r.step), step)
}

// EndEpoch emits the epoch averages, tagged with "epoch", at the given step
// and resets them. Returns the averages.
func (r *Recorder) EndEpoch(epoch, step int) (map[string]float64, error) {
	if len(r.epoch) == 0 {
		return nil, nil
	}
	values := make(map[string]float64, len(r.epoch)+1)
	for name, m := range r.epoch {
		values[name] = m.sum / m.weight
		r.latest[name] = values[name]
	}
	clear(r.epoch)
	values["epoch"] = float64(epoch)
	return values, r.emit(values, step)
}

// Metrics returns a copy of the most recent value of every metric.
func (r *Recorder) Metrics() map[string]float64 {
	return maps.Clone(r.latest)
}

// Emitted returns how many step flushes reached the loggers.
func (r *Recorder) Emitted() int { return r.emitted }

// LogHyperparams forwards params to every logger.
func (r *Recorder) LogHyperparams(params map[string]any) error {
	var errs []error
	for _, l := range r.loggers {
		if err := l.LogHyperparams(params); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", l.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Finalize finalizes every logger.
func (r *Recorder) Finalize(status string) error {
	var errs []error
	for _, l := range r.loggers {
		if err := l.Finalize(status); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", l.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (r *Recorder) emit(values map[string]float64, step int) error {
	var errs []error
	for _, l := range r.loggers {
		if err := l.LogMetrics(values, step); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", l.Name(), err))
		}
	}
	return errors.Join(errs...)
}
