// Package metrics implements classification metrics, step/epoch metric
// aggregation and the loggers metric values are written to.
package metrics

import "fmt"

// Accuracy is a running multiclass accuracy.
//
// Update accumulates a batch and returns that batch's accuracy; Compute
// returns the accuracy over everything since the last Reset.
type Accuracy struct {
	correct int
	total   int
}

// Update adds a batch of predictions. Panics if the lengths differ.
func (a *Accuracy) Update(preds, target []int32) float64 {
	if len(preds) != len(target) {
		panic(fmt.Sprintf("accuracy: %d predictions for %d targets", len(preds), len(target)))
	}
	correct := 0
	for i, p := range preds {
		if p == target[i] {
			correct++
		}
	}
	a.correct += correct
	a.total += len(preds)
	if len(preds) == 0 {
		return 0
	}
	return float64(correct) / float64(len(preds))
}

// Compute returns the accumulated accuracy, 0 when empty.
func (a *Accuracy) Compute() float64 {
	if a.total == 0 {
		return 0
	}
	return float64(a.correct) / float64(a.total)
}

// Total returns the number of samples seen since the last Reset.
func (a *Accuracy) Total() int { return a.total }

// Reset clears the accumulated state.
func (a *Accuracy) Reset() {
	a.correct, a.total = 0, 0
}
