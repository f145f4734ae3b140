package nn

import (
	"fmt"

	"github.com/born-ml/helloworld/internal/tensor"
)

// NLLLoss computes the mean negative log-likelihood of integer class
// targets under log-probabilities.
//
// Pair it with a LogSoftmax output: LogSoftmax + NLLLoss is cross-entropy.
//
// Example:
//
//	logProbs := logits.LogSoftmax()
//	loss := nn.NewNLLLoss[B]().Forward(logProbs, labels)
type NLLLoss[B tensor.Backend] struct{}

// NewNLLLoss creates an NLLLoss.
func NewNLLLoss[B tensor.Backend]() *NLLLoss[B] { return &NLLLoss[B]{} }

// Forward returns the scalar loss for logProbs [N, C] and targets [N].
func (l *NLLLoss[B]) Forward(logProbs *tensor.Tensor[B], targets []int32) *tensor.Tensor[B] {
	shape := logProbs.Shape()
	if len(shape) != 2 || shape[0] != len(targets) {
		panic(fmt.Sprintf("nll_loss: log-probs %v do not match %d targets", shape, len(targets)))
	}
	backend := logProbs.Backend()
	return tensor.New(backend.NLLLoss(logProbs.Raw(), targets), backend)
}
