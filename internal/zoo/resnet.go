// Package zoo provides reference model architectures built from the nn
// layers.
//
// ResNet18 follows the torchvision layout so that callers can adapt it the
// same way (e.g. swapping the stem for small images):
//
//	net := zoo.ResNet18(10, backend)
//	net.Conv1 = nn.NewConv2D(3, 64, 3, 1, 1, false, backend)
//	net.MaxPool = nn.NewIdentity[B]()
package zoo

import (
	"github.com/born-ml/helloworld/internal/nn"
	"github.com/born-ml/helloworld/internal/tensor"
)

// ResNet is a residual network of BasicBlocks.
//
// The stage modules are exported and may be replaced before training.
type ResNet[B tensor.Backend] struct {
	Conv1   nn.Module[B]
	BN1     *nn.BatchNorm2D[B]
	MaxPool nn.Module[B]
	Layer1  *nn.Sequential[B]
	Layer2  *nn.Sequential[B]
	Layer3  *nn.Sequential[B]
	Layer4  *nn.Sequential[B]
	AvgPool *nn.GlobalAvgPool2D[B]
	FC      *nn.Linear[B]
}

// ResNet18 builds an 18-layer ResNet for 3-channel input with numClasses
// outputs: a 7x7/2 stem, 3x3/2 max-pool, four stages of two BasicBlocks
// (64, 128, 256, 512 channels) and a linear head.
//
// Convolutions use Kaiming-normal (fan-out) initialization, batch norms
// start at identity.
func ResNet18[B tensor.Backend](numClasses int, backend B) *ResNet[B] {
	return NewResNet([4]int{2, 2, 2, 2}, numClasses, backend)
}

// NewResNet builds a BasicBlock ResNet with the given number of blocks per
// stage.
func NewResNet[B tensor.Backend](layers [4]int, numClasses int, backend B) *ResNet[B] {
	conv1 := nn.NewConv2D(3, 64, 7, 2, 3, false, backend)
	InitConv(conv1, backend)

	net := &ResNet[B]{
		Conv1:   conv1,
		BN1:     nn.NewBatchNorm2D(64, backend),
		MaxPool: nn.NewMaxPool2D[B](3, 2, 1),
		AvgPool: nn.NewGlobalAvgPool2D[B](),
		FC:      nn.NewLinear(512, numClasses, backend),
	}

	inplanes := 64
	net.Layer1, inplanes = makeLayer(inplanes, 64, layers[0], 1, backend)
	net.Layer2, inplanes = makeLayer(inplanes, 128, layers[1], 2, backend)
	net.Layer3, inplanes = makeLayer(inplanes, 256, layers[2], 2, backend)
	net.Layer4, _ = makeLayer(inplanes, 512, layers[3], 2, backend)
	return net
}

func makeLayer[B tensor.Backend](inplanes, planes, blocks, stride int, backend B) (*nn.Sequential[B], int) {
	layer := nn.NewSequential[B](NewBasicBlock(inplanes, planes, stride, backend))
	for i := 1; i < blocks; i++ {
		layer.Add(NewBasicBlock(planes, planes, 1, backend))
	}
	return layer, planes
}

// InitConv re-initializes a convolution's kernel with Kaiming-normal
// (fan-out) values, as torchvision does for ResNet.
func InitConv[B tensor.Backend](conv *nn.Conv2D[B], backend B) {
	k := conv.KernelSize()
	w := conv.Weight().Tensor()
	copy(w.Data(), nn.KaimingNormal(conv.OutChannels()*k*k, w.Shape(), backend).Data())
}

// Forward maps [N, 3, H, W] images to [N, numClasses] logits.
func (r *ResNet[B]) Forward(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	x = r.Conv1.Forward(x)
	x = r.BN1.Forward(x).ReLU()
	x = r.MaxPool.Forward(x)

	x = r.Layer1.Forward(x)
	x = r.Layer2.Forward(x)
	x = r.Layer3.Forward(x)
	x = r.Layer4.Forward(x)

	return r.FC.Forward(r.AvgPool.Forward(x))
}

// Parameters returns all trainable parameters, stem first.
func (r *ResNet[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	for _, m := range r.modules() {
		params = append(params, m.Parameters()...)
	}
	return params
}

// SetTraining switches every batch norm between training and evaluation.
func (r *ResNet[B]) SetTraining(training bool) {
	for _, m := range r.modules() {
		nn.SetTraining(m, training)
	}
}

func (r *ResNet[B]) modules() []nn.Module[B] {
	return []nn.Module[B]{
		r.Conv1, r.BN1, r.MaxPool,
		r.Layer1, r.Layer2, r.Layer3, r.Layer4,
		r.AvgPool, r.FC,
	}
}
